package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
)

// The methods below satisfy the reconciler's Store contract over REST.
// Commutativity of the toggles and atomicity of the merge are provided
// server-side.

func (c *APIClient) CreateCard(ctx context.Context, data domain.CardCreationData, order float64) (*domain.Card, error) {
	// The backend assigns the tail rank itself, which is the same position
	// the caller computed; the hint is not sent.
	_ = order
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/boards/%s/cards", data.Board), api.CreateCardRequest{
		Column:       data.Column,
		Text:         data.Text,
		IsActionItem: data.IsActionItem,
	})
	if err != nil {
		return nil, err
	}
	var created api.CreateCardResponse
	if err := decode(resp, &created); err != nil {
		return nil, err
	}
	return created.Card, nil
}

func (c *APIClient) WriteCard(ctx context.Context, board domain.BoardId, card domain.CardId, patch domain.CardPatch) error {
	if patch.Column != nil || patch.Order != nil {
		var order float64
		if patch.Order != nil {
			order = *patch.Order
		}
		var column domain.ColumnId
		if patch.Column != nil {
			column = *patch.Column
		}
		resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/v1/boards/%s/cards/%s/move", board, card),
			api.MoveCardRequest{Column: column, Order: order})
		if err != nil {
			return err
		}
		discard(resp)
	}

	if patch.Text != nil {
		resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/v1/boards/%s/cards/%s/text", board, card),
			api.UpdateCardTextRequest{Text: *patch.Text})
		if err != nil {
			return err
		}
		discard(resp)
	}

	if patch.IsActionItem != nil || patch.Action != nil {
		req := api.ActionItemRequest{IsActionItem: patch.IsActionItem}
		if patch.Action != nil {
			if patch.Action.Status != "" {
				status := patch.Action.Status
				req.Status = &status
			}
			if patch.Action.AssigneeId != "" {
				assigneeId := patch.Action.AssigneeId
				req.AssigneeId = &assigneeId
			}
			if patch.Action.AssigneeName != "" {
				assigneeName := patch.Action.AssigneeName
				req.AssigneeName = &assigneeName
			}
			if patch.Action.Priority != "" {
				priority := patch.Action.Priority
				req.Priority = &priority
			}
			req.DueDate = patch.Action.DueDate
		}
		resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/v1/boards/%s/cards/%s/action", board, card), req)
		if err != nil {
			return err
		}
		discard(resp)
	}

	return nil
}

func (c *APIClient) DeleteCard(ctx context.Context, board domain.BoardId, card domain.CardId) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/boards/%s/cards/%s", board, card), nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

func (c *APIClient) ToggleVote(ctx context.Context, board domain.BoardId, card domain.CardId, user domain.UserId) error {
	// The server derives the voter from the token; user is part of the Store
	// contract for in-memory implementations.
	_ = user
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/boards/%s/cards/%s/vote", board, card), nil)
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

func (c *APIClient) ToggleReaction(ctx context.Context, board domain.BoardId, card domain.CardId, emoji domain.Emoji, user domain.UserId) error {
	_ = user
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/boards/%s/cards/%s/react", board, card),
		api.ReactRequest{Emoji: emoji})
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

func (c *APIClient) AddReply(ctx context.Context, board domain.BoardId, card domain.CardId, text string, author domain.User) error {
	_ = author
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/boards/%s/cards/%s/replies", board, card),
		api.ReplyRequest{Text: text})
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}

func (c *APIClient) MergeCards(ctx context.Context, board domain.BoardId, target, source domain.CardId) error {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/boards/%s/cards/%s/merge", board, target),
		api.MergeRequest{Source: source})
	if err != nil {
		return err
	}
	discard(resp)
	return nil
}
