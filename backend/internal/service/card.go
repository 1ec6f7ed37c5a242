package service

import (
	"github.com/clear-retro/clearretro/backend/internal/service/utils"
	"github.com/clear-retro/clearretro/shared/domain"
	"github.com/clear-retro/clearretro/shared/errors"
	"github.com/clear-retro/clearretro/shared/order"
)

// to mock service in tests
type CardService interface {
	Create(data domain.CardCreationData) (*domain.Card, error)
	List(board domain.BoardId) ([]*domain.Card, error)
	Move(board domain.BoardId, id domain.CardId, column domain.ColumnId, rank float64) error
	UpdateText(board domain.BoardId, id domain.CardId, actor domain.UserId, text string) error
	Delete(board domain.BoardId, id domain.CardId) error
	ToggleVote(board domain.BoardId, id domain.CardId, user domain.UserId) error
	ToggleReaction(board domain.BoardId, id domain.CardId, emoji domain.Emoji, user domain.UserId) error
	Reply(board domain.BoardId, id domain.CardId, text string, author domain.User) error
	Merge(board domain.BoardId, target, source domain.CardId) error
	SetActionItem(board domain.BoardId, id domain.CardId, enabled bool, action *domain.ActionItem) error
}

type CardStorage interface {
	CreateCard(data domain.CardCreationData, step float64) (*domain.Card, error)
	GetCard(board domain.BoardId, id domain.CardId) (*domain.Card, error)
	GetCards(board domain.BoardId) ([]*domain.Card, error)
	WriteCard(board domain.BoardId, id domain.CardId, patch domain.CardPatch) error
	DeleteCard(board domain.BoardId, id domain.CardId) error
	ToggleVote(board domain.BoardId, id domain.CardId, user domain.UserId, voteLimit int) error
	ToggleReaction(board domain.BoardId, id domain.CardId, emoji domain.Emoji, user domain.UserId) error
	AddReply(board domain.BoardId, id domain.CardId, text string, author domain.User) error
	MergeCards(board domain.BoardId, target, source domain.CardId, separator string) error
	GetBoardMetadata(id domain.BoardId) (*domain.BoardMetadata, error)
	TouchBoard(id domain.BoardId) error
}

type Card struct {
	storage    CardStorage
	broadcast  Broadcaster
	maxTextLen int
}

func NewCard(storage CardStorage, broadcast Broadcaster, maxTextLen int) *Card {
	return &Card{storage, broadcast, maxTextLen}
}

func (c *Card) Create(data domain.CardCreationData) (*domain.Card, error) {
	text, err := c.cleanText(data.Text)
	if err != nil {
		return nil, err
	}
	data.Text = text

	meta, err := c.storage.GetBoardMetadata(data.Board)
	if err != nil {
		return nil, err
	}
	if meta.Status != domain.BoardActive {
		return nil, &errors.ErrorWithStatusCode{Message: "Board is completed", StatusCode: 409}
	}
	if meta.Column(data.Column) == nil {
		return nil, errors.New(400, "Unknown column %q", data.Column)
	}

	card, err := c.storage.CreateCard(data, order.Step)
	if err != nil {
		return nil, err
	}
	c.touch(data.Board)
	return card, nil
}

func (c *Card) List(board domain.BoardId) ([]*domain.Card, error) {
	return c.storage.GetCards(board)
}

func (c *Card) Move(board domain.BoardId, id domain.CardId, column domain.ColumnId, rank float64) error {
	meta, err := c.storage.GetBoardMetadata(board)
	if err != nil {
		return err
	}
	if meta.Column(column) == nil {
		return errors.New(400, "Unknown column %q", column)
	}
	patch := domain.CardPatch{Column: &column, Order: &rank}
	if err := c.storage.WriteCard(board, id, patch); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

func (c *Card) UpdateText(board domain.BoardId, id domain.CardId, actor domain.UserId, text string) error {
	clean, err := c.cleanText(text)
	if err != nil {
		return err
	}
	card, err := c.storage.GetCard(board, id)
	if err != nil {
		return err
	}
	if card.AuthorId != actor {
		return &errors.ErrorWithStatusCode{Message: "Only the author can edit a card", StatusCode: 403}
	}
	if err := c.storage.WriteCard(board, id, domain.CardPatch{Text: &clean}); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

func (c *Card) Delete(board domain.BoardId, id domain.CardId) error {
	if err := c.storage.DeleteCard(board, id); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

// ToggleVote adds or removes the user's vote. The per-board limit is enforced
// inside the storage transaction to stay correct under concurrent toggles.
func (c *Card) ToggleVote(board domain.BoardId, id domain.CardId, user domain.UserId) error {
	meta, err := c.storage.GetBoardMetadata(board)
	if err != nil {
		return err
	}
	if err := c.storage.ToggleVote(board, id, user, meta.VoteLimit); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

func (c *Card) ToggleReaction(board domain.BoardId, id domain.CardId, emoji domain.Emoji, user domain.UserId) error {
	if emoji == "" {
		return &errors.ErrorWithStatusCode{Message: "Emoji is empty", StatusCode: 400}
	}
	if err := c.storage.ToggleReaction(board, id, emoji, user); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

func (c *Card) Reply(board domain.BoardId, id domain.CardId, text string, author domain.User) error {
	clean, err := c.cleanText(text)
	if err != nil {
		return err
	}
	if err := c.storage.AddReply(board, id, clean, author); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

func (c *Card) Merge(board domain.BoardId, target, source domain.CardId) error {
	if target == source {
		return &errors.ErrorWithStatusCode{Message: "Cannot merge a card into itself", StatusCode: 400}
	}
	if err := c.storage.MergeCards(board, target, source, domain.MergeSeparator); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

// SetActionItem flips the action-item flag and applies status changes.
// Metadata survives disabling, so re-enabling restores the previous state.
func (c *Card) SetActionItem(board domain.BoardId, id domain.CardId, enabled bool, action *domain.ActionItem) error {
	card, err := c.storage.GetCard(board, id)
	if err != nil {
		return err
	}
	next := card.Action
	if action != nil {
		if action.Status != "" && !domain.ValidStatusTransition(card.Action.Status, action.Status) {
			return errors.New(409, "Cannot move action item from %q to %q", orTodo(card.Action.Status), action.Status)
		}
		if action.Status != "" {
			next.Status = action.Status
			next.Done = action.Status == domain.StatusDone
		}
		if action.AssigneeId != "" || action.AssigneeName != "" {
			next.AssigneeId = action.AssigneeId
			next.AssigneeName = action.AssigneeName
		}
		if action.Priority != "" {
			next.Priority = action.Priority
		}
		if action.DueDate != nil {
			next.DueDate = action.DueDate
		}
	}
	if enabled && next.Status == "" {
		next.Status = domain.StatusTodo
	}
	patch := domain.CardPatch{IsActionItem: &enabled, Action: &next}
	if err := c.storage.WriteCard(board, id, patch); err != nil {
		return err
	}
	c.touch(board)
	return nil
}

func (c *Card) cleanText(text string) (string, error) {
	clean := utils.SanitizeText(text)
	if clean == "" {
		return "", &errors.ErrorWithStatusCode{Message: "Card text is empty", StatusCode: 400}
	}
	if len(clean) > c.maxTextLen {
		return "", errors.New(400, "Card text exceeds %d characters", c.maxTextLen)
	}
	return clean, nil
}

// touch bumps last_activity and pushes a fresh snapshot; failures here must
// not fail the mutation that already committed.
func (c *Card) touch(board domain.BoardId) {
	_ = c.storage.TouchBoard(board)
	c.broadcast.CardsChanged(board)
}

func orTodo(status string) string {
	if status == "" {
		return domain.StatusTodo
	}
	return status
}
