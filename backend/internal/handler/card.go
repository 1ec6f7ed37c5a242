package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
	mw "github.com/clear-retro/clearretro/shared/middleware"
	"github.com/clear-retro/clearretro/shared/utils"
)

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")

	var body api.CreateCardRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	card, err := h.card.Create(domain.CardCreationData{
		Board:        boardId,
		Column:       body.Column,
		Text:         body.Text,
		AuthorId:     user.Id,
		AuthorName:   user.Name,
		IsActionItem: body.IsActionItem,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, api.CreateCardResponse{Card: card})
}

func (h *Handler) GetCards(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")

	cards, err := h.card.List(boardId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, api.CardListResponse{Cards: cards})
}

func (h *Handler) MoveCard(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	var body api.MoveCardRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.card.Move(boardId, cardId, body.Column, body.Order); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) UpdateCardText(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	var body api.UpdateCardTextRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.card.UpdateText(boardId, cardId, user.Id, body.Text); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	if err := h.card.Delete(boardId, cardId); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	if err := h.card.ToggleVote(boardId, cardId, user.Id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	var body api.ReactRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.card.ToggleReaction(boardId, cardId, body.Emoji, user.Id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ReplyToCard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	var body api.ReplyRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.card.Reply(boardId, cardId, body.Text, *user); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) MergeCards(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	var body api.MergeRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.card.Merge(boardId, cardId, body.Source); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) SetActionItem(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")
	cardId := chi.URLParam(r, "card")

	var body api.ActionItemRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	enabled := true
	if body.IsActionItem != nil {
		enabled = *body.IsActionItem
	}
	var action *domain.ActionItem
	if body.Status != nil || body.AssigneeId != nil || body.Priority != nil || body.DueDate != nil {
		action = &domain.ActionItem{DueDate: body.DueDate}
		if body.Status != nil {
			action.Status = *body.Status
		}
		if body.AssigneeId != nil {
			action.AssigneeId = *body.AssigneeId
		}
		if body.AssigneeName != nil {
			action.AssigneeName = *body.AssigneeName
		}
		if body.Priority != nil {
			action.Priority = *body.Priority
		}
	}

	if err := h.card.SetActionItem(boardId, cardId, enabled, action); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
