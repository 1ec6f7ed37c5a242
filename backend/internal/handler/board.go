package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
	mw "github.com/clear-retro/clearretro/shared/middleware"
	"github.com/clear-retro/clearretro/shared/utils"
)

func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	var body api.CreateBoardRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	columns := make([]domain.Column, len(body.Columns))
	for i, col := range body.Columns {
		columns[i] = domain.Column{Id: col.Id, Title: col.Title, Color: col.Color, Icon: col.Icon}
	}
	voteLimit := body.VoteLimit
	if voteLimit == 0 {
		voteLimit = h.cfg.Public.DefaultVoteLimit
	}

	meta, err := h.board.Create(domain.BoardCreationData{
		Name:      body.Name,
		Columns:   columns,
		VoteLimit: voteLimit,
		SortMode:  body.SortMode,
		Private:   body.Private,
		Passcode:  body.Passcode,
		CreatedBy: user.Id,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, api.BoardMetadataResponse{BoardMetadata: *meta})
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")

	board, err := h.board.Get(boardId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, api.BoardResponse{Board: *board})
}

// GetBoardMetadata is public: the join screen needs the name and privacy flag
// before the visitor has a token.
func (h *Handler) GetBoardMetadata(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")

	meta, err := h.board.GetMetadata(boardId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, api.BoardMetadataResponse{BoardMetadata: *meta})
}

func (h *Handler) GetMyBoards(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	boards, err := h.board.GetByCreator(user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	metadata := make([]api.BoardMetadataResponse, len(boards))
	for i, board := range boards {
		metadata[i] = api.BoardMetadataResponse{BoardMetadata: *board}
	}
	writeJSON(w, api.BoardListResponse{Boards: metadata})
}

func (h *Handler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")

	var body api.UpdateBoardRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	patch := domain.BoardSettingsPatch{
		Name:      body.Name,
		VoteLimit: body.VoteLimit,
		SortMode:  body.SortMode,
		Private:   body.Private,
		Passcode:  body.Passcode,
	}
	if err := h.board.UpdateSettings(boardId, user.Id, patch); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) CompleteBoard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")

	if err := h.board.SetStatus(boardId, user.Id, domain.BoardCompleted); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ReopenBoard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")

	if err := h.board.SetStatus(boardId, user.Id, domain.BoardActive); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) SetTimer(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")

	var body api.TimerRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.board.SetTimer(boardId, user.Id, body.Action, body.DurationSeconds); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")

	if err := h.board.Delete(boardId, user.Id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
