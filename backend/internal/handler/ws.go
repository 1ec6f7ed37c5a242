package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clear-retro/clearretro/backend/internal/ws"
	mw "github.com/clear-retro/clearretro/shared/middleware"
	"github.com/clear-retro/clearretro/shared/utils"
)

// Subscribe upgrades to a websocket and streams board snapshots until the
// peer disconnects.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	boardId := chi.URLParam(r, "board")

	// Reject before upgrading so the client gets a proper status code.
	if _, err := h.board.GetMetadata(boardId); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "board", boardId, "error", err)
		return
	}

	ws.NewClient(h.hub, conn, boardId, user.Id, h.logger).Serve()
}
