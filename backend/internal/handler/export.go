package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clear-retro/clearretro/backend/internal/export"
	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/utils"
)

// ExportBoard renders the board for download. format=md returns raw markdown,
// format=html raw HTML; default is a JSON envelope with both.
func (h *Handler) ExportBoard(w http.ResponseWriter, r *http.Request) {
	boardId := chi.URLParam(r, "board")

	board, err := h.board.Get(boardId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	renderer := export.New()
	markdown := renderer.Markdown(board)
	html, err := renderer.HTML(board)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(markdown))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	default:
		writeJSON(w, api.ExportResponse{Markdown: markdown, HTML: html})
	}
}
