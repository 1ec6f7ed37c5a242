package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/clear-retro/clearretro/backend/internal/service"
	"github.com/clear-retro/clearretro/backend/internal/ws"
	"github.com/clear-retro/clearretro/shared/config"
	"github.com/clear-retro/clearretro/shared/jwt"
)

// Pinger reports dependency liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	board    service.BoardService
	card     service.CardService
	cfg      *config.Config
	jwt      jwt.JwtService
	hub      *ws.Hub
	health   Pinger
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(board service.BoardService, card service.CardService, cfg *config.Config, jwtService jwt.JwtService, hub *ws.Hub, health Pinger, logger *slog.Logger) *Handler {
	h := &Handler{
		board:  board,
		card:   card,
		cfg:    cfg,
		jwt:    jwtService,
		hub:    hub,
		health: health,
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Public.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers already went out, nothing useful to do on encode failure
	_ = json.NewEncoder(w).Encode(v)
}
