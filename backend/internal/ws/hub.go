package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
	"github.com/clear-retro/clearretro/shared/middleware/metrics"
)

// SnapshotSource yields the state a newly connected or notified subscriber
// receives. Implemented by the storage layer.
type SnapshotSource interface {
	GetBoardMetadata(id domain.BoardId) (*domain.BoardMetadata, error)
	GetCards(board domain.BoardId) ([]*domain.Card, error)
}

// Hub fans board state out to websocket subscribers. Each board is a room;
// every mutation re-broadcasts the full card list to the room, so clients
// reconcile against complete snapshots instead of deltas.
type Hub struct {
	source SnapshotSource
	logger *slog.Logger

	register   chan *Client
	unregister chan *Client
	notify     chan notification

	rooms map[domain.BoardId]map[*Client]bool
	seq   atomic.Uint64
}

type notification struct {
	board domain.BoardId
	kind  string // api.EventSnapshot or api.EventBoard
}

func NewHub(source SnapshotSource, logger *slog.Logger, buffer int) *Hub {
	return &Hub{
		source:     source,
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan notification, buffer),
		rooms:      make(map[domain.BoardId]map[*Client]bool),
	}
}

// CardsChanged implements service.Broadcaster.
func (h *Hub) CardsChanged(board domain.BoardId) {
	h.enqueue(notification{board: board, kind: api.EventSnapshot})
}

// BoardChanged implements service.Broadcaster.
func (h *Hub) BoardChanged(board domain.BoardId) {
	h.enqueue(notification{board: board, kind: api.EventBoard})
}

// enqueue never blocks a mutation; under backpressure the notification is
// dropped and the next one carries the same full state anyway.
func (h *Hub) enqueue(n notification) {
	select {
	case h.notify <- n:
	default:
		h.logger.Warn("notification buffer full, dropping", "board", n.board, "kind", n.kind)
	}
}

// Run is the hub's main loop. It owns the room map; all access goes through
// the channels.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
			}
			return
		case client := <-h.register:
			room := h.rooms[client.board]
			if room == nil {
				room = make(map[*Client]bool)
				h.rooms[client.board] = room
			}
			room[client] = true
			metrics.BoardSubscribers.WithLabelValues(client.board).Inc()
			h.logger.Debug("subscriber joined", "board", client.board, "user", client.user)
			h.sendSnapshot(client)
		case client := <-h.unregister:
			if room, ok := h.rooms[client.board]; ok && room[client] {
				delete(room, client)
				close(client.send)
				metrics.BoardSubscribers.WithLabelValues(client.board).Dec()
				if len(room) == 0 {
					delete(h.rooms, client.board)
				}
				h.logger.Debug("subscriber left", "board", client.board, "user", client.user)
			}
		case n := <-h.notify:
			h.broadcast(n)
		}
	}
}

func (h *Hub) broadcast(n notification) {
	room := h.rooms[n.board]
	if len(room) == 0 {
		return
	}
	payload, err := h.buildEvent(n.board, n.kind)
	if err != nil {
		h.logger.Error("building event", "board", n.board, "kind", n.kind, "error", err)
		return
	}
	metrics.SnapshotsBroadcast.WithLabelValues(n.kind).Inc()
	for client := range room {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop it, the client reconnects and resyncs.
			delete(room, client)
			close(client.send)
			metrics.BoardSubscribers.WithLabelValues(n.board).Dec()
			h.logger.Warn("subscriber too slow, dropped", "board", n.board, "user", client.user)
		}
	}
}

func (h *Hub) sendSnapshot(client *Client) {
	payload, err := h.buildEvent(client.board, api.EventSnapshot)
	if err != nil {
		h.logger.Error("building initial snapshot", "board", client.board, "error", err)
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (h *Hub) buildEvent(board domain.BoardId, kind string) ([]byte, error) {
	event := api.Event{
		Type:  kind,
		Board: board,
		Seq:   h.seq.Add(1),
		At:    time.Now().UTC(),
	}
	switch kind {
	case api.EventBoard:
		meta, err := h.source.GetBoardMetadata(board)
		if err != nil {
			return nil, err
		}
		event.Meta = meta
	default:
		cards, err := h.source.GetCards(board)
		if err != nil {
			return nil, err
		}
		event.Cards = cards
	}
	return json.Marshal(event)
}
