package api

import (
	"time"

	"github.com/clear-retro/clearretro/shared/domain"
)

// Websocket event envelope. Every board mutation produces a "snapshot" event
// holding the complete current card list, so a subscriber never has to apply
// deltas; it replaces its world on each event.
type Event struct {
	Type  string         `json:"type"`
	Board domain.BoardId `json:"board_id"`
	Seq   uint64         `json:"seq"` // monotonic per subscription
	At    time.Time      `json:"at"`

	Cards []*domain.Card        `json:"cards,omitempty"` // EventSnapshot
	Meta  *domain.BoardMetadata `json:"board,omitempty"` // EventBoard: settings/timer changes
}

const (
	EventSnapshot = "snapshot"
	EventBoard    = "board"
)
