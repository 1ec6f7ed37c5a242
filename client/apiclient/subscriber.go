package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clear-retro/clearretro/client/reconciler"
	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// Subscriber keeps a websocket open to one board and forwards its events to
// a reconciler. Dropped connections are retried with backoff; every
// reconnect delivers a fresh full snapshot, so nothing is lost in between.
type Subscriber struct {
	client *APIClient
	board  domain.BoardId
	logger *slog.Logger
}

func NewSubscriber(client *APIClient, board domain.BoardId, logger *slog.Logger) *Subscriber {
	return &Subscriber{client: client, board: board, logger: logger}
}

// Run blocks until ctx is done, feeding the reconciler.
func (s *Subscriber) Run(ctx context.Context, rec *reconciler.Reconciler) {
	backoff := reconnectBase
	for {
		if err := s.consume(ctx, rec); err != nil {
			s.logger.Warn("subscription dropped", "board", s.board, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (s *Subscriber) consume(ctx context.Context, rec *reconciler.Reconciler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller cancels.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var event api.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			s.logger.Warn("bad event payload", "board", s.board, "error", err)
			continue
		}
		switch event.Type {
		case api.EventSnapshot:
			rec.ApplySnapshot(event.Cards)
		case api.EventBoard:
			if event.Meta != nil {
				rec.ApplyBoardMeta(*event.Meta)
			}
		}
	}
}

// wsURL converts the REST base URL into the board's websocket endpoint, with
// the token as a query param since browsers cannot set headers on upgrades.
func (s *Subscriber) wsURL() string {
	base := strings.Replace(s.client.BaseURL, "http", "ws", 1)
	return fmt.Sprintf("%s/v1/boards/%s/ws?token=%s", base, s.board, url.QueryEscape(s.client.Token))
}
