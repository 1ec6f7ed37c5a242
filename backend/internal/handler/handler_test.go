package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clear-retro/clearretro/shared/config"
	"github.com/clear-retro/clearretro/shared/domain"
	"github.com/clear-retro/clearretro/shared/jwt"
	mw "github.com/clear-retro/clearretro/shared/middleware"
)

// Shared test plumbing for the handler package.

type MockBoardService struct {
	MockCreate         func(data domain.BoardCreationData) (*domain.BoardMetadata, error)
	MockGet            func(id domain.BoardId) (*domain.Board, error)
	MockGetMetadata    func(id domain.BoardId) (*domain.BoardMetadata, error)
	MockGetByCreator   func(creator domain.UserId) ([]*domain.BoardMetadata, error)
	MockUpdateSettings func(id domain.BoardId, actor domain.UserId, patch domain.BoardSettingsPatch) error
	MockSetStatus      func(id domain.BoardId, actor domain.UserId, status string) error
	MockSetTimer       func(id domain.BoardId, actor domain.UserId, action string, durationSeconds int) error
	MockDelete         func(id domain.BoardId, actor domain.UserId) error
	MockCheckAccess    func(id domain.BoardId, passcode string) error
}

func (m *MockBoardService) Create(data domain.BoardCreationData) (*domain.BoardMetadata, error) {
	if m.MockCreate != nil {
		return m.MockCreate(data)
	}
	return &domain.BoardMetadata{Id: "b1", Name: data.Name}, nil
}

func (m *MockBoardService) Get(id domain.BoardId) (*domain.Board, error) {
	if m.MockGet != nil {
		return m.MockGet(id)
	}
	return &domain.Board{BoardMetadata: domain.BoardMetadata{Id: id}}, nil
}

func (m *MockBoardService) GetMetadata(id domain.BoardId) (*domain.BoardMetadata, error) {
	if m.MockGetMetadata != nil {
		return m.MockGetMetadata(id)
	}
	return &domain.BoardMetadata{Id: id}, nil
}

func (m *MockBoardService) GetByCreator(creator domain.UserId) ([]*domain.BoardMetadata, error) {
	if m.MockGetByCreator != nil {
		return m.MockGetByCreator(creator)
	}
	return nil, nil
}

func (m *MockBoardService) UpdateSettings(id domain.BoardId, actor domain.UserId, patch domain.BoardSettingsPatch) error {
	if m.MockUpdateSettings != nil {
		return m.MockUpdateSettings(id, actor, patch)
	}
	return nil
}

func (m *MockBoardService) SetStatus(id domain.BoardId, actor domain.UserId, status string) error {
	if m.MockSetStatus != nil {
		return m.MockSetStatus(id, actor, status)
	}
	return nil
}

func (m *MockBoardService) SetTimer(id domain.BoardId, actor domain.UserId, action string, durationSeconds int) error {
	if m.MockSetTimer != nil {
		return m.MockSetTimer(id, actor, action, durationSeconds)
	}
	return nil
}

func (m *MockBoardService) Delete(id domain.BoardId, actor domain.UserId) error {
	if m.MockDelete != nil {
		return m.MockDelete(id, actor)
	}
	return nil
}

func (m *MockBoardService) CheckAccess(id domain.BoardId, passcode string) error {
	if m.MockCheckAccess != nil {
		return m.MockCheckAccess(id, passcode)
	}
	return nil
}

type MockCardService struct {
	MockCreate         func(data domain.CardCreationData) (*domain.Card, error)
	MockList           func(board domain.BoardId) ([]*domain.Card, error)
	MockMove           func(board domain.BoardId, id domain.CardId, column domain.ColumnId, rank float64) error
	MockUpdateText     func(board domain.BoardId, id domain.CardId, actor domain.UserId, text string) error
	MockDelete         func(board domain.BoardId, id domain.CardId) error
	MockToggleVote     func(board domain.BoardId, id domain.CardId, user domain.UserId) error
	MockToggleReaction func(board domain.BoardId, id domain.CardId, emoji domain.Emoji, user domain.UserId) error
	MockReply          func(board domain.BoardId, id domain.CardId, text string, author domain.User) error
	MockMerge          func(board domain.BoardId, target, source domain.CardId) error
	MockSetActionItem  func(board domain.BoardId, id domain.CardId, enabled bool, action *domain.ActionItem) error
}

func (m *MockCardService) Create(data domain.CardCreationData) (*domain.Card, error) {
	if m.MockCreate != nil {
		return m.MockCreate(data)
	}
	return &domain.Card{Id: "c1", Board: data.Board, Column: data.Column, Text: data.Text}, nil
}

func (m *MockCardService) List(board domain.BoardId) ([]*domain.Card, error) {
	if m.MockList != nil {
		return m.MockList(board)
	}
	return nil, nil
}

func (m *MockCardService) Move(board domain.BoardId, id domain.CardId, column domain.ColumnId, rank float64) error {
	if m.MockMove != nil {
		return m.MockMove(board, id, column, rank)
	}
	return nil
}

func (m *MockCardService) UpdateText(board domain.BoardId, id domain.CardId, actor domain.UserId, text string) error {
	if m.MockUpdateText != nil {
		return m.MockUpdateText(board, id, actor, text)
	}
	return nil
}

func (m *MockCardService) Delete(board domain.BoardId, id domain.CardId) error {
	if m.MockDelete != nil {
		return m.MockDelete(board, id)
	}
	return nil
}

func (m *MockCardService) ToggleVote(board domain.BoardId, id domain.CardId, user domain.UserId) error {
	if m.MockToggleVote != nil {
		return m.MockToggleVote(board, id, user)
	}
	return nil
}

func (m *MockCardService) ToggleReaction(board domain.BoardId, id domain.CardId, emoji domain.Emoji, user domain.UserId) error {
	if m.MockToggleReaction != nil {
		return m.MockToggleReaction(board, id, emoji, user)
	}
	return nil
}

func (m *MockCardService) Reply(board domain.BoardId, id domain.CardId, text string, author domain.User) error {
	if m.MockReply != nil {
		return m.MockReply(board, id, text, author)
	}
	return nil
}

func (m *MockCardService) Merge(board domain.BoardId, target, source domain.CardId) error {
	if m.MockMerge != nil {
		return m.MockMerge(board, target, source)
	}
	return nil
}

func (m *MockCardService) SetActionItem(board domain.BoardId, id domain.CardId, enabled bool, action *domain.ActionItem) error {
	if m.MockSetActionItem != nil {
		return m.MockSetActionItem(board, id, enabled, action)
	}
	return nil
}

type mockPinger struct {
	pingFunc func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Public.JwtTTL = time.Hour
	cfg.Public.DefaultVoteLimit = 5
	cfg.Public.AllowedOrigins = []string{"*"}
	return cfg
}

func testHandler(board *MockBoardService, card *MockCardService) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(board, card, testConfig(), jwt.New("test-secret", time.Hour), nil, &mockPinger{}, logger)
}

// withUser injects a participant the way the auth middleware does.
func withUser(r *http.Request, user domain.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), mw.UserClaimsKey, &user))
}

// testRouter registers the routes the handlers under test need, without the
// middleware stack.
func testRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/boards", h.CreateBoard)
	r.Get("/v1/boards", h.GetMyBoards)
	r.Get("/v1/boards/{board}", h.GetBoard)
	r.Get("/v1/boards/{board}/meta", h.GetBoardMetadata)
	r.Patch("/v1/boards/{board}", h.UpdateBoard)
	r.Post("/v1/boards/{board}/complete", h.CompleteBoard)
	r.Post("/v1/boards/{board}/reopen", h.ReopenBoard)
	r.Post("/v1/boards/{board}/timer", h.SetTimer)
	r.Delete("/v1/boards/{board}", h.DeleteBoard)
	r.Post("/v1/boards/{board}/join", h.Join)
	r.Get("/v1/boards/{board}/export", h.ExportBoard)
	r.Post("/v1/boards/{board}/cards", h.CreateCard)
	r.Get("/v1/boards/{board}/cards", h.GetCards)
	r.Patch("/v1/boards/{board}/cards/{card}/move", h.MoveCard)
	r.Patch("/v1/boards/{board}/cards/{card}/text", h.UpdateCardText)
	r.Delete("/v1/boards/{board}/cards/{card}", h.DeleteCard)
	r.Post("/v1/boards/{board}/cards/{card}/vote", h.ToggleVote)
	r.Post("/v1/boards/{board}/cards/{card}/react", h.ToggleReaction)
	r.Post("/v1/boards/{board}/cards/{card}/replies", h.ReplyToCard)
	r.Post("/v1/boards/{board}/cards/{card}/merge", h.MergeCards)
	r.Patch("/v1/boards/{board}/cards/{card}/action", h.SetActionItem)
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	return r
}
