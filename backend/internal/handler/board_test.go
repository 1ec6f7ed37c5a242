package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
	shared_errors "github.com/clear-retro/clearretro/shared/errors"
)

func TestCreateBoardHandler(t *testing.T) {
	requestBody := []byte(`{"name": "Sprint 12", "columns": [{"title": "Went Well"}]}`)

	t.Run("successful request", func(t *testing.T) {
		var got domain.BoardCreationData
		board := &MockBoardService{
			MockCreate: func(data domain.BoardCreationData) (*domain.BoardMetadata, error) {
				got = data
				return &domain.BoardMetadata{Id: "b1", Name: data.Name}, nil
			},
		}
		h := testHandler(board, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards", bytes.NewBuffer(requestBody))
		req = withUser(req, domain.User{Id: "u1", Name: "Ana"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, domain.UserId("u1"), got.CreatedBy)
		assert.Equal(t, 5, got.VoteLimit) // default from config

		var resp api.BoardMetadataResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "b1", resp.Id)
	})

	t.Run("missing auth", func(t *testing.T) {
		h := testHandler(&MockBoardService{}, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards", bytes.NewBuffer(requestBody))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		h := testHandler(&MockBoardService{}, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards", bytes.NewBufferString(`{"name": ""}`))
		req = withUser(req, domain.User{Id: "u1"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("service error", func(t *testing.T) {
		board := &MockBoardService{
			MockCreate: func(domain.BoardCreationData) (*domain.BoardMetadata, error) {
				return nil, &shared_errors.ErrorWithStatusCode{Message: "Too many columns", StatusCode: 400}
			},
		}
		h := testHandler(board, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards", bytes.NewBuffer(requestBody))
		req = withUser(req, domain.User{Id: "u1"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetBoardHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		board := &MockBoardService{
			MockGet: func(id domain.BoardId) (*domain.Board, error) {
				return &domain.Board{
					BoardMetadata: domain.BoardMetadata{Id: id, Name: "Sprint 12"},
					Cards:         []*domain.Card{{Id: "c1", Text: "hello"}},
				}, nil
			},
		}
		h := testHandler(board, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodGet, "/v1/boards/b1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.BoardResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Sprint 12", resp.Name)
		require.Len(t, resp.Cards, 1)
	})

	t.Run("not found", func(t *testing.T) {
		board := &MockBoardService{
			MockGet: func(id domain.BoardId) (*domain.Board, error) {
				return nil, &shared_errors.ErrorWithStatusCode{Message: "Board not found", StatusCode: 404}
			},
		}
		h := testHandler(board, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodGet, "/v1/boards/missing", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestGetBoardMetadataOmitsPasscodeHash(t *testing.T) {
	board := &MockBoardService{
		MockGetMetadata: func(id domain.BoardId) (*domain.BoardMetadata, error) {
			return &domain.BoardMetadata{Id: id, Private: true, PasscodeHash: "$2a$secret"}, nil
		},
	}
	h := testHandler(board, &MockCardService{})
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/v1/boards/b1/meta", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")
	assert.Contains(t, rr.Body.String(), `"private":true`)
}

func TestUpdateBoardHandler(t *testing.T) {
	var gotPatch domain.BoardSettingsPatch
	board := &MockBoardService{
		MockUpdateSettings: func(id domain.BoardId, actor domain.UserId, patch domain.BoardSettingsPatch) error {
			gotPatch = patch
			return nil
		},
	}
	h := testHandler(board, &MockCardService{})
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodPatch, "/v1/boards/b1", bytes.NewBufferString(`{"vote_limit": 3, "sort_mode": "votes"}`))
	req = withUser(req, domain.User{Id: "u1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotPatch.VoteLimit)
	assert.Equal(t, 3, *gotPatch.VoteLimit)
	require.NotNil(t, gotPatch.SortMode)
	assert.Equal(t, domain.SortByVotes, *gotPatch.SortMode)
	assert.Nil(t, gotPatch.Name)
}

func TestCompleteAndReopenBoard(t *testing.T) {
	var gotStatus string
	board := &MockBoardService{
		MockSetStatus: func(id domain.BoardId, actor domain.UserId, status string) error {
			gotStatus = status
			return nil
		},
	}
	h := testHandler(board, &MockCardService{})
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/complete", nil)
	req = withUser(req, domain.User{Id: "u1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.BoardCompleted, gotStatus)

	req = httptest.NewRequest(http.MethodPost, "/v1/boards/b1/reopen", nil)
	req = withUser(req, domain.User{Id: "u1"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.BoardActive, gotStatus)
}

func TestSetTimerHandler(t *testing.T) {
	t.Run("start", func(t *testing.T) {
		var gotAction string
		var gotDuration int
		board := &MockBoardService{
			MockSetTimer: func(id domain.BoardId, actor domain.UserId, action string, durationSeconds int) error {
				gotAction, gotDuration = action, durationSeconds
				return nil
			},
		}
		h := testHandler(board, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/timer", bytes.NewBufferString(`{"action": "start", "duration_seconds": 300}`))
		req = withUser(req, domain.User{Id: "u1"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "start", gotAction)
		assert.Equal(t, 300, gotDuration)
	})

	t.Run("unknown action rejected by validation", func(t *testing.T) {
		h := testHandler(&MockBoardService{}, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/timer", bytes.NewBufferString(`{"action": "pause"}`))
		req = withUser(req, domain.User{Id: "u1"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestJoinHandler(t *testing.T) {
	t.Run("public board", func(t *testing.T) {
		h := testHandler(&MockBoardService{}, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/join", bytes.NewBufferString(`{"name": "Ana"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.JoinResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.User.Id)
		assert.Equal(t, "Ana", resp.User.Name)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "accessToken", cookies[0].Name)
		assert.Equal(t, resp.Token, cookies[0].Value)
	})

	t.Run("private board wrong passcode", func(t *testing.T) {
		board := &MockBoardService{
			MockCheckAccess: func(id domain.BoardId, passcode string) error {
				return &shared_errors.ErrorWithStatusCode{Message: "Wrong passcode", StatusCode: 403}
			},
		}
		h := testHandler(board, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/join", bytes.NewBufferString(`{"name": "Ana", "passcode": "nope"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("missing name", func(t *testing.T) {
		h := testHandler(&MockBoardService{}, &MockCardService{})
		router := testRouter(h)

		req := httptest.NewRequest(http.MethodPost, "/v1/boards/b1/join", bytes.NewBufferString(`{}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestExportBoardHandler(t *testing.T) {
	board := &MockBoardService{
		MockGet: func(id domain.BoardId) (*domain.Board, error) {
			return &domain.Board{
				BoardMetadata: domain.BoardMetadata{
					Id: id, Name: "Sprint 12",
					Columns: []domain.Column{{Id: "well", Title: "Went Well"}},
				},
				Cards: []*domain.Card{{Id: "c1", Column: "well", Text: "Shipped it", Votes: 2}},
			}, nil
		},
	}
	h := testHandler(board, &MockCardService{})
	router := testRouter(h)

	t.Run("json envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/boards/b1/export", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.ExportResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Contains(t, resp.Markdown, "# Sprint 12")
		assert.Contains(t, resp.HTML, "<h1>Sprint 12</h1>")
	})

	t.Run("raw markdown", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/boards/b1/export?format=md", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/markdown")
		assert.Contains(t, rr.Body.String(), "## Went Well")
	})
}

func TestHealthHandlers(t *testing.T) {
	h := testHandler(&MockBoardService{}, &MockCardService{})
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
