// Package apiclient talks to a clearretro backend: a REST write path that
// satisfies the reconciler's Store contract, and a websocket subscription
// that feeds it snapshots.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/clear-retro/clearretro/shared/api"
	"github.com/clear-retro/clearretro/shared/domain"
	internal_errors "github.com/clear-retro/clearretro/shared/errors"
)

// APIClient handles all communication with the backend API.
type APIClient struct {
	BaseURL    string
	Token      string
	HttpClient *http.Client
}

// New creates a new client for interacting with the backend. The token is
// empty until Join.
func New(baseURL string) *APIClient {
	return &APIClient{
		BaseURL:    baseURL,
		HttpClient: &http.Client{},
	}
}

// do is the single, unified helper for making API requests. A non-2xx
// response becomes an ErrorWithStatusCode carrying the server's message, so
// the reconciler can tell a vote-limit conflict from a plain failure.
func (c *APIClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &internal_errors.ErrorWithStatusCode{
			Message:    string(bytes.TrimSpace(message)),
			StatusCode: resp.StatusCode,
		}
	}
	return resp, nil
}

// decode closes the body after reading it.
func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("cannot decode response: %w", err)
	}
	return nil
}

// discard drains and closes a body we do not need.
func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Join obtains a participant identity for a board and stores the token for
// subsequent calls. For a fresh visitor with no board yet, pass an empty
// board id.
func (c *APIClient) Join(ctx context.Context, board domain.BoardId, name, passcode string) (*domain.User, error) {
	path := "/v1/join"
	if board != "" {
		path = fmt.Sprintf("/v1/boards/%s/join", board)
	}
	resp, err := c.do(ctx, http.MethodPost, path, api.JoinRequest{Name: name, Passcode: passcode})
	if err != nil {
		return nil, err
	}
	var joined api.JoinResponse
	if err := decode(resp, &joined); err != nil {
		return nil, err
	}
	c.Token = joined.Token
	return &domain.User{Id: joined.User.Id, Name: joined.User.Name}, nil
}

func (c *APIClient) CreateBoard(ctx context.Context, req api.CreateBoardRequest) (*domain.BoardMetadata, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/boards", req)
	if err != nil {
		return nil, err
	}
	var created api.BoardMetadataResponse
	if err := decode(resp, &created); err != nil {
		return nil, err
	}
	return &created.BoardMetadata, nil
}

func (c *APIClient) GetBoard(ctx context.Context, board domain.BoardId) (*domain.Board, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/boards/%s", board), nil)
	if err != nil {
		return nil, err
	}
	var got api.BoardResponse
	if err := decode(resp, &got); err != nil {
		return nil, err
	}
	return &got.Board, nil
}

func (c *APIClient) GetBoardMetadata(ctx context.Context, board domain.BoardId) (*domain.BoardMetadata, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/boards/%s/meta", board), nil)
	if err != nil {
		return nil, err
	}
	var got api.BoardMetadataResponse
	if err := decode(resp, &got); err != nil {
		return nil, err
	}
	return &got.BoardMetadata, nil
}

func (c *APIClient) Export(ctx context.Context, board domain.BoardId) (*api.ExportResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/boards/%s/export", board), nil)
	if err != nil {
		return nil, err
	}
	var exported api.ExportResponse
	if err := decode(resp, &exported); err != nil {
		return nil, err
	}
	return &exported, nil
}
