package api

import (
	"github.com/clear-retro/clearretro/shared/domain"
)

// Response DTOs

type JoinResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	Id   domain.UserId   `json:"id"`
	Name domain.UserName `json:"name"`
}

// BoardMetadataResponse wraps board metadata
// Embed domain.BoardMetadata to get all fields
type BoardMetadataResponse struct {
	domain.BoardMetadata
}

// BoardResponse wraps a full board with cards
type BoardResponse struct {
	domain.Board
}

// BoardListResponse wraps a list of boards
type BoardListResponse struct {
	Boards []BoardMetadataResponse `json:"boards"`
}

type CreateCardResponse struct {
	Card *domain.Card `json:"card"`
}

type CardResponse struct {
	Card *domain.Card `json:"card"`
}

type CardListResponse struct {
	Cards []*domain.Card `json:"cards"`
}

// ExportResponse carries the board rendered for download.
type ExportResponse struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}
