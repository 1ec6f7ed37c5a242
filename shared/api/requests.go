package api

import (
	"time"

	"github.com/clear-retro/clearretro/shared/domain"
)

// Request DTOs shared by backend handlers and the client library

type JoinRequest struct {
	Name     string `json:"name" validate:"required"`
	Passcode string `json:"passcode,omitempty"` // for private boards
}

type CreateBoardRequest struct {
	Name      string          `json:"name" validate:"required"`
	Columns   []ColumnPayload `json:"columns" validate:"required,min=1,dive"`
	VoteLimit int             `json:"vote_limit,omitempty"`
	SortMode  string          `json:"sort_mode,omitempty" validate:"omitempty,oneof=date votes"`
	Private   bool            `json:"private,omitempty"`
	Passcode  string          `json:"passcode,omitempty"`
}

type ColumnPayload struct {
	Id    string `json:"id,omitempty"` // slug derived from title when empty
	Title string `json:"title" validate:"required"`
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

type UpdateBoardRequest struct {
	Name      *string `json:"name,omitempty"`
	VoteLimit *int    `json:"vote_limit,omitempty" validate:"omitempty,min=0"`
	SortMode  *string `json:"sort_mode,omitempty" validate:"omitempty,oneof=date votes"`
	Private   *bool   `json:"private,omitempty"`
	Passcode  *string `json:"passcode,omitempty"`
}

type TimerRequest struct {
	Action          string `json:"action" validate:"required,oneof=start stop"`
	DurationSeconds int    `json:"duration_seconds,omitempty" validate:"omitempty,min=1,max=7200"`
}

type CreateCardRequest struct {
	Column       string `json:"column_id" validate:"required"`
	Text         string `json:"text" validate:"required"`
	IsActionItem bool   `json:"is_action_item,omitempty"`
}

// MoveCardRequest carries the outcome of a drag: destination column and the
// fractional order computed client-side at the drop position.
type MoveCardRequest struct {
	Column string  `json:"column_id" validate:"required"`
	Order  float64 `json:"order"`
}

type UpdateCardTextRequest struct {
	Text string `json:"text" validate:"required"`
}

type ReactRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

type ReplyRequest struct {
	Text string `json:"text" validate:"required"`
}

type MergeRequest struct {
	Source domain.CardId `json:"source_id" validate:"required"`
}

type ActionItemRequest struct {
	IsActionItem *bool      `json:"is_action_item,omitempty"`
	Status       *string    `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done"`
	AssigneeId   *string    `json:"assignee_id,omitempty"`
	AssigneeName *string    `json:"assignee_name,omitempty"`
	Priority     *string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}
