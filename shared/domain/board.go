package domain

import (
	"time"
)

// to iterate thru layers: handler -> service -> storage
type BoardCreationData struct {
	Name      BoardName
	Columns   []Column
	VoteLimit int
	SortMode  string
	Private   bool
	Passcode  string // plain, hashed before storage
	CreatedBy UserId
}

type Column struct {
	Id    ColumnId `json:"id"`
	Title string   `json:"title"`
	Color string   `json:"color,omitempty"`
	Icon  string   `json:"icon,omitempty"`
}

// Timer is the shared countdown visible to all participants.
type Timer struct {
	Running         bool      `json:"running"`
	EndsAt          time.Time `json:"ends_at,omitempty"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
}

type BoardMetadata struct {
	Id           BoardId   `json:"id"`
	Name         BoardName `json:"name"`
	Columns      []Column  `json:"columns"` // array position is column order
	Status       string    `json:"status"`
	VoteLimit    int       `json:"vote_limit"` // 0 = unlimited
	SortMode     string    `json:"sort_mode"`
	Private      bool      `json:"private"`
	PasscodeHash string    `json:"-"`
	Timer        Timer     `json:"timer"`
	CreatedBy    UserId    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

type Board struct {
	BoardMetadata
	Cards []*Card `json:"cards"`
}

// Column lookup by id. Column order itself is array position and is not
// touched by card reordering.
func (b *BoardMetadata) Column(id ColumnId) *Column {
	for i := range b.Columns {
		if b.Columns[i].Id == id {
			return &b.Columns[i]
		}
	}
	return nil
}

// BoardSettingsPatch carries a settings update; nil fields are untouched.
type BoardSettingsPatch struct {
	Name      *BoardName
	VoteLimit *int
	SortMode  *string
	Private   *bool
	Passcode  *string
}
