package domain

import (
	"time"

	"github.com/lib/pq"
)

// MergeSeparator joins the absorbed card's text onto the target's when two
// cards merge. Client folding and server merge must agree on it so the
// optimistic result matches the next snapshot byte for byte.
const MergeSeparator = "\n\n---\n\n"

// VotedBy is the set of users who voted for a card. pq.StringArray so the
// storage layer can mutate it with array_append/array_remove instead of
// read-modify-write.
type VotedBy = pq.StringArray

// to iterate thru layers: handler -> service -> storage
type CardCreationData struct {
	Board        BoardId
	Column       ColumnId
	Text         CardText
	AuthorId     UserId
	AuthorName   UserName
	IsActionItem bool
}

type Reply struct {
	Id        ReplyId   `json:"id"`
	Text      string    `json:"text"`
	AuthorId  UserId    `json:"author_id"`
	Author    UserName  `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// MergeSource records where merged-in content came from. A card that absorbs
// another card also inherits that card's own provenance.
type MergeSource struct {
	Id   CardId   `json:"id"`
	Text CardText `json:"text"`
}

// ActionItem metadata is kept even while IsActionItem is false: toggling the
// flag hides it, re-enabling restores the previous assignee/status.
type ActionItem struct {
	AssigneeId   UserId     `json:"assignee_id,omitempty"`
	AssigneeName UserName   `json:"assignee_name,omitempty"`
	Priority     string     `json:"priority,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Status       string     `json:"status"`
	Done         bool       `json:"done"`
}

type Card struct {
	Id           CardId        `json:"id"`
	Board        BoardId       `json:"board_id"`
	Column       ColumnId      `json:"column_id"`
	Text         CardText      `json:"text"`
	Votes        int           `json:"votes"`
	VotedBy      VotedBy       `json:"voted_by"`
	Order        float64       `json:"order"`
	CreatedAt    time.Time     `json:"created_at"`
	AuthorId     UserId        `json:"author_id"`
	AuthorName   UserName      `json:"author_name"`
	IsActionItem bool          `json:"is_action_item"`
	Action       ActionItem    `json:"action"`
	Reactions    Reactions     `json:"reactions"`
	Replies      []Reply       `json:"replies"`
	MergedFrom   []MergeSource `json:"merged_from"`
}

// HasVote reports set membership without touching Votes, which may lag the
// set by one optimistic update.
func (c *Card) HasVote(user UserId) bool {
	for _, u := range c.VotedBy {
		if u == user {
			return true
		}
	}
	return false
}

func (c *Card) IsTemp() bool {
	return len(c.Id) > len(TempCardPrefix) && c.Id[:len(TempCardPrefix)] == TempCardPrefix
}

// Clone returns a deep copy. The reconciler hands clones to the UI so a
// late-arriving snapshot can never mutate what is being rendered.
func (c *Card) Clone() *Card {
	cp := *c
	cp.VotedBy = append(VotedBy(nil), c.VotedBy...)
	cp.Reactions = make(Reactions, len(c.Reactions))
	for emoji, users := range c.Reactions {
		cp.Reactions[emoji] = append([]UserId(nil), users...)
	}
	cp.Replies = append([]Reply(nil), c.Replies...)
	cp.MergedFrom = append([]MergeSource(nil), c.MergedFrom...)
	if c.Action.DueDate != nil {
		due := *c.Action.DueDate
		cp.Action.DueDate = &due
	}
	return &cp
}

// ValidStatusTransition reports whether an action item may move between the
// two statuses: todo -> in_progress -> done, plus done -> todo to reopen.
// Staying put is always allowed.
func ValidStatusTransition(from, to string) bool {
	if from == "" {
		from = StatusTodo
	}
	if from == to {
		return true
	}
	switch from {
	case StatusTodo:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusDone
	case StatusDone:
		return to == StatusTodo // reopen
	}
	return false
}

// CardPatch carries a partial card update; nil fields are untouched.
type CardPatch struct {
	Column       *ColumnId
	Text         *CardText
	Order        *float64
	IsActionItem *bool
	Action       *ActionItem
}
