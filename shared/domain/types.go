package domain

type (
	UserId   = string // uuid issued at join
	UserName = string

	BoardId   = string
	BoardName = string
	ColumnId  = string // slug, stable within a board
	CardId    = string
	CardText  = string
	ReplyId   = string

	Emoji = string

	// Reactions maps an emoji to the set of users who reacted with it.
	// Empty map means "no reactions", never nil in the store (absent keys
	// are materialized as empty on read).
	Reactions = map[Emoji][]UserId
)

// Board lifecycle.
const (
	BoardActive    = "active"
	BoardCompleted = "completed"
)

// Card sort modes for the derived view.
const (
	SortByDate  = "date"
	SortByVotes = "votes"
)

// Action item statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// TempCardPrefix marks locally fabricated card ids that have not yet been
// acknowledged by the store. Remote ids never start with it.
const TempCardPrefix = "temp-"
