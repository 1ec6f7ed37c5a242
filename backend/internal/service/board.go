package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clear-retro/clearretro/backend/internal/service/utils"
	"github.com/clear-retro/clearretro/shared/domain"
	"github.com/clear-retro/clearretro/shared/errors"
)

// to mock service in tests
type BoardService interface {
	Create(data domain.BoardCreationData) (*domain.BoardMetadata, error)
	Get(id domain.BoardId) (*domain.Board, error)
	GetMetadata(id domain.BoardId) (*domain.BoardMetadata, error)
	GetByCreator(creator domain.UserId) ([]*domain.BoardMetadata, error)
	UpdateSettings(id domain.BoardId, actor domain.UserId, patch domain.BoardSettingsPatch) error
	SetStatus(id domain.BoardId, actor domain.UserId, status string) error
	SetTimer(id domain.BoardId, actor domain.UserId, action string, durationSeconds int) error
	Delete(id domain.BoardId, actor domain.UserId) error
	CheckAccess(id domain.BoardId, passcode string) error
}

type BoardStorage interface {
	CreateBoard(board *domain.BoardMetadata) error
	GetBoard(id domain.BoardId) (*domain.Board, error)
	GetBoardMetadata(id domain.BoardId) (*domain.BoardMetadata, error)
	GetBoardsByCreator(creator domain.UserId) ([]*domain.BoardMetadata, error)
	UpdateBoardSettings(id domain.BoardId, patch domain.BoardSettingsPatch, passcodeHash string) error
	SetBoardStatus(id domain.BoardId, status string) error
	SetTimer(id domain.BoardId, timer domain.Timer) error
	DeleteBoard(id domain.BoardId) error
}

// Broadcaster fans a board's current state out to its live subscribers.
// Implemented by the websocket hub; a no-op in tests.
type Broadcaster interface {
	CardsChanged(board domain.BoardId)
	BoardChanged(board domain.BoardId)
}

type Board struct {
	storage    BoardStorage
	broadcast  Broadcaster
	maxColumns int
}

func NewBoard(storage BoardStorage, broadcast Broadcaster, maxColumns int) *Board {
	return &Board{storage, broadcast, maxColumns}
}

func (b *Board) Create(data domain.BoardCreationData) (*domain.BoardMetadata, error) {
	name := utils.SanitizeText(data.Name)
	if name == "" {
		return nil, &errors.ErrorWithStatusCode{Message: "Board name is empty", StatusCode: 400}
	}
	if len(data.Columns) == 0 {
		return nil, &errors.ErrorWithStatusCode{Message: "Board needs at least one column", StatusCode: 400}
	}
	if len(data.Columns) > b.maxColumns {
		return nil, errors.New(400, "Too many columns (max %d)", b.maxColumns)
	}
	columns, err := slugifyColumns(data.Columns)
	if err != nil {
		return nil, err
	}

	sortMode := data.SortMode
	if sortMode == "" {
		sortMode = domain.SortByDate
	}
	var passcodeHash string
	if data.Private {
		if data.Passcode == "" {
			return nil, &errors.ErrorWithStatusCode{Message: "Private board needs a passcode", StatusCode: 400}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(data.Passcode), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		passcodeHash = string(hash)
	}

	board := &domain.BoardMetadata{
		Id:           uuid.NewString(),
		Name:         name,
		Columns:      columns,
		Status:       domain.BoardActive,
		VoteLimit:    data.VoteLimit,
		SortMode:     sortMode,
		Private:      data.Private,
		PasscodeHash: passcodeHash,
		CreatedBy:    data.CreatedBy,
		CreatedAt:    time.Now().UTC(),
	}
	board.LastActivity = board.CreatedAt
	if err := b.storage.CreateBoard(board); err != nil {
		return nil, err
	}
	return board, nil
}

func (b *Board) Get(id domain.BoardId) (*domain.Board, error) {
	return b.storage.GetBoard(id)
}

func (b *Board) GetMetadata(id domain.BoardId) (*domain.BoardMetadata, error) {
	return b.storage.GetBoardMetadata(id)
}

func (b *Board) GetByCreator(creator domain.UserId) ([]*domain.BoardMetadata, error) {
	return b.storage.GetBoardsByCreator(creator)
}

func (b *Board) UpdateSettings(id domain.BoardId, actor domain.UserId, patch domain.BoardSettingsPatch) error {
	if err := b.requireOwner(id, actor); err != nil {
		return err
	}
	if patch.Name != nil {
		name := domain.BoardName(utils.SanitizeText(*patch.Name))
		if name == "" {
			return &errors.ErrorWithStatusCode{Message: "Board name is empty", StatusCode: 400}
		}
		patch.Name = &name
	}
	var passcodeHash string
	if patch.Passcode != nil && *patch.Passcode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Passcode), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		passcodeHash = string(hash)
	}
	if err := b.storage.UpdateBoardSettings(id, patch, passcodeHash); err != nil {
		return err
	}
	b.broadcast.BoardChanged(id)
	return nil
}

func (b *Board) SetStatus(id domain.BoardId, actor domain.UserId, status string) error {
	if status != domain.BoardActive && status != domain.BoardCompleted {
		return errors.New(400, "Unknown board status %q", status)
	}
	if err := b.requireOwner(id, actor); err != nil {
		return err
	}
	if err := b.storage.SetBoardStatus(id, status); err != nil {
		return err
	}
	b.broadcast.BoardChanged(id)
	return nil
}

// SetTimer starts or stops the shared countdown.
func (b *Board) SetTimer(id domain.BoardId, actor domain.UserId, action string, durationSeconds int) error {
	if err := b.requireOwner(id, actor); err != nil {
		return err
	}
	var timer domain.Timer
	switch action {
	case "start":
		if durationSeconds <= 0 {
			return &errors.ErrorWithStatusCode{Message: "Timer needs a positive duration", StatusCode: 400}
		}
		timer = domain.Timer{
			Running:         true,
			EndsAt:          time.Now().UTC().Add(time.Duration(durationSeconds) * time.Second),
			DurationSeconds: durationSeconds,
		}
	case "stop":
		timer = domain.Timer{}
	default:
		return errors.New(400, "Unknown timer action %q", action)
	}
	if err := b.storage.SetTimer(id, timer); err != nil {
		return err
	}
	b.broadcast.BoardChanged(id)
	return nil
}

func (b *Board) Delete(id domain.BoardId, actor domain.UserId) error {
	if err := b.requireOwner(id, actor); err != nil {
		return err
	}
	return b.storage.DeleteBoard(id)
}

// CheckAccess verifies the passcode of a private board. Public boards always
// pass.
func (b *Board) CheckAccess(id domain.BoardId, passcode string) error {
	meta, err := b.storage.GetBoardMetadata(id)
	if err != nil {
		return err
	}
	if !meta.Private {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(meta.PasscodeHash), []byte(passcode)) != nil {
		return &errors.ErrorWithStatusCode{Message: "Wrong passcode", StatusCode: 403}
	}
	return nil
}

func (b *Board) requireOwner(id domain.BoardId, actor domain.UserId) error {
	meta, err := b.storage.GetBoardMetadata(id)
	if err != nil {
		return err
	}
	if meta.CreatedBy != actor {
		return &errors.ErrorWithStatusCode{Message: "Only the board owner can do this", StatusCode: 403}
	}
	return nil
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// slugifyColumns fills in missing column ids from titles and rejects
// duplicates. Slugs stay stable for the board's lifetime; cards reference
// them by id.
func slugifyColumns(payload []domain.Column) ([]domain.Column, error) {
	columns := make([]domain.Column, 0, len(payload))
	seen := map[domain.ColumnId]bool{}
	for _, col := range payload {
		col.Title = utils.SanitizeText(col.Title)
		if col.Title == "" {
			return nil, &errors.ErrorWithStatusCode{Message: "Column title is empty", StatusCode: 400}
		}
		if col.Id == "" {
			col.Id = Slugify(col.Title)
		}
		base, n := col.Id, 2
		for seen[col.Id] {
			col.Id = base + "-" + strconv.Itoa(n)
			n++
		}
		seen[col.Id] = true
		columns = append(columns, col)
	}
	return columns, nil
}

// Slugify turns a column title into a stable id: "Went Well!" -> "went-well".
func Slugify(title string) domain.ColumnId {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "column"
	}
	return slug
}
