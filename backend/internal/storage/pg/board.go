package pg

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	internal_errors "github.com/clear-retro/clearretro/backend/internal/errors"
	shared_errors "github.com/clear-retro/clearretro/shared/errors"

	"github.com/clear-retro/clearretro/shared/domain"
)

func (s *Storage) CreateBoard(board *domain.BoardMetadata) error {
	columns, err := json.Marshal(board.Columns)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
	INSERT INTO boards(id, name, columns, status, vote_limit, sort_mode, private, passcode_hash, created_by, created_at, last_activity)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		board.Id, board.Name, columns, board.Status, board.VoteLimit, board.SortMode,
		board.Private, board.PasscodeHash, board.CreatedBy, board.CreatedAt.UTC())
	return err
}

func (s *Storage) GetBoardMetadata(id domain.BoardId) (*domain.BoardMetadata, error) {
	return scanBoard(s.db.QueryRow(`
	SELECT id, name, columns, status, vote_limit, sort_mode, private, passcode_hash,
	       timer_running, timer_ends_at, timer_duration, created_by, created_at, last_activity
	FROM boards WHERE id = $1`, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(row rowScanner) (*domain.BoardMetadata, error) {
	var b domain.BoardMetadata
	var columns []byte
	var endsAt sql.NullTime
	err := row.Scan(&b.Id, &b.Name, &columns, &b.Status, &b.VoteLimit, &b.SortMode,
		&b.Private, &b.PasscodeHash, &b.Timer.Running, &endsAt, &b.Timer.DurationSeconds,
		&b.CreatedBy, &b.CreatedAt, &b.LastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &shared_errors.ErrorWithStatusCode{Message: "Board not found", StatusCode: 404}
		}
		return nil, err
	}
	if endsAt.Valid {
		b.Timer.EndsAt = endsAt.Time
	}
	if err := json.Unmarshal(columns, &b.Columns); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBoard returns metadata plus the full card list.
func (s *Storage) GetBoard(id domain.BoardId) (*domain.Board, error) {
	meta, err := s.GetBoardMetadata(id)
	if err != nil {
		return nil, err
	}
	cards, err := s.GetCards(id)
	if err != nil {
		return nil, err
	}
	return &domain.Board{BoardMetadata: *meta, Cards: cards}, nil
}

// GetBoardsByCreator lists boards owned by a participant, newest first.
func (s *Storage) GetBoardsByCreator(creator domain.UserId) ([]*domain.BoardMetadata, error) {
	rows, err := s.db.Query(`
	SELECT id, name, columns, status, vote_limit, sort_mode, private, passcode_hash,
	       timer_running, timer_ends_at, timer_duration, created_by, created_at, last_activity
	FROM boards WHERE created_by = $1 ORDER BY created_at DESC`, creator)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []*domain.BoardMetadata
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *Storage) UpdateBoardSettings(id domain.BoardId, patch domain.BoardSettingsPatch, passcodeHash string) error {
	res, err := s.db.Exec(`
	UPDATE boards SET
		name = COALESCE($2, name),
		vote_limit = COALESCE($3, vote_limit),
		sort_mode = COALESCE($4, sort_mode),
		private = COALESCE($5, private),
		passcode_hash = CASE WHEN $6 THEN $7 ELSE passcode_hash END,
		last_activity = $8
	WHERE id = $1`,
		id, patch.Name, patch.VoteLimit, patch.SortMode, patch.Private,
		patch.Passcode != nil, passcodeHash, time.Now().UTC())
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Storage) SetBoardStatus(id domain.BoardId, status string) error {
	res, err := s.db.Exec(`UPDATE boards SET status = $2, last_activity = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Storage) SetTimer(id domain.BoardId, timer domain.Timer) error {
	var endsAt any
	if !timer.EndsAt.IsZero() {
		endsAt = timer.EndsAt.UTC()
	}
	res, err := s.db.Exec(`
	UPDATE boards SET timer_running = $2, timer_ends_at = $3, timer_duration = $4, last_activity = $5
	WHERE id = $1`,
		id, timer.Running, endsAt, timer.DurationSeconds, time.Now().UTC())
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Storage) TouchBoard(id domain.BoardId) error {
	_, err := s.db.Exec(`UPDATE boards SET last_activity = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

// DeleteBoard removes the board; cards, reactions and replies go with it via
// the cascading foreign keys.
func (s *Storage) DeleteBoard(id domain.BoardId) error {
	res, err := s.db.Exec(`DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// StaleCompletedBoards lists completed boards whose last activity is older
// than the cutoff. Used by the retention sweeper.
func (s *Storage) StaleCompletedBoards(cutoff time.Time) ([]domain.BoardId, error) {
	rows, err := s.db.Query(`SELECT id FROM boards WHERE status = $1 AND last_activity < $2`,
		domain.BoardCompleted, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []domain.BoardId
	for rows.Next() {
		var id domain.BoardId
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &shared_errors.ErrorWithStatusCode{Message: internal_errors.NotFound.Error(), StatusCode: 404}
	}
	return nil
}
