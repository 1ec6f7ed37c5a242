package pg

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	shared_errors "github.com/clear-retro/clearretro/shared/errors"

	"github.com/clear-retro/clearretro/shared/domain"
)

const cardColumns = `
	id, board_id, column_id, text, votes, voted_by, sort_order, created_at,
	author_id, author_name, is_action_item, assignee_id, assignee_name,
	priority, due_date, status, done, merged_from`

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	var dueDate sql.NullTime
	var mergedFrom []byte
	err := row.Scan(&c.Id, &c.Board, &c.Column, &c.Text, &c.Votes, &c.VotedBy,
		&c.Order, &c.CreatedAt, &c.AuthorId, &c.AuthorName, &c.IsActionItem,
		&c.Action.AssigneeId, &c.Action.AssigneeName, &c.Action.Priority, &dueDate,
		&c.Action.Status, &c.Action.Done, &mergedFrom)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &shared_errors.ErrorWithStatusCode{Message: "Card not found", StatusCode: 404}
		}
		return nil, err
	}
	if dueDate.Valid {
		due := dueDate.Time
		c.Action.DueDate = &due
	}
	if err := json.Unmarshal(mergedFrom, &c.MergedFrom); err != nil {
		return nil, err
	}
	c.Reactions = domain.Reactions{}
	c.Replies = []domain.Reply{}
	return &c, nil
}

func newId() string {
	return uuid.NewString()
}

// CreateCard appends the card at the end of its column: the rank is computed
// inside the insert from the current column max, so two concurrent creators
// cannot both read the same max and collide on rank twice as often.
func (s *Storage) CreateCard(data domain.CardCreationData, step float64) (*domain.Card, error) {
	id := newId()
	row := s.db.QueryRow(`
	INSERT INTO cards(id, board_id, column_id, text, sort_order, created_at, author_id, author_name, is_action_item)
	SELECT $1, $2, $3, $4,
	       COALESCE(MAX(sort_order), 0) + $5,
	       $6, $7, $8, $9
	FROM cards WHERE board_id = $2 AND column_id = $3
	RETURNING `+cardColumns,
		id, data.Board, data.Column, data.Text, step, time.Now().UTC(),
		data.AuthorId, data.AuthorName, data.IsActionItem)
	card, err := scanCard(row)
	if err != nil {
		return nil, err
	}
	_ = s.TouchBoard(data.Board)
	return card, nil
}

func (s *Storage) GetCard(board domain.BoardId, id domain.CardId) (*domain.Card, error) {
	card, err := scanCard(s.db.QueryRow(
		`SELECT `+cardColumns+` FROM cards WHERE board_id = $1 AND id = $2`, board, id))
	if err != nil {
		return nil, err
	}
	if err := s.enrichCards(board, map[domain.CardId]*domain.Card{card.Id: card}); err != nil {
		return nil, err
	}
	return card, nil
}

// GetCards returns the full card list for a board with reactions and
// replies populated. This is what every snapshot broadcast carries.
func (s *Storage) GetCards(board domain.BoardId) ([]*domain.Card, error) {
	rows, err := s.db.Query(
		`SELECT `+cardColumns+` FROM cards WHERE board_id = $1 ORDER BY sort_order`, board)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []*domain.Card{}
	byId := map[domain.CardId]*domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
		byId[c.Id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.enrichCards(board, byId); err != nil {
		return nil, err
	}
	return cards, nil
}

// enrichCards attaches reactions and replies to the given cards.
func (s *Storage) enrichCards(board domain.BoardId, cards map[domain.CardId]*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	rows, err := s.db.Query(`
	SELECT r.card_id, r.emoji, r.user_id
	FROM card_reactions r JOIN cards c ON c.id = r.card_id
	WHERE c.board_id = $1
	ORDER BY r.emoji, r.user_id`, board)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cardId domain.CardId
		var emoji domain.Emoji
		var user domain.UserId
		if err := rows.Scan(&cardId, &emoji, &user); err != nil {
			return err
		}
		if c, ok := cards[cardId]; ok {
			c.Reactions[emoji] = append(c.Reactions[emoji], user)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	replyRows, err := s.db.Query(`
	SELECT p.id, p.card_id, p.text, p.author_id, p.author_name, p.created_at
	FROM card_replies p JOIN cards c ON c.id = p.card_id
	WHERE c.board_id = $1
	ORDER BY p.created_at`, board)
	if err != nil {
		return err
	}
	defer replyRows.Close()
	for replyRows.Next() {
		var cardId domain.CardId
		var reply domain.Reply
		if err := replyRows.Scan(&reply.Id, &cardId, &reply.Text, &reply.AuthorId, &reply.Author, &reply.CreatedAt); err != nil {
			return err
		}
		if c, ok := cards[cardId]; ok {
			c.Replies = append(c.Replies, reply)
		}
	}
	return replyRows.Err()
}

// WriteCard applies a partial update. Only non-nil patch fields touch the
// row, mirroring the client's optimistic patch semantics.
func (s *Storage) WriteCard(board domain.BoardId, id domain.CardId, patch domain.CardPatch) error {
	var (
		assigneeId, assigneeName, priority, status *string
		done                                       *bool
		dueDate                                    any
		writeDue                                   bool
	)
	if patch.Action != nil {
		a := patch.Action
		assigneeId, assigneeName = &a.AssigneeId, &a.AssigneeName
		priority, status, done = &a.Priority, &a.Status, &a.Done
		writeDue = true
		if a.DueDate != nil {
			dueDate = a.DueDate.UTC()
		}
	}
	res, err := s.db.Exec(`
	UPDATE cards SET
		column_id = COALESCE($3, column_id),
		text = COALESCE($4, text),
		sort_order = COALESCE($5, sort_order),
		is_action_item = COALESCE($6, is_action_item),
		assignee_id = COALESCE($7, assignee_id),
		assignee_name = COALESCE($8, assignee_name),
		priority = COALESCE($9, priority),
		status = COALESCE($10, status),
		done = COALESCE($11, done),
		due_date = CASE WHEN $12 THEN $13 ELSE due_date END
	WHERE board_id = $1 AND id = $2`,
		board, id, patch.Column, patch.Text, patch.Order, patch.IsActionItem,
		assigneeId, assigneeName, priority, status, done, writeDue, dueDate)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return s.TouchBoard(board)
}

func (s *Storage) DeleteCard(board domain.BoardId, id domain.CardId) error {
	res, err := s.db.Exec(`DELETE FROM cards WHERE board_id = $1 AND id = $2`, board, id)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return s.TouchBoard(board)
}

// ToggleVote flips the user's membership in the card's voter set with
// array_append/array_remove so concurrent toggles from different users
// commute. When adding, the board vote limit is checked inside the same
// transaction.
func (s *Storage) ToggleVote(board domain.BoardId, id domain.CardId, user domain.UserId, voteLimit int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // The rollback will be ignored if the tx has been committed later in the function.

	var hasVote bool
	err = tx.QueryRow(`SELECT voted_by @> ARRAY[$3]::text[] FROM cards WHERE board_id = $1 AND id = $2 FOR UPDATE`,
		board, id, user).Scan(&hasVote)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &shared_errors.ErrorWithStatusCode{Message: "Card not found", StatusCode: 404}
		}
		return err
	}

	if !hasVote && voteLimit > 0 {
		var used int
		err = tx.QueryRow(`SELECT COUNT(*) FROM cards WHERE board_id = $1 AND voted_by @> ARRAY[$2]::text[]`,
			board, user).Scan(&used)
		if err != nil {
			return err
		}
		if used >= voteLimit {
			return &shared_errors.ErrorWithStatusCode{Message: "Vote limit reached", StatusCode: 409}
		}
	}

	if hasVote {
		_, err = tx.Exec(`
		UPDATE cards SET voted_by = array_remove(voted_by, $3), votes = GREATEST(votes - 1, 0)
		WHERE board_id = $1 AND id = $2`, board, id, user)
	} else {
		_, err = tx.Exec(`
		UPDATE cards SET voted_by = array_append(voted_by, $3), votes = votes + 1
		WHERE board_id = $1 AND id = $2`, board, id, user)
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return s.TouchBoard(board)
}

// ToggleReaction flips one (card, emoji, user) reaction row. Insert-or-
// delete on the primary key keeps concurrent reactions commutative.
func (s *Storage) ToggleReaction(board domain.BoardId, id domain.CardId, emoji domain.Emoji, user domain.UserId) error {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM cards WHERE board_id = $1 AND id = $2)`, board, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return &shared_errors.ErrorWithStatusCode{Message: "Card not found", StatusCode: 404}
	}

	res, err := s.db.Exec(`DELETE FROM card_reactions WHERE card_id = $1 AND emoji = $2 AND user_id = $3`,
		id, emoji, user)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = s.db.Exec(`
		INSERT INTO card_reactions(card_id, emoji, user_id) VALUES($1, $2, $3)
		ON CONFLICT DO NOTHING`, id, emoji, user)
		if err != nil {
			return err
		}
	}
	return s.TouchBoard(board)
}

func (s *Storage) AddReply(board domain.BoardId, id domain.CardId, text string, author domain.User) error {
	res, err := s.db.Exec(`
	INSERT INTO card_replies(id, card_id, text, author_id, author_name, created_at)
	SELECT $1, id, $3, $4, $5, $6 FROM cards WHERE board_id = $2 AND id = $7`,
		newId(), board, text, author.Id, author.Name, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return s.TouchBoard(board)
}

// MergeCards atomically folds source into target: concatenated text, summed
// votes, unioned voter sets, per-emoji unioned reactions, moved replies,
// chained provenance, source deleted. Everything happens in one transaction
// so no snapshot can observe a half-merged board.
func (s *Storage) MergeCards(board domain.BoardId, target, source domain.CardId, separator string) error {
	if target == source {
		return &shared_errors.ErrorWithStatusCode{Message: "Cannot merge a card into itself", StatusCode: 400}
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // The rollback will be ignored if the tx has been committed later in the function.

	src, err := scanCard(tx.QueryRow(
		`SELECT `+cardColumns+` FROM cards WHERE board_id = $1 AND id = $2 FOR UPDATE`, board, source))
	if err != nil {
		return err
	}

	provenance := append([]domain.MergeSource{{Id: src.Id, Text: src.Text}}, src.MergedFrom...)
	provenanceJSON, err := json.Marshal(provenance)
	if err != nil {
		return err
	}

	res, err := tx.Exec(`
	UPDATE cards t SET
		text = t.text || $4 || s.text,
		votes = t.votes + s.votes,
		voted_by = (SELECT COALESCE(array_agg(DISTINCT u), '{}') FROM unnest(t.voted_by || s.voted_by) AS u),
		merged_from = t.merged_from || $5::jsonb
	FROM cards s
	WHERE t.board_id = $1 AND t.id = $2 AND s.board_id = $1 AND s.id = $3`,
		board, target, source, separator, provenanceJSON)
	if err != nil {
		return err
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	// Union reactions per emoji, deduplicating user ids via the primary key.
	_, err = tx.Exec(`
	INSERT INTO card_reactions(card_id, emoji, user_id)
	SELECT $2, emoji, user_id FROM card_reactions WHERE card_id = $1
	ON CONFLICT DO NOTHING`, source, target)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`UPDATE card_replies SET card_id = $2 WHERE card_id = $1`, source, target)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DELETE FROM cards WHERE board_id = $1 AND id = $2`, board, source)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return s.TouchBoard(board)
}
