package pg

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"github.com/clear-retro/clearretro/shared/config"
)

type Storage struct {
	db  *sql.DB
	cfg *config.Config
}

func New(cfg *config.Config) (*Storage, error) {
	log.Print("Connecting to db")
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	log.Print("Succesfully connected to db")
	storage := &Storage{db, cfg}
	if err := storage.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return storage, nil
}

func Connect(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Private.Pg.Host, cfg.Private.Pg.Port, cfg.Private.Pg.User, cfg.Private.Pg.Password, cfg.Private.Pg.Dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	return db, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

// Ping backs the readiness probe.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ensureSchema applies the idempotent DDL on startup. sort_order is the
// fractional rank; voted_by is a text[] mutated with array_append/
// array_remove so concurrent vote toggles stay commutative.
func (s *Storage) ensureSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS boards (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		columns        JSONB NOT NULL,
		status         TEXT NOT NULL DEFAULT 'active',
		vote_limit     INT NOT NULL DEFAULT 0,
		sort_mode      TEXT NOT NULL DEFAULT 'date',
		private        BOOLEAN NOT NULL DEFAULT FALSE,
		passcode_hash  TEXT NOT NULL DEFAULT '',
		timer_running  BOOLEAN NOT NULL DEFAULT FALSE,
		timer_ends_at  TIMESTAMPTZ,
		timer_duration INT NOT NULL DEFAULT 0,
		created_by     TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		last_activity  TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cards (
		id             TEXT PRIMARY KEY,
		board_id       TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
		column_id      TEXT NOT NULL,
		text           TEXT NOT NULL,
		votes          INT NOT NULL DEFAULT 0,
		voted_by       TEXT[] NOT NULL DEFAULT '{}',
		sort_order     DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL,
		author_id      TEXT NOT NULL,
		author_name    TEXT NOT NULL DEFAULT '',
		is_action_item BOOLEAN NOT NULL DEFAULT FALSE,
		assignee_id    TEXT NOT NULL DEFAULT '',
		assignee_name  TEXT NOT NULL DEFAULT '',
		priority       TEXT NOT NULL DEFAULT '',
		due_date       TIMESTAMPTZ,
		status         TEXT NOT NULL DEFAULT 'todo',
		done           BOOLEAN NOT NULL DEFAULT FALSE,
		merged_from    JSONB NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS cards_board_idx ON cards(board_id);

	CREATE TABLE IF NOT EXISTS card_reactions (
		card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		emoji   TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (card_id, emoji, user_id)
	);

	CREATE TABLE IF NOT EXISTS card_replies (
		id          TEXT PRIMARY KEY,
		card_id     TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
		text        TEXT NOT NULL,
		author_id   TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS card_replies_card_idx ON card_replies(card_id);
	`)
	return err
}
