package service

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/clear-retro/clearretro/shared/domain"
)

type SweeperStorage interface {
	StaleCompletedBoards(cutoff time.Time) ([]domain.BoardId, error)
	DeleteBoard(id domain.BoardId) error
}

// Sweeper deletes completed boards whose last activity is older than the
// retention window. Active boards are never touched.
type Sweeper struct {
	storage   SweeperStorage
	logger    *slog.Logger
	retention time.Duration
	cron      *cron.Cron
}

func NewSweeper(storage SweeperStorage, logger *slog.Logger, retention time.Duration) *Sweeper {
	return &Sweeper{
		storage:   storage,
		logger:    logger,
		retention: retention,
		cron:      cron.New(),
	}
}

// Start registers the schedule and runs the cron loop in its own goroutine.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one pass. Exported so tests and an admin endpoint can trigger it
// without waiting for the schedule.
func (s *Sweeper) Sweep() {
	cutoff := time.Now().UTC().Add(-s.retention)
	stale, err := s.storage.StaleCompletedBoards(cutoff)
	if err != nil {
		s.logger.Error("sweep: listing stale boards", "error", err)
		return
	}
	for _, id := range stale {
		if err := s.storage.DeleteBoard(id); err != nil {
			s.logger.Error("sweep: deleting board", "board", id, "error", err)
			continue
		}
		s.logger.Info("sweep: deleted stale board", "board", id, "cutoff", cutoff)
	}
}
