package prefs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/logging"
)

// Sweeper periodically prunes history older than the retention window.
type Sweeper struct {
	store     *Store
	retention time.Duration
	logger    logging.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewSweeper schedules PruneHistory on a standard cron expression
// (descriptors such as "@daily" are accepted). A zero retention yields a
// sweeper that never deletes anything.
func NewSweeper(store *Store, schedule string, retention time.Duration, logger logging.Logger) (*Sweeper, error) {
	if retention < 0 {
		return nil, errors.NewConfigError("retention must not be negative")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, errors.NewConfigError("invalid sweep schedule " + schedule + ": " + err.Error())
	}
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Sweeper{
		store:     store,
		retention: retention,
		logger:    logger.WithComponent("sweeper"),
		now:       time.Now,
		cron:      cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		_, _ = s.Sweep(context.Background())
	}); err != nil {
		return nil, errors.NewConfigError("failed to schedule sweep: " + err.Error())
	}
	return s, nil
}

// Start begins running the schedule. Calling it twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.retention == 0 {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts the schedule and waits for a running sweep to finish or ctx
// to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep prunes once and returns the number of rows deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.retention == 0 {
		return 0, nil
	}
	op := logging.StartOperation(s.logger, "history_sweep")
	cutoff := s.now().Add(-s.retention)
	n, err := s.store.PruneHistory(ctx, cutoff)
	if err != nil {
		op.EndWithError(ctx, err)
		return 0, err
	}
	op.End(ctx)
	s.logger.Info(ctx, "history sweep complete", "deleted", n, "cutoff", cutoff)
	return n, nil
}
