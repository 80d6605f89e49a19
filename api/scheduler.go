/*
scheduler.go - Background recurrence extension

PURPOSE:
  Periodically re-extends every user's active recurrences so the rolling
  12-month horizon of materialized transactions never drains, even for
  users who stop logging in.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Walks the owners that have at least one active periodic recurrence
  - Extension itself is idempotent, so overlapping or repeated runs are
    harmless
  - One owner failing never blocks the rest

USAGE:
  scheduler := NewExtensionScheduler(store, engine, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ExtendRecurrences endpoint (manual trigger)
  - ledger/recurrence.go: The extension engine
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerkit/finance-engine/ledger"
)

// ExtensionScheduler keeps recurrence horizons topped up.
type ExtensionScheduler struct {
	Store         ledger.TxStore
	Engine        *ledger.RecurrenceEngine
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewExtensionScheduler creates a scheduler with a 6-hour interval.
func NewExtensionScheduler(store ledger.TxStore, engine *ledger.RecurrenceEngine, log zerolog.Logger) *ExtensionScheduler {
	return &ExtensionScheduler{
		Store:         store,
		Engine:        engine,
		CheckInterval: 6 * time.Hour,
		Enabled:       true,
		log:           log.With().Str("component", "scheduler").Logger(),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *ExtensionScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info().Msg("scheduler disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.log.Info().Dur("interval", s.CheckInterval).Msg("scheduler started")
}

// Stop stops the scheduler.
func (s *ExtensionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.log.Info().Msg("scheduler stopped")
	}
}

func (s *ExtensionScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.extendAll()

	for {
		select {
		case <-s.ticker.C:
			s.extendAll()
		case <-s.stop:
			return
		}
	}
}

func (s *ExtensionScheduler) extendAll() {
	ctx := context.Background()

	owners, err := s.Store.ListRecurrenceOwners(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("listing recurrence owners failed")
		return
	}

	generated := 0
	for _, owner := range owners {
		n, err := s.Engine.Extend(ctx, owner)
		if err != nil {
			s.log.Error().Err(err).Str("owner", string(owner)).Msg("extension failed for owner")
			continue
		}
		generated += n
	}

	if generated > 0 {
		s.log.Info().Int("owners", len(owners)).Int("generated", generated).Msg("extension run completed")
	}
}

// RunNow triggers an immediate extension pass (for testing/admin).
func (s *ExtensionScheduler) RunNow() {
	s.extendAll()
}
