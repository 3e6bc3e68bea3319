package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/juris/internal/core/ports/driving"
	"github.com/custodia-labs/juris/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs the parent mapping heartbeat in the background.
// Without it the mapping is only checked when a query arrives; a
// long-running server uses it to pick up store changes between queries.
type Scheduler struct {
	mappings *MappingCache
	interval time.Duration
	trigger  chan struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler checking the mapping every interval.
// A non-positive interval only reacts to Trigger.
func NewScheduler(mappings *MappingCache, interval time.Duration) *Scheduler {
	return &Scheduler{
		mappings: mappings,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Start builds the mapping if needed and runs the heartbeat loop.
// This method blocks until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if s.stopCh == stopCh {
			s.running = false
		}
		s.mu.Unlock()
	}()

	if _, err := s.mappings.Ensure(ctx); err != nil {
		logger.Warn("scheduler: initial mapping build failed: %v", err)
	}

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-tick:
			s.check(ctx)
		case <-s.trigger:
			s.mappings.Invalidate()
			s.check(ctx)
		}
	}
}

// Stop ends the loop and waits for any rebuild it started.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.mappings.Wait()
	return nil
}

// Trigger asks for an immediate staleness check, bypassing the heartbeat
// throttle. It never blocks; triggers arriving while one is pending are merged.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) check(ctx context.Context) {
	if s.mappings.Snapshot() == nil {
		if _, err := s.mappings.Ensure(ctx); err != nil {
			logger.Warn("scheduler: mapping build failed: %v", err)
		}
		return
	}
	if s.mappings.CheckStaleness(ctx) {
		logger.Debug("scheduler: mapping rebuild started")
	}
}
