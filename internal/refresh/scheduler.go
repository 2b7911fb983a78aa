package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"titletrack/internal/library"
	"titletrack/pkg/logger"
)

const sweepPageSize = 100

type TargetLister interface {
	ListWithSource(ctx context.Context, limit, offset int) ([]library.RefreshTarget, error)
}

type Refresher interface {
	Refresh(ctx context.Context, userID, titleID string)
}

// Scheduler periodically refreshes every stored title that has a source URL.
type Scheduler struct {
	Lister      TargetLister
	Refresher   Refresher
	Interval    time.Duration
	Concurrency int

	log     zerolog.Logger
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(lister TargetLister, refresher Refresher, interval time.Duration, concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scheduler{
		Lister:      lister,
		Refresher:   refresher,
		Interval:    interval,
		Concurrency: concurrency,
		log:         logger.Component("refresh-scheduler"),
	}
}

// Start launches the sweep loop. A zero interval disables it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.Interval <= 0 {
		s.log.Info().Msg("periodic refresh disabled")
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info().Dur("interval", s.Interval).Int("concurrency", s.Concurrency).Msg("scheduler started")
	return nil
}

// Stop cancels the loop and waits for the current sweep, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}

	s.running = false
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				s.log.Warn().Err(err).Int("refreshed", n).Msg("sweep aborted")
			}
		}
	}
}

// Sweep refreshes every target once and returns how many it visited.
// Targets are collected before any refresh runs, since a refresh changes
// the paging order.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	var targets []library.RefreshTarget
	for offset := 0; ; offset += sweepPageSize {
		page, err := s.Lister.ListWithSource(ctx, sweepPageSize, offset)
		if err != nil {
			return 0, err
		}
		targets = append(targets, page...)
		if len(page) < sweepPageSize {
			break
		}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)

	visited := 0
	for _, t := range targets {
		if gctx.Err() != nil {
			break
		}
		visited++
		t := t
		g.Go(func() error {
			s.Refresher.Refresh(gctx, t.UserID, t.ID)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().Int("targets", len(targets)).Int("visited", visited).Dur("took", time.Since(start)).Msg("sweep finished")
	return visited, ctx.Err()
}
