package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/rs/zerolog"
)

var ErrNoBrowser = errors.New("supervisor requires a browser")

type monitorHandle struct {
	thread domain.ThreadSummary
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor keeps one Monitor per listed buyer. Buyers that drop out of the
// listing are torn down unless they are waiting for a recipient.
type Supervisor struct {
	browser ports.Browser
	deps    Deps
	opts    Options
	logger  zerolog.Logger

	mu       sync.Mutex
	monitors map[domain.BuyerID]monitorHandle
	wg       sync.WaitGroup
}

func NewSupervisor(browser ports.Browser, deps Deps, opts Options) *Supervisor {
	deps = deps.withDefaults()
	return &Supervisor{
		browser:  browser,
		deps:     deps,
		opts:     opts.withDefaults(),
		logger:   deps.Logger,
		monitors: map[domain.BuyerID]monitorHandle{},
	}
}

// Run syncs monitors every SyncInterval until ctx is cancelled, then stops
// every monitor and waits for them.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.browser == nil {
		return ErrNoBrowser
	}
	defer s.Stop()

	var lastSync time.Time
	for {
		now := s.deps.Clock.Now()
		if lastSync.IsZero() || now.Sub(lastSync) >= s.opts.SyncInterval {
			if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("thread sync failed")
			}
			lastSync = now
		}

		if err := s.deps.Clock.Sleep(ctx, s.opts.Tick); err != nil {
			return nil
		}
	}
}

// Sync performs one discovery pass.
func (s *Supervisor) Sync(ctx context.Context) error {
	threads, err := s.browser.ListThreads(ctx, s.opts.MaxChats)
	if err != nil {
		return fmt.Errorf("list threads: %w", err)
	}
	if len(threads) > s.opts.MaxChats {
		threads = threads[:s.opts.MaxChats]
	}

	listed := make(map[domain.BuyerID]struct{}, len(threads))
	for _, thread := range threads {
		if err := thread.Buyer.Validate(); err != nil {
			s.logger.Warn().Err(err).Str("url", thread.URL).Msg("skipping thread")
			continue
		}
		listed[thread.Buyer] = struct{}{}
		s.start(ctx, thread)
	}

	for _, buyer := range s.Active() {
		if _, ok := listed[buyer]; ok {
			continue
		}

		waiting, err := s.deps.Store.Waiting(ctx, buyer)
		if err != nil {
			s.logger.Warn().Err(err).Str("buyer", string(buyer)).Msg("keeping monitor, waiting flag unreadable")
			continue
		}
		if waiting {
			s.logger.Debug().Str("buyer", string(buyer)).Msg("keeping unlisted buyer mid-fulfillment")
			continue
		}

		thread, ok := s.stop(buyer)
		if !ok {
			continue
		}

		// The monitor may have accepted a quantity between the check and the
		// cancel; such a buyer gets its monitor back.
		waiting, err = s.deps.Store.Waiting(ctx, buyer)
		if err != nil && ctx.Err() != nil {
			continue
		}
		if err != nil || waiting {
			s.logger.Info().Err(err).Str("buyer", string(buyer)).Msg("restarting monitor for buyer mid-fulfillment")
			s.start(ctx, thread)
		}
	}

	s.deps.Metrics.MonitorsActive(len(s.Active()))
	return nil
}

// Active lists monitored buyers in sorted order.
func (s *Supervisor) Active() []domain.BuyerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	buyers := make([]domain.BuyerID, 0, len(s.monitors))
	for buyer := range s.monitors {
		buyers = append(buyers, buyer)
	}
	sort.Slice(buyers, func(i, j int) bool { return buyers[i] < buyers[j] })
	return buyers
}

// Stop cancels every monitor and waits for all of them to return.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	for buyer, handle := range s.monitors {
		handle.cancel()
		delete(s.monitors, buyer)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.deps.Metrics.MonitorsActive(0)
}

func (s *Supervisor) start(ctx context.Context, thread domain.ThreadSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.monitors[thread.Buyer]; ok {
		return
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	handle := monitorHandle{thread: thread, cancel: cancel, done: make(chan struct{})}
	s.monitors[thread.Buyer] = handle

	monitor := NewMonitor(thread, s.browser, s.deps, s.opts)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(handle.done)
		monitor.Run(monitorCtx)
	}()

	s.logger.Info().Str("buyer", string(thread.Buyer)).Str("url", thread.URL).Msg("monitor started")
}

// stop waits for the monitor to exit so a buyer never has two monitors.
func (s *Supervisor) stop(buyer domain.BuyerID) (domain.ThreadSummary, bool) {
	s.mu.Lock()
	handle, ok := s.monitors[buyer]
	delete(s.monitors, buyer)
	s.mu.Unlock()

	if !ok {
		return domain.ThreadSummary{}, false
	}

	handle.cancel()
	<-handle.done
	s.logger.Info().Str("buyer", string(buyer)).Msg("monitor stopped")
	return handle.thread, true
}
