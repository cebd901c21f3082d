package application

import (
	"context"
	"fmt"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/rs/zerolog"
)

// Monitor owns one thread. It replays unseen events on every attach and then
// polls for new ones, re-attaching after any failure.
type Monitor struct {
	thread    domain.ThreadSummary
	browser   ports.Browser
	fulfiller *Fulfiller
	deps      Deps
	opts      Options
	logger    zerolog.Logger
}

func NewMonitor(thread domain.ThreadSummary, browser ports.Browser, deps Deps, opts Options) *Monitor {
	deps = deps.withDefaults()
	opts = opts.withDefaults()
	return &Monitor{
		thread:    thread,
		browser:   browser,
		fulfiller: NewFulfiller(thread.Buyer, deps, opts),
		deps:      deps,
		opts:      opts,
		logger:    deps.Logger.With().Str("buyer", string(thread.Buyer)).Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	for {
		err := m.session(ctx)
		if ctx.Err() != nil {
			return
		}

		m.logger.Error().Err(err).Dur("retry_in", m.opts.RecoverDelay).Msg("monitor failed")
		m.deps.Metrics.MonitorRestarted(string(m.thread.Buyer))

		if err := m.deps.Clock.Sleep(ctx, m.opts.RecoverDelay); err != nil {
			return
		}
	}
}

func (m *Monitor) session(ctx context.Context) error {
	view, err := m.browser.OpenThread(ctx, m.thread.URL)
	if err != nil {
		return fmt.Errorf("open thread: %w", err)
	}
	defer func() {
		if err := view.Close(); err != nil {
			m.logger.Debug().Err(err).Msg("close thread view")
		}
	}()

	m.logger.Debug().Str("url", m.thread.URL).Msg("thread attached")

	if err := view.WaitIdle(ctx); err != nil {
		return fmt.Errorf("wait for thread: %w", err)
	}
	if err := m.fulfiller.Resume(ctx, view); err != nil {
		return fmt.Errorf("resume fulfillment: %w", err)
	}

	for {
		if err := m.poll(ctx, view); err != nil {
			return err
		}
		if err := m.deps.Clock.Sleep(ctx, m.opts.CheckInterval); err != nil {
			return err
		}
	}
}

// poll feeds events past the stored cursor in order. The cursor moves after
// the whole batch went through, or earlier past a quantity message whose order
// is already waiting for a recipient.
func (m *Monitor) poll(ctx context.Context, view ports.ThreadView) error {
	stored, err := m.deps.Store.LastEventCount(ctx, m.thread.Buyer)
	if err != nil {
		return fmt.Errorf("load event count: %w", err)
	}

	events, err := view.Texts(ctx, domain.SelectorEvent)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	if len(events) <= stored {
		return nil
	}

	for i, text := range events[stored:] {
		if err := m.fulfiller.Handle(ctx, view, stored+i+1, text); err != nil {
			return fmt.Errorf("handle event: %w", err)
		}
	}

	if err := m.deps.Store.SetLastEventCount(ctx, m.thread.Buyer, len(events)); err != nil {
		return fmt.Errorf("save event count: %w", err)
	}
	m.deps.Metrics.EventsProcessed(len(events) - stored)

	return nil
}
