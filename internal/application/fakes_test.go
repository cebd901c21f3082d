package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/stars-relay/internal/adapters/state/jsonfile"
	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mockAnyContext() interface{} {
	return mock.MatchedBy(func(context.Context) bool { return true })
}

func newTestStore(t *testing.T) *jsonfile.Store {
	t.Helper()

	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	return store
}

type fakeClock struct {
	mu          sync.Mutex
	sleeps      []time.Duration
	cancel      context.CancelFunc
	cancelAfter int
}

func (c *fakeClock) Now() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	c.mu.Unlock()

	if c.cancel != nil && n >= c.cancelAfter {
		c.cancel()
	}
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeView serves recipients[i] on the i-th successful recipient read, holding
// the last entry. failRecipientCall makes that read (1-based) fail once.
type fakeView struct {
	mu                sync.Mutex
	events            []string
	eventReads        int
	recipients        [][]string
	recipientReads    int
	recipientCalls    int
	failRecipientCall int
	clicks            []domain.Selector
	clickErrs         map[domain.Selector]error
	closed            int
}

func (v *fakeView) Texts(_ context.Context, selector domain.Selector) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch selector {
	case domain.SelectorEvent:
		v.eventReads++
		return append([]string(nil), v.events...), nil
	case domain.SelectorRecipient:
		v.recipientCalls++
		if v.recipientCalls == v.failRecipientCall {
			return nil, errors.New("recipient list detached")
		}
		if len(v.recipients) == 0 {
			return nil, nil
		}
		i := min(v.recipientReads, len(v.recipients)-1)
		v.recipientReads++
		return append([]string(nil), v.recipients[i]...), nil
	default:
		return nil, nil
	}
}

func (v *fakeView) Click(_ context.Context, selector domain.Selector, _ time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.clicks = append(v.clicks, selector)
	return v.clickErrs[selector]
}

func (v *fakeView) WaitIdle(context.Context) error {
	return nil
}

func (v *fakeView) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed++
	return nil
}

func (v *fakeView) Clicks() []domain.Selector {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Selector(nil), v.clicks...)
}

func (v *fakeView) EventReads() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.eventReads
}

func (v *fakeView) SetEvents(events ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = events
}

type fakeBrowser struct {
	mu       sync.Mutex
	threads  []domain.ThreadSummary
	listErr  error
	openErrs int
	opens    int
	views    map[string]*fakeView
}

func (b *fakeBrowser) ListThreads(_ context.Context, limit int) ([]domain.ThreadSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listErr != nil {
		return nil, b.listErr
	}
	threads := append([]domain.ThreadSummary(nil), b.threads...)
	if len(threads) > limit {
		threads = threads[:limit]
	}
	return threads, nil
}

func (b *fakeBrowser) OpenThread(_ context.Context, url string) (ports.ThreadView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.opens++
	if b.openErrs > 0 {
		b.openErrs--
		return nil, errors.New("page crashed")
	}
	if b.views == nil {
		b.views = map[string]*fakeView{}
	}
	view, ok := b.views[url]
	if !ok {
		view = &fakeView{}
		b.views[url] = view
	}
	return view, nil
}

func (b *fakeBrowser) Close() error {
	return nil
}

func (b *fakeBrowser) SetThreads(threads ...domain.ThreadSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threads = threads
}

func (b *fakeBrowser) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

type recordingMetrics struct {
	ports.NopMetrics
	mu        sync.Mutex
	restarts  []string
	processed int
}

func (m *recordingMetrics) MonitorRestarted(buyer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts = append(m.restarts, buyer)
}

func (m *recordingMetrics) EventsProcessed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed += n
}

// flakyCursorStore fails the first n cursor writes.
type flakyCursorStore struct {
	ports.StateStore
	mu       sync.Mutex
	failures int
}

func (s *flakyCursorStore) SetLastEventCount(ctx context.Context, buyer domain.BuyerID, count int) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("disk full")
	}
	s.mu.Unlock()
	return s.StateStore.SetLastEventCount(ctx, buyer, count)
}

// racingStore, once armed, answers the next waiting check with false and then
// marks the buyer waiting, as a monitor accepting a quantity right after the
// check would.
type racingStore struct {
	ports.StateStore
	mu    sync.Mutex
	armed bool
}

func (s *racingStore) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
}

func (s *racingStore) Waiting(ctx context.Context, buyer domain.BuyerID) (bool, error) {
	s.mu.Lock()
	armed := s.armed
	s.armed = false
	s.mu.Unlock()

	if !armed {
		return s.StateStore.Waiting(ctx, buyer)
	}
	if err := s.StateStore.SetWaiting(ctx, buyer, true); err != nil {
		return false, err
	}
	return false, nil
}
