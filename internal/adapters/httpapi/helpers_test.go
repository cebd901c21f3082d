package httpapi

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type countingMetrics struct {
	mu        sync.Mutex
	retries   map[string]int
	sent      []bool
	purchases []bool
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{retries: map[string]int{}}
}

func (m *countingMetrics) MonitorsActive(int)      {}
func (m *countingMetrics) MonitorRestarted(string) {}
func (m *countingMetrics) EventsProcessed(int)     {}

func (m *countingMetrics) MessageSent(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, ok)
}

func (m *countingMetrics) PurchaseCompleted(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases = append(m.purchases, ok)
}

func (m *countingMetrics) APIRetry(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[op]++
}
