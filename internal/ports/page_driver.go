package ports

import (
	"context"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
)

type Browser interface {
	ListThreads(ctx context.Context, limit int) ([]domain.ThreadSummary, error)
	OpenThread(ctx context.Context, url string) (ThreadView, error)
	Close() error
}

// ThreadView is a live page for one conversation. Texts returns element
// texts in document order.
type ThreadView interface {
	Texts(ctx context.Context, selector domain.Selector) ([]string, error)
	Click(ctx context.Context, selector domain.Selector, timeout time.Duration) error
	WaitIdle(ctx context.Context) error
	Close() error
}
