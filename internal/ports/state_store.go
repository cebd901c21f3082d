package ports

import (
	"context"

	"github.com/bnema/stars-relay/internal/domain"
)

type StateStore interface {
	LastEventCount(ctx context.Context, buyer domain.BuyerID) (int, error)
	// SetLastEventCount never lowers the stored count.
	SetLastEventCount(ctx context.Context, buyer domain.BuyerID, count int) error

	Waiting(ctx context.Context, buyer domain.BuyerID) (bool, error)
	SetWaiting(ctx context.Context, buyer domain.BuyerID, waiting bool) error

	Fingerprint(ctx context.Context, buyer domain.BuyerID, kind domain.FingerprintKind) (string, bool, error)
	SetFingerprint(ctx context.Context, buyer domain.BuyerID, kind domain.FingerprintKind, fingerprint string) error

	PendingOrder(ctx context.Context, buyer domain.BuyerID) (domain.PendingOrder, error)
	SetPendingOrder(ctx context.Context, buyer domain.BuyerID, order domain.PendingOrder) error

	Snapshot(ctx context.Context) ([]domain.BuyerState, error)
}
