package ports

import (
	"context"

	"github.com/bnema/stars-relay/internal/domain"
)

type Messenger interface {
	SendMessage(ctx context.Context, receiver domain.BuyerID, text string) bool
}

type Purchaser interface {
	Purchase(ctx context.Context, username string, amount int) (domain.PurchaseResult, bool)
}
