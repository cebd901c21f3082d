package domain

import (
	"fmt"
	"strings"
)

type BuyerID string

type FingerprintKind string

const FingerprintKindUser FingerprintKind = "user"

type ThreadSummary struct {
	Buyer BuyerID
	URL   string
}

// PendingOrder is the part of a buyer's flow that must survive a restart:
// a payment seen without its quantity yet, or a quantity awaiting a recipient.
// QuantityEvent is the thread event count up to and including the quantity
// message; the cursor is moved there once the order is underway.
type PendingOrder struct {
	PaymentPending bool
	Quantity       int
	QuantityEvent  int
}

func (o PendingOrder) IsZero() bool {
	return !o.PaymentPending && o.Quantity == 0 && o.QuantityEvent == 0
}

type BuyerState struct {
	Buyer        BuyerID
	Waiting      bool
	EventCount   int
	Fingerprints map[FingerprintKind]string
	PendingOrder PendingOrder
}

func (b BuyerID) Validate() error {
	if strings.TrimSpace(string(b)) == "" {
		return fmt.Errorf("%w: empty buyer id", ErrInvalidBuyer)
	}

	return nil
}
