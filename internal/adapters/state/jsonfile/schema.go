package jsonfile

import "github.com/bnema/stars-relay/internal/domain"

const (
	waitingFileName      = "buyer_states.json"
	countsFileName       = "chat_states.json"
	fingerprintsFileName = "fingerprints.json"
	pendingFileName      = "pending_orders.json"
	fingerprintDirName   = "last_messages"
)

type pendingSchema struct {
	PaymentPending bool `json:"payment_pending"`
	Quantity       int  `json:"quantity"`
	QuantityEvent  int  `json:"quantity_event,omitempty"`
}

func toPendingSchema(order domain.PendingOrder) pendingSchema {
	return pendingSchema{PaymentPending: order.PaymentPending, Quantity: order.Quantity, QuantityEvent: order.QuantityEvent}
}

func fromPendingSchema(s pendingSchema) domain.PendingOrder {
	return domain.PendingOrder{PaymentPending: s.PaymentPending, Quantity: s.Quantity, QuantityEvent: s.QuantityEvent}
}
