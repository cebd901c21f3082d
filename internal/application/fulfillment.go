package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type completionStep struct {
	name     string
	selector domain.Selector
	waitIdle bool
	pause    time.Duration
}

// completionSteps mark the order as delivered on the chat site. Each step may
// fail on its own; the purchase has already gone through by then.
var completionSteps = []completionStep{
	{name: "open_order", selector: domain.SelectorOrderLink, waitIdle: true, pause: 2 * time.Second},
	{name: "mark_completed", selector: domain.SelectorCompletedButton, pause: 2 * time.Second},
	{name: "confirm", selector: domain.SelectorConfirmCheckbox, pause: time.Second},
	{name: "submit", selector: domain.SelectorSubmitButton},
}

// Fulfiller drives one buyer from payment confirmation to delivery. All of its
// state lives in the store so a restarted process can pick up where it left.
type Fulfiller struct {
	buyer  domain.BuyerID
	deps   Deps
	opts   Options
	logger zerolog.Logger
}

func NewFulfiller(buyer domain.BuyerID, deps Deps, opts Options) *Fulfiller {
	deps = deps.withDefaults()
	return &Fulfiller{
		buyer:  buyer,
		deps:   deps,
		opts:   opts.withDefaults(),
		logger: deps.Logger.With().Str("buyer", string(buyer)).Logger(),
	}
}

// Handle feeds one thread event; position is the thread event count up to and
// including it. A quantity after a payment confirmation blocks until the
// buyer's order is fulfilled or ctx is cancelled.
func (f *Fulfiller) Handle(ctx context.Context, view ports.ThreadView, position int, text string) error {
	normalized := domain.Normalize(text)

	if f.deps.Matcher.IsPaymentConfirmation(normalized) {
		return f.markPaymentPending(ctx)
	}

	order, err := f.deps.Store.PendingOrder(ctx, f.buyer)
	if err != nil {
		return fmt.Errorf("load pending order: %w", err)
	}
	if !order.PaymentPending {
		return nil
	}

	quantity, err := f.deps.Matcher.Quantity(normalized)
	if err != nil {
		return nil
	}

	return f.requestRecipient(ctx, view, domain.PendingOrder{Quantity: quantity, QuantityEvent: position})
}

// Resume re-enters the recipient wait for an order interrupted by a restart.
func (f *Fulfiller) Resume(ctx context.Context, view ports.ThreadView) error {
	waiting, err := f.deps.Store.Waiting(ctx, f.buyer)
	if err != nil {
		return fmt.Errorf("load waiting flag: %w", err)
	}
	if !waiting {
		return nil
	}

	order, err := f.deps.Store.PendingOrder(ctx, f.buyer)
	if err != nil {
		return fmt.Errorf("load pending order: %w", err)
	}
	if order.Quantity <= 0 {
		f.logger.Warn().Msg("buyer is waiting without a pending quantity")
		return nil
	}

	f.logger.Info().Int("quantity", order.Quantity).Msg("resuming fulfillment")
	return f.awaitRecipient(ctx, view, order)
}

func (f *Fulfiller) markPaymentPending(ctx context.Context) error {
	order, err := f.deps.Store.PendingOrder(ctx, f.buyer)
	if err != nil {
		return fmt.Errorf("load pending order: %w", err)
	}
	if order.PaymentPending {
		return nil
	}

	order.PaymentPending = true
	if err := f.deps.Store.SetPendingOrder(ctx, f.buyer, order); err != nil {
		return fmt.Errorf("save payment pending: %w", err)
	}

	f.logger.Info().Msg("payment confirmed")
	return nil
}

func (f *Fulfiller) requestRecipient(ctx context.Context, view ports.ThreadView, order domain.PendingOrder) error {
	// Whatever the recipient field shows before the request is not an answer.
	if err := f.recordBaseline(ctx, view); err != nil {
		return err
	}

	if err := f.deps.Store.SetPendingOrder(ctx, f.buyer, order); err != nil {
		return fmt.Errorf("save pending quantity: %w", err)
	}

	f.deps.Messenger.SendMessage(ctx, f.buyer, domain.RecipientRequestMessage(order.Quantity))

	if err := f.deps.Store.SetWaiting(ctx, f.buyer, true); err != nil {
		return fmt.Errorf("set waiting: %w", err)
	}
	if err := f.checkpoint(ctx, order); err != nil {
		return err
	}

	return f.awaitRecipient(ctx, view, order)
}

func (f *Fulfiller) recordBaseline(ctx context.Context, view ports.ThreadView) error {
	values, err := view.Texts(ctx, domain.SelectorRecipient)
	if err != nil {
		return fmt.Errorf("read recipient: %w", err)
	}
	if len(values) == 0 {
		return nil
	}

	if err := f.deps.Store.SetFingerprint(ctx, f.buyer, domain.FingerprintKindUser, domain.Fingerprint(values[len(values)-1])); err != nil {
		return fmt.Errorf("save recipient baseline: %w", err)
	}
	return nil
}

// checkpoint moves the event cursor past the quantity message so a reattach
// resumes the order instead of replaying it.
func (f *Fulfiller) checkpoint(ctx context.Context, order domain.PendingOrder) error {
	if order.QuantityEvent <= 0 {
		return nil
	}
	if err := f.deps.Store.SetLastEventCount(ctx, f.buyer, order.QuantityEvent); err != nil {
		return fmt.Errorf("save event count: %w", err)
	}
	return nil
}

func (f *Fulfiller) awaitRecipient(ctx context.Context, view ports.ThreadView, order domain.PendingOrder) error {
	logger := f.logger.With().Str("order_id", uuid.NewString()).Int("quantity", order.Quantity).Logger()
	logger.Info().Msg("awaiting recipient")

	for {
		waiting, err := f.deps.Store.Waiting(ctx, f.buyer)
		if err != nil {
			return fmt.Errorf("load waiting flag: %w", err)
		}
		if !waiting {
			return nil
		}

		done, err := f.checkRecipient(ctx, view, order, logger)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if err := f.deps.Clock.Sleep(ctx, f.opts.RecipientPoll); err != nil {
			return err
		}
	}
}

func (f *Fulfiller) checkRecipient(ctx context.Context, view ports.ThreadView, order domain.PendingOrder, logger zerolog.Logger) (bool, error) {
	values, err := view.Texts(ctx, domain.SelectorRecipient)
	if err != nil {
		return false, fmt.Errorf("read recipient: %w", err)
	}
	if len(values) == 0 {
		return false, nil
	}

	raw := values[len(values)-1]
	fingerprint := domain.Fingerprint(raw)

	last, ok, err := f.deps.Store.Fingerprint(ctx, f.buyer, domain.FingerprintKindUser)
	if err != nil {
		return false, fmt.Errorf("load recipient fingerprint: %w", err)
	}
	if ok && last == fingerprint {
		return false, nil
	}
	if err := f.deps.Store.SetFingerprint(ctx, f.buyer, domain.FingerprintKindUser, fingerprint); err != nil {
		return false, fmt.Errorf("save recipient fingerprint: %w", err)
	}

	logger = logger.With().Str("recipient_fp", domain.FingerprintPrefix(raw)).Logger()

	identifier, err := domain.ParseRecipient(raw)
	if err != nil {
		logger.Info().Err(err).Msg("recipient rejected")
		f.deps.Messenger.SendMessage(ctx, f.buyer, domain.RecipientFormatErrorMessage())
		return false, nil
	}

	result, ok := f.deps.Purchaser.Purchase(ctx, identifier, order.Quantity)
	if !ok {
		logger.Warn().Msg("purchase failed, awaiting a new recipient")
		f.deps.Messenger.SendMessage(ctx, f.buyer, domain.PurchaseFailedMessage())
		return false, nil
	}

	f.completeOrder(ctx, view, logger)
	f.deps.Messenger.SendMessage(ctx, f.buyer, domain.CompletionMessage(order.Quantity, identifier, result.TransactionHash))

	if err := f.checkpoint(ctx, order); err != nil {
		return false, err
	}
	if err := f.deps.Store.SetWaiting(ctx, f.buyer, false); err != nil {
		return false, fmt.Errorf("clear waiting: %w", err)
	}
	if err := f.deps.Store.SetPendingOrder(ctx, f.buyer, domain.PendingOrder{}); err != nil {
		return false, fmt.Errorf("clear pending order: %w", err)
	}

	logger.Info().Str("transaction_hash", result.TransactionHash).Msg("order fulfilled")
	return true, nil
}

func (f *Fulfiller) completeOrder(ctx context.Context, view ports.ThreadView, logger zerolog.Logger) {
	for _, step := range completionSteps {
		if err := view.Click(ctx, step.selector, f.opts.ClickTimeout); err != nil {
			logger.Warn().Err(err).Str("step", step.name).Msg("order completion step failed")
			continue
		}
		if step.waitIdle {
			if err := view.WaitIdle(ctx); err != nil {
				logger.Warn().Err(err).Str("step", step.name).Msg("order page did not settle")
			}
		}
		if step.pause > 0 {
			if err := f.deps.Clock.Sleep(ctx, step.pause); err != nil {
				return
			}
		}
	}
}
