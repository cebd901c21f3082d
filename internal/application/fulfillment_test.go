package application

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bnema/stars-relay/internal/domain"
	"github.com/bnema/stars-relay/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testBuyer = domain.BuyerID("buyer-1")

func completionFor(quantity, identifier, hash string) interface{} {
	return mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, quantity) && strings.Contains(text, "@"+identifier) && strings.Contains(text, hash)
	})
}

func TestFulfillerHappyPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	clock := &fakeClock{}
	view := &fakeView{recipients: [][]string{{"100 ЗВЁЗД"}, {"100 ЗВЁЗД", "@alice"}}}

	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientRequestMessage(100)).Return(true).Once()
	purchaser.EXPECT().Purchase(mockAnyContext(), "alice", 100).
		Return(domain.PurchaseResult{Success: true, TransactionHash: "0xfeed"}, true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, completionFor("100", "alice", "0xfeed")).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     clock,
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, view, 1, "Оплатил покупку"))

	order, err := store.PendingOrder(ctx, testBuyer)
	require.NoError(t, err)
	assert.True(t, order.PaymentPending)

	require.NoError(t, fulfiller.Handle(ctx, view, 2, "100 ЗВЁЗД"))

	waiting, err := store.Waiting(ctx, testBuyer)
	require.NoError(t, err)
	assert.False(t, waiting)

	order, err = store.PendingOrder(ctx, testBuyer)
	require.NoError(t, err)
	assert.True(t, order.IsZero())

	count, err := store.LastEventCount(ctx, testBuyer)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, []domain.Selector{
		domain.SelectorOrderLink,
		domain.SelectorCompletedButton,
		domain.SelectorConfirmCheckbox,
		domain.SelectorSubmitButton,
	}, view.Clicks())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, time.Second}, clock.Sleeps())
}

func TestFulfillerIgnoresQuantityWithoutPayment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: mocks.NewMockMessenger(t),
		Purchaser: mocks.NewMockPurchaser(t),
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, &fakeView{}, 1, "100 звезд"))
	require.NoError(t, fulfiller.Handle(ctx, &fakeView{}, 2, "hello there"))

	waiting, err := store.Waiting(ctx, testBuyer)
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestFulfillerChatterKeepsPaymentPending(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: mocks.NewMockMessenger(t),
		Purchaser: mocks.NewMockPurchaser(t),
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, &fakeView{}, 1, "Покупатель оплатил покупку"))
	require.NoError(t, fulfiller.Handle(ctx, &fakeView{}, 2, "спасибо!"))
	require.NoError(t, fulfiller.Handle(ctx, &fakeView{}, 3, "Оплатил покупку"))

	order, err := store.PendingOrder(ctx, testBuyer)
	require.NoError(t, err)
	assert.Equal(t, domain.PendingOrder{PaymentPending: true}, order)
}

func TestFulfillerMalformedRecipientThenValid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	view := &fakeView{recipients: [][]string{{"100 звезд"}, {"100 звезд", "alice"}, {"100 звезд", "alice", "@alice"}}}

	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientRequestMessage(100)).Return(true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientFormatErrorMessage()).
		Run(func(ctx context.Context, _ domain.BuyerID, _ string) {
			waiting, err := store.Waiting(ctx, testBuyer)
			assert.NoError(t, err)
			assert.True(t, waiting)
		}).
		Return(true).Once()
	purchaser.EXPECT().Purchase(mockAnyContext(), "alice", 100).
		Return(domain.PurchaseResult{Success: true, TransactionHash: "0xabc"}, true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, completionFor("100", "alice", "0xabc")).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, view, 1, "Оплатил покупку"))
	require.NoError(t, fulfiller.Handle(ctx, view, 2, "100 звезд"))

	waiting, err := store.Waiting(ctx, testBuyer)
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestFulfillerPurchaseFailureKeepsWaitingAndNeverRepeats(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := newTestStore(t)
	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	clock := &fakeClock{cancel: cancel, cancelAfter: 5}
	view := &fakeView{recipients: [][]string{{"7 звезд"}, {"7 звезд", "@alice"}}}

	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientRequestMessage(7)).Return(true).Once()
	purchaser.EXPECT().Purchase(mockAnyContext(), "alice", 7).Return(domain.PurchaseResult{}, false).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.PurchaseFailedMessage()).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     clock,
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, view, 1, "Оплатил покупку"))
	err := fulfiller.Handle(ctx, view, 2, "7 звезд")
	require.ErrorIs(t, err, context.Canceled)

	waiting, err := store.Waiting(context.Background(), testBuyer)
	require.NoError(t, err)
	assert.True(t, waiting)

	order, err := store.PendingOrder(context.Background(), testBuyer)
	require.NoError(t, err)
	assert.Equal(t, domain.PendingOrder{Quantity: 7, QuantityEvent: 2}, order)
	assert.Len(t, clock.Sleeps(), 5)

	count, err := store.LastEventCount(context.Background(), testBuyer)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFulfillerLastQuantityWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	view := &fakeView{recipients: [][]string{{"25 звезд"}, {"25 звезд", "@bob"}}}

	require.NoError(t, store.SetPendingOrder(ctx, testBuyer, domain.PendingOrder{Quantity: 10}))
	require.NoError(t, store.SetPendingOrder(ctx, testBuyer, domain.PendingOrder{PaymentPending: true, Quantity: 10}))

	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientRequestMessage(25)).Return(true).Once()
	purchaser.EXPECT().Purchase(mockAnyContext(), "bob", 25).
		Return(domain.PurchaseResult{Success: true, TransactionHash: "h"}, true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, completionFor("25", "bob", "h")).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, view, 3, "25 звезд"))
}

func TestFulfillerCompletionStepFailuresDoNotBlockReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	view := &fakeView{
		recipients: [][]string{{"3 звезды"}, {"3 звезды", "@carol"}},
		clickErrs: map[domain.Selector]error{
			domain.SelectorOrderLink:       context.DeadlineExceeded,
			domain.SelectorConfirmCheckbox: context.DeadlineExceeded,
		},
	}

	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientRequestMessage(3)).Return(true).Once()
	purchaser.EXPECT().Purchase(mockAnyContext(), "carol", 3).
		Return(domain.PurchaseResult{Success: true, TransactionHash: "0x1"}, true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, completionFor("3", "carol", "0x1")).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, view, 1, "оплатил покупку"))
	require.NoError(t, fulfiller.Handle(ctx, view, 2, "3 звезды"))

	assert.Len(t, view.Clicks(), 4)
	waiting, err := store.Waiting(ctx, testBuyer)
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestFulfillerResumeAfterRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetPendingOrder(ctx, testBuyer, domain.PendingOrder{Quantity: 30, QuantityEvent: 4}))
	require.NoError(t, store.SetWaiting(ctx, testBuyer, true))

	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	purchaser.EXPECT().Purchase(mockAnyContext(), "dave", 30).
		Return(domain.PurchaseResult{Success: true, TransactionHash: "0x30"}, true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, completionFor("30", "dave", "0x30")).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Resume(ctx, &fakeView{recipients: [][]string{{"@dave"}}}))

	waiting, err := store.Waiting(ctx, testBuyer)
	require.NoError(t, err)
	assert.False(t, waiting)

	count, err := store.LastEventCount(ctx, testBuyer)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestFulfillerResumeIdleBuyerDoesNothing(t *testing.T) {
	t.Parallel()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     newTestStore(t),
		Messenger: mocks.NewMockMessenger(t),
		Purchaser: mocks.NewMockPurchaser(t),
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Resume(context.Background(), &fakeView{recipients: [][]string{{"@eve"}}}))
}

func TestFulfillerIgnoresRecipientShownBeforeRequest(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := newTestStore(t)
	messenger := mocks.NewMockMessenger(t)
	clock := &fakeClock{cancel: cancel, cancelAfter: 3}
	// a reload shows more history but the same last recipient
	view := &fakeView{recipients: [][]string{{"@old"}, {"hi", "@old"}}}

	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientRequestMessage(10)).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: mocks.NewMockPurchaser(t),
		Clock:     clock,
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, view, 1, "оплатил покупку"))
	err := fulfiller.Handle(ctx, view, 2, "10 звезд")
	require.ErrorIs(t, err, context.Canceled)

	waiting, err := store.Waiting(context.Background(), testBuyer)
	require.NoError(t, err)
	assert.True(t, waiting)
}

func TestFulfillerRepeatOrderAcceptsSameRecipient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetFingerprint(ctx, testBuyer, domain.FingerprintKindUser, domain.Fingerprint("@alice")))
	require.NoError(t, store.SetPendingOrder(ctx, testBuyer, domain.PendingOrder{PaymentPending: true}))

	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	view := &fakeView{recipients: [][]string{{"@alice", "5 звезд"}, {"@alice", "5 звезд", "@alice"}}}

	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientRequestMessage(5)).Return(true).Once()
	purchaser.EXPECT().Purchase(mockAnyContext(), "alice", 5).
		Return(domain.PurchaseResult{Success: true, TransactionHash: "0x55"}, true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, completionFor("5", "alice", "0x55")).Return(true).Once()

	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     &fakeClock{},
		Logger:    zerolog.Nop(),
	}, Options{})

	require.NoError(t, fulfiller.Handle(ctx, view, 9, "5 звезд"))

	waiting, err := store.Waiting(ctx, testBuyer)
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestFulfillerLogsRecipientFingerprintOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetPendingOrder(ctx, testBuyer, domain.PendingOrder{Quantity: 8, QuantityEvent: 2}))
	require.NoError(t, store.SetWaiting(ctx, testBuyer, true))

	messenger := mocks.NewMockMessenger(t)
	purchaser := mocks.NewMockPurchaser(t)
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, domain.RecipientFormatErrorMessage()).Return(true).Once()
	purchaser.EXPECT().Purchase(mockAnyContext(), "mallory", 8).
		Return(domain.PurchaseResult{Success: true, TransactionHash: "0x8"}, true).Once()
	messenger.EXPECT().SendMessage(mockAnyContext(), testBuyer, completionFor("8", "mallory", "0x8")).Return(true).Once()

	var logs bytes.Buffer
	fulfiller := NewFulfiller(testBuyer, Deps{
		Store:     store,
		Messenger: messenger,
		Purchaser: purchaser,
		Clock:     &fakeClock{},
		Logger:    zerolog.New(&logs),
	}, Options{})

	require.NoError(t, fulfiller.Resume(ctx, &fakeView{recipients: [][]string{{"mallory"}, {"mallory", "@mallory"}}}))

	assert.Contains(t, logs.String(), domain.FingerprintPrefix("@mallory"))
	assert.NotContains(t, logs.String(), "mallory")
}
