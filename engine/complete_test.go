package engine

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"concert_manager/model"
	"concert_manager/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCompleteMarksPaidMintsTicketsAndSplits(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 2, "K1")

	result, err := env.engine.Complete(context.Background(), purchase.Transaction.ID,
		successVerify(10000, 1000))
	require.NoError(t, err)

	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, model.TxnCompleted, result.Transaction.Status)
	assert.NotNil(t, result.Transaction.CompletedAt)
	assert.Equal(t, int64(1000), result.Transaction.PlatformAmount)
	assert.Equal(t, int64(9000), result.Transaction.OrganizerAmount)

	assert.Equal(t, model.OrderCompleted, result.Order.PaymentStatus)
	assert.Equal(t, int64(1000), result.Order.PlatformAmount)
	assert.Equal(t, int64(9000), result.Order.OrganizerAmount)

	assert.Equal(t, 2, env.reloadTier(t).SoldCount)

	var event model.Event
	require.NoError(t, env.db.First(&event, "id = ?", env.event.ID).Error)
	assert.Equal(t, 2, event.TotalTicketsSold)
	assert.Equal(t, int64(10000), event.TotalRevenue)

	require.Len(t, result.Tickets, 2)
	seen := map[string]bool{}
	for _, ticket := range result.Tickets {
		assert.Equal(t, model.TicketValid, ticket.Status)
		assert.Equal(t, int64(5000), ticket.Price)
		assert.False(t, seen[ticket.QRCode], "duplicate qr code")
		seen[ticket.QRCode] = true

		payload, err := env.codec.Verify(ticket.QRCode)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatUint(uint64(ticket.ID), 10), payload.TicketID)
		assert.Equal(t, strconv.FormatUint(uint64(env.event.ID), 10), payload.EventID)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 2, "K1")

	first, err := env.engine.Complete(context.Background(), purchase.Transaction.ID,
		successVerify(10000, 1000))
	require.NoError(t, err)

	second, err := env.engine.Complete(context.Background(), purchase.Transaction.ID,
		successVerify(10000, 1000))
	require.NoError(t, err)

	assert.True(t, second.AlreadyCompleted)
	assert.Len(t, second.Tickets, 2)
	assert.Equal(t, first.Tickets[0].QRCode, second.Tickets[0].QRCode)

	// counters bump exactly once
	assert.Equal(t, 2, env.reloadTier(t).SoldCount)
	var ticketCount int64
	env.db.Model(&model.Ticket{}).Count(&ticketCount)
	assert.EqualValues(t, 2, ticketCount)
}

func TestCompleteConcurrentWebhookAndVerifierConverge(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 2, "K1")

	const n = 2
	results := make([]*CompleteResult, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.engine.Complete(context.Background(),
				purchase.Transaction.ID, successVerify(10000, 1000))
		}(i)
	}
	wg.Wait()

	replays := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Tickets, 2)
		if results[i].AlreadyCompleted {
			replays++
		}
	}
	assert.Equal(t, n-1, replays)

	assert.Equal(t, 2, env.reloadTier(t).SoldCount)
	var ticketCount int64
	env.db.Model(&model.Ticket{}).Count(&ticketCount)
	assert.EqualValues(t, 2, ticketCount)
}

func TestCompleteOversoldFailsAndQueuesRefund(t *testing.T) {
	env := newTestEnv(t, 3, 5000, 4)
	first := env.purchase(t, buyer(1), 2, "K1")
	second := env.purchase(t, buyer(2), 2, "K2")

	_, err := env.engine.Complete(context.Background(), first.Transaction.ID,
		successVerify(10000, 1000))
	require.NoError(t, err)

	_, err = env.engine.Complete(context.Background(), second.Transaction.ID,
		successVerify(10000, 1000))
	assert.ErrorIs(t, err, ErrOversold)

	// the failed state and the refund intent are committed
	loser := env.reloadTxn(t, second.Transaction.ID)
	assert.Equal(t, model.TxnFailed, loser.Status)
	assert.Equal(t, "oversold", loser.FailureCode)

	var order model.Order
	require.NoError(t, env.db.First(&order, "id = ?", second.Order.ID).Error)
	assert.Equal(t, model.OrderFailed, order.PaymentStatus)

	var outbox []model.RefundOutbox
	require.NoError(t, env.db.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	assert.Equal(t, second.Transaction.ID, outbox[0].TransactionID)
	assert.Equal(t, int64(10000), outbox[0].Amount)

	// never oversell the tier
	assert.Equal(t, 2, env.reloadTier(t).SoldCount)
	var ticketCount int64
	env.db.Model(&model.Ticket{}).Count(&ticketCount)
	assert.EqualValues(t, 2, ticketCount)
}

func TestCompleteSplitsFallBackToOrganizerPercent(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 2, "K1")

	// no subaccount share reported; organizer keeps 90%, fees come out of
	// the organizer side
	verification := successVerify(10000, 0)
	verification.Fees = 150
	result, err := env.engine.Complete(context.Background(), purchase.Transaction.ID, verification)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), result.Transaction.PlatformAmount)
	assert.Equal(t, int64(8850), result.Transaction.OrganizerAmount)
}

func TestCompleteRejectsFailedTransaction(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 1, "K1")

	_, err := env.engine.Fail(context.Background(), purchase.Transaction.ID, "declined", "card_declined", "")
	require.NoError(t, err)

	_, err = env.engine.Complete(context.Background(), purchase.Transaction.ID, successVerify(5000, 500))
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, 0, env.reloadTier(t).SoldCount)
}

func TestCompleteUnknownTransaction(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	_, err := env.engine.Complete(context.Background(), 4242, successVerify(5000, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyAndCompleteSuccess(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 2, "K1")
	reference := purchase.Transaction.GatewayReference

	env.gateway.On("Verify", mock.Anything, reference).
		Return(successVerify(10000, 1000), nil).Once()

	result, err := env.engine.VerifyAndComplete(context.Background(), reference)
	require.NoError(t, err)
	assert.Equal(t, model.TxnCompleted, result.Transaction.Status)
	env.gateway.AssertExpectations(t)
}

func TestVerifyAndCompleteDeclineFailsTransaction(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 2, "K1")
	reference := purchase.Transaction.GatewayReference

	env.gateway.On("Verify", mock.Anything, reference).
		Return(&payment.VerifyResult{OK: false, Status: "failed"}, nil).Once()

	_, err := env.engine.VerifyAndComplete(context.Background(), reference)
	assert.ErrorIs(t, err, ErrVerificationFailed)

	txn := env.reloadTxn(t, purchase.Transaction.ID)
	assert.Equal(t, model.TxnFailed, txn.Status)
	assert.Equal(t, "charge_failed", txn.FailureCode)
}

func TestVerifyAndCompleteUnknownReference(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	_, err := env.engine.VerifyAndComplete(context.Background(), "order_nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
