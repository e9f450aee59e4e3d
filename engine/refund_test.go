package engine

import (
	"context"
	"testing"

	"concert_manager/model"
	"concert_manager/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func organizerActor() model.Actor {
	return model.Actor{UserID: 900, Email: "org@example.com", Role: model.RoleOrganizer}
}

// completedPurchase runs a purchase through completion and returns its
// transaction id.
func completedPurchase(t *testing.T, env *testEnv, quantity int, key string) uint {
	t.Helper()
	purchase := env.purchase(t, buyer(1), quantity, key)
	_, err := env.engine.Complete(context.Background(), purchase.Transaction.ID,
		successVerify(int64(quantity)*5000, 0))
	require.NoError(t, err)
	return purchase.Transaction.ID
}

func okRefund(id string) *payment.RefundResult {
	return &payment.RefundResult{OK: true, GatewayRefundID: id}
}

func TestRefundPartialThenFull(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	txnID := completedPurchase(t, env, 2, "K1")

	env.gateway.On("Refund", mock.Anything, payment.RefundRequest{
		TransactionReference: env.reloadTxn(t, txnID).GatewayReference,
		AmountMinor:          3000,
	}).Return(okRefund("rf_1"), nil).Once()

	partial := int64(3000)
	txn, err := env.engine.Refund(context.Background(), txnID, &partial, "customer request", organizerActor())
	require.NoError(t, err)
	assert.Equal(t, model.TxnPartiallyRefunded, txn.Status)
	assert.Equal(t, int64(3000), txn.TotalRefunded)

	// nil amount refunds the remaining net
	env.gateway.On("Refund", mock.Anything, mock.MatchedBy(func(req payment.RefundRequest) bool {
		return req.AmountMinor == 7000
	})).Return(okRefund("rf_2"), nil).Once()

	txn, err = env.engine.Refund(context.Background(), txnID, nil, "event cancelled", organizerActor())
	require.NoError(t, err)
	assert.Equal(t, model.TxnRefunded, txn.Status)
	assert.Equal(t, int64(10000), txn.TotalRefunded)

	var refunds []model.Refund
	require.NoError(t, env.db.Order("id asc").Find(&refunds, "transaction_id = ?", txnID).Error)
	require.Len(t, refunds, 2)
	assert.Equal(t, int64(3000), refunds[0].Amount)
	assert.Equal(t, int64(7000), refunds[1].Amount)

	var order model.Order
	require.NoError(t, env.db.Preload("Tickets").First(&order,
		"id = ?", env.reloadTxn(t, txnID).OrderID).Error)
	assert.Equal(t, model.OrderRefunded, order.PaymentStatus)
	for _, ticket := range order.Tickets {
		assert.Equal(t, model.TicketCancelled, ticket.Status)
	}

	// counters stay; refunds never return inventory
	assert.Equal(t, 2, env.reloadTier(t).SoldCount)
}

func TestRefundRejectsAmountOverNet(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	txnID := completedPurchase(t, env, 2, "K1")

	env.gateway.On("Refund", mock.Anything, mock.Anything).Return(okRefund("rf_1"), nil).Once()
	partial := int64(3000)
	_, err := env.engine.Refund(context.Background(), txnID, &partial, "partial", organizerActor())
	require.NoError(t, err)

	over := int64(8000) // net is 7000
	_, err = env.engine.Refund(context.Background(), txnID, &over, "too much", organizerActor())
	assert.ErrorIs(t, err, ErrRefundExceedsNet)

	zero := int64(0)
	_, err = env.engine.Refund(context.Background(), txnID, &zero, "zero", organizerActor())
	assert.ErrorIs(t, err, ErrRefundExceedsNet)
}

func TestRefundRejectsNonCompletedTransaction(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	purchase := env.purchase(t, buyer(1), 1, "K1")

	_, err := env.engine.Refund(context.Background(), purchase.Transaction.ID, nil, "early", organizerActor())
	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefundFullyRefundedIsTerminal(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	txnID := completedPurchase(t, env, 1, "K1")

	env.gateway.On("Refund", mock.Anything, mock.Anything).Return(okRefund("rf_1"), nil).Once()
	_, err := env.engine.Refund(context.Background(), txnID, nil, "full", organizerActor())
	require.NoError(t, err)

	_, err = env.engine.Refund(context.Background(), txnID, nil, "again", organizerActor())
	assert.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefundGatewayFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	txnID := completedPurchase(t, env, 2, "K1")

	env.gateway.On("Refund", mock.Anything, mock.Anything).
		Return(nil, payment.ErrGateway).Once()

	partial := int64(3000)
	_, err := env.engine.Refund(context.Background(), txnID, &partial, "flaky", organizerActor())
	assert.ErrorIs(t, err, ErrGatewayRefund)

	txn := env.reloadTxn(t, txnID)
	assert.Equal(t, model.TxnCompleted, txn.Status)
	assert.Equal(t, int64(0), txn.TotalRefunded)

	var refundCount int64
	env.db.Model(&model.Refund{}).Count(&refundCount)
	assert.EqualValues(t, 0, refundCount)
}

func TestRefundUnknownTransaction(t *testing.T) {
	env := newTestEnv(t, 100, 5000, 4)
	_, err := env.engine.Refund(context.Background(), 4242, nil, "ghost", organizerActor())
	assert.ErrorIs(t, err, ErrNotFound)
}
