package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{TxnInitiated, TxnProcessing},
		{TxnInitiated, TxnFailed},
		{TxnProcessing, TxnCompleted},
		{TxnProcessing, TxnFailed},
		{TxnCompleted, TxnPartiallyRefunded},
		{TxnCompleted, TxnRefunded},
		{TxnPartiallyRefunded, TxnRefunded},
		{TxnFailed, TxnProcessing},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionTableIsClosed(t *testing.T) {
	statuses := []string{
		TxnInitiated, TxnProcessing, TxnCompleted,
		TxnFailed, TxnRefunded, TxnPartiallyRefunded,
	}

	// every status has an entry, refunded is terminal
	for _, status := range statuses {
		_, ok := AllowedTransitions[status]
		assert.True(t, ok, "missing entry for %s", status)
	}
	assert.Empty(t, AllowedTransitions[TxnRefunded])

	// no backward edges to initiated, no skipping straight to completed
	for _, status := range statuses {
		assert.False(t, CanTransition(status, TxnInitiated), "%s must not return to initiated", status)
	}
	assert.False(t, CanTransition(TxnInitiated, TxnCompleted))
	assert.False(t, CanTransition(TxnFailed, TxnCompleted))
	assert.False(t, CanTransition(TxnRefunded, TxnProcessing))

	// self transitions are not legal moves
	for _, status := range statuses {
		assert.False(t, CanTransition(status, status), "%s -> %s", status, status)
	}

	assert.False(t, CanTransition("bogus", TxnProcessing))
}

func TestTicketTierRemaining(t *testing.T) {
	tier := TicketTier{Quantity: 100, SoldCount: 42}
	assert.Equal(t, 58, tier.Remaining())
}

func TestOrganizerPercent(t *testing.T) {
	organizer := Organizer{PlatformFeePercent: 10}
	assert.EqualValues(t, 90, organizer.OrganizerPercent())
}
