package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTransitions(t *testing.T) {
	now := time.Now()

	t.Run("QueuedToActiveToFinished", func(t *testing.T) {
		s := &TradingSession{Status: SessionQueued}

		require.NoError(t, s.SetStatus(SessionActive, now))
		assert.Equal(t, SessionActive, s.Status)
		require.NotNil(t, s.BecameActive)
		assert.Nil(t, s.BecameFinished)

		later := now.Add(time.Hour)
		require.NoError(t, s.SetStatus(SessionFinished, later))
		assert.Equal(t, SessionFinished, s.Status)
		require.NotNil(t, s.BecameFinished)
		assert.Equal(t, later, *s.BecameFinished)
		// became_active is immutable once set.
		assert.Equal(t, now, *s.BecameActive)
	})

	t.Run("IllegalTransitions", func(t *testing.T) {
		cases := []struct {
			name string
			from SessionStatus
			to   SessionStatus
		}{
			{"QueuedToFinished", SessionQueued, SessionFinished},
			{"ActiveToActive", SessionActive, SessionActive},
			{"FinishedToActive", SessionFinished, SessionActive},
			{"FinishedToQueued", SessionFinished, SessionQueued},
			{"ActiveToQueued", SessionActive, SessionQueued},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				s := &TradingSession{Status: tc.from}
				if tc.from != SessionQueued {
					s.BecameActive = &now
				}
				err := s.SetStatus(tc.to, now)
				assert.ErrorIs(t, err, ErrInvalidTransition)
			})
		}
	})

	t.Run("ReactivationRejected", func(t *testing.T) {
		s := &TradingSession{Status: SessionQueued}
		require.NoError(t, s.SetStatus(SessionActive, now))
		require.NoError(t, s.SetStatus(SessionFinished, now))
		assert.ErrorIs(t, s.SetStatus(SessionActive, now), ErrInvalidTransition)
	})
}

func TestSessionIsFinished(t *testing.T) {
	now := time.Now()

	t.Run("NoLimits", func(t *testing.T) {
		s := &TradingSession{Status: SessionActive}
		assert.False(t, s.IsFinished(now, 100))
	})

	t.Run("DeadlinePassed", func(t *testing.T) {
		past := now.Add(-time.Minute)
		s := &TradingSession{Status: SessionActive, RepeatUntil: &past}
		assert.True(t, s.IsFinished(now, 0))
	})

	t.Run("DeadlineAhead", func(t *testing.T) {
		future := now.Add(time.Hour)
		s := &TradingSession{Status: SessionActive, RepeatUntil: &future}
		assert.False(t, s.IsFinished(now, 0))
	})

	t.Run("RepeatBudgetSpent", func(t *testing.T) {
		times := uint(2)
		s := &TradingSession{Status: SessionActive, RepeatTimes: &times}
		assert.False(t, s.IsFinished(now, 1))
		assert.True(t, s.IsFinished(now, 2))
		assert.True(t, s.IsFinished(now, 3))
	})
}

func TestOrderStatusMonotonic(t *testing.T) {
	now := time.Now()

	t.Run("OpenToProcessed", func(t *testing.T) {
		o := &Order{ID: 7, Status: OrderOpen}
		require.NoError(t, o.SetStatus(OrderProcessed, now))
		assert.Equal(t, OrderProcessed, o.Status)
		require.NotNil(t, o.StatusChanged)
	})

	t.Run("OpenToCancelled", func(t *testing.T) {
		o := &Order{ID: 9, Status: OrderOpen}
		require.NoError(t, o.SetStatus(OrderCancelled, now))
		assert.Equal(t, OrderCancelled, o.Status)
	})

	t.Run("NeverReversed", func(t *testing.T) {
		o := &Order{ID: 7, Status: OrderProcessed}
		assert.ErrorIs(t, o.SetStatus(OrderOpen, now), ErrInvalidTransition)
		assert.ErrorIs(t, o.SetStatus(OrderCancelled, now), ErrInvalidTransition)

		c := &Order{ID: 9, Status: OrderCancelled}
		assert.ErrorIs(t, c.SetStatus(OrderProcessed, now), ErrInvalidTransition)
	})

	t.Run("OpenToOpenRejected", func(t *testing.T) {
		o := &Order{ID: 5, Status: OrderOpen}
		assert.ErrorIs(t, o.SetStatus(OrderOpen, now), ErrInvalidTransition)
	})
}
