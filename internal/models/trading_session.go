package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a trading session.
type SessionStatus string

const (
	SessionQueued   SessionStatus = "queued"
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
)

// TradingSession is a bounded period during which a single strategy profile
// governs trading. At most one session per account is ACTIVE at any time.
//
// RepeatTimes, when set, bounds how many orders the session may produce;
// RepeatUntil, when set, is a wall-clock deadline. Either limit finishes
// the session.
type TradingSession struct {
	gorm.Model
	AccountID         uint `gorm:"index"`
	StrategyProfileID uint
	StrategyProfile   StrategyProfile

	Status         SessionStatus `gorm:"index"`
	BecameActive   *time.Time
	BecameFinished *time.Time
	Note           string

	RepeatTimes *uint
	RepeatUntil *time.Time
}

// SetStatus applies a lifecycle transition at the given time. The only legal
// transitions are QUEUED to ACTIVE and ACTIVE to FINISHED; the became_active
// and became_finished timestamps are set once and are immutable afterwards.
func (s *TradingSession) SetStatus(status SessionStatus, at time.Time) error {
	switch status {
	case SessionActive:
		if s.Status != SessionQueued || s.BecameActive != nil || s.BecameFinished != nil {
			return fmt.Errorf("%w: session %d %s -> active", ErrInvalidTransition, s.ID, s.Status)
		}
		s.BecameActive = &at
	case SessionFinished:
		if s.Status != SessionActive || s.BecameActive == nil || s.BecameFinished != nil {
			return fmt.Errorf("%w: session %d %s -> finished", ErrInvalidTransition, s.ID, s.Status)
		}
		s.BecameFinished = &at
	default:
		return fmt.Errorf("%w: session %d %s -> %s", ErrInvalidTransition, s.ID, s.Status, status)
	}
	s.Status = status
	return nil
}

// IsExpired reports whether the session's deadline has passed.
func (s *TradingSession) IsExpired(now time.Time) bool {
	return s.RepeatUntil != nil && s.RepeatUntil.Before(now)
}

// IsDone reports whether the session has used up its repeat budget,
// given how many orders it has produced so far.
func (s *TradingSession) IsDone(orderCount int64) bool {
	return s.RepeatTimes != nil && orderCount >= int64(*s.RepeatTimes)
}

// IsFinished reports whether the session should stop trading.
func (s *TradingSession) IsFinished(now time.Time, orderCount int64) bool {
	return s.IsExpired(now) || s.IsDone(orderCount)
}

func (s *TradingSession) String() string {
	return fmt.Sprintf("%s session with %s", s.Status, &s.StrategyProfile)
}
