package repository

import (
	"errors"
	"fmt"
	"time"

	"bitstamp-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db     *gorm.DB
	orders *orderRepository
}

var _ Sessions = (*sessionRepository)(nil)

func (r *sessionRepository) Save(s *models.TradingSession) error {
	if err := r.db.Save(s).Error; err != nil {
		return fmt.Errorf("save trading session %d: %w", s.ID, err)
	}
	return nil
}

func (r *sessionRepository) Active(accountID uint) (*models.TradingSession, error) {
	return r.first(accountID, models.SessionActive, "created_at DESC")
}

func (r *sessionRepository) EarliestQueued(accountID uint) (*models.TradingSession, error) {
	return r.first(accountID, models.SessionQueued, "created_at")
}

func (r *sessionRepository) first(accountID uint, status models.SessionStatus, order string) (*models.TradingSession, error) {
	var session models.TradingSession
	err := r.db.Preload("StrategyProfile").
		Where("account_id = ? AND status = ?", accountID, status).
		Order(order).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s session: %w", status, err)
	}
	return &session, nil
}

func (r *sessionRepository) PreviousByCreated(accountID uint, before time.Time) (*models.TradingSession, error) {
	var session models.TradingSession
	err := r.db.Preload("StrategyProfile").
		Where("account_id = ? AND created_at < ?", accountID, before).
		Order("created_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous session: %w", err)
	}
	return &session, nil
}

// ActiveTradingSession returns the session trading should run under, or nil.
//
// This is the exclusive entry point with side effects: it promotes the
// earliest QUEUED session to ACTIVE when no ACTIVE one exists, and retires
// an ACTIVE session that has hit its repeat budget or deadline, walking back
// to the chronologically previous session and repeating the decision. It
// never returns a FINISHED session and promotes at most one QUEUED session
// per call.
func (r *sessionRepository) ActiveTradingSession(accountID uint, now time.Time) (*models.TradingSession, error) {
	session, err := r.Active(accountID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		if session, err = r.EarliestQueued(accountID); err != nil {
			return nil, err
		}
	}

	for session != nil {
		switch session.Status {
		case models.SessionFinished:
			return nil, nil

		case models.SessionQueued:
			if err := session.SetStatus(models.SessionActive, now); err != nil {
				return nil, err
			}
			if err := r.Save(session); err != nil {
				return nil, err
			}

		case models.SessionActive:
			orderCount, err := r.orders.CountForSession(session.ID)
			if err != nil {
				return nil, err
			}
			if !session.IsFinished(now, orderCount) {
				return session, nil
			}
			if err := session.SetStatus(models.SessionFinished, now); err != nil {
				return nil, err
			}
			if err := r.Save(session); err != nil {
				return nil, err
			}
			if session, err = r.PreviousByCreated(accountID, session.CreatedAt); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("%w: session %d has status %q",
				models.ErrInvalidTransition, session.ID, session.Status)
		}
	}
	return nil, nil
}
