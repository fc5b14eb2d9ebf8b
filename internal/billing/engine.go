// Package billing owns the voucher ledger, the income ledger, and the
// subscriber status derivation. All mutations to a subscriber's
// subscriber/voucher/income triple are serialized through a per-subscriber
// lock and run inside a single database transaction.
package billing

import (
	"fmt"
	"sync"

	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/models"
	"gorm.io/gorm"
)

type Engine struct {
	db         *gorm.DB
	clock      *calendar.Clock
	cutoffHour int

	mu    sync.Mutex
	locks map[uint]*subscriberLock
}

// subscriberLock is reference-counted so the lock table only holds
// entries for subscribers with an operation in flight.
type subscriberLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(db *gorm.DB, clock *calendar.Clock, cutoffHour int) *Engine {
	return &Engine{
		db:         db,
		clock:      clock,
		cutoffHour: cutoffHour,
		locks:      make(map[uint]*subscriberLock),
	}
}

func (e *Engine) Clock() *calendar.Clock {
	return e.clock
}

func (e *Engine) CutoffHour() int {
	return e.cutoffHour
}

// lockSubscriber serializes ledger mutations per subscriber id.
// Operations on different subscribers run in parallel.
func (e *Engine) lockSubscriber(id uint) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &subscriberLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}

// loadSubscriber fetches a subscriber inside a transaction
func loadSubscriber(tx *gorm.DB, id uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := tx.First(&sub, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("subscriber %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &sub, nil
}

// loadVoucher fetches the subscriber's voucher with months in FIFO order
// (charge date ascending) and their payment history.
func loadVoucher(tx *gorm.DB, subscriberID uint) (*models.Voucher, error) {
	var voucher models.Voucher
	err := tx.
		Preload("Months", func(db *gorm.DB) *gorm.DB {
			return db.Order("charge_date ASC")
		}).
		Preload("Months.Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("paid_at ASC")
		}).
		Where("subscriber_id = ?", subscriberID).
		First(&voucher).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("voucher for subscriber %d: %w", subscriberID, ErrNotFound)
		}
		return nil, err
	}
	return &voucher, nil
}

// findMonth locates a month entry by label within a loaded voucher
func findMonth(voucher *models.Voucher, label string) *models.MonthEntry {
	for i := range voucher.Months {
		if voucher.Months[i].Label == label {
			return &voucher.Months[i]
		}
	}
	return nil
}
