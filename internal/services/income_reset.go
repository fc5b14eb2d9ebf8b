package services

import (
	"log"
	"sync"
	"time"

	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/database"
)

// IncomeResetService zeroes every receiver's income record on the first
// day of each month, once the daily cutoff has passed. Optional:
// installations that carry income forward leave it disabled.
type IncomeResetService struct {
	engine   *billing.Engine
	interval time.Duration

	stopChan     chan struct{}
	wg           sync.WaitGroup
	lastResetDay calendar.Date
}

// NewIncomeResetService creates a new income reset service
func NewIncomeResetService(engine *billing.Engine, interval time.Duration) *IncomeResetService {
	return &IncomeResetService{
		engine:   engine,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the income reset scheduler
func (s *IncomeResetService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Println("IncomeResetService started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndReset()
			case <-s.stopChan:
				log.Println("IncomeResetService stopped")
				return
			}
		}
	}()
}

// Stop stops the income reset service
func (s *IncomeResetService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *IncomeResetService) checkAndReset() {
	now := s.engine.Clock().Now()
	if now.Day() != 1 || now.Hour() < s.engine.CutoffHour() {
		return
	}
	today := calendar.DateOf(now)
	if s.lastResetDay.Equal(today) {
		return
	}
	s.lastResetDay = today

	count, err := s.engine.ResetIncome()
	if err != nil {
		log.Printf("IncomeResetService: Reset failed: %v", err)
		return
	}
	log.Printf("IncomeResetService: Zeroed %d income records for %s", count, today.MonthLabel())
	database.InvalidateBillingCaches()
}
