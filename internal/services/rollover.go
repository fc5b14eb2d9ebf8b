package services

import (
	"log"
	"sync"
	"time"

	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/models"
	"gorm.io/gorm"
)

// RolloverService advances subscribers through billing cycles once per
// civil day, at or after the configured cutoff hour (noon by default).
// Phase A flags subscribers expiring tomorrow; phase B rolls subscribers
// whose expiry is today or earlier into the next cycle. Both phases are
// idempotent: phase A is a plain flag write and phase B's duplicate-month
// guard makes a second run for the same day a no-op.
type RolloverService struct {
	engine   *billing.Engine
	db       *gorm.DB
	interval time.Duration

	stopChan   chan struct{}
	wg         sync.WaitGroup
	lastRunDay calendar.Date
}

// NewRolloverService creates a new rollover service
func NewRolloverService(engine *billing.Engine, db *gorm.DB, interval time.Duration) *RolloverService {
	return &RolloverService{
		engine:   engine,
		db:       db,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the rollover scheduler
func (s *RolloverService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Println("RolloverService started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndRun()
			case <-s.stopChan:
				log.Println("RolloverService stopped")
				return
			}
		}
	}()
}

// Stop stops the rollover service
func (s *RolloverService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// checkAndRun fires the daily run once the cutoff has passed
func (s *RolloverService) checkAndRun() {
	clock := s.engine.Clock()
	now := clock.Now()

	if now.Hour() < s.engine.CutoffHour() {
		return
	}
	today := calendar.DateOf(now)
	if s.lastRunDay.Equal(today) {
		return
	}
	s.lastRunDay = today

	log.Printf("RolloverService: Running for %s", today)
	s.RunOnce(now)
}

// RunOnce executes both phases for the given time. Exported so an admin
// endpoint or a test can trigger a run directly; the duplicate-month
// guard keeps repeated runs safe.
func (s *RolloverService) RunOnce(now time.Time) {
	flagged, err := s.flagExpiringTomorrow(now)
	if err != nil {
		log.Printf("RolloverService: Phase A failed: %v", err)
	} else if flagged > 0 {
		log.Printf("RolloverService: Phase A flagged %d subscribers expiring tomorrow", flagged)
	}

	rolled, failed := s.rollExpired(now)
	if rolled > 0 || failed > 0 {
		log.Printf("RolloverService: Phase B rolled %d subscribers (%d failed)", rolled, failed)
	}

	if flagged > 0 || rolled > 0 {
		database.InvalidateBillingCaches()
	}
}

// flagExpiringTomorrow marks every active subscriber whose expiry falls
// on tomorrow's civil date. Status is not touched.
func (s *RolloverService) flagExpiringTomorrow(now time.Time) (int64, error) {
	tomorrow := calendar.DateOf(now).AddDays(1)

	result := s.db.Model(&models.Subscriber{}).
		Where("service_status = ? AND expiry_date = ? AND show_in_expiring_soon = ?",
			models.ServiceStatusActive, tomorrow.String(), false).
		Update("show_in_expiring_soon", true)
	return result.RowsAffected, result.Error
}

// rollExpired advances every active subscriber whose expiry is today or
// earlier. The "or earlier" catches days the job missed. Failures are
// per-subscriber: one bad record must not abort the batch, and a failed
// subscriber's expiry stays in the past so the next run retries it.
func (s *RolloverService) rollExpired(now time.Time) (rolled, failed int) {
	today := calendar.DateOf(now)

	var subscribers []models.Subscriber
	if err := s.db.
		Where("service_status = ? AND expiry_date <= ? AND expiry_date <> ''",
			models.ServiceStatusActive, today.String()).
		Find(&subscribers).Error; err != nil {
		log.Printf("RolloverService: Phase B query failed: %v", err)
		return 0, 0
	}

	for i := range subscribers {
		sub := &subscribers[i]
		if err := s.engine.RollCycle(sub.ID, now); err != nil {
			log.Printf("RolloverService: Rollover failed for subscriber %d (%s): %v", sub.ID, sub.Name, err)
			failed++
			continue
		}
		rolled++
	}
	return rolled, failed
}
