package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestEngine(t *testing.T, now time.Time) (*billing.Engine, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	clock := calendar.NewClock("UTC")
	clock.NowFunc = func() time.Time { return now }
	return billing.NewEngine(db, clock, 12), db
}

func reloadSubscriber(t *testing.T, db *gorm.DB, id uint) models.Subscriber {
	t.Helper()

	var sub models.Subscriber
	if err := db.First(&sub, id).Error; err != nil {
		t.Fatalf("reload subscriber %d: %v", id, err)
	}
	return sub
}

func monthCount(t *testing.T, db *gorm.DB, subscriberID uint, label string) int64 {
	t.Helper()

	var count int64
	err := db.Model(&models.MonthEntry{}).
		Joins("JOIN vouchers ON vouchers.id = month_entries.voucher_id").
		Where("vouchers.subscriber_id = ? AND month_entries.label = ?", subscriberID, label).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count months: %v", err)
	}
	return count
}

// Phase A: a subscriber expiring tomorrow gets the expiring-soon flag,
// nothing else changes.
func TestRolloverFlagsTomorrowsExpirations(t *testing.T) {
	noon := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	engine, db := newTestEngine(t, noon)
	svc := NewRolloverService(engine, db, time.Minute)

	sub, err := engine.CreateSubscriber(billing.CreateSubscriberInput{
		Name:         "Hamza Khan",
		PackageFee:   1500,
		PaymentMode:  billing.PaymentModeNow,
		Method:       models.PaymentMethodCash,
		Receiver:     "Ali",
		RechargeDate: calendar.NewDate(2026, time.February, 11),
		ExpiryDate:   calendar.NewDate(2026, time.March, 11), // tomorrow
	})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}

	svc.RunOnce(noon)

	got := reloadSubscriber(t, db, sub.ID)
	if !got.ShowInExpiringSoon {
		t.Error("expiring-soon flag not set")
	}
	if got.Status != models.BillingStatusPaid {
		t.Errorf("status = %q, want paid (phase A must not change status)", got.Status)
	}
	if !got.ExpiryDate.Equal(calendar.NewDate(2026, time.March, 11)) {
		t.Errorf("expiry = %v, want unchanged", got.ExpiryDate)
	}
}

// Phase B: an expiry falling today rolls the subscriber into the next
// cycle and closes the ending month exactly once.
func TestRolloverRollsExpiredSubscribers(t *testing.T) {
	noon := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	engine, db := newTestEngine(t, noon)
	svc := NewRolloverService(engine, db, time.Minute)

	sub, err := engine.CreateSubscriber(billing.CreateSubscriberInput{
		Name:         "Hamza Khan",
		PackageFee:   1500,
		PaymentMode:  billing.PaymentModeNow,
		Method:       models.PaymentMethodCash,
		Receiver:     "Ali",
		RechargeDate: calendar.NewDate(2026, time.February, 10),
		ExpiryDate:   calendar.NewDate(2026, time.March, 10), // today
	})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}

	svc.RunOnce(noon)

	got := reloadSubscriber(t, db, sub.ID)
	if got.Status != models.BillingStatusUnpaid {
		t.Errorf("status = %q, want unpaid", got.Status)
	}
	if want := calendar.NewDate(2026, time.April, 10); !got.ExpiryDate.Equal(want) {
		t.Errorf("expiry = %v, want %v (one calendar month)", got.ExpiryDate, want)
	}
	if got.ShowInExpiringSoon {
		t.Error("expiring-soon flag not cleared by rollover")
	}
	if got.UnpaidSince == nil {
		t.Error("unpaid_since not set")
	}

	// Month label comes from the expiry being rolled past
	if n := monthCount(t, db, sub.ID, "March 2026"); n != 1 {
		t.Errorf("March 2026 entries = %d, want 1", n)
	}

	// Second run on the same day is a no-op: the subscriber's expiry has
	// moved past today and the closed month is not duplicated.
	svc.RunOnce(noon)

	again := reloadSubscriber(t, db, sub.ID)
	if !again.ExpiryDate.Equal(calendar.NewDate(2026, time.April, 10)) {
		t.Errorf("expiry after second run = %v, want unchanged", again.ExpiryDate)
	}
	if n := monthCount(t, db, sub.ID, "March 2026"); n != 1 {
		t.Errorf("March 2026 entries after second run = %d, want 1", n)
	}
}

// Subscribers whose expiry was missed (already in the past) roll on the
// next run, and one subscriber's state never blocks the rest.
func TestRolloverCatchesMissedExpirations(t *testing.T) {
	noon := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	engine, db := newTestEngine(t, noon)
	svc := NewRolloverService(engine, db, time.Minute)

	stale, err := engine.CreateSubscriber(billing.CreateSubscriberInput{
		Name:         "Bilal",
		PackageFee:   1200,
		PaymentMode:  billing.PaymentModeLater,
		RechargeDate: calendar.NewDate(2026, time.February, 1),
		ExpiryDate:   calendar.NewDate(2026, time.March, 1), // nine days ago
	})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}

	current, err := engine.CreateSubscriber(billing.CreateSubscriberInput{
		Name:         "Usman",
		PackageFee:   1500,
		PaymentMode:  billing.PaymentModeLater,
		RechargeDate: calendar.NewDate(2026, time.February, 20),
		ExpiryDate:   calendar.NewDate(2026, time.March, 20), // next week
	})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}

	svc.RunOnce(noon)

	gotStale := reloadSubscriber(t, db, stale.ID)
	if !gotStale.ExpiryDate.Equal(calendar.NewDate(2026, time.April, 1)) {
		t.Errorf("stale expiry = %v, want 2026-04-01", gotStale.ExpiryDate)
	}
	if n := monthCount(t, db, stale.ID, "March 2026"); n != 1 {
		t.Errorf("stale March 2026 entries = %d, want 1", n)
	}

	gotCurrent := reloadSubscriber(t, db, current.ID)
	if !gotCurrent.ExpiryDate.Equal(calendar.NewDate(2026, time.March, 20)) {
		t.Errorf("current expiry = %v, want untouched", gotCurrent.ExpiryDate)
	}
}

// Inactive subscribers are skipped by both phases
func TestRolloverSkipsInactiveSubscribers(t *testing.T) {
	noon := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	engine, db := newTestEngine(t, noon)
	svc := NewRolloverService(engine, db, time.Minute)

	sub, err := engine.CreateSubscriber(billing.CreateSubscriberInput{
		Name:         "Bilal",
		PackageFee:   1200,
		PaymentMode:  billing.PaymentModeLater,
		RechargeDate: calendar.NewDate(2026, time.February, 10),
		ExpiryDate:   calendar.NewDate(2026, time.March, 10),
	})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}
	if err := db.Model(&models.Subscriber{}).Where("id = ?", sub.ID).
		Update("service_status", models.ServiceStatusInactive).Error; err != nil {
		t.Fatalf("deactivate subscriber: %v", err)
	}

	svc.RunOnce(noon)

	got := reloadSubscriber(t, db, sub.ID)
	if !got.ExpiryDate.Equal(calendar.NewDate(2026, time.March, 10)) {
		t.Errorf("expiry = %v, want untouched for inactive subscriber", got.ExpiryDate)
	}
	if n := monthCount(t, db, sub.ID, "March 2026"); n != 0 {
		t.Errorf("March 2026 entries = %d, want 0", n)
	}
}

// The scheduler gate: nothing runs before the cutoff hour, and a day's
// run fires only once.
func TestRolloverCutoffGate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	engine, db := newTestEngine(t, now)
	clock := engine.Clock()
	svc := NewRolloverService(engine, db, time.Minute)

	sub, err := engine.CreateSubscriber(billing.CreateSubscriberInput{
		Name:         "Bilal",
		PackageFee:   1200,
		PaymentMode:  billing.PaymentModeLater,
		RechargeDate: calendar.NewDate(2026, time.February, 10),
		ExpiryDate:   calendar.NewDate(2026, time.March, 10),
	})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}

	// 9am: before cutoff, nothing happens
	svc.checkAndRun()
	if got := reloadSubscriber(t, db, sub.ID); !got.ExpiryDate.Equal(calendar.NewDate(2026, time.March, 10)) {
		t.Errorf("expiry changed before cutoff: %v", got.ExpiryDate)
	}

	// Noon: the run fires
	clock.NowFunc = func() time.Time {
		return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	svc.checkAndRun()
	if got := reloadSubscriber(t, db, sub.ID); !got.ExpiryDate.Equal(calendar.NewDate(2026, time.April, 10)) {
		t.Errorf("expiry = %v, want rolled at cutoff", got.ExpiryDate)
	}
}

func TestIncomeResetRunsOnFirstOfMonth(t *testing.T) {
	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	engine, db := newTestEngine(t, now)
	svc := NewIncomeResetService(engine, time.Minute)

	if err := db.Create(&models.IncomeRecord{Receiver: "Ali", CashIncome: 900}).Error; err != nil {
		t.Fatalf("seed income: %v", err)
	}

	svc.checkAndReset()

	var ali models.IncomeRecord
	if err := db.Where("receiver = ?", "Ali").First(&ali).Error; err != nil {
		t.Fatalf("reload income: %v", err)
	}
	if ali.CashIncome != 0 {
		t.Errorf("Ali cash = %v, want 0 after monthly reset", ali.CashIncome)
	}
}

func TestIncomeResetSkipsMidMonth(t *testing.T) {
	now := time.Date(2026, time.April, 15, 12, 0, 0, 0, time.UTC)
	engine, db := newTestEngine(t, now)
	svc := NewIncomeResetService(engine, time.Minute)

	if err := db.Create(&models.IncomeRecord{Receiver: "Ali", CashIncome: 900}).Error; err != nil {
		t.Fatalf("seed income: %v", err)
	}

	svc.checkAndReset()

	var ali models.IncomeRecord
	if err := db.Where("receiver = ?", "Ali").First(&ali).Error; err != nil {
		t.Fatalf("reload income: %v", err)
	}
	if ali.CashIncome != 900 {
		t.Errorf("Ali cash = %v, want untouched mid-month", ali.CashIncome)
	}
}
