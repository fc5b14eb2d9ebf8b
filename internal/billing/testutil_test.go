package billing

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database. The shared-cache DSN
// keeps the database alive across the pool's connections.
func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// newTestEngine builds an engine whose clock is pinned to the given time
func newTestEngine(t *testing.T, now time.Time) (*Engine, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	clock := calendar.NewClock("UTC")
	clock.NowFunc = func() time.Time { return now }
	return NewEngine(db, clock, 12), db
}

func incomeFor(t *testing.T, db *gorm.DB, receiver string) models.IncomeRecord {
	t.Helper()

	var record models.IncomeRecord
	if err := db.Where("receiver = ?", receiver).First(&record).Error; err != nil {
		t.Fatalf("load income record for %s: %v", receiver, err)
	}
	return record
}

func monthByLabel(t *testing.T, e *Engine, subscriberID uint, label string) *models.MonthEntry {
	t.Helper()

	voucher, err := e.GetVoucher(subscriberID)
	if err != nil {
		t.Fatalf("load voucher: %v", err)
	}
	month := findMonth(voucher, label)
	if month == nil {
		t.Fatalf("month %q not found in voucher", label)
	}
	return month
}
