package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/models"
)

type DashboardHandler struct {
	engine *billing.Engine
}

func NewDashboardHandler(engine *billing.Engine) *DashboardHandler {
	return &DashboardHandler{engine: engine}
}

// DashboardStats is the cached dashboard payload
type DashboardStats struct {
	TotalSubscribers  int64              `json:"total_subscribers"`
	ActiveSubscribers int64              `json:"active_subscribers"`
	StatusCounts      map[string]int64   `json:"status_counts"`
	ExpiringSoon      int64              `json:"expiring_soon"`
	TotalOutstanding  float64            `json:"total_outstanding"`
	TotalCashIncome   float64            `json:"total_cash_income"`
	TotalBankIncome   float64            `json:"total_bank_income"`
	TotalIncome       float64            `json:"total_income"`
}

// Stats returns aggregate counters for the dashboard. Results are cached
// in Redis and invalidated on every ledger mutation.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	var cached DashboardStats
	if err := database.CacheGet(database.CacheKeyDashboard, &cached); err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    cached,
			"cached":  true,
		})
	}

	stats := DashboardStats{StatusCounts: make(map[string]int64)}

	database.DB.Model(&models.Subscriber{}).Count(&stats.TotalSubscribers)
	database.DB.Model(&models.Subscriber{}).
		Where("service_status = ?", models.ServiceStatusActive).
		Count(&stats.ActiveSubscribers)

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	database.DB.Model(&models.Subscriber{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts)
	for _, sc := range counts {
		stats.StatusCounts[sc.Status] = sc.Count
	}

	database.DB.Model(&models.Subscriber{}).
		Where("show_in_expiring_soon = ?", true).
		Count(&stats.ExpiringSoon)

	var outstanding struct{ Total float64 }
	database.DB.Model(&models.Subscriber{}).
		Select("COALESCE(SUM(remaining_amount), 0) as total").
		Scan(&outstanding)
	stats.TotalOutstanding = outstanding.Total

	records, err := h.engine.IncomeTotals()
	if err != nil {
		log.Printf("Dashboard: failed to load income totals: %v", err)
	}
	for _, r := range records {
		stats.TotalCashIncome += r.CashIncome
		stats.TotalBankIncome += r.BankIncome
	}
	stats.TotalIncome = stats.TotalCashIncome + stats.TotalBankIncome

	if err := database.CacheSet(database.CacheKeyDashboard, stats, database.CacheTTLDashboard); err != nil {
		log.Printf("Dashboard: failed to cache stats: %v", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// ExpiringSoon lists subscribers currently flagged for the expiring-soon view
func (h *DashboardHandler) ExpiringSoon(c *fiber.Ctx) error {
	var subscribers []models.Subscriber
	if err := database.DB.Preload("Package").Preload("Collector").
		Where("show_in_expiring_soon = ?", true).
		Order("expiry_date ASC").
		Find(&subscribers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load expiring subscribers",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    subscribers,
	})
}
