package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/models"
)

type IncomeHandler struct {
	engine *billing.Engine
}

func NewIncomeHandler(engine *billing.Engine) *IncomeHandler {
	return &IncomeHandler{engine: engine}
}

// List returns per-receiver income totals, cached briefly in Redis
func (h *IncomeHandler) List(c *fiber.Ctx) error {
	var records []models.IncomeRecord
	if err := database.CacheGet(database.CacheKeyIncome, &records); err != nil {
		var dbErr error
		records, dbErr = h.engine.IncomeTotals()
		if dbErr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to load income records",
			})
		}
		database.CacheSet(database.CacheKeyIncome, records, database.CacheTTLIncome)
	}

	var totalCash, totalBank float64
	for _, r := range records {
		totalCash += r.CashIncome
		totalBank += r.BankIncome
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    records,
		"meta": fiber.Map{
			"total_cash": totalCash,
			"total_bank": totalBank,
			"total":      totalCash + totalBank,
		},
	})
}

// TransferRequest moves collected cash from a fee collector to the office
type TransferRequest struct {
	FromReceiver string  `json:"from_receiver" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Message      string  `json:"message"`
}

// Transfer moves cash from a collector's income record to Admin
func (h *IncomeHandler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	record, err := h.engine.Transfer(req.FromReceiver, req.Amount, req.Message)
	if err != nil {
		return billingError(c, err)
	}
	database.InvalidateBillingCaches()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// Transfers lists the append-only transfer log
func (h *IncomeHandler) Transfers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "25"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	var total int64
	database.DB.Model(&models.TransferRecord{}).Count(&total)

	var transfers []models.TransferRecord
	if err := database.DB.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&transfers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load transfers",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    transfers,
		"meta": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// Refunds lists the append-only refund log
func (h *IncomeHandler) Refunds(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "25"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	query := database.DB.Model(&models.RefundRecord{})
	if subscriberID, _ := strconv.Atoi(c.Query("subscriber_id", "0")); subscriberID > 0 {
		query = query.Where("subscriber_id = ?", subscriberID)
	}

	var total int64
	query.Count(&total)

	var refunds []models.RefundRecord
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&refunds).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load refunds",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    refunds,
		"meta": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}
