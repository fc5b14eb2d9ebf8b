package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/models"
)

type SubscriberHandler struct {
	engine *billing.Engine
}

func NewSubscriberHandler(engine *billing.Engine) *SubscriberHandler {
	return &SubscriberHandler{engine: engine}
}

// List returns subscribers with pagination and filters
func (h *SubscriberHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "25"))
	search := c.Query("search", "")
	status := c.Query("status", "")
	collectorID, _ := strconv.Atoi(c.Query("collector", "0"))
	expiring := c.Query("expiring", "")

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.Subscriber{})

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"name LIKE ? OR code LIKE ? OR phone LIKE ? OR alt_phone LIKE ? OR address LIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if collectorID > 0 {
		query = query.Where("collector_id = ?", collectorID)
	}
	if expiring == "soon" {
		query = query.Where("show_in_expiring_soon = ?", true)
	}

	var total int64
	query.Count(&total)

	var subscribers []models.Subscriber
	if err := query.Preload("Package").Preload("Collector").
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&subscribers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load subscribers",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    subscribers,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// Get returns a single subscriber with its voucher and outstanding balance
func (h *SubscriberHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid subscriber id",
		})
	}

	var subscriber models.Subscriber
	if err := database.DB.Preload("Package").Preload("Collector").
		First(&subscriber, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Subscriber not found",
		})
	}

	voucher, err := h.engine.GetVoucher(subscriber.ID)
	if err != nil {
		voucher = nil // never billed yet
	}
	outstanding, _ := h.engine.TotalOutstanding(subscriber.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"subscriber":  subscriber,
			"voucher":     voucher,
			"outstanding": outstanding,
		},
	})
}

// CreateSubscriberRequest represents subscriber creation
type CreateSubscriberRequest struct {
	Name           string  `json:"name" validate:"required"`
	Code           string  `json:"code"`
	Phone          string  `json:"phone"`
	AltPhone       string  `json:"alt_phone"`
	Address        string  `json:"address"`
	PackageID      *uint   `json:"package_id"`
	PackageFee     float64 `json:"package_fee"`
	Discount       float64 `json:"discount" validate:"gte=0"`
	NumberOfMonths int     `json:"number_of_months"`
	PaymentMode    string  `json:"payment_mode" validate:"required,oneof=now later"`
	ExplicitStatus string  `json:"explicit_status" validate:"omitempty,oneof=pending"`
	Method         string  `json:"method"`
	Receiver       string  `json:"receiver"`
	CollectorID    *uint   `json:"collector_id"`
	RechargeDate   string  `json:"recharge_date"`
	ExpiryDate     string  `json:"expiry_date"`
}

// Create creates a subscriber with its voucher and first month entry
func (h *SubscriberHandler) Create(c *fiber.Ctx) error {
	var req CreateSubscriberRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	// Package fee falls back to the plan's fee when a plan is chosen
	fee := req.PackageFee
	if fee == 0 && req.PackageID != nil {
		var pkg models.Package
		if err := database.DB.First(&pkg, *req.PackageID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "Package not found",
			})
		}
		fee = pkg.Fee
	}

	rechargeDate, err := calendar.ParseDate(req.RechargeDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid recharge date",
		})
	}
	expiryDate, err := calendar.ParseDate(req.ExpiryDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid expiry date",
		})
	}

	subscriber, err := h.engine.CreateSubscriber(billing.CreateSubscriberInput{
		Name:           req.Name,
		Code:           req.Code,
		Phone:          req.Phone,
		AltPhone:       req.AltPhone,
		Address:        req.Address,
		PackageID:      req.PackageID,
		PackageFee:     fee,
		Discount:       req.Discount,
		NumberOfMonths: req.NumberOfMonths,
		PaymentMode:    req.PaymentMode,
		ExplicitStatus: models.BillingStatus(req.ExplicitStatus),
		Method:         models.PaymentMethod(req.Method),
		Receiver:       req.Receiver,
		CollectorID:    req.CollectorID,
		RechargeDate:   rechargeDate,
		ExpiryDate:     expiryDate,
	})
	if err != nil {
		return billingError(c, err)
	}

	database.InvalidateBillingCaches()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    subscriber,
	})
}

// UpdateSubscriberRequest represents editable subscriber fields.
// Changing the fee here affects future cycles only; historical month
// entries keep their original charges.
type UpdateSubscriberRequest struct {
	Name          *string  `json:"name"`
	Phone         *string  `json:"phone"`
	AltPhone      *string  `json:"alt_phone"`
	Address       *string  `json:"address"`
	PackageID     *uint    `json:"package_id"`
	PackageFee    *float64 `json:"package_fee"`
	Discount      *float64 `json:"discount"`
	CollectorID   *uint    `json:"collector_id"`
	ServiceStatus *string  `json:"service_status" validate:"omitempty,oneof=active inactive"`
	ExpiryDate    *string  `json:"expiry_date"`
}

// Update edits subscriber fields
func (h *SubscriberHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid subscriber id",
		})
	}

	var subscriber models.Subscriber
	if err := database.DB.First(&subscriber, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Subscriber not found",
		})
	}

	var req UpdateSubscriberRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.AltPhone != nil {
		updates["alt_phone"] = *req.AltPhone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.PackageID != nil {
		updates["package_id"] = *req.PackageID
	}
	if req.PackageFee != nil {
		updates["package_fee"] = *req.PackageFee
	}
	if req.Discount != nil {
		updates["discount"] = *req.Discount
	}
	if req.CollectorID != nil {
		updates["collector_id"] = *req.CollectorID
	}
	if req.ServiceStatus != nil {
		updates["service_status"] = *req.ServiceStatus
	}
	if req.ExpiryDate != nil {
		expiry, err := calendar.ParseDate(*req.ExpiryDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid expiry date",
			})
		}
		updates["expiry_date"] = expiry
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&subscriber).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to update subscriber",
			})
		}
		if req.Name != nil {
			database.DB.Model(&models.Voucher{}).
				Where("subscriber_id = ?", subscriber.ID).
				Update("subscriber_name", *req.Name)
		}
		database.InvalidateBillingCaches()
	}

	database.DB.Preload("Package").Preload("Collector").First(&subscriber, id)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    subscriber,
	})
}

// UpdateStatusRequest is a manual status edit. Superbalance can only be
// set here; the next voucher change re-derives it away.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid partial unpaid pending superbalance"`
}

// UpdateStatus manually overrides the billing status
func (h *SubscriberHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid subscriber id",
		})
	}

	var subscriber models.Subscriber
	if err := database.DB.First(&subscriber, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Subscriber not found",
		})
	}

	var req UpdateStatusRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	if err := database.DB.Model(&subscriber).
		Update("status", models.BillingStatus(req.Status)).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update status",
		})
	}
	database.InvalidateBillingCaches()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    subscriber,
	})
}

// Delete removes a subscriber after unwinding its income and voucher
func (h *SubscriberHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid subscriber id",
		})
	}

	if err := h.engine.DeleteSubscriber(uint(id)); err != nil {
		return billingError(c, err)
	}
	database.InvalidateBillingCaches()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Subscriber deleted",
	})
}
