package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/netbill/backend/internal/billing"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/database"
	"github.com/netbill/backend/internal/models"
)

type VoucherHandler struct {
	engine *billing.Engine
}

func NewVoucherHandler(engine *billing.Engine) *VoucherHandler {
	return &VoucherHandler{engine: engine}
}

// Get returns a subscriber's voucher with its month entries
func (h *VoucherHandler) Get(c *fiber.Ctx) error {
	subscriberID, err := strconv.Atoi(c.Params("subscriberId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid subscriber id",
		})
	}

	voucher, err := h.engine.GetVoucher(uint(subscriberID))
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    voucher,
	})
}

// Outstanding returns a subscriber's open balance
func (h *VoucherHandler) Outstanding(c *fiber.Ctx) error {
	subscriberID, err := strconv.Atoi(c.Params("subscriberId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid subscriber id",
		})
	}

	total, err := h.engine.TotalOutstanding(uint(subscriberID))
	if err != nil {
		return billingError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"subscriber_id": subscriberID,
			"outstanding":   total,
		},
	})
}

// RecordPaymentRequest represents a payment against one voucher month
type RecordPaymentRequest struct {
	SubscriberID uint    `json:"subscriber_id" validate:"required"`
	Month        string  `json:"month" validate:"required"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Method       string  `json:"method" validate:"required,oneof=Cash 'Bank Transfer'"`
	Receiver     string  `json:"receiver" validate:"required"`
	Date         string  `json:"date"`
}

// RecordPayment applies a payment and returns the updated subscriber status
func (h *VoucherHandler) RecordPayment(c *fiber.Ctx) error {
	var req RecordPaymentRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	var paidAt time.Time
	if req.Date != "" {
		d, err := calendar.ParseDate(req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid payment date",
			})
		}
		paidAt = d.Time(h.engine.Clock().Location())
	}

	subscriber, err := h.engine.RecordPayment(
		req.SubscriberID, req.Month, req.Amount,
		models.PaymentMethod(req.Method), req.Receiver, paidAt,
	)
	if err != nil {
		return billingError(c, err)
	}
	database.InvalidateBillingCaches()

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"subscriber_id": subscriber.ID,
			"status":        subscriber.Status,
			"paid_amount":   subscriber.PaidAmount,
			"remaining":     subscriber.RemainingAmount,
		},
	})
}

// ReverseRequest names the months to reverse
type ReverseRequest struct {
	SubscriberID uint     `json:"subscriber_id" validate:"required"`
	Months       []string `json:"months" validate:"required,min=1"`
}

// Reverse refunds the named months and debits the original receivers
func (h *VoucherHandler) Reverse(c *fiber.Ctx) error {
	var req ReverseRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	record, err := h.engine.ReverseMonths(req.SubscriberID, req.Months)
	if err != nil {
		return billingError(c, err)
	}
	database.InvalidateBillingCaches()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    record,
	})
}

// ConvertToUnpaidRequest undoes a month's payments without a reversal
type ConvertToUnpaidRequest struct {
	SubscriberID uint     `json:"subscriber_id" validate:"required"`
	Month        string   `json:"month" validate:"required"`
	NewFee       *float64 `json:"new_fee" validate:"omitempty,gte=0"`
	NewDiscount  *float64 `json:"new_discount" validate:"omitempty,gte=0"`
}

// ConvertToUnpaid clears a month's payment history back to unpaid
func (h *VoucherHandler) ConvertToUnpaid(c *fiber.Ctx) error {
	var req ConvertToUnpaidRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	if err := h.engine.ConvertToUnpaid(req.SubscriberID, req.Month, req.NewFee, req.NewDiscount); err != nil {
		return billingError(c, err)
	}
	database.InvalidateBillingCaches()

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Month converted to unpaid",
	})
}
