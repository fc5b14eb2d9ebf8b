package billing

import (
	"time"

	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/models"
	"gorm.io/gorm"
)

// DeriveStatus computes a subscriber's coarse billing status from its
// voucher months. Reversed months are ignored. An open unpaid month
// dominates every other state so the subscriber always surfaces in the
// unpaid listing, even when other months are paid or partial.
func DeriveStatus(months []models.MonthEntry) models.BillingStatus {
	var totalRemaining, totalPaid float64
	hasUnpaidMonth := false

	for i := range months {
		m := &months[i]
		if m.IsReversed() {
			continue
		}
		totalRemaining += m.RemainingAmount
		totalPaid += m.PaidAmount
		if m.Status == models.BillingStatusUnpaid {
			hasUnpaidMonth = true
		}
	}

	switch {
	case totalRemaining <= 0:
		return models.BillingStatusPaid
	case hasUnpaidMonth:
		return models.BillingStatusUnpaid
	case totalPaid > 0:
		return models.BillingStatusPartial
	default:
		return models.BillingStatusUnpaid
	}
}

// Outstanding sums remaining amounts across non-reversed months
func Outstanding(months []models.MonthEntry) float64 {
	var total float64
	for i := range months {
		m := &months[i]
		if m.IsReversed() || m.RemainingAmount <= 0 {
			continue
		}
		total += m.RemainingAmount
	}
	return total
}

// ShouldFlagExpiringSoon reports whether a subscriber's expiry date puts
// it in the "expiring soon" window: expiring tomorrow, or expiring today
// before the daily rollover cutoff has passed. Display hint only.
func ShouldFlagExpiringSoon(expiry calendar.Date, now time.Time, cutoffHour int) bool {
	if expiry.IsZero() {
		return false
	}
	today := calendar.DateOf(now)
	if expiry.Equal(today.AddDays(1)) {
		return true
	}
	return expiry.Equal(today) && now.Hour() < cutoffHour
}

// refreshSubscriberStatus re-derives the subscriber's status and paid /
// remaining aggregates from its voucher months and persists them. A
// manually-set superbalance does not survive re-derivation; any voucher
// change converts it back to the derived status.
func (e *Engine) refreshSubscriberStatus(tx *gorm.DB, sub *models.Subscriber, months []models.MonthEntry) error {
	var totalPaid float64
	for i := range months {
		if !months[i].IsReversed() {
			totalPaid += months[i].PaidAmount
		}
	}

	newStatus := DeriveStatus(months)
	updates := map[string]interface{}{
		"status":           newStatus,
		"paid_amount":      totalPaid,
		"remaining_amount": Outstanding(months),
	}
	if newStatus == models.BillingStatusUnpaid && sub.Status != models.BillingStatusUnpaid {
		updates["unpaid_since"] = e.clock.Now()
	}

	if err := tx.Model(&models.Subscriber{}).Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
		return err
	}
	sub.Status = newStatus
	return nil
}
