package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/models"
	"gorm.io/gorm"
)

// EnsureVoucher returns the subscriber's 1:1 voucher, creating it if the
// subscriber has never been billed.
func (e *Engine) EnsureVoucher(subscriberID uint) (*models.Voucher, error) {
	unlock := e.lockSubscriber(subscriberID)
	defer unlock()

	var voucher *models.Voucher
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		voucher, txErr = e.ensureVoucherTx(tx, subscriberID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func (e *Engine) ensureVoucherTx(tx *gorm.DB, subscriberID uint) (*models.Voucher, error) {
	voucher, err := loadVoucher(tx, subscriberID)
	if err == nil {
		return voucher, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	sub, err := loadSubscriber(tx, subscriberID)
	if err != nil {
		return nil, err
	}

	voucher = &models.Voucher{
		SubscriberID:   sub.ID,
		SubscriberName: sub.Name,
		RechargeDate:   sub.RechargeDate,
		ExpiryDate:     sub.ExpiryDate,
	}
	if err := tx.Create(voucher).Error; err != nil {
		return nil, err
	}
	return voucher, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetVoucher loads the subscriber's voucher with months in FIFO order
func (e *Engine) GetVoucher(subscriberID uint) (*models.Voucher, error) {
	return loadVoucher(e.db, subscriberID)
}

// TotalOutstanding sums remaining amounts across the subscriber's
// non-reversed months.
func (e *Engine) TotalOutstanding(subscriberID uint) (float64, error) {
	voucher, err := loadVoucher(e.db, subscriberID)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return Outstanding(voucher.Months), nil
}

// MonthInput is one incoming month for AppendOrMergeMonths
type MonthInput struct {
	Label         string
	PackageFee    float64
	Discount      float64
	PaidAmount    float64
	Status        models.BillingStatus
	PaymentMethod models.PaymentMethod
	ReceivedBy    string
	ChargeDate    time.Time
	Payments      []PaymentInput
}

// PaymentInput is one itemized payment inside a MonthInput
type PaymentInput struct {
	Amount   float64
	Method   models.PaymentMethod
	Receiver string
	PaidAt   time.Time
}

// AppendOrMergeMonths merges incoming months into the subscriber's
// voucher. A month whose label already exists is updated in place: the
// existing packageFee/discount stay authoritative so a later rate change
// cannot rewrite a historical month's charge, and only the payment
// fields are overlaid. Unknown labels are appended. Duplicate labels
// within the incoming batch are rejected.
func (e *Engine) AppendOrMergeMonths(subscriberID uint, incoming []MonthInput) error {
	seen := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		if in.Label == "" {
			return fmt.Errorf("month label is required: %w", ErrValidation)
		}
		if seen[in.Label] {
			return fmt.Errorf("month %q appears twice in one batch: %w", in.Label, ErrDuplicateMonth)
		}
		seen[in.Label] = true
	}

	unlock := e.lockSubscriber(subscriberID)
	defer unlock()

	return e.db.Transaction(func(tx *gorm.DB) error {
		voucher, err := e.ensureVoucherTx(tx, subscriberID)
		if err != nil {
			return err
		}

		for _, in := range incoming {
			existing := findMonth(voucher, in.Label)
			if existing == nil {
				if err := e.appendMonthTx(tx, voucher, in); err != nil {
					return err
				}
				continue
			}

			// Overlay payment fields only; charges are immutable here
			existing.PaidAmount = in.PaidAmount
			existing.PaymentMethod = in.PaymentMethod
			existing.ReceivedBy = in.ReceivedBy
			existing.Recompute()
			if err := tx.Save(existing).Error; err != nil {
				return err
			}

			if err := tx.Where("month_entry_id = ?", existing.ID).
				Delete(&models.PaymentEntry{}).Error; err != nil {
				return err
			}
			for _, p := range in.Payments {
				entry := models.PaymentEntry{
					MonthEntryID: existing.ID,
					Amount:       p.Amount,
					Method:       p.Method,
					Receiver:     p.Receiver,
					PaidAt:       p.PaidAt,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
			}
		}

		voucher, err = loadVoucher(tx, subscriberID)
		if err != nil {
			return err
		}
		sub, err := loadSubscriber(tx, subscriberID)
		if err != nil {
			return err
		}
		return e.refreshSubscriberStatus(tx, sub, voucher.Months)
	})
}

func (e *Engine) appendMonthTx(tx *gorm.DB, voucher *models.Voucher, in MonthInput) error {
	chargeDate := in.ChargeDate
	if chargeDate.IsZero() {
		chargeDate = e.clock.Now()
	}
	entry := models.MonthEntry{
		VoucherID:     voucher.ID,
		Label:         in.Label,
		PackageFee:    in.PackageFee,
		Discount:      in.Discount,
		PaidAmount:    in.PaidAmount,
		PaymentMethod: in.PaymentMethod,
		ReceivedBy:    in.ReceivedBy,
		ChargeDate:    chargeDate,
	}
	if entry.PaymentMethod == "" {
		entry.PaymentMethod = models.PaymentMethodNotPaid
	}
	entry.Recompute()
	if in.Status == models.BillingStatusPending {
		entry.Status = models.BillingStatusPending
		entry.PaymentMethod = models.PaymentMethodPending
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	for _, p := range in.Payments {
		pe := models.PaymentEntry{
			MonthEntryID: entry.ID,
			Amount:       p.Amount,
			Method:       p.Method,
			Receiver:     p.Receiver,
			PaidAt:       p.PaidAt,
		}
		if err := tx.Create(&pe).Error; err != nil {
			return err
		}
	}
	return nil
}

// RecordPayment applies a payment to one month of the subscriber's
// voucher: appends to the month's payment history, bumps paid amount,
// recomputes remaining/status, credits the receiver's income split by
// method, and re-derives the subscriber's coarse status.
//
// A payment never rolls excess into the next month; multi-month payments
// are the caller's responsibility via explicit month selection.
func (e *Engine) RecordPayment(subscriberID uint, label string, amount float64, method models.PaymentMethod, receiver string, paidAt time.Time) (*models.Subscriber, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive: %w", ErrValidation)
	}
	if _, err := incomeBucket(method); err != nil {
		return nil, err
	}
	if receiver == "" {
		return nil, fmt.Errorf("payment receiver is required: %w", ErrValidation)
	}
	if paidAt.IsZero() {
		paidAt = e.clock.Now()
	}

	unlock := e.lockSubscriber(subscriberID)
	defer unlock()

	var sub *models.Subscriber
	err := e.db.Transaction(func(tx *gorm.DB) error {
		voucher, err := loadVoucher(tx, subscriberID)
		if err != nil {
			return err
		}
		month := findMonth(voucher, label)
		if month == nil {
			return fmt.Errorf("month %q: %w", label, ErrNotFound)
		}
		if month.IsReversed() {
			return fmt.Errorf("month %q is reversed: %w", label, ErrInvalidState)
		}
		if amount > month.RemainingAmount {
			return fmt.Errorf("payment %.2f exceeds remaining %.2f for %q: %w",
				amount, month.RemainingAmount, label, ErrInvalidState)
		}

		entry := models.PaymentEntry{
			MonthEntryID: month.ID,
			Amount:       amount,
			Method:       method,
			Receiver:     receiver,
			PaidAt:       paidAt,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		month.PaidAmount += amount
		month.PaymentMethod = method
		month.ReceivedBy = receiver
		month.Recompute()
		if err := tx.Save(month).Error; err != nil {
			return err
		}

		if err := creditIncome(tx, receiver, amount, method); err != nil {
			return fmt.Errorf("income credit for %s: %w", receiver, err)
		}

		sub, err = loadSubscriber(tx, subscriberID)
		if err != nil {
			return err
		}
		return e.refreshSubscriberStatus(tx, sub, voucher.Months)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ReverseMonths marks the named months refunded: pre-reversal
// paid+remaining is captured as the refunded amount, the month is
// excluded from all balances, the original receiver's income is debited
// by the reversed paid amount, and an audit refund record is written.
func (e *Engine) ReverseMonths(subscriberID uint, labels []string) (*models.RefundRecord, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no months named: %w", ErrValidation)
	}

	unlock := e.lockSubscriber(subscriberID)
	defer unlock()

	var record *models.RefundRecord
	err := e.db.Transaction(func(tx *gorm.DB) error {
		voucher, err := loadVoucher(tx, subscriberID)
		if err != nil {
			return err
		}

		now := e.clock.Now()
		var details []models.RefundDetail
		var totalRefunded float64

		for _, label := range labels {
			month := findMonth(voucher, label)
			if month == nil {
				return fmt.Errorf("month %q: %w", label, ErrNotFound)
			}
			if month.IsReversed() {
				return fmt.Errorf("month %q already reversed: %w", label, ErrInvalidState)
			}

			refunded := month.PaidAmount + month.RemainingAmount
			paidBefore := month.PaidAmount

			month.RefundDate = &now
			month.RefundedAmount = refunded
			month.Status = models.BillingStatusReversed
			if err := tx.Save(month).Error; err != nil {
				return err
			}

			if paidBefore > 0 {
				if err := debitIncome(tx, month.ReceivedBy, paidBefore, month.PaymentMethod); err != nil {
					return fmt.Errorf("income debit for %s: %w", month.ReceivedBy, err)
				}
			}

			details = append(details, models.RefundDetail{
				Month:          label,
				PackageFee:     month.PackageFee,
				Discount:       month.Discount,
				RefundedAmount: refunded,
				ReceivedBy:     month.ReceivedBy,
			})
			totalRefunded += refunded
		}

		blob, err := json.Marshal(details)
		if err != nil {
			return err
		}
		record = &models.RefundRecord{
			SubscriberID:   subscriberID,
			SubscriberName: voucher.SubscriberName,
			Details:        blob,
			TotalRefunded:  totalRefunded,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}

		sub, err := loadSubscriber(tx, subscriberID)
		if err != nil {
			return err
		}
		return e.refreshSubscriberStatus(tx, sub, voucher.Months)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ConvertToUnpaid undoes an erroneous payment on a month without treating
// it as a reversal: payment history is cleared, paid resets to zero,
// remaining is recomputed from the (optionally updated) fee/discount, and
// each cleared payment's receiver is debited. Applied to a reversed month
// it re-opens the month instead (the reversal already debited income, so
// no second debit happens).
func (e *Engine) ConvertToUnpaid(subscriberID uint, label string, newFee, newDiscount *float64) error {
	unlock := e.lockSubscriber(subscriberID)
	defer unlock()

	return e.db.Transaction(func(tx *gorm.DB) error {
		voucher, err := loadVoucher(tx, subscriberID)
		if err != nil {
			return err
		}
		month := findMonth(voucher, label)
		if month == nil {
			return fmt.Errorf("month %q: %w", label, ErrNotFound)
		}

		if month.IsReversed() {
			month.RefundDate = nil
			month.RefundedAmount = 0
		} else {
			for _, p := range month.Payments {
				if err := debitIncome(tx, p.Receiver, p.Amount, p.Method); err != nil {
					return fmt.Errorf("income debit for %s: %w", p.Receiver, err)
				}
			}
		}

		if err := tx.Where("month_entry_id = ?", month.ID).
			Delete(&models.PaymentEntry{}).Error; err != nil {
			return err
		}
		// Drop the preloaded rows too, or Save would upsert them right back.
		month.Payments = nil

		if newFee != nil {
			month.PackageFee = *newFee
		}
		if newDiscount != nil {
			month.Discount = *newDiscount
		}
		month.PaidAmount = 0
		month.PaymentMethod = models.PaymentMethodNotPaid
		month.ReceivedBy = ""
		month.Recompute()
		if err := tx.Save(month).Error; err != nil {
			return err
		}

		sub, err := loadSubscriber(tx, subscriberID)
		if err != nil {
			return err
		}
		return e.refreshSubscriberStatus(tx, sub, voucher.Months)
	})
}

// CreateSubscriberInput is the subscriber-creation request
type CreateSubscriberInput struct {
	Name           string
	Code           string
	Phone          string
	AltPhone       string
	Address        string
	PackageID      *uint
	PackageFee     float64
	Discount       float64
	NumberOfMonths int
	PaymentMode    string // "now" or "later"
	ExplicitStatus models.BillingStatus
	Method         models.PaymentMethod
	Receiver       string
	CollectorID    *uint
	RechargeDate   calendar.Date
	ExpiryDate     calendar.Date
}

const (
	PaymentModeNow   = "now"
	PaymentModeLater = "later"
)

// CreateSubscriber creates a subscriber, its voucher, and the first
// month entry. The initial status comes from the requested payment mode:
// an explicit "pending" suppresses classification; "now" marks the first
// month paid (multi-month prepay consumes one month and leaves the
// subscriber partial); "later" is unpaid unconditionally, no matter how
// far away the expiry date is.
func (e *Engine) CreateSubscriber(input CreateSubscriberInput) (*models.Subscriber, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("subscriber name is required: %w", ErrValidation)
	}
	if input.PackageFee <= 0 {
		return nil, fmt.Errorf("package fee must be positive: %w", ErrValidation)
	}
	if input.NumberOfMonths < 1 {
		input.NumberOfMonths = 1
	}
	if input.ExplicitStatus != "" && input.ExplicitStatus != models.BillingStatusPending {
		return nil, fmt.Errorf("explicit status may only be pending: %w", ErrValidation)
	}
	if input.PaymentMode != PaymentModeNow && input.PaymentMode != PaymentModeLater {
		return nil, fmt.Errorf("payment mode must be now or later: %w", ErrValidation)
	}
	if input.PaymentMode == PaymentModeNow && input.ExplicitStatus == "" {
		if _, err := incomeBucket(input.Method); err != nil {
			return nil, err
		}
		if input.Receiver == "" {
			return nil, fmt.Errorf("pay-now requires a receiver: %w", ErrValidation)
		}
	}

	now := e.clock.Now()
	recharge := input.RechargeDate
	if recharge.IsZero() {
		recharge = calendar.DateOf(now)
	}
	expiry := input.ExpiryDate
	if expiry.IsZero() {
		expiry = recharge.AddMonths(1)
	}

	code := input.Code
	if code == "" {
		code = uuid.NewString()
	}

	charge := input.PackageFee - input.Discount
	if charge < 0 {
		charge = 0
	}

	var sub *models.Subscriber
	err := e.db.Transaction(func(tx *gorm.DB) error {
		sub = &models.Subscriber{
			Code:           code,
			Name:           input.Name,
			Phone:          input.Phone,
			AltPhone:       input.AltPhone,
			Address:        input.Address,
			PackageID:      input.PackageID,
			PackageFee:     input.PackageFee,
			Discount:       input.Discount,
			NumberOfMonths: input.NumberOfMonths,
			ServiceStatus:  models.ServiceStatusActive,
			CollectorID:    input.CollectorID,
			RechargeDate:   recharge,
			ExpiryDate:     expiry,
		}
		sub.ShowInExpiringSoon = ShouldFlagExpiringSoon(expiry, now, e.cutoffHour)

		month := models.MonthEntry{
			Label:         recharge.MonthLabel(),
			PackageFee:    input.PackageFee,
			Discount:      input.Discount,
			ChargeDate:    now,
			PaymentMethod: models.PaymentMethodNotPaid,
		}

		switch {
		case input.ExplicitStatus == models.BillingStatusPending:
			sub.Status = models.BillingStatusPending
			sub.RemainingAmount = charge
			month.Status = models.BillingStatusPending
			month.PaymentMethod = models.PaymentMethodPending
			month.RemainingAmount = charge

		case input.PaymentMode == PaymentModeNow:
			sub.PaidAmount = charge
			if input.NumberOfMonths > 1 {
				sub.Status = models.BillingStatusPartial
			} else {
				sub.Status = models.BillingStatusPaid
			}
			month.PaidAmount = charge
			month.PaymentMethod = input.Method
			month.ReceivedBy = input.Receiver
			month.Recompute()

		default: // pay later
			sub.Status = models.BillingStatusUnpaid
			sub.RemainingAmount = charge
			sub.UnpaidSince = &now
			month.Recompute()
		}

		if err := tx.Create(sub).Error; err != nil {
			return err
		}

		voucher := models.Voucher{
			SubscriberID:   sub.ID,
			SubscriberName: sub.Name,
			RechargeDate:   recharge,
			ExpiryDate:     expiry,
		}
		if err := tx.Create(&voucher).Error; err != nil {
			return err
		}

		month.VoucherID = voucher.ID
		if err := tx.Create(&month).Error; err != nil {
			return err
		}

		if month.PaidAmount > 0 {
			payment := models.PaymentEntry{
				MonthEntryID: month.ID,
				Amount:       month.PaidAmount,
				Method:       input.Method,
				Receiver:     input.Receiver,
				PaidAt:       now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			if err := creditIncome(tx, input.Receiver, month.PaidAmount, input.Method); err != nil {
				return fmt.Errorf("income credit for %s: %w", input.Receiver, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubscriber removes a subscriber and its voucher after unwinding
// the income attributable to its paid months: every payment in the
// history debits its receiver before anything is deleted.
func (e *Engine) DeleteSubscriber(subscriberID uint) error {
	unlock := e.lockSubscriber(subscriberID)
	defer unlock()

	return e.db.Transaction(func(tx *gorm.DB) error {
		sub, err := loadSubscriber(tx, subscriberID)
		if err != nil {
			return err
		}

		voucher, err := loadVoucher(tx, subscriberID)
		if err != nil && !isNotFound(err) {
			return err
		}

		if voucher != nil {
			for i := range voucher.Months {
				month := &voucher.Months[i]
				if month.IsReversed() {
					// Reversal already debited this month's income
					continue
				}
				for _, p := range month.Payments {
					if err := debitIncome(tx, p.Receiver, p.Amount, p.Method); err != nil {
						return fmt.Errorf("income debit for %s: %w", p.Receiver, err)
					}
				}
			}

			monthIDs := make([]uint, 0, len(voucher.Months))
			for i := range voucher.Months {
				monthIDs = append(monthIDs, voucher.Months[i].ID)
			}
			if len(monthIDs) > 0 {
				if err := tx.Where("month_entry_id IN ?", monthIDs).
					Delete(&models.PaymentEntry{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", monthIDs).
					Delete(&models.MonthEntry{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Delete(voucher).Error; err != nil {
				return err
			}
		}

		return tx.Delete(sub).Error
	})
}

// RollCycle advances one subscriber into its next billing cycle. The
// month entry being closed takes its label from the current expiry date,
// the next expiry is one calendar month later, and the subscriber drops
// to unpaid. If the voucher already holds a month with that label the
// entry is not duplicated, which makes a repeated run for the same civil
// day a no-op.
func (e *Engine) RollCycle(subscriberID uint, now time.Time) error {
	unlock := e.lockSubscriber(subscriberID)
	defer unlock()

	return e.db.Transaction(func(tx *gorm.DB) error {
		sub, err := loadSubscriber(tx, subscriberID)
		if err != nil {
			return err
		}
		if sub.ExpiryDate.IsZero() {
			return fmt.Errorf("subscriber %d has no expiry date: %w", subscriberID, ErrInvalidState)
		}

		label := sub.ExpiryDate.MonthLabel()
		nextExpiry := sub.ExpiryDate.AddMonths(1)

		voucher, err := e.ensureVoucherTx(tx, subscriberID)
		if err != nil {
			return err
		}

		if findMonth(voucher, label) == nil {
			month := models.MonthEntry{
				VoucherID:     voucher.ID,
				Label:         label,
				PackageFee:    sub.PackageFee,
				Discount:      sub.Discount,
				ChargeDate:    sub.ExpiryDate.Time(e.clock.Location()),
				PaymentMethod: models.PaymentMethodNotPaid,
			}
			month.Recompute()
			if err := tx.Create(&month).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":                models.BillingStatusUnpaid,
			"expiry_date":           nextExpiry,
			"show_in_expiring_soon": false,
			"unpaid_since":          now,
		}
		if err := tx.Model(&models.Subscriber{}).Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Voucher{}).Where("id = ?", voucher.ID).
			Update("expiry_date", nextExpiry).Error; err != nil {
			return err
		}

		voucher, err = loadVoucher(tx, subscriberID)
		if err != nil {
			return err
		}
		sub.Status = models.BillingStatusUnpaid
		return e.refreshSubscriberStatus(tx, sub, voucher.Months)
	})
}
