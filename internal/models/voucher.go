package models

import (
	"time"

	"github.com/netbill/backend/internal/calendar"
)

// PaymentMethod is how a payment was received
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "Cash"
	PaymentMethodBank    PaymentMethod = "Bank Transfer"
	PaymentMethodNotPaid PaymentMethod = "Not Paid"
	PaymentMethodPending PaymentMethod = "Pending"
)

// Voucher is the per-subscriber billing ledger, one per subscriber,
// holding the ordered list of month entries.
type Voucher struct {
	ID             uint          `gorm:"column:id;primaryKey" json:"id"`
	SubscriberID   uint          `gorm:"column:subscriber_id;uniqueIndex;not null" json:"subscriber_id"`
	SubscriberName string        `gorm:"column:subscriber_name;size:255" json:"subscriber_name"`
	RechargeDate   calendar.Date `gorm:"column:recharge_date;type:varchar(30)" json:"recharge_date"`
	ExpiryDate     calendar.Date `gorm:"column:expiry_date;type:varchar(30)" json:"expiry_date"`

	// FIFO order by charge date; loaders must keep this sorted ascending
	Months []MonthEntry `gorm:"foreignKey:VoucherID" json:"months"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Voucher) TableName() string {
	return "vouchers"
}

// MonthEntry is one billing cycle's charge/payment record
type MonthEntry struct {
	ID        uint   `gorm:"column:id;primaryKey" json:"id"`
	VoucherID uint   `gorm:"column:voucher_id;index:idx_voucher_label,unique;not null" json:"voucher_id"`
	Label     string `gorm:"column:label;size:50;index:idx_voucher_label,unique;not null" json:"month"` // e.g. "November 2025"

	PackageFee      float64       `gorm:"column:package_fee;type:decimal(15,2);not null" json:"package_fee"`
	Discount        float64       `gorm:"column:discount;type:decimal(15,2);default:0" json:"discount"`
	PaidAmount      float64       `gorm:"column:paid_amount;type:decimal(15,2);default:0" json:"paid_amount"`
	RemainingAmount float64       `gorm:"column:remaining_amount;type:decimal(15,2);default:0" json:"remaining_amount"`
	Status          BillingStatus `gorm:"column:status;size:20;default:unpaid" json:"status"`
	PaymentMethod   PaymentMethod `gorm:"column:payment_method;size:30;default:Not Paid" json:"payment_method"`
	ReceivedBy      string        `gorm:"column:received_by;size:255" json:"received_by"`

	// ChargeDate orders months and ties rollover output to a calendar month
	ChargeDate     time.Time  `gorm:"column:charge_date;index;not null" json:"charge_date"`
	RefundDate     *time.Time `gorm:"column:refund_date" json:"refund_date,omitempty"`
	RefundedAmount float64    `gorm:"column:refunded_amount;type:decimal(15,2);default:0" json:"refunded_amount,omitempty"`

	Payments []PaymentEntry `gorm:"foreignKey:MonthEntryID" json:"payment_history"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (MonthEntry) TableName() string {
	return "month_entries"
}

// IsReversed reports whether the month has been refunded and is excluded
// from all outstanding-balance and income calculations.
func (m *MonthEntry) IsReversed() bool {
	return m.RefundDate != nil
}

// Recompute re-derives remaining amount and paid/partial status from the
// charge and payment fields. Must be called after every mutation.
func (m *MonthEntry) Recompute() {
	remaining := m.PackageFee - m.Discount - m.PaidAmount
	if remaining < 0 {
		remaining = 0
	}
	m.RemainingAmount = remaining

	if m.IsReversed() {
		m.Status = BillingStatusReversed
		return
	}
	switch {
	case remaining == 0:
		m.Status = BillingStatusPaid
	case m.PaidAmount > 0:
		m.Status = BillingStatusPartial
	default:
		m.Status = BillingStatusUnpaid
	}
}

// PaymentEntry is one itemized payment against a month entry
type PaymentEntry struct {
	ID           uint          `gorm:"column:id;primaryKey" json:"id"`
	MonthEntryID uint          `gorm:"column:month_entry_id;index;not null" json:"month_entry_id"`
	Amount       float64       `gorm:"column:amount;type:decimal(15,2);not null" json:"amount"`
	Method       PaymentMethod `gorm:"column:method;size:30;not null" json:"method"`
	Receiver     string        `gorm:"column:receiver;size:255" json:"receiver"`
	PaidAt       time.Time     `gorm:"column:paid_at;not null" json:"paid_at"`
	CreatedAt    time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (PaymentEntry) TableName() string {
	return "payment_entries"
}
