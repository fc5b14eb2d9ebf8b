package models

import (
	"time"

	"gorm.io/datatypes"
)

// AdminReceiver is the receiver name credited on transfers to the office
const AdminReceiver = "Admin"

// IncomeRecord holds per-receiver running cash/bank totals. Receivers are
// employee names or "Admin". Created lazily on first payment, never deleted.
type IncomeRecord struct {
	ID         uint    `gorm:"column:id;primaryKey" json:"id"`
	Receiver   string  `gorm:"column:receiver;size:255;uniqueIndex;not null" json:"receiver"`
	CashIncome float64 `gorm:"column:cash_income;type:decimal(15,2);default:0" json:"cash_income"`
	BankIncome float64 `gorm:"column:bank_income;type:decimal(15,2);default:0" json:"bank_income"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (IncomeRecord) TableName() string {
	return "income_records"
}

// Total is the combined cash and bank income
func (r *IncomeRecord) Total() float64 {
	return r.CashIncome + r.BankIncome
}

// TransferRecord is an append-only log of cash moved from a fee collector
// to the admin office.
type TransferRecord struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	FromReceiver string    `gorm:"column:from_receiver;size:255;not null;index" json:"from_receiver"`
	ToReceiver   string    `gorm:"column:to_receiver;size:255;not null;default:Admin" json:"to_receiver"`
	Amount       float64   `gorm:"column:amount;type:decimal(15,2);not null" json:"amount"`
	Message      string    `gorm:"column:message;size:500" json:"message"`
	CreatedAt    time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (TransferRecord) TableName() string {
	return "transfer_records"
}

// RefundRecord is an append-only audit entry created when month entries
// are reversed. Details holds the reversed months' fee/discount/refunded
// amounts as JSON.
type RefundRecord struct {
	ID             uint           `gorm:"column:id;primaryKey" json:"id"`
	SubscriberID   uint           `gorm:"column:subscriber_id;index;not null" json:"subscriber_id"`
	SubscriberName string         `gorm:"column:subscriber_name;size:255" json:"subscriber_name"`
	Details        datatypes.JSON `gorm:"column:details" json:"details"`
	TotalRefunded  float64        `gorm:"column:total_refunded;type:decimal(15,2);not null" json:"total_refunded"`
	CreatedAt      time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (RefundRecord) TableName() string {
	return "refund_records"
}

// RefundDetail is one reversed month inside a RefundRecord's Details blob
type RefundDetail struct {
	Month          string  `json:"month"`
	PackageFee     float64 `json:"package_fee"`
	Discount       float64 `json:"discount"`
	RefundedAmount float64 `json:"refunded_amount"`
	ReceivedBy     string  `json:"received_by"`
}
