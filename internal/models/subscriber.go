package models

import (
	"time"

	"github.com/netbill/backend/internal/calendar"
	"gorm.io/gorm"
)

// BillingStatus is the coarse billing state of a subscriber or month entry
type BillingStatus string

const (
	BillingStatusPaid         BillingStatus = "paid"
	BillingStatusPartial      BillingStatus = "partial"
	BillingStatusUnpaid       BillingStatus = "unpaid"
	BillingStatusPending      BillingStatus = "pending"
	BillingStatusSuperbalance BillingStatus = "superbalance"
	BillingStatusReversed     BillingStatus = "reversed"
)

// ServiceStatus is the connection state of a subscriber
type ServiceStatus string

const (
	ServiceStatusActive   ServiceStatus = "active"
	ServiceStatusInactive ServiceStatus = "inactive"
)

// Subscriber represents a billed customer
type Subscriber struct {
	ID             uint   `gorm:"column:id;primaryKey" json:"id"`
	Code           string `gorm:"column:code;size:50;uniqueIndex;not null" json:"code"` // external subscriber id
	Name           string `gorm:"column:name;size:255;not null" json:"name"`
	Phone          string `gorm:"column:phone;size:50" json:"phone"`
	AltPhone       string `gorm:"column:alt_phone;size:50" json:"alt_phone"`
	Address        string `gorm:"column:address;size:500" json:"address"`

	// Billing
	PackageID      *uint         `gorm:"column:package_id;index" json:"package_id"`
	Package        *Package      `gorm:"foreignKey:PackageID" json:"package,omitempty"`
	PackageFee     float64       `gorm:"column:package_fee;type:decimal(15,2);not null" json:"package_fee"`
	Discount       float64       `gorm:"column:discount;type:decimal(15,2);default:0" json:"discount"`
	NumberOfMonths int           `gorm:"column:number_of_months;default:1" json:"number_of_months"`
	Status         BillingStatus `gorm:"column:status;size:20;default:unpaid;index" json:"status"`
	PaidAmount     float64       `gorm:"column:paid_amount;type:decimal(15,2);default:0" json:"paid_amount"`
	RemainingAmount float64      `gorm:"column:remaining_amount;type:decimal(15,2);default:0" json:"remaining_amount"`

	// Cycle dates (civil dates, stored as canonical text)
	RechargeDate calendar.Date `gorm:"column:recharge_date;type:varchar(30)" json:"recharge_date"`
	ExpiryDate   calendar.Date `gorm:"column:expiry_date;type:varchar(30);index" json:"expiry_date"`

	ServiceStatus      ServiceStatus `gorm:"column:service_status;size:20;default:active;index" json:"service_status"`
	UnpaidSince        *time.Time    `gorm:"column:unpaid_since" json:"unpaid_since"`
	ShowInExpiringSoon bool          `gorm:"column:show_in_expiring_soon;default:false;index" json:"show_in_expiring_soon"`

	// Ownership
	CollectorID *uint     `gorm:"column:collector_id;index" json:"collector_id"`
	Collector   *Employee `gorm:"foreignKey:CollectorID" json:"collector,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}

// IsActive reports whether the subscriber's service is switched on
func (s *Subscriber) IsActive() bool {
	return s.ServiceStatus == ServiceStatusActive
}

// MonthlyCharge is the amount billed per cycle after discount
func (s *Subscriber) MonthlyCharge() float64 {
	charge := s.PackageFee - s.Discount
	if charge < 0 {
		return 0
	}
	return charge
}
