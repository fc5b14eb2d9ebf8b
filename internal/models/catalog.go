package models

import (
	"time"

	"gorm.io/gorm"
)

// EmployeeRole represents the role of an employee
type EmployeeRole string

const (
	EmployeeRoleFeeCollector EmployeeRole = "fee-collector"
	EmployeeRoleTechnician   EmployeeRole = "technician"
	EmployeeRoleOffice       EmployeeRole = "office"
)

// Employee represents a staff member. Fee collectors appear as payment
// receivers in the income ledger.
type Employee struct {
	ID       uint         `gorm:"column:id;primaryKey" json:"id"`
	Name     string       `gorm:"column:name;size:255;uniqueIndex;not null" json:"name"`
	Role     EmployeeRole `gorm:"column:role;size:30;default:fee-collector;index" json:"role"`
	Phone    string       `gorm:"column:phone;size:50" json:"phone"`
	Address  string       `gorm:"column:address;size:500" json:"address"`
	IsActive bool         `gorm:"column:is_active;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Employee) TableName() string {
	return "employees"
}

// Package represents a service plan with a monthly fee
type Package struct {
	ID       uint    `gorm:"column:id;primaryKey" json:"id"`
	Name     string  `gorm:"column:name;size:100;uniqueIndex;not null" json:"name"`
	Fee      float64 `gorm:"column:fee;type:decimal(15,2);not null" json:"fee"`
	Speed    string  `gorm:"column:speed;size:50" json:"speed"` // display only, e.g. "10 Mbps"
	IsActive bool    `gorm:"column:is_active;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Package) TableName() string {
	return "packages"
}
