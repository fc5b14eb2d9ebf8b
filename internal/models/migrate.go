package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates/updates all tables
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&User{},
		&Employee{},
		&Package{},
		&Subscriber{},
		&Voucher{},
		&MonthEntry{},
		&PaymentEntry{},
		&IncomeRecord{},
		&TransferRecord{},
		&RefundRecord{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
