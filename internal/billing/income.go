package billing

import (
	"fmt"

	"github.com/netbill/backend/internal/models"
	"gorm.io/gorm"
)

// incomeBucket maps a payment method to the income column it feeds
func incomeBucket(method models.PaymentMethod) (string, error) {
	switch method {
	case models.PaymentMethodCash:
		return "cash_income", nil
	case models.PaymentMethodBank:
		return "bank_income", nil
	}
	return "", fmt.Errorf("payment method %q carries no income: %w", method, ErrValidation)
}

// creditIncome adds a received amount to the receiver's cash or bank
// bucket, creating the income record lazily on first reference. Blind
// increment; callers invoke it exactly once per logical event.
func creditIncome(tx *gorm.DB, receiver string, amount float64, method models.PaymentMethod) error {
	if receiver == "" {
		return fmt.Errorf("payment receiver is required: %w", ErrValidation)
	}
	bucket, err := incomeBucket(method)
	if err != nil {
		return err
	}

	var record models.IncomeRecord
	if err := tx.Where(models.IncomeRecord{Receiver: receiver}).FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("income record for %s: %w", receiver, err)
	}

	return tx.Model(&record).
		Update(bucket, gorm.Expr(bucket+" + ?", amount)).Error
}

// debitIncome removes an amount from the receiver's bucket, flooring at
// zero. Used on reversal, month-to-unpaid conversion, and subscriber
// deletion. Missing records are created so the debit lands on zero
// rather than silently vanishing.
func debitIncome(tx *gorm.DB, receiver string, amount float64, method models.PaymentMethod) error {
	if receiver == "" {
		// Months imported without a receiver have no income to unwind
		return nil
	}
	bucket, err := incomeBucket(method)
	if err != nil {
		// Legacy months recorded with "Not Paid"/"Pending" methods never
		// credited income; nothing to debit
		return nil
	}

	var record models.IncomeRecord
	if err := tx.Where(models.IncomeRecord{Receiver: receiver}).FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("income record for %s: %w", receiver, err)
	}

	return tx.Model(&record).
		Update(bucket, gorm.Expr("CASE WHEN "+bucket+" - ? < 0 THEN 0 ELSE "+bucket+" - ? END", amount, amount)).Error
}

// Transfer moves cash from a fee collector's income record to the admin
// office and logs an append-only transfer record. Transfers are always
// cash-denominated.
func (e *Engine) Transfer(fromReceiver string, amount float64, message string) (*models.TransferRecord, error) {
	if fromReceiver == "" || amount <= 0 {
		return nil, fmt.Errorf("transfer requires a source receiver and a positive amount: %w", ErrValidation)
	}

	var transfer *models.TransferRecord
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var source models.IncomeRecord
		if err := tx.Where("receiver = ?", fromReceiver).First(&source).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("income record for %s: %w", fromReceiver, ErrNotFound)
			}
			return err
		}
		if source.CashIncome < amount {
			return fmt.Errorf("transfer of %.2f exceeds %s's cash balance %.2f: %w",
				amount, fromReceiver, source.CashIncome, ErrInvalidState)
		}

		if err := debitIncome(tx, fromReceiver, amount, models.PaymentMethodCash); err != nil {
			return err
		}
		if err := creditIncome(tx, models.AdminReceiver, amount, models.PaymentMethodCash); err != nil {
			return err
		}

		transfer = &models.TransferRecord{
			FromReceiver: fromReceiver,
			ToReceiver:   models.AdminReceiver,
			Amount:       amount,
			Message:      message,
		}
		return tx.Create(transfer).Error
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// IncomeTotals returns all income records ordered by receiver name
func (e *Engine) IncomeTotals() ([]models.IncomeRecord, error) {
	var records []models.IncomeRecord
	if err := e.db.Order("receiver ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ResetIncome zeroes all income records. Called by the month-end reset
// job when enabled.
func (e *Engine) ResetIncome() (int64, error) {
	result := e.db.Model(&models.IncomeRecord{}).
		Where("cash_income <> 0 OR bank_income <> 0").
		Updates(map[string]interface{}{"cash_income": 0, "bank_income": 0})
	return result.RowsAffected, result.Error
}
