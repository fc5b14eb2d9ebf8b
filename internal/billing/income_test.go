package billing

import (
	"errors"
	"testing"

	"github.com/netbill/backend/internal/models"
)

func TestIncomeBucket(t *testing.T) {
	if bucket, err := incomeBucket(models.PaymentMethodCash); err != nil || bucket != "cash_income" {
		t.Errorf("Cash: bucket=%q err=%v", bucket, err)
	}
	if bucket, err := incomeBucket(models.PaymentMethodBank); err != nil || bucket != "bank_income" {
		t.Errorf("Bank Transfer: bucket=%q err=%v", bucket, err)
	}
	if _, err := incomeBucket(models.PaymentMethodNotPaid); !errors.Is(err, ErrValidation) {
		t.Errorf("Not Paid: err = %v, want ErrValidation", err)
	}
	if _, err := incomeBucket(models.PaymentMethodPending); !errors.Is(err, ErrValidation) {
		t.Errorf("Pending: err = %v, want ErrValidation", err)
	}
}

func TestCreditIncome(t *testing.T) {
	db := newTestDB(t)

	if err := creditIncome(db, "Ali", 500, models.PaymentMethodCash); err != nil {
		t.Fatalf("creditIncome: %v", err)
	}
	if err := creditIncome(db, "Ali", 300, models.PaymentMethodBank); err != nil {
		t.Fatalf("creditIncome: %v", err)
	}
	if err := creditIncome(db, "Ali", 200, models.PaymentMethodCash); err != nil {
		t.Fatalf("creditIncome: %v", err)
	}

	ali := incomeFor(t, db, "Ali")
	if ali.CashIncome != 700 || ali.BankIncome != 300 {
		t.Errorf("Ali cash=%v bank=%v, want 700/300", ali.CashIncome, ali.BankIncome)
	}
	if ali.Total() != 1000 {
		t.Errorf("Ali total = %v, want 1000", ali.Total())
	}

	if err := creditIncome(db, "", 100, models.PaymentMethodCash); !errors.Is(err, ErrValidation) {
		t.Errorf("empty receiver: err = %v, want ErrValidation", err)
	}
}

func TestDebitIncomeClampsAtZero(t *testing.T) {
	db := newTestDB(t)

	if err := creditIncome(db, "Ali", 500, models.PaymentMethodCash); err != nil {
		t.Fatalf("creditIncome: %v", err)
	}
	if err := debitIncome(db, "Ali", 800, models.PaymentMethodCash); err != nil {
		t.Fatalf("debitIncome: %v", err)
	}

	ali := incomeFor(t, db, "Ali")
	if ali.CashIncome != 0 {
		t.Errorf("Ali cash = %v, want 0 (clamped)", ali.CashIncome)
	}

	// Debits for receivers never seen land on a fresh zero record
	if err := debitIncome(db, "Ghost", 100, models.PaymentMethodBank); err != nil {
		t.Fatalf("debitIncome: %v", err)
	}
	ghost := incomeFor(t, db, "Ghost")
	if ghost.BankIncome != 0 {
		t.Errorf("Ghost bank = %v, want 0", ghost.BankIncome)
	}

	// Empty receiver and non-income methods are no-ops
	if err := debitIncome(db, "", 100, models.PaymentMethodCash); err != nil {
		t.Errorf("empty receiver: %v", err)
	}
	if err := debitIncome(db, "Ali", 100, models.PaymentMethodNotPaid); err != nil {
		t.Errorf("non-income method: %v", err)
	}
}

func TestTransfer(t *testing.T) {
	e, db := newTestEngine(t, testNow)

	if err := creditIncome(db, "Ali", 1000, models.PaymentMethodCash); err != nil {
		t.Fatalf("creditIncome: %v", err)
	}

	transfer, err := e.Transfer("Ali", 400, "weekly handover")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if transfer.FromReceiver != "Ali" || transfer.ToReceiver != models.AdminReceiver || transfer.Amount != 400 {
		t.Errorf("transfer record = %+v", transfer)
	}

	ali := incomeFor(t, db, "Ali")
	if ali.CashIncome != 600 {
		t.Errorf("Ali cash = %v, want 600", ali.CashIncome)
	}
	admin := incomeFor(t, db, models.AdminReceiver)
	if admin.CashIncome != 400 {
		t.Errorf("Admin cash = %v, want 400", admin.CashIncome)
	}

	var logCount int64
	db.Model(&models.TransferRecord{}).Count(&logCount)
	if logCount != 1 {
		t.Errorf("transfer records = %d, want 1", logCount)
	}
}

func TestTransferExceedingBalance(t *testing.T) {
	e, db := newTestEngine(t, testNow)

	if err := creditIncome(db, "Ali", 300, models.PaymentMethodCash); err != nil {
		t.Fatalf("creditIncome: %v", err)
	}
	if _, err := e.Transfer("Ali", 400, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}

	// Bank income does not back a cash transfer
	if err := creditIncome(db, "Ali", 1000, models.PaymentMethodBank); err != nil {
		t.Fatalf("creditIncome: %v", err)
	}
	if _, err := e.Transfer("Ali", 400, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("bank-backed: err = %v, want ErrInvalidState", err)
	}
}

func TestTransferValidation(t *testing.T) {
	e, _ := newTestEngine(t, testNow)

	if _, err := e.Transfer("", 100, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty source: err = %v, want ErrValidation", err)
	}
	if _, err := e.Transfer("Ali", 0, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("zero amount: err = %v, want ErrValidation", err)
	}
	if _, err := e.Transfer("Nobody", 100, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown source: err = %v, want ErrNotFound", err)
	}
}

func TestResetIncome(t *testing.T) {
	e, db := newTestEngine(t, testNow)

	creditIncome(db, "Ali", 500, models.PaymentMethodCash)
	creditIncome(db, "Omar", 300, models.PaymentMethodBank)
	creditIncome(db, "Zero", 0, models.PaymentMethodCash)

	reset, err := e.ResetIncome()
	if err != nil {
		t.Fatalf("ResetIncome: %v", err)
	}
	if reset != 2 {
		t.Errorf("reset count = %d, want 2", reset)
	}

	records, err := e.IncomeTotals()
	if err != nil {
		t.Fatalf("IncomeTotals: %v", err)
	}
	for _, r := range records {
		if r.CashIncome != 0 || r.BankIncome != 0 {
			t.Errorf("%s not zeroed: cash=%v bank=%v", r.Receiver, r.CashIncome, r.BankIncome)
		}
	}
}
