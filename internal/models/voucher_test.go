package models

import (
	"testing"
	"time"
)

func TestMonthEntryRecompute(t *testing.T) {
	cases := []struct {
		name          string
		fee           float64
		discount      float64
		paid          float64
		wantRemaining float64
		wantStatus    BillingStatus
	}{
		{"untouched", 1500, 0, 0, 1500, BillingStatusUnpaid},
		{"partial", 1500, 0, 800, 700, BillingStatusPartial},
		{"settled", 1500, 0, 1500, 0, BillingStatusPaid},
		{"discount settles", 1500, 300, 1200, 0, BillingStatusPaid},
		{"overpaid floors at zero", 1500, 0, 2000, 0, BillingStatusPaid},
		{"discount exceeds fee", 1000, 1200, 0, 0, BillingStatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := MonthEntry{PackageFee: tc.fee, Discount: tc.discount, PaidAmount: tc.paid}
			m.Recompute()
			if m.RemainingAmount != tc.wantRemaining {
				t.Errorf("remaining = %v, want %v", m.RemainingAmount, tc.wantRemaining)
			}
			if m.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", m.Status, tc.wantStatus)
			}
		})
	}
}

func TestMonthEntryRecomputeReversed(t *testing.T) {
	now := time.Now()
	m := MonthEntry{PackageFee: 1500, PaidAmount: 1500, RefundDate: &now}
	m.Recompute()
	if m.Status != BillingStatusReversed {
		t.Errorf("status = %q, want reversed", m.Status)
	}
	if !m.IsReversed() {
		t.Error("IsReversed = false, want true")
	}
}

func TestSubscriberMonthlyCharge(t *testing.T) {
	s := Subscriber{PackageFee: 1500, Discount: 300}
	if got := s.MonthlyCharge(); got != 1200 {
		t.Errorf("MonthlyCharge = %v, want 1200", got)
	}
	s.Discount = 2000
	if got := s.MonthlyCharge(); got != 0 {
		t.Errorf("MonthlyCharge = %v, want 0 when discount exceeds fee", got)
	}
}
