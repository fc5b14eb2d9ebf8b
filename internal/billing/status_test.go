package billing

import (
	"testing"
	"time"

	"github.com/netbill/backend/internal/calendar"
	"github.com/netbill/backend/internal/models"
)

func makeMonth(status models.BillingStatus, fee, paid float64) models.MonthEntry {
	m := models.MonthEntry{PackageFee: fee, PaidAmount: paid}
	m.Recompute()
	if m.Status != status {
		panic("test fixture status mismatch")
	}
	return m
}

func reversedMonth(fee, paid float64) models.MonthEntry {
	now := time.Now()
	m := models.MonthEntry{PackageFee: fee, PaidAmount: paid, RefundDate: &now}
	m.Recompute()
	return m
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name   string
		months []models.MonthEntry
		want   models.BillingStatus
	}{
		{
			name:   "all paid",
			months: []models.MonthEntry{makeMonth(models.BillingStatusPaid, 1500, 1500)},
			want:   models.BillingStatusPaid,
		},
		{
			name:   "single unpaid",
			months: []models.MonthEntry{makeMonth(models.BillingStatusUnpaid, 1500, 0)},
			want:   models.BillingStatusUnpaid,
		},
		{
			name:   "single partial",
			months: []models.MonthEntry{makeMonth(models.BillingStatusPartial, 1500, 800)},
			want:   models.BillingStatusPartial,
		},
		{
			name: "unpaid month dominates paid and partial",
			months: []models.MonthEntry{
				makeMonth(models.BillingStatusPaid, 1500, 1500),
				makeMonth(models.BillingStatusPartial, 1500, 800),
				makeMonth(models.BillingStatusUnpaid, 1500, 0),
			},
			want: models.BillingStatusUnpaid,
		},
		{
			name: "paid plus partial without open unpaid",
			months: []models.MonthEntry{
				makeMonth(models.BillingStatusPaid, 1500, 1500),
				makeMonth(models.BillingStatusPartial, 1500, 800),
			},
			want: models.BillingStatusPartial,
		},
		{
			name: "reversed months are ignored",
			months: []models.MonthEntry{
				makeMonth(models.BillingStatusPaid, 1500, 1500),
				reversedMonth(1500, 0),
			},
			want: models.BillingStatusPaid,
		},
		{
			name:   "only reversed months",
			months: []models.MonthEntry{reversedMonth(1500, 1500)},
			want:   models.BillingStatusPaid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.months); got != tc.want {
				t.Errorf("DeriveStatus = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOutstanding(t *testing.T) {
	months := []models.MonthEntry{
		makeMonth(models.BillingStatusUnpaid, 1500, 0),
		makeMonth(models.BillingStatusPartial, 1500, 800),
		makeMonth(models.BillingStatusPaid, 1500, 1500),
		reversedMonth(1500, 0),
	}
	if got := Outstanding(months); got != 2200 {
		t.Errorf("Outstanding = %v, want 2200", got)
	}
	if got := Outstanding(nil); got != 0 {
		t.Errorf("Outstanding(nil) = %v, want 0", got)
	}
}

func TestShouldFlagExpiringSoon(t *testing.T) {
	const cutoff = 12
	loc := time.UTC
	today := calendar.NewDate(2026, time.March, 10)

	cases := []struct {
		name   string
		expiry calendar.Date
		now    time.Time
		want   bool
	}{
		{
			name:   "expiring tomorrow",
			expiry: today.AddDays(1),
			now:    time.Date(2026, time.March, 10, 15, 0, 0, 0, loc),
			want:   true,
		},
		{
			name:   "expiring today before cutoff",
			expiry: today,
			now:    time.Date(2026, time.March, 10, 9, 0, 0, 0, loc),
			want:   true,
		},
		{
			name:   "expiring today after cutoff",
			expiry: today,
			now:    time.Date(2026, time.March, 10, 12, 0, 0, 0, loc),
			want:   false,
		},
		{
			name:   "expired yesterday",
			expiry: today.AddDays(-1),
			now:    time.Date(2026, time.March, 10, 9, 0, 0, 0, loc),
			want:   false,
		},
		{
			name:   "expiring next week",
			expiry: today.AddDays(7),
			now:    time.Date(2026, time.March, 10, 9, 0, 0, 0, loc),
			want:   false,
		},
		{
			name:   "no expiry date",
			expiry: calendar.Date{},
			now:    time.Date(2026, time.March, 10, 9, 0, 0, 0, loc),
			want:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldFlagExpiringSoon(tc.expiry, tc.now, cutoff); got != tc.want {
				t.Errorf("ShouldFlagExpiringSoon(%v, %v) = %v, want %v", tc.expiry, tc.now, got, tc.want)
			}
		})
	}
}
