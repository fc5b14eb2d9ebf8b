package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateFormats(t *testing.T) {
	want := Date{Year: 2025, Month: time.November, Day: 3}

	cases := []string{
		"2025-11-03",
		"03-11-2025",
		"03/11/2025",
		"2025-11-03T09:30:00Z",
		"2025-11-03T09:30:00.000Z",
	}

	for _, input := range cases {
		got, err := ParseDate(input)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseDate(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseDateEmpty(t *testing.T) {
	got, err := ParseDate("  ")
	if err != nil {
		t.Fatalf("ParseDate blank: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("expected zero date, got %v", got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	if _, err := ParseDate("next tuesday"); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestAddMonthsCalendarArithmetic(t *testing.T) {
	cases := []struct {
		in   Date
		n    int
		want Date
	}{
		{NewDate(2025, time.November, 15), 1, NewDate(2025, time.December, 15)},
		{NewDate(2025, time.December, 15), 1, NewDate(2026, time.January, 15)},
		// Not a fixed 30-day advance: February is shorter
		{NewDate(2025, time.January, 15), 1, NewDate(2025, time.February, 15)},
		{NewDate(2025, time.January, 31), 1, NewDate(2025, time.March, 3)},
		{NewDate(2025, time.June, 1), 12, NewDate(2026, time.June, 1)},
	}

	for _, tc := range cases {
		if got := tc.in.AddMonths(tc.n); got != tc.want {
			t.Errorf("%v.AddMonths(%d) = %v, want %v", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	d := NewDate(2025, time.November, 28)
	if got := d.MonthLabel(); got != "November 2025" {
		t.Errorf("MonthLabel = %q, want %q", got, "November 2025")
	}
}

func TestDaysUntil(t *testing.T) {
	a := NewDate(2025, time.November, 1)
	b := NewDate(2025, time.November, 30)
	if got := a.DaysUntil(b); got != 29 {
		t.Errorf("DaysUntil = %d, want 29", got)
	}
	if got := b.DaysUntil(a); got != -29 {
		t.Errorf("reverse DaysUntil = %d, want -29", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, time.March, 7)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"2025-03-07"` {
		t.Errorf("marshal = %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Errorf("round trip = %v, want %v", back, d)
	}

	var unset Date
	data, _ = json.Marshal(unset)
	if string(data) != "null" {
		t.Errorf("zero date marshal = %s, want null", data)
	}
}

func TestUnmarshalLegacyFormat(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"28/11/2025"`), &d); err != nil {
		t.Fatal(err)
	}
	if d != NewDate(2025, time.November, 28) {
		t.Errorf("got %v", d)
	}
}

func TestScanValue(t *testing.T) {
	var d Date
	if err := d.Scan("15-06-2025"); err != nil {
		t.Fatal(err)
	}
	if d != NewDate(2025, time.June, 15) {
		t.Errorf("Scan string = %v", d)
	}

	v, err := d.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != "2025-06-15" {
		t.Errorf("Value = %v, want canonical form", v)
	}

	var unset Date
	v, err = unset.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("zero Value = %v, want nil", v)
	}
}

func TestClockToday(t *testing.T) {
	clock := NewClock("Asia/Karachi")
	// 23:30 UTC on Nov 2 is already Nov 3 in UTC+5
	clock.NowFunc = func() time.Time {
		return time.Date(2025, time.November, 2, 23, 30, 0, 0, time.UTC)
	}

	if got := clock.Today(); got != NewDate(2025, time.November, 3) {
		t.Errorf("Today = %v, want 2025-11-03", got)
	}
	if got := clock.Tomorrow(); got != NewDate(2025, time.November, 4) {
		t.Errorf("Tomorrow = %v, want 2025-11-04", got)
	}
}

func TestClockBadTimezoneFallsBack(t *testing.T) {
	clock := NewClock("Not/AZone")
	_, offset := clock.Now().Zone()
	if offset != 5*3600 {
		t.Errorf("fallback offset = %d, want UTC+5", offset)
	}
}
