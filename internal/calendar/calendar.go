// Package calendar provides the civil-date value type and clock used by all
// billing-cycle logic. Legacy data stores dates as text in several formats
// (DD-MM-YYYY, DD/MM/YYYY, ISO timestamps); parsing is confined to this
// package so raw strings never reach comparison logic.
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// Date is a civil calendar date with no time-of-day or zone component.
// The zero value is "unset".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// parse layouts accepted at the boundary, tried in order.
// "2006-01-02" is the canonical storage/wire format.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
}

// ParseDate parses a date string in any of the accepted legacy formats.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// DateOf truncates a time to its civil date in the time's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// NewDate builds a date, normalizing out-of-range components the way
// time.Date does (e.g. Jan 32 becomes Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight of the date in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MonthLabel returns the human billing-month label, e.g. "November 2025".
// Labels are the identity of month entries in the voucher ledger.
func (d Date) MonthLabel() string {
	return d.Time(time.UTC).Format("January 2006")
}

// AddMonths advances the date by n calendar months (not fixed 30-day
// periods). End-of-month dates normalize forward, matching time.AddDate.
func (d Date) AddMonths(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, n, 0))
}

// AddDays advances the date by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Date) After(other Date) bool {
	return d.Time(time.UTC).After(other.Time(time.UTC))
}

// DaysUntil returns the number of civil days from d to other
// (negative if other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time(time.UTC).Sub(d.Time(time.UTC)).Hours() / 24)
}

// MarshalJSON emits the canonical YYYY-MM-DD form, or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts any legacy format the panel ever stored.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner. Dates are stored as text.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into calendar.Date", value)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Clock resolves "now" in the fixed billing timezone. NowFunc is
// swappable in tests; production code leaves it nil.
type Clock struct {
	loc     *time.Location
	NowFunc func() time.Time
}

// NewClock loads the billing timezone by IANA name, falling back to a
// fixed UTC+5 zone when the tz database is unavailable.
func NewClock(tz string) *Clock {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Calendar: failed to load timezone %q, using fixed UTC+5: %v", tz, err)
		loc = time.FixedZone("UTC+5", 5*3600)
	}
	return &Clock{loc: loc}
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the billing timezone.
func (c *Clock) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc().In(c.loc)
	}
	return time.Now().In(c.loc)
}

// Today returns today's civil date in the billing timezone.
func (c *Clock) Today() Date {
	return DateOf(c.Now())
}

// Tomorrow returns tomorrow's civil date in the billing timezone.
func (c *Clock) Tomorrow() Date {
	return c.Today().AddDays(1)
}
