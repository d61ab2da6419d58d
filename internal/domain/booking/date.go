package booking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/domain"
)

// DateLayout is the wire format of a calendar date.
const DateLayout = "2006-01-02"

// MaxRentalDays is the longest bookable rental.
const MaxRentalDays = 366

const secondsPerDay = 24 * 60 * 60

// Date is a calendar day with no time-of-day component. The zero value is "no date".
type Date struct {
	t time.Time
}

// NewDate builds a Date from its components. Out-of-range values normalise
// the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, domain.NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// String returns the YYYY-MM-DD form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of whole days from d to other (negative if other is earlier).
func (d Date) DaysUntil(other Date) int {
	// time.Duration saturates past ~292 years; Unix seconds do not.
	return int((other.t.Unix() - d.t.Unix()) / secondsPerDay)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether d and other are the same day.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// MarshalJSON encodes the date as "YYYY-MM-DD", or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes "YYYY-MM-DD" or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive [Pickup, Return] window during which a car is committed.
type DateRange struct {
	Pickup Date `json:"pickup_date"`
	Return Date `json:"return_date"`
}

// NewDateRange builds a range without validating it.
func NewDateRange(pickup, ret Date) DateRange {
	return DateRange{Pickup: pickup, Return: ret}
}

// Validate fails unless both ends are set, Return is strictly after Pickup
// and the rental lasts at most MaxRentalDays.
func (r DateRange) Validate() error {
	if r.Pickup.IsZero() || r.Return.IsZero() {
		return domain.NewValidationError("pickup and return dates are required")
	}
	if !r.Return.After(r.Pickup) {
		return domain.NewInvalidRangeError(fmt.Sprintf(
			"return date %s must be after pickup date %s", r.Return, r.Pickup,
		)).WithDetails(map[string]any{
			"pickup_date": r.Pickup.String(),
			"return_date": r.Return.String(),
		})
	}
	if days := r.Days(); days > MaxRentalDays {
		return domain.NewInvalidRangeError(fmt.Sprintf(
			"rental of %d days exceeds the %d day maximum", days, MaxRentalDays,
		)).WithDetails(map[string]any{
			"pickup_date": r.Pickup.String(),
			"return_date": r.Return.String(),
			"max_days":    MaxRentalDays,
		})
	}
	return nil
}

// Days returns the number of billable days, never negative.
func (r DateRange) Days() int {
	days := r.Pickup.DaysUntil(r.Return)
	if days < 0 {
		return 0
	}
	return days
}

// Contains reports whether d falls inside the range, bounds included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Pickup) && !d.After(r.Return)
}

// Overlaps reports whether the candidate range r conflicts with existing.
// Bounds are inclusive on both sides, so a range ending on day D conflicts
// with one starting on day D.
func (r DateRange) Overlaps(existing DateRange) bool {
	return existing.Contains(r.Pickup) ||
		existing.Contains(r.Return) ||
		(!r.Pickup.After(existing.Pickup) && !r.Return.Before(existing.Return))
}

// Dates expands the range into every calendar day it covers, bounds included.
func (r DateRange) Dates() []Date {
	if r.Return.Before(r.Pickup) {
		return nil
	}
	dates := make([]Date, 0, r.Days()+1)
	for d := r.Pickup; !d.After(r.Return); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// String renders the range as "pickup..return".
func (r DateRange) String() string {
	return r.Pickup.String() + ".." + r.Return.String()
}
