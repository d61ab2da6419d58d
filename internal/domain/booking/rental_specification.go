package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ExtraCode identifies an optional add-on billed per rental day.
type ExtraCode string

const (
	ExtraInsurance ExtraCode = "insurance"
	ExtraGPS       ExtraCode = "gps"
	ExtraChildSeat ExtraCode = "childSeat"
)

// Extra is a catalog entry for an add-on service.
type Extra struct {
	Code           ExtraCode `json:"code"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	DailyRateCents int64     `json:"daily_rate_cents"`
}

var extrasCatalog = map[ExtraCode]Extra{
	ExtraInsurance: {Code: ExtraInsurance, Name: "Full Insurance", Description: "Complete coverage with zero deductible", DailyRateCents: 1500},
	ExtraGPS:       {Code: ExtraGPS, Name: "GPS Navigation", Description: "Turn-by-turn navigation system", DailyRateCents: 800},
	ExtraChildSeat: {Code: ExtraChildSeat, Name: "Child Seat", Description: "Safety-approved child seat", DailyRateCents: 1000},
}

// LookupExtra returns the catalog entry for code.
func LookupExtra(code ExtraCode) (Extra, bool) {
	e, ok := extrasCatalog[code]
	return e, ok
}

// Extras returns the full catalog ordered by code.
func Extras() []Extra {
	out := make([]Extra, 0, len(extrasCatalog))
	for _, e := range extrasCatalog {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// NormalizeExtras rejects unknown codes and drops duplicates, keeping request order.
func NormalizeExtras(codes []ExtraCode) ([]ExtraCode, error) {
	seen := make(map[ExtraCode]bool, len(codes))
	out := make([]ExtraCode, 0, len(codes))
	var unknown []string
	for _, c := range codes {
		if _, ok := extrasCatalog[c]; !ok {
			unknown = append(unknown, string(c))
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(unknown) > 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown extras: %s", strings.Join(unknown, ", ")))
	}
	return out, nil
}

// LocationID identifies a rental desk.
type LocationID string

const (
	LocationAirport  LocationID = "airport"
	LocationDowntown LocationID = "downtown"
	LocationMall     LocationID = "mall"
	LocationStation  LocationID = "station"
)

// Location is a pickup or return desk.
type Location struct {
	ID      LocationID `json:"id"`
	Name    string     `json:"name"`
	Address string     `json:"address"`
}

var locations = []Location{
	{ID: LocationAirport, Name: "Airport Terminal", Address: "Main Airport, Terminal 1"},
	{ID: LocationDowntown, Name: "Downtown Office", Address: "123 Main Street, City Center"},
	{ID: LocationMall, Name: "Shopping Mall", Address: "Central Mall, Parking Level B2"},
	{ID: LocationStation, Name: "Train Station", Address: "Central Railway Station"},
}

// Locations returns every rental desk.
func Locations() []Location {
	out := make([]Location, len(locations))
	copy(out, locations)
	return out
}

// LookupLocation returns the desk with the given id.
func LookupLocation(id LocationID) (Location, bool) {
	for _, l := range locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// CarDetails is a snapshot of the rented car taken when the booking is made.
type CarDetails struct {
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Year     int    `json:"year,omitempty"`
	Image    string `json:"image,omitempty"`
	Category string `json:"category,omitempty"`
}

// Customer is the contact who made the booking.
type Customer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

// Validate checks that every contact field is present and the email is well formed.
func (c Customer) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError(err.Error())
	}
	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		fields[name] = fe.Tag()
		msgs = append(msgs, fmt.Sprintf("customer %s is %s", name, describeTag(fe.Tag())))
	}
	return domain.NewValidationError(strings.Join(msgs, "; ")).WithDetails(fields)
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "not a valid email address"
	default:
		return "invalid"
	}
}
