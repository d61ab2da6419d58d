package booking

import "fmt"

// TaxRatePercent is the flat sales tax applied to every rental.
const TaxRatePercent = 10

// MaxPricePerDayCents caps the daily rate. With MaxRentalDays it keeps every
// amount in a breakdown well inside int64.
const MaxPricePerDayCents int64 = 10_000_000_000

// PricingStrategy defines the interface for quoting a rental.
type PricingStrategy interface {
	// Calculate returns the price breakdown for the given parameters.
	Calculate(params PricingParams) (PricingBreakdown, error)
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	PricePerDayCents int64
	Range            DateRange
	Extras           []ExtraCode
}

// PricingBreakdown is the quoted price of a rental, in minor currency units.
// Once attached to a booking it is never recomputed.
type PricingBreakdown struct {
	Days             int   `json:"days"`
	PricePerDayCents int64 `json:"price_per_day_cents"`
	BasePriceCents   int64 `json:"base_price_cents"`
	ExtrasTotalCents int64 `json:"extras_total_cents"`
	SubtotalCents    int64 `json:"subtotal_cents"`
	TaxCents         int64 `json:"tax_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// Valid reports whether the breakdown covers at least one rental day.
// A same-day range prices to zero days and must not be booked.
func (p PricingBreakdown) Valid() bool {
	return p.Days >= 1
}

// StandardPricingStrategy implements the default rental pricing.
type StandardPricingStrategy struct{}

// NewStandardPricingStrategy creates a new StandardPricingStrategy.
func NewStandardPricingStrategy() *StandardPricingStrategy {
	return &StandardPricingStrategy{}
}

// Calculate computes the breakdown.
//
// Pricing formula:
//   - Days: whole calendar days from pickup to return
//   - Base: daily rate x days
//   - Extras: each catalog extra's daily rate x days (unknown codes add 0)
//   - Tax: 10% of base + extras, rounded half up to the cent
func (s *StandardPricingStrategy) Calculate(params PricingParams) (PricingBreakdown, error) {
	if params.PricePerDayCents < 0 {
		return PricingBreakdown{}, fmt.Errorf("price per day cannot be negative")
	}
	if params.PricePerDayCents > MaxPricePerDayCents {
		return PricingBreakdown{}, fmt.Errorf("price per day cannot exceed %d cents", MaxPricePerDayCents)
	}

	days := int64(params.Range.Days())
	if days > MaxRentalDays {
		return PricingBreakdown{}, fmt.Errorf("rental cannot exceed %d days", MaxRentalDays)
	}

	base := params.PricePerDayCents * days

	var extras int64
	for _, code := range params.Extras {
		if e, ok := LookupExtra(code); ok {
			extras += e.DailyRateCents * days
		}
	}

	subtotal := base + extras
	tax := percentOf(subtotal, TaxRatePercent)

	return PricingBreakdown{
		Days:             int(days),
		PricePerDayCents: params.PricePerDayCents,
		BasePriceCents:   base,
		ExtrasTotalCents: extras,
		SubtotalCents:    subtotal,
		TaxCents:         tax,
		TotalCents:       subtotal + tax,
	}, nil
}

// percentOf returns pct% of amount rounded half up. amount is non-negative.
func percentOf(amount int64, pct int64) int64 {
	return (amount*pct + 50) / 100
}
