package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for a car rental reservation.
type Booking struct {
	id            string
	bookingNumber string
	carID         string
	carDetails    CarDetails
	period        DateRange

	pickupLocation Location
	returnLocation Location
	extras         []ExtraCode
	customer       Customer

	pricing  PricingBreakdown
	currency string

	status      BookingStatus
	cancelledAt *time.Time
	cancelNote  string
	notes       string

	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "BK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// generateID returns a time-ordered UUIDv7: a millisecond timestamp prefix
// followed by random bits.
func generateID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate booking id: %w", err)
	}
	return id.String(), nil
}

// NewBooking creates a confirmed Booking. It validates its own fields but not
// availability, which depends on the rest of the collection.
func NewBooking(
	carID string,
	carDetails CarDetails,
	period DateRange,
	pickupLocationID LocationID,
	returnLocationID LocationID,
	extras []ExtraCode,
	customer Customer,
	pricing PricingBreakdown,
	currency string,
	notes string,
	now time.Time,
) (*Booking, error) {
	if carID == "" {
		return nil, domain.NewValidationError("car ID is required")
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	normalized, err := NormalizeExtras(extras)
	if err != nil {
		return nil, err
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if !pricing.Valid() {
		return nil, domain.NewValidationError("pricing must cover at least one day")
	}
	if pricing.Days != period.Days() {
		return nil, domain.NewValidationError(fmt.Sprintf(
			"pricing covers %d days but the rental period is %d days", pricing.Days, period.Days(),
		))
	}
	if currency == "" {
		return nil, domain.NewValidationError("currency is required")
	}

	pickup, ok := LookupLocation(pickupLocationID)
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown pickup location: %s", pickupLocationID))
	}
	ret := pickup
	if returnLocationID != "" {
		if ret, ok = LookupLocation(returnLocationID); !ok {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown return location: %s", returnLocationID))
		}
	}

	id, err := generateID()
	if err != nil {
		return nil, err
	}
	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Booking{
		id:             id,
		bookingNumber:  bookingNumber,
		carID:          carID,
		carDetails:     carDetails,
		period:         period,
		pickupLocation: pickup,
		returnLocation: ret,
		extras:         normalized,
		customer:       customer,
		pricing:        pricing,
		currency:       currency,
		status:         StatusConfirmed,
		notes:          notes,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id string,
	bookingNumber string,
	carID string,
	carDetails CarDetails,
	period DateRange,
	pickupLocation Location,
	returnLocation Location,
	extras []ExtraCode,
	customer Customer,
	pricing PricingBreakdown,
	currency string,
	status BookingStatus,
	cancelledAt *time.Time,
	cancelNote string,
	notes string,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:             id,
		bookingNumber:  bookingNumber,
		carID:          carID,
		carDetails:     carDetails,
		period:         period,
		pickupLocation: pickupLocation,
		returnLocation: returnLocation,
		extras:         extras,
		customer:       customer,
		pricing:        pricing,
		currency:       currency,
		status:         status,
		cancelledAt:    cancelledAt,
		cancelNote:     cancelNote,
		notes:          notes,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() string { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// CarID returns the rented car's identifier.
func (b *Booking) CarID() string { return b.carID }

// CarDetails returns the car snapshot taken at booking time.
func (b *Booking) CarDetails() CarDetails { return b.carDetails }

// Period returns the inclusive rental window.
func (b *Booking) Period() DateRange { return b.period }

// PickupDate returns the first day of the rental.
func (b *Booking) PickupDate() Date { return b.period.Pickup }

// ReturnDate returns the last day of the rental.
func (b *Booking) ReturnDate() Date { return b.period.Return }

// PickupLocation returns the pickup desk.
func (b *Booking) PickupLocation() Location { return b.pickupLocation }

// ReturnLocation returns the return desk.
func (b *Booking) ReturnLocation() Location { return b.returnLocation }

// Extras returns a copy of the selected add-ons.
func (b *Booking) Extras() []ExtraCode {
	out := make([]ExtraCode, len(b.extras))
	copy(out, b.extras)
	return out
}

// Customer returns the customer contact.
func (b *Booking) Customer() Customer { return b.customer }

// Pricing returns the price snapshot taken at creation.
func (b *Booking) Pricing() PricingBreakdown { return b.pricing }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// CancelledAt returns the cancellation time, or nil while confirmed.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

// Notes returns free-form notes.
func (b *Booking) Notes() string { return b.notes }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Behavior ---

// Cancel moves a confirmed booking to cancelled. Cancellation is terminal.
func (b *Booking) Cancel(reason string, at time.Time) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	at = at.UTC()
	b.status = StatusCancelled
	b.cancelNote = reason
	b.cancelledAt = &at
	b.updatedAt = at
	return nil
}

// Blocks reports whether the booking holds carID's calendar.
func (b *Booking) Blocks(carID string) bool {
	return b.carID == carID && b.status != StatusCancelled
}

// IsActiveOn reports whether a confirmed booking has not yet ended by today.
func (b *Booking) IsActiveOn(today Date) bool {
	return b.status == StatusConfirmed && !b.period.Return.Before(today)
}

// IsPastOn reports whether a confirmed booking ended before today.
func (b *Booking) IsPastOn(today Date) bool {
	return b.status == StatusConfirmed && b.period.Return.Before(today)
}
