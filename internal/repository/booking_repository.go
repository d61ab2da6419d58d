package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-rental/internal/blobstore"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-rental/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/domain"
)

// DefaultKey is the blob key the booking collection is stored under.
const DefaultKey = "bookings"

// BookingRecord is the stored JSON form of a booking.
type BookingRecord struct {
	ID             string                         `json:"id"`
	BookingNumber  string                         `json:"booking_number"`
	CarID          string                         `json:"car_id"`
	CarDetails     bookingDomain.CarDetails       `json:"car_details"`
	PickupDate     bookingDomain.Date             `json:"pickup_date"`
	ReturnDate     bookingDomain.Date             `json:"return_date"`
	PickupLocation bookingDomain.Location         `json:"pickup_location"`
	ReturnLocation bookingDomain.Location         `json:"return_location"`
	Extras         []bookingDomain.ExtraCode      `json:"extras"`
	Customer       bookingDomain.Customer         `json:"customer"`
	Pricing        bookingDomain.PricingBreakdown `json:"pricing"`
	Currency       string                         `json:"currency"`
	Status         string                         `json:"status"`
	CancelledAt    *time.Time                     `json:"cancelled_at,omitempty"`
	CancelNote     string                         `json:"cancel_note,omitempty"`
	Notes          string                         `json:"notes,omitempty"`
	CreatedAt      time.Time                      `json:"created_at"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

// BlobBookingRepository stores the whole booking collection as one JSON
// document in a blobstore.Store.
type BlobBookingRepository struct {
	store blobstore.Store
	key   string
}

// NewBlobBookingRepository creates a new BlobBookingRepository. An empty key
// selects DefaultKey.
func NewBlobBookingRepository(store blobstore.Store, key string) *BlobBookingRepository {
	if key == "" {
		key = DefaultKey
	}
	return &BlobBookingRepository{store: store, key: key}
}

// Load reads and decodes the stored collection.
func (r *BlobBookingRepository) Load(ctx context.Context) (bookingDomain.Collection, error) {
	blob, err := r.store.Get(ctx, r.key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return bookingDomain.Collection{}, nil
	}
	if err != nil {
		return bookingDomain.Collection{}, domain.NewInternalError("failed to load bookings", err)
	}

	var records []BookingRecord
	if len(blob.Data) > 0 {
		if err := json.Unmarshal(blob.Data, &records); err != nil {
			return bookingDomain.Collection{}, domain.NewInternalError("stored bookings are corrupt", err)
		}
	}

	bookings := make([]*bookingDomain.Booking, 0, len(records))
	for i := range records {
		bk, err := toDomainBooking(&records[i])
		if err != nil {
			return bookingDomain.Collection{}, domain.NewInternalError("stored bookings are corrupt", err)
		}
		bookings = append(bookings, bk)
	}

	return bookingDomain.Collection{Bookings: bookings, Version: blob.Version}, nil
}

// Save writes the collection if the store is still at c.Version.
func (r *BlobBookingRepository) Save(ctx context.Context, c bookingDomain.Collection) (bookingDomain.Collection, error) {
	records := make([]BookingRecord, len(c.Bookings))
	for i, bk := range c.Bookings {
		records[i] = toRecord(bk)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return c, domain.NewInternalError("failed to encode bookings", err)
	}

	version, err := r.store.Set(ctx, r.key, data, c.Version)
	if errors.Is(err, blobstore.ErrVersionConflict) {
		return c, domain.NewConflictError("bookings were modified concurrently, retry the request")
	}
	if err != nil {
		return c, domain.NewInternalError("failed to save bookings", err)
	}

	c.Version = version
	return c, nil
}

// --- Conversion Helpers ---

func toRecord(bk *bookingDomain.Booking) BookingRecord {
	return BookingRecord{
		ID:             bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		CarID:          bk.CarID(),
		CarDetails:     bk.CarDetails(),
		PickupDate:     bk.PickupDate(),
		ReturnDate:     bk.ReturnDate(),
		PickupLocation: bk.PickupLocation(),
		ReturnLocation: bk.ReturnLocation(),
		Extras:         bk.Extras(),
		Customer:       bk.Customer(),
		Pricing:        bk.Pricing(),
		Currency:       bk.Currency(),
		Status:         bk.Status().String(),
		CancelledAt:    bk.CancelledAt(),
		CancelNote:     bk.CancelNote(),
		Notes:          bk.Notes(),
		CreatedAt:      bk.CreatedAt(),
		UpdatedAt:      bk.UpdatedAt(),
	}
}

func toDomainBooking(r *BookingRecord) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", r.ID, err)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("booking record without id")
	}

	return bookingDomain.ReconstructBooking(
		r.ID,
		r.BookingNumber,
		r.CarID,
		r.CarDetails,
		bookingDomain.NewDateRange(r.PickupDate, r.ReturnDate),
		r.PickupLocation,
		r.ReturnLocation,
		r.Extras,
		r.Customer,
		r.Pricing,
		r.Currency,
		status,
		r.CancelledAt,
		r.CancelNote,
		r.Notes,
		r.CreatedAt,
		r.UpdatedAt,
	), nil
}
