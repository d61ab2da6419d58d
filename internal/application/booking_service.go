package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	bookingDomain "github.com/Kilat-Pet-Delivery/service-rental/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/domain"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/events"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/kafka"
)

const eventSource = "service-rental"

// EventPublisher publishes a CloudEvent to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

// PublishEvent does nothing.
func (NopPublisher) PublishEvent(context.Context, string, kafka.CloudEvent) error { return nil }

// CustomerDTO is the contact block of a booking request.
type CustomerDTO struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"required,max=50"`
}

// CreateBookingRequest holds the data needed to create a new booking.
// Pricing, when supplied, must equal the quote for the same dates, extras and
// daily rate; otherwise the quote is computed from PricePerDayCents.
type CreateBookingRequest struct {
	CarID            string                          `json:"car_id" binding:"required,max=64"`
	CarDetails       bookingDomain.CarDetails        `json:"car_details"`
	PickupDate       string                          `json:"pickup_date" binding:"required,calendar_date"`
	ReturnDate       string                          `json:"return_date" binding:"required,calendar_date"`
	PickupLocation   string                          `json:"pickup_location" binding:"required"`
	ReturnLocation   string                          `json:"return_location"`
	Extras           []string                        `json:"extras"`
	Customer         CustomerDTO                     `json:"customer"`
	PricePerDayCents *int64                          `json:"price_per_day_cents" binding:"omitempty,gte=0,lte=10000000000"`
	Pricing          *bookingDomain.PricingBreakdown `json:"pricing"`
	Notes            string                          `json:"notes" binding:"max=1000"`
}

// QuoteRequest holds the inputs of a price quote.
type QuoteRequest struct {
	PricePerDayCents int64    `json:"price_per_day_cents" binding:"gte=0,lte=10000000000"`
	PickupDate       string   `json:"pickup_date" binding:"required,calendar_date"`
	ReturnDate       string   `json:"return_date" binding:"required,calendar_date"`
	Extras           []string `json:"extras"`
}

// CancelBookingRequest holds the optional cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID             string                         `json:"id"`
	BookingNumber  string                         `json:"booking_number"`
	CarID          string                         `json:"car_id"`
	CarDetails     bookingDomain.CarDetails       `json:"car_details"`
	PickupDate     string                         `json:"pickup_date"`
	ReturnDate     string                         `json:"return_date"`
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

// AvailabilityDTO answers an availability query.
type AvailabilityDTO struct {
	CarID      string `json:"car_id"`
	Available  bool   `json:"available"`
	PickupDate string `json:"pickup_date,omitempty"`
	ReturnDate string `json:"return_date,omitempty"`
}

// BookedDatesDTO lists the calendar days a car is taken.
type BookedDatesDTO struct {
	CarID string   `json:"car_id"`
	Dates []string `json:"dates"`
}

// BookingStatsDTO holds aggregate booking statistics.
type BookingStatsDTO struct {
	TotalBookings         int64            `json:"total_bookings"`
	ByStatus              map[string]int64 `json:"by_status"`
	ActiveBookings        int64            `json:"active_bookings"`
	PastBookings          int64            `json:"past_bookings"`
	ConfirmedRevenueCents int64            `json:"confirmed_revenue_cents"`
	Currency              string           `json:"currency"`
}

// BookingScope selects which bookings a listing returns.
type BookingScope string

const (
	ScopeAll    BookingScope = "all"
	ScopeActive BookingScope = "active"
	ScopePast   BookingScope = "past"
)

// ParseBookingScope converts a query value to a BookingScope. Empty means all.
func ParseBookingScope(s string) (BookingScope, error) {
	switch BookingScope(s) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeActive, ScopePast:
		return BookingScope(s), nil
	default:
		return "", domain.NewValidationError(fmt.Sprintf("invalid scope %q: want all, active or past", s))
	}
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	// mu serialises load-modify-save cycles within this process. Writers in
	// other processes are caught by the repository's version check.
	mu sync.Mutex

	repo      bookingDomain.BookingRepository
	pricing   bookingDomain.PricingStrategy
	clock     bookingDomain.Clock
	publisher EventPublisher
	currency  string
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService. A nil publisher disables events.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	pricing bookingDomain.PricingStrategy,
	clock bookingDomain.Clock,
	publisher EventPublisher,
	currency string,
	logger *zap.Logger,
) *BookingService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if currency == "" {
		currency = domain.CurrencyUSD
	}
	return &BookingService{
		repo:      repo,
		pricing:   pricing,
		clock:     clock,
		publisher: publisher,
		currency:  currency,
		logger:    logger,
	}
}

// IsAvailable reports whether no live booking on carID overlaps period.
// The range itself is not validated here.
func (s *BookingService) IsAvailable(ctx context.Context, carID string, period bookingDomain.DateRange) (bool, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	return findConflict(c, carID, period) == nil, nil
}

// GetCarAvailability reports whether carID has no live booking that ends today or later.
func (s *BookingService) GetCarAvailability(ctx context.Context, carID string) (bool, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	today := bookingDomain.Today(s.clock)
	for _, bk := range c.Bookings {
		if bk.Blocks(carID) && !bk.ReturnDate().Before(today) {
			return false, nil
		}
	}
	return true, nil
}

// CalculateTotalPrice quotes a rental without touching the collection.
// A same-day range yields Days == 0, which callers must treat as invalid.
func (s *BookingService) CalculateTotalPrice(
	_ context.Context,
	pricePerDayCents int64,
	period bookingDomain.DateRange,
	extras []bookingDomain.ExtraCode,
) (bookingDomain.PricingBreakdown, error) {
	p, err := s.pricing.Calculate(bookingDomain.PricingParams{
		PricePerDayCents: pricePerDayCents,
		Range:            period,
		Extras:           extras,
	})
	if err != nil {
		return bookingDomain.PricingBreakdown{}, domain.NewValidationError(fmt.Sprintf("pricing error: %v", err))
	}
	return p, nil
}

// Quote parses a QuoteRequest and prices it.
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (bookingDomain.PricingBreakdown, error) {
	period, err := parseRange(req.PickupDate, req.ReturnDate)
	if err != nil {
		return bookingDomain.PricingBreakdown{}, err
	}
	return s.CalculateTotalPrice(ctx, req.PricePerDayCents, period, toExtraCodes(req.Extras))
}

// CreateBooking validates the request, checks the car is free for the whole
// range and stores a confirmed booking.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingDTO, error) {
	period, err := parseRange(req.PickupDate, req.ReturnDate)
	if err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	extras, err := bookingDomain.NormalizeExtras(toExtraCodes(req.Extras))
	if err != nil {
		return nil, err
	}
	pricing, err := s.priceBooking(ctx, req, period, extras)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		req.CarID,
		req.CarDetails,
		period,
		bookingDomain.LocationID(req.PickupLocation),
		bookingDomain.LocationID(req.ReturnLocation),
		extras,
		bookingDomain.Customer{
			Name:  strings.TrimSpace(req.Customer.Name),
			Email: strings.TrimSpace(req.Customer.Email),
			Phone: strings.TrimSpace(req.Customer.Phone),
		},
		pricing,
		s.currency,
		req.Notes,
		s.clock.Now(),
	)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if existing := findConflict(c, req.CarID, period); existing != nil {
		return nil, domain.NewConflictError("car is already booked for the selected dates").WithDetails(map[string]any{
			"car_id":      req.CarID,
			"pickup_date": period.Pickup.String(),
			"return_date": period.Return.String(),
			"conflicts":   existing.Period().String(),
		})
	}

	c.Bookings = append(c.Bookings, bk)
	if _, err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("car_id", bk.CarID()),
		zap.String("period", period.String()),
		zap.Int64("total_cents", pricing.TotalCents),
	)
	s.publishBookingCreated(ctx, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a confirmed booking, freeing its dates.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, reason string) (*BookingDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	bk, ok := c.Find(bookingID)
	if !ok {
		return nil, domain.NewNotFoundError("Booking", bookingID)
	}

	if err := bk.Cancel(reason, s.clock.Now()); err != nil {
		return nil, err
	}

	if _, err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID()),
		zap.String("car_id", bk.CarID()),
	)
	s.publishBookingCancelled(ctx, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelCarBookings cancels every live booking on carID that has not ended
// yet and returns how many were cancelled.
func (s *BookingService) CancelCarBookings(ctx context.Context, carID, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	today := bookingDomain.DateOf(now)
	var cancelled []*bookingDomain.Booking
	for _, bk := range c.Bookings {
		if !bk.Blocks(carID) || bk.ReturnDate().Before(today) {
			continue
		}
		if err := bk.Cancel(reason, now); err != nil {
			return 0, err
		}
		cancelled = append(cancelled, bk)
	}
	if len(cancelled) == 0 {
		return 0, nil
	}

	if _, err := s.repo.Save(ctx, c); err != nil {
		return 0, fmt.Errorf("failed to save bookings: %w", err)
	}

	for _, bk := range cancelled {
		s.publishBookingCancelled(ctx, bk)
	}
	s.logger.Info("car bookings cancelled",
		zap.String("car_id", carID),
		zap.Int("count", len(cancelled)),
	)
	return len(cancelled), nil
}

// GetBookedDates returns every calendar day taken on carID, sorted and unique.
func (s *BookingService) GetBookedDates(ctx context.Context, carID string) ([]string, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, bk := range c.Bookings {
		if !bk.Blocks(carID) {
			continue
		}
		for _, d := range bk.Period().Dates() {
			seen[d.String()] = struct{}{}
		}
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// ListBookings returns the bookings in scope, newest first. A non-empty
// customerEmail restricts the result to that customer.
func (s *BookingService) ListBookings(ctx context.Context, scope BookingScope, customerEmail string) ([]BookingDTO, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	today := bookingDomain.Today(s.clock)
	var keep func(*bookingDomain.Booking) bool
	switch scope {
	case ScopeActive:
		keep = func(bk *bookingDomain.Booking) bool { return bk.IsActiveOn(today) }
	case ScopePast:
		keep = func(bk *bookingDomain.Booking) bool { return bk.IsPastOn(today) }
	default:
		keep = func(bk *bookingDomain.Booking) bool { return bk.Status() != bookingDomain.StatusCancelled }
	}

	email := strings.TrimSpace(customerEmail)
	var out []*bookingDomain.Booking
	for _, bk := range c.Bookings {
		if !keep(bk) {
			continue
		}
		if email != "" && !strings.EqualFold(bk.Customer().Email, email) {
			continue
		}
		out = append(out, bk)
	}
	return toBookingDTOs(newestFirst(out)), nil
}

// GetUserBookings returns every non-cancelled booking, optionally for one customer.
func (s *BookingService) GetUserBookings(ctx context.Context, customerEmail string) ([]BookingDTO, error) {
	return s.ListBookings(ctx, ScopeAll, customerEmail)
}

// GetActiveBookings returns confirmed bookings whose return date is today or later.
func (s *BookingService) GetActiveBookings(ctx context.Context) ([]BookingDTO, error) {
	return s.ListBookings(ctx, ScopeActive, "")
}

// GetPastBookings returns confirmed bookings whose return date has passed.
func (s *BookingService) GetPastBookings(ctx context.Context) ([]BookingDTO, error) {
	return s.ListBookings(ctx, ScopePast, "")
}

// GetBookingByID retrieves a single booking by ID.
func (s *BookingService) GetBookingByID(ctx context.Context, bookingID string) (*BookingDTO, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	bk, ok := c.Find(bookingID)
	if !ok {
		return nil, domain.NewNotFoundError("Booking", bookingID)
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListAllBookings returns every booking, cancelled included, paginated newest first (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	all := newestFirst(append([]*bookingDomain.Booking(nil), c.Bookings...))
	start, end := domain.PageBounds(len(all), page, limit)

	result := domain.NewPaginatedResult(toBookingDTOs(all[start:end]), int64(len(all)), page, limit)
	return &result, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	today := bookingDomain.Today(s.clock)
	stats := &BookingStatsDTO{
		ByStatus: make(map[string]int64),
		Currency: s.currency,
	}
	for _, st := range bookingDomain.Statuses() {
		stats.ByStatus[st.String()] = 0
	}
	for _, bk := range c.Bookings {
		stats.TotalBookings++
		stats.ByStatus[bk.Status().String()]++
		if bk.Status() != bookingDomain.StatusConfirmed {
			continue
		}
		stats.ConfirmedRevenueCents += bk.Pricing().TotalCents
		if bk.IsActiveOn(today) {
			stats.ActiveBookings++
		} else {
			stats.PastBookings++
		}
	}
	return stats, nil
}

// --- Helpers ---

// priceBooking returns the snapshot to store on a new booking. A supplied
// breakdown is accepted only if it is exactly what the standard formula gives
// for its daily rate, the booking's dates and its extras.
func (s *BookingService) priceBooking(
	ctx context.Context,
	req CreateBookingRequest,
	period bookingDomain.DateRange,
	extras []bookingDomain.ExtraCode,
) (bookingDomain.PricingBreakdown, error) {
	if req.Pricing == nil {
		if req.PricePerDayCents == nil {
			return bookingDomain.PricingBreakdown{}, domain.NewValidationError("either pricing or price_per_day_cents is required")
		}
		return s.CalculateTotalPrice(ctx, *req.PricePerDayCents, period, extras)
	}

	supplied := *req.Pricing
	if req.PricePerDayCents != nil && *req.PricePerDayCents != supplied.PricePerDayCents {
		return bookingDomain.PricingBreakdown{}, domain.NewValidationError(
			"pricing was quoted at a different daily rate than price_per_day_cents",
		)
	}
	expected, err := s.CalculateTotalPrice(ctx, supplied.PricePerDayCents, period, extras)
	if err != nil {
		return bookingDomain.PricingBreakdown{}, err
	}
	if supplied != expected {
		return bookingDomain.PricingBreakdown{}, domain.NewValidationError(
			"pricing does not match the quote for the selected dates and extras",
		).WithDetails(map[string]any{
			"expected_total_cents": expected.TotalCents,
			"supplied_total_cents": supplied.TotalCents,
		})
	}
	return expected, nil
}

func findConflict(c bookingDomain.Collection, carID string, period bookingDomain.DateRange) *bookingDomain.Booking {
	for _, bk := range c.Bookings {
		if bk.Blocks(carID) && period.Overlaps(bk.Period()) {
			return bk
		}
	}
	return nil
}

func parseRange(pickup, ret string) (bookingDomain.DateRange, error) {
	p, err := bookingDomain.ParseDate(pickup)
	if err != nil {
		return bookingDomain.DateRange{}, err
	}
	r, err := bookingDomain.ParseDate(ret)
	if err != nil {
		return bookingDomain.DateRange{}, err
	}
	return bookingDomain.NewDateRange(p, r), nil
}

func toExtraCodes(extras []string) []bookingDomain.ExtraCode {
	codes := make([]bookingDomain.ExtraCode, len(extras))
	for i, e := range extras {
		codes[i] = bookingDomain.ExtraCode(e)
	}
	return codes
}

func newestFirst(bookings []*bookingDomain.Booking) []*bookingDomain.Booking {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt().After(bookings[j].CreatedAt())
	})
	return bookings
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:             bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		CarID:          bk.CarID(),
		CarDetails:     bk.CarDetails(),
		PickupDate:     bk.PickupDate().String(),
		ReturnDate:     bk.ReturnDate().String(),
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

func (s *BookingService) publishBookingCreated(ctx context.Context, bk *bookingDomain.Booking) {
	evt := events.BookingCreatedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		CarID:         bk.CarID(),
		PickupDate:    bk.PickupDate().String(),
		ReturnDate:    bk.ReturnDate().String(),
		CustomerEmail: bk.Customer().Email,
		TotalCents:    bk.Pricing().TotalCents,
		Currency:      bk.Currency(),
		OccurredAt:    bk.CreatedAt(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCreated, bk.ID(), evt)
}

func (s *BookingService) publishBookingCancelled(ctx context.Context, bk *bookingDomain.Booking) {
	evt := events.BookingCancelledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		CarID:         bk.CarID(),
		PickupDate:    bk.PickupDate().String(),
		ReturnDate:    bk.ReturnDate().String(),
		Reason:        bk.CancelNote(),
		OccurredAt:    bk.UpdatedAt(),
	}
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCancelled, bk.ID(), evt)
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, subject string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = subject

	if err := s.publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
