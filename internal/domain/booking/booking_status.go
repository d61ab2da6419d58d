package booking

import (
	"fmt"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/domain"
)

// BookingStatus is the lifecycle state of a rental booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// next lists the single state each status may move to. Cancelled has none.
var next = map[BookingStatus]BookingStatus{
	StatusConfirmed: StatusCancelled,
	StatusCancelled: "",
}

// Statuses returns every known status in lifecycle order.
func Statuses() []BookingStatus {
	return []BookingStatus{StatusConfirmed, StatusCancelled}
}

// CanBeCancelled reports whether cancellation is allowed from s.
func (s BookingStatus) CanBeCancelled() bool {
	return next[s] == StatusCancelled
}

// IsTerminal reports whether s admits no further transition.
func (s BookingStatus) IsTerminal() bool {
	to, known := next[s]
	return known && to == ""
}

func (s BookingStatus) String() string { return string(s) }

// ParseBookingStatus reads a stored status value.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if _, known := next[status]; !known {
		return "", domain.NewValidationError(fmt.Sprintf("unknown booking status %q", s))
	}
	return status, nil
}
