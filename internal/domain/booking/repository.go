package booking

import "context"

// Collection is the full set of bookings plus the store version it was read at.
type Collection struct {
	Bookings []*Booking
	Version  int64
}

// Find returns the booking with the given id.
func (c Collection) Find(id string) (*Booking, bool) {
	for _, b := range c.Bookings {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// BookingRepository defines the persistence contract for the booking collection.
// The collection is read and written as a whole.
type BookingRepository interface {
	// Load returns every stored booking. An empty store yields an empty collection at version 0.
	Load(ctx context.Context) (Collection, error)

	// Save overwrites the stored collection if it is still at c.Version and
	// returns the collection at its new version. A concurrent write since
	// Load yields a conflict error.
	Save(ctx context.Context, c Collection) (Collection, error)
}
