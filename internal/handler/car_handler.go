package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-rental/internal/application"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-rental/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/response"
)

// CarHandler serves per-car calendar queries.
type CarHandler struct {
	service *application.BookingService
}

// NewCarHandler creates a new CarHandler.
func NewCarHandler(service *application.BookingService) *CarHandler {
	return &CarHandler{service: service}
}

// RegisterRoutes registers car calendar routes.
func (h *CarHandler) RegisterRoutes(r *gin.RouterGroup) {
	cars := r.Group("/api/v1/cars/:carId")
	{
		cars.GET("/availability", h.Availability)
		cars.GET("/booked-dates", h.BookedDates)
	}
}

// Availability handles GET /api/v1/cars/:carId/availability.
// With pickup_date and return_date it checks that range; without them it
// reports whether the car has any booking that has not ended yet.
func (h *CarHandler) Availability(c *gin.Context) {
	carID := c.Param("carId")
	pickup, ret := c.Query("pickup_date"), c.Query("return_date")

	if pickup == "" && ret == "" {
		ok, err := h.service.GetCarAvailability(c.Request.Context(), carID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, application.AvailabilityDTO{CarID: carID, Available: ok})
		return
	}

	if pickup == "" || ret == "" {
		response.BadRequest(c, "pickup_date and return_date must be given together")
		return
	}
	p, err := bookingDomain.ParseDate(pickup)
	if err != nil {
		response.Error(c, err)
		return
	}
	r, err := bookingDomain.ParseDate(ret)
	if err != nil {
		response.Error(c, err)
		return
	}

	ok, err := h.service.IsAvailable(c.Request.Context(), carID, bookingDomain.NewDateRange(p, r))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, application.AvailabilityDTO{
		CarID:      carID,
		Available:  ok,
		PickupDate: p.String(),
		ReturnDate: r.String(),
	})
}

// BookedDates handles GET /api/v1/cars/:carId/booked-dates.
func (h *CarHandler) BookedDates(c *gin.Context) {
	carID := c.Param("carId")

	dates, err := h.service.GetBookedDates(c.Request.Context(), carID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, application.BookedDatesDTO{CarID: carID, Dates: dates})
}
