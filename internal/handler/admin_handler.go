package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-rental/internal/application"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/response"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// AdminBookingHandler serves the back-office views over every booking.
type AdminBookingHandler struct {
	service *application.BookingService
}

func NewAdminBookingHandler(service *application.BookingService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service}
}

// RegisterRoutes mounts /api/v1/admin.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	admin.GET("/bookings", h.ListBookings)
	admin.GET("/stats/bookings", h.BookingStats)
}

// ListBookings pages through all bookings, cancelled ones included.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(c, "limit", defaultPageLimit)
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	result, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// BookingStats reports counts per status and confirmed revenue.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// queryInt reads an integer query parameter, falling back to def when absent or malformed.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
