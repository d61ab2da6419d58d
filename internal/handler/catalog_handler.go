package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-rental/internal/application"
	bookingDomain "github.com/Kilat-Pet-Delivery/service-rental/internal/domain/booking"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/response"
)

// CatalogHandler serves price quotes and the static extras and desk catalogs.
type CatalogHandler struct {
	service *application.BookingService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *application.BookingService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers pricing and catalog routes.
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/api/v1/pricing/quote", h.Quote)

	catalog := r.Group("/api/v1/catalog")
	{
		catalog.GET("/extras", h.Extras)
		catalog.GET("/locations", h.Locations)
	}
}

// Quote handles POST /api/v1/pricing/quote.
func (h *CatalogHandler) Quote(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Extras handles GET /api/v1/catalog/extras.
func (h *CatalogHandler) Extras(c *gin.Context) {
	response.Success(c, bookingDomain.Extras())
}

// Locations handles GET /api/v1/catalog/locations.
func (h *CatalogHandler) Locations(c *gin.Context) {
	response.Success(c, bookingDomain.Locations())
}
