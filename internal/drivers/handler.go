package drivers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch/pkg/common"
)

// Handler handles HTTP requests for drivers
type Handler struct {
	service *Service
}

// NewHandler creates a new driver handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches the driver endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	drivers := rg.Group("/drivers")
	{
		drivers.POST("", h.Register)
		drivers.GET("/:id", h.GetDriver)
		drivers.POST("/:id/location", h.UpdateLocation)
		drivers.POST("/:id/presence", h.SetPresence)
		drivers.GET("/:id/earnings", h.Earnings)
		drivers.GET("/:id/ratings", h.Ratings)
	}
}

// Register creates a driver in pending verification
// POST /api/v1/drivers
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	driver, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.CreatedResponse(c, driver)
}

// GetDriver returns a driver by id
// GET /api/v1/drivers/:id
func (h *Handler) GetDriver(c *gin.Context) {
	driver, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, driver)
}

type locationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// UpdateLocation records a location heartbeat
// POST /api/v1/drivers/:id/location
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := h.service.UpdateLocation(c.Request.Context(), c.Param("id"), req.Latitude, req.Longitude); err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, gin.H{"updated": true})
}

type presenceRequest struct {
	Online    *bool `json:"online" binding:"required"`
	Available *bool `json:"available" binding:"required"`
}

// SetPresence flips the online/available flags
// POST /api/v1/drivers/:id/presence
func (h *Handler) SetPresence(c *gin.Context) {
	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := h.service.SetPresence(c.Request.Context(), c.Param("id"), *req.Online, *req.Available); err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, gin.H{"updated": true})
}

// Earnings returns the driver's earnings windows
// GET /api/v1/drivers/:id/earnings
func (h *Handler) Earnings(c *gin.Context) {
	summary, err := h.service.EarningsSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, summary)
}

// Ratings returns the driver's rating average, count, and histogram
// GET /api/v1/drivers/:id/ratings
func (h *Handler) Ratings(c *gin.Context) {
	stats, err := h.service.RatingStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, stats)
}
