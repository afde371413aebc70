package rides

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch/pkg/common"
)

// Handler handles HTTP requests for rides
type Handler struct {
	service    *Service
	dispatcher Dispatcher
}

// NewHandler creates a new ride handler
func NewHandler(service *Service, dispatcher Dispatcher) *Handler {
	return &Handler{service: service, dispatcher: dispatcher}
}

// RegisterRoutes attaches the ride endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rides := rg.Group("/rides")
	{
		rides.POST("/quote", h.GetQuote)
		rides.POST("", h.Book)
		rides.GET("/:id", h.GetRide)
		rides.POST("/:id/accept", h.Accept)
		rides.POST("/:id/advance", h.Advance)
		rides.POST("/:id/complete", h.Complete)
		rides.POST("/:id/cancel", h.Cancel)
		rides.POST("/:id/rate", h.Rate)
	}
}

// GetQuote returns a fare and eco estimate for a prospective trip
// POST /api/v1/rides/quote
func (h *Handler) GetQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	quote, err := h.service.GetQuote(c.Request.Context(), &req)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, quote)
}

// Book creates a ride and starts the driver search
// POST /api/v1/rides
func (h *Handler) Book(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ride, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.CreatedResponse(c, ride)
}

// GetRide returns a ride by id
// GET /api/v1/rides/:id
func (h *Handler) GetRide(c *gin.Context) {
	ride, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, ride)
}

type acceptRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// Accept lets a driver claim an offered ride; first acceptor wins
// POST /api/v1/rides/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ride, err := h.dispatcher.Accept(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, ride)
}

type advanceRequest struct {
	TargetStatus Status `json:"target_status" binding:"required"`
}

// Advance moves a ride one lifecycle step forward
// POST /api/v1/rides/:id/advance
func (h *Handler) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ride, warnings, err := h.service.Advance(c.Request.Context(), c.Param("id"), req.TargetStatus)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	respondWithWarnings(c, ride, warnings)
}

// Complete settles an in-progress ride off the recorded actuals
// POST /api/v1/rides/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ride, warnings, err := h.service.Complete(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	respondWithWarnings(c, ride, warnings)
}

type cancelRequest struct {
	Actor  Actor  `json:"actor" binding:"required"`
	Reason string `json:"reason"`
}

// Cancel cancels a non-terminal ride
// POST /api/v1/rides/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	ride, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req.Actor, req.Reason)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, gin.H{
		"ride":             ride,
		"cancellation_fee": ride.CancellationFee,
	})
}

type rateRequest struct {
	Rater    Actor  `json:"rater" binding:"required"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Feedback string `json:"feedback"`
}

// Rate records a 1-5 rating for a completed ride
// POST /api/v1/rides/:id/rate
func (h *Handler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if err := h.service.Rate(c.Request.Context(), c.Param("id"), req.Rater, req.Rating, req.Feedback); err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, gin.H{"rated": true})
}

func respondWithWarnings(c *gin.Context, ride *Ride, warnings []string) {
	if len(warnings) > 0 {
		common.SuccessResponseWithWarning(c, ride, strings.Join(warnings, "; "))
		return
	}
	common.SuccessResponse(c, ride)
}
