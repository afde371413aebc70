package subscriptions

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch/pkg/common"
)

// Handler handles HTTP requests for subscriptions
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a new subscription handler
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes attaches the subscription endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	subs := rg.Group("/subscriptions")
	{
		subs.POST("/plans", h.CreatePlan)
		subs.GET("/plans", h.ListPlans)
		subs.POST("", h.Subscribe)
		subs.GET("/:id", h.GetSubscription)
		subs.POST("/:id/cancel", h.CancelSubscription)
		subs.GET("/riders/:rider_id/active", h.GetActive)
	}
}

// CreatePlan adds a purchasable plan
// POST /api/v1/subscriptions/plans
func (h *Handler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	plan, err := h.ledger.CreatePlan(c.Request.Context(), &req)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.CreatedResponse(c, plan)
}

// ListPlans lists purchasable plans
// GET /api/v1/subscriptions/plans
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.ledger.ListPlans(c.Request.Context())
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, plans)
}

type subscribeRequest struct {
	RiderID string `json:"rider_id" binding:"required"`
	PlanID  string `json:"plan_id" binding:"required"`
}

// Subscribe purchases a plan for a rider
// POST /api/v1/subscriptions
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	sub, err := h.ledger.Subscribe(c.Request.Context(), req.RiderID, req.PlanID)
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.CreatedResponse(c, sub)
}

// GetSubscription returns a subscription by id
// GET /api/v1/subscriptions/:id
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.ledger.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, sub)
}

// CancelSubscription ends a subscription early
// POST /api/v1/subscriptions/:id/cancel
func (h *Handler) CancelSubscription(c *gin.Context) {
	sub, err := h.ledger.CancelSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	common.SuccessResponse(c, sub)
}

// GetActive returns a rider's active subscription
// GET /api/v1/subscriptions/riders/:rider_id/active
func (h *Handler) GetActive(c *gin.Context) {
	sub, err := h.ledger.ActiveForRider(c.Request.Context(), c.Param("rider_id"))
	if err != nil {
		common.AppErrorResponse(c, common.AsAppError(err))
		return
	}
	if sub == nil {
		common.AppErrorResponse(c, common.NewNotFoundError("no active subscription", nil))
		return
	}
	common.SuccessResponse(c, sub)
}
