// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"net/http"

	domain "bundl-service/internal/domain/subscription"
	"bundl-service/internal/middleware"
	"bundl-service/internal/pkg/response"
	service "bundl-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// Prepare returns the unsigned wallet-setup instructions for a bundle
func (h *SubscriptionHandler) Prepare(c *gin.Context) {
	var req domain.PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid prepare payload", err)
		return
	}

	res, err := h.subscriptionService.Prepare(c.Request.Context(), middleware.MustGetWallet(c), &req)
	if err != nil {
		response.FromError(c, err, "failed to prepare subscription")
		return
	}
	response.Success(c, http.StatusOK, "subscription prepared", res)
}

// Initiate records the intent and returns the co-signed registration transaction
func (h *SubscriptionHandler) Initiate(c *gin.Context) {
	var req domain.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid initiate payload", err)
		return
	}

	res, err := h.subscriptionService.Initiate(c.Request.Context(),
		middleware.MustGetUserID(c), middleware.MustGetWallet(c), &req)
	if err != nil {
		response.FromError(c, err, "failed to initiate subscription")
		return
	}
	response.Success(c, http.StatusCreated, "subscription initiated", res)
}

// List returns the caller's subscriptions, or the one for a single bundle
// when ?bundleId=xxx is given
func (h *SubscriptionHandler) List(c *gin.Context) {
	if bundleID := c.Query("bundleId"); bundleID != "" {
		sub, err := h.subscriptionService.GetByBundle(c.Request.Context(), middleware.MustGetUserID(c), bundleID)
		if err != nil {
			response.FromError(c, err, "subscription not found")
			return
		}
		response.Success(c, http.StatusOK, "subscription retrieved", sub)
		return
	}

	subs, err := h.subscriptionService.List(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err, "failed to list subscriptions")
		return
	}
	response.Success(c, http.StatusOK, "subscriptions retrieved", subs)
}

// Get returns one subscription
func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, err := h.subscriptionService.Get(c.Request.Context(), middleware.MustGetUserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "subscription not found")
		return
	}
	response.Success(c, http.StatusOK, "subscription retrieved", sub)
}

// Claim redeems one package of an active subscription
func (h *SubscriptionHandler) Claim(c *gin.Context) {
	var req domain.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid claim payload", err)
		return
	}

	sub, err := h.subscriptionService.Claim(c.Request.Context(), middleware.MustGetUserID(c), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err, "failed to claim package")
		return
	}
	response.Success(c, http.StatusOK, "package claimed", sub)
}

// Cancel ends a subscription
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	if err := h.subscriptionService.Cancel(c.Request.Context(), middleware.MustGetUserID(c), c.Param("id")); err != nil {
		response.FromError(c, err, "failed to cancel subscription")
		return
	}
	response.Success(c, http.StatusOK, "subscription cancelled", nil)
}

// Pause suspends billing
func (h *SubscriptionHandler) Pause(c *gin.Context) {
	if err := h.subscriptionService.Pause(c.Request.Context(), middleware.MustGetUserID(c), c.Param("id")); err != nil {
		response.FromError(c, err, "failed to pause subscription")
		return
	}
	response.Success(c, http.StatusOK, "subscription paused", nil)
}

// Resume reinstates billing
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	if err := h.subscriptionService.Resume(c.Request.Context(), middleware.MustGetUserID(c), c.Param("id")); err != nil {
		response.FromError(c, err, "failed to resume subscription")
		return
	}
	response.Success(c, http.StatusOK, "subscription resumed", nil)
}
