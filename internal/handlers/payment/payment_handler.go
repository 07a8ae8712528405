// internal/handlers/payment/payment_handler.go
package payment

import (
	"net/http"
	"strconv"

	"bundl-service/internal/pkg/response"
	service "bundl-service/internal/service/payment"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	orchestrator *service.Orchestrator
}

func NewPaymentHandler(orchestrator *service.Orchestrator) *PaymentHandler {
	return &PaymentHandler{orchestrator: orchestrator}
}

// Trigger attempts one pull payment for a subscription. Admin/scheduler surface.
func (h *PaymentHandler) Trigger(c *gin.Context) {
	res, err := h.orchestrator.TriggerPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "payment pull failed")
		return
	}
	response.Success(c, http.StatusOK, "payment pulled", res)
}

// TriggerDue sweeps all subscriptions past their payment date. ?limit=n caps
// the batch, default 100.
func (h *PaymentHandler) TriggerDue(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		response.ValidationError(c, "limit must be a positive integer", err)
		return
	}

	results, err := h.orchestrator.TriggerDuePayments(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err, "due billing sweep failed")
		return
	}
	response.Success(c, http.StatusOK, "due billing sweep finished", results)
}
