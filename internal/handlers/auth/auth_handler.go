// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"bundl-service/internal/domain/user"
	"bundl-service/internal/middleware"
	"bundl-service/internal/pkg/response"
	service "bundl-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// VerificationMessage issues the nonce message a wallet must sign to log in
func (h *AuthHandler) VerificationMessage(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		response.ValidationError(c, "wallet query parameter is required", nil)
		return
	}

	res, err := h.authService.VerificationMessage(c.Request.Context(), wallet)
	if err != nil {
		response.FromError(c, err, "failed to issue verification message")
		return
	}
	response.Success(c, http.StatusOK, "verification message issued", res)
}

// GetMe returns the authenticated user's account
func (h *AuthHandler) GetMe(c *gin.Context) {
	u, err := h.authService.Me(c.Request.Context(), middleware.MustGetWallet(c))
	if err != nil {
		response.FromError(c, err, "account not found")
		return
	}
	response.Success(c, http.StatusOK, "account retrieved", u)
}

// Login exchanges a wallet signature for a bearer token
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid login payload", err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), c.ClientIP(), &req)
	if err != nil {
		response.FromError(c, err, "login failed")
		return
	}
	response.Success(c, http.StatusOK, "authenticated", res)
}
