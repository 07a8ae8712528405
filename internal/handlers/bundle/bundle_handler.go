// internal/handlers/bundle/bundle_handler.go
package bundle

import (
	"net/http"

	domain "bundl-service/internal/domain/bundle"
	"bundl-service/internal/middleware"
	"bundl-service/internal/pkg/response"
	service "bundl-service/internal/service/bundle"

	"github.com/gin-gonic/gin"
)

type BundleHandler struct {
	bundleService *service.BundleService
}

func NewBundleHandler(bundleService *service.BundleService) *BundleHandler {
	return &BundleHandler{bundleService: bundleService}
}

// Preview computes the price curve for a selection without persisting it
func (h *BundleHandler) Preview(c *gin.Context) {
	var req domain.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid preview payload", err)
		return
	}

	preview, err := h.bundleService.Preview(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err, "failed to preview bundle")
		return
	}
	response.Success(c, http.StatusOK, "bundle previewed", preview)
}

// Create commits a previewed selection as an immutable bundle
func (h *BundleHandler) Create(c *gin.Context) {
	var req domain.CreateBundleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid bundle payload", err)
		return
	}

	b, err := h.bundleService.Create(c.Request.Context(), middleware.MustGetUserID(c), middleware.IsAdmin(c), &req)
	if err != nil {
		response.FromError(c, err, "failed to create bundle")
		return
	}
	response.Success(c, http.StatusCreated, "bundle created", b)
}

// List returns the caller's bundles plus the presets
func (h *BundleHandler) List(c *gin.Context) {
	bundles, err := h.bundleService.List(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err, "failed to list bundles")
		return
	}
	response.Success(c, http.StatusOK, "bundles retrieved", bundles)
}

// ListPresets returns the curated bundles
func (h *BundleHandler) ListPresets(c *gin.Context) {
	bundles, err := h.bundleService.ListPresets(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "failed to list preset bundles")
		return
	}
	response.Success(c, http.StatusOK, "preset bundles retrieved", bundles)
}

// Get returns one bundle
func (h *BundleHandler) Get(c *gin.Context) {
	b, err := h.bundleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "bundle not found")
		return
	}
	response.Success(c, http.StatusOK, "bundle retrieved", b)
}

// Deactivate hides a bundle from listings
func (h *BundleHandler) Deactivate(c *gin.Context) {
	err := h.bundleService.Deactivate(c.Request.Context(), c.Param("id"),
		middleware.MustGetUserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.FromError(c, err, "failed to deactivate bundle")
		return
	}
	response.Success(c, http.StatusOK, "bundle deactivated", nil)
}
