// internal/handlers/catalog/catalog_handler.go
package catalog

import (
	"net/http"

	domain "bundl-service/internal/domain/catalog"
	"bundl-service/internal/pkg/response"
	service "bundl-service/internal/service/catalog"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ========== Public Endpoints ==========

// ListServices retrieves the active catalog
func (h *CatalogHandler) ListServices(c *gin.Context) {
	services, err := h.catalogService.ListActiveServices(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "failed to list services")
		return
	}
	response.Success(c, http.StatusOK, "services retrieved", services)
}

// GetService retrieves a single service
func (h *CatalogHandler) GetService(c *gin.Context) {
	svc, err := h.catalogService.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "service not found")
		return
	}
	response.Success(c, http.StatusOK, "service retrieved", svc)
}

// ========== Admin Endpoints ==========

// ListAllServices retrieves every service including deactivated ones
func (h *CatalogHandler) ListAllServices(c *gin.Context) {
	services, err := h.catalogService.ListAllServices(c.Request.Context())
	if err != nil {
		response.FromError(c, err, "failed to list services")
		return
	}
	response.Success(c, http.StatusOK, "services retrieved", services)
}

// CreateService registers a service with its packages and offers
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req domain.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid service payload", err)
		return
	}

	svc, err := h.catalogService.CreateService(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err, "failed to create service")
		return
	}
	response.Success(c, http.StatusCreated, "service created", svc)
}

// UpdateService applies partial updates to a service
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var req domain.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid service payload", err)
		return
	}

	svc, err := h.catalogService.UpdateService(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err, "failed to update service")
		return
	}
	response.Success(c, http.StatusOK, "service updated", svc)
}

// DeactivateService soft-deletes a service
func (h *CatalogHandler) DeactivateService(c *gin.Context) {
	if err := h.catalogService.DeactivateService(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err, "failed to deactivate service")
		return
	}
	response.Success(c, http.StatusOK, "service deactivated", nil)
}
