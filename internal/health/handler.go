// Package health provides health check endpoint handler.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusHealthy = "healthy"
	serviceName   = "deployment-frequency-collector"
)

// Response represents health check response.
type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Handler handles health check requests. It reports liveness only and never
// touches the store or the source.
type Handler struct{}

// New creates a new health handler instance.
func New() *Handler {
	return &Handler{}
}

// Check handles GET /health request.
func (h *Handler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Status:  statusHealthy,
		Service: serviceName,
	})
}

// RegisterRoutes registers the health endpoint on r.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Check)
	r.HEAD("/health", h.Check)
}
