package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type gatewayConfigSummary struct {
	Provider  string `json:"provider"`
	Active    bool   `json:"active"`
	UpdatedAt string `json:"updated_at"`
}

// ListGatewayConfigs never returns credential material, only status.
func (s *Server) ListGatewayConfigs(c *gin.Context) {
	configs, err := s.gatewaySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]gatewayConfigSummary, 0, len(configs))
	for _, cfg := range configs {
		resp = append(resp, gatewayConfigSummary{
			Provider:  cfg.Provider,
			Active:    cfg.Active,
			UpdatedAt: cfg.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaveGatewayConfig(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	if err := s.gatewaySvc.Save(c.Request.Context(), provider, req); err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAudit(c, "gateway_config.saved", "payment_gateway_config", provider)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type setGatewayActiveRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) SetGatewayConfigActive(c *gin.Context) {
	var req setGatewayActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	if err := s.gatewaySvc.SetActive(c.Request.Context(), provider, *req.Active); err != nil {
		AbortWithError(c, err)
		return
	}

	s.writeAudit(c, "gateway_config.toggled", "payment_gateway_config", provider)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeAudit records an admin action. Audit failures never block the
// request itself.
func (s *Server) writeAudit(c *gin.Context, action, entityType, entityID string) {
	_ = s.auditSvc.AuditLog(c.Request.Context(), "admin", action, entityType, entityID, nil)
}
