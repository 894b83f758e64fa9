package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	checkoutdomain "github.com/seawell/laguna/internal/checkout/domain"
)

type createCheckoutRequest struct {
	UserRef       string `json:"user_ref"`
	CustomerEmail string `json:"customer_email"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.CreateSession(c.Request.Context(), checkoutdomain.CreateSessionRequest{
		CartToken:      cartToken(c),
		UserRef:        strings.TrimSpace(req.UserRef),
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
