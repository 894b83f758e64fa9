package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	headerAdminAPIKey = "X-Admin-Api-Key"
	headerCartToken   = "X-Cart-Token"
)

// AdminAuthRequired guards admin routes with a static API key checked
// against the bcrypt hash from config. No hash configured means admin
// routes are disabled entirely.
func (s *Server) AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		hash := strings.TrimSpace(s.cfg.AdminAPIKeyHash)
		if hash == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key := strings.TrimSpace(c.GetHeader(headerAdminAPIKey))
		if key == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

func cartToken(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(headerCartToken))
}
