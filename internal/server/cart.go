package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cartdomain "github.com/seawell/laguna/internal/cart/domain"
)

func (s *Server) GetCart(c *gin.Context) {
	resp, err := s.cartSvc.Get(c.Request.Context(), cartToken(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddCartItem(c *gin.Context) {
	var req cartdomain.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cartSvc.AddItem(c.Request.Context(), cartToken(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) UpdateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cartSvc.UpdateItem(c.Request.Context(), cartToken(c), c.Param("product_id"), *req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ClearCart(c *gin.Context) {
	if err := s.cartSvc.Clear(c.Request.Context(), cartToken(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
