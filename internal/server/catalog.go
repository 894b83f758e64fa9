package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	catalogdomain "github.com/seawell/laguna/internal/catalog/domain"
	"github.com/seawell/laguna/pkg/db/pagination"
)

type createProductRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceAmount     int64  `json:"price_amount"`
	Currency        string `json:"currency"`
	DurationMinutes int    `json:"duration_minutes"`
	ImageURL        string `json:"image_url"`
	Active          *bool  `json:"active"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreateRequest{
		CategoryID:      strings.TrimSpace(req.CategoryID),
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		PriceAmount:     req.PriceAmount,
		Currency:        req.Currency,
		DurationMinutes: req.DurationMinutes,
		ImageURL:        req.ImageURL,
		Active:          req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req catalogdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListProducts serves the storefront: active products only.
func (s *Server) ListProducts(c *gin.Context) {
	s.listProducts(c, true)
}

// AdminListProducts includes archived products.
func (s *Server) AdminListProducts(c *gin.Context) {
	s.listProducts(c, false)
}

func (s *Server) listProducts(c *gin.Context, publicOnly bool) {
	var query struct {
		pagination.Pagination
		Category string `form:"category"`
		Name     string `form:"name"`
		Active   string `form:"active"`
		SortBy   string `form:"sort_by"`
		OrderBy  string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := catalogdomain.ListRequest{
		Pagination:   query.Pagination,
		CategorySlug: strings.TrimSpace(query.Category),
		Name:         strings.TrimSpace(query.Name),
		SortBy:       strings.TrimSpace(query.SortBy),
		OrderBy:      strings.TrimSpace(query.OrderBy),
	}
	if publicOnly {
		active := true
		req.Active = &active
	} else if query.Active != "" {
		active, err := parseOptionalBool(query.Active)
		if err != nil {
			AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
			return
		}
		req.Active = active
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetProduct resolves by numeric id first, then by slug.
func (s *Server) GetProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		resp, err = s.catalogSvc.GetBySlug(c.Request.Context(), id)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
