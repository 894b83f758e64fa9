package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	reviewdomain "github.com/seawell/laguna/internal/review/domain"
)

type submitReviewRequest struct {
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Rating      int    `json:"rating"`
	Body        string `json:"body"`
}

func (s *Server) SubmitReview(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reviewSvc.Submit(c.Request.Context(), reviewdomain.SubmitRequest{
		ProductID:   c.Param("id"),
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Rating:      req.Rating,
		Body:        req.Body,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProductReviews(c *gin.Context) {
	resp, err := s.reviewSvc.ListByProduct(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdminListProductReviews(c *gin.Context) {
	resp, err := s.reviewSvc.ListByProduct(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveReview(c *gin.Context) {
	resp, err := s.reviewSvc.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteReview(c *gin.Context) {
	if err := s.reviewSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
