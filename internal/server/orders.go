package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	notificationservice "github.com/seawell/laguna/internal/notification/service"
	orderdomain "github.com/seawell/laguna/internal/order/domain"
	"github.com/seawell/laguna/internal/providers/pdf"
)

func (s *Server) GetOrdersBySession(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	orders, err := s.orderSvc.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) AdminListOrders(c *gin.Context) {
	var query struct {
		SessionID string `form:"session_id"`
		Email     string `form:"email"`
		Limit     int    `form:"limit,default=50"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var (
		orders []*orderdomain.Order
		err    error
	)
	switch {
	case strings.TrimSpace(query.SessionID) != "":
		orders, err = s.orderSvc.ListBySession(c.Request.Context(), strings.TrimSpace(query.SessionID))
	case strings.TrimSpace(query.Email) != "":
		orders, err = s.orderSvc.ListByEmail(c.Request.Context(), strings.TrimSpace(query.Email), query.Limit)
	default:
		AbortWithError(c, newValidationError("filter", "missing_filter", "session_id or email is required"))
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

// GetOrderReceipt renders a PDF receipt once orders exist for the session.
func (s *Server) GetOrderReceipt(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	orders, err := s.orderSvc.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(orders) == 0 {
		AbortWithError(c, ErrNotFound)
		return
	}

	receipt := pdf.ReceiptData{
		StoreName: s.cfg.AppName,
		SessionID: sessionID,
		DatePaid:  orders[0].CreatedAt.Format("Jan 2, 2006"),
	}

	var total int64
	currency := ""
	for _, o := range orders {
		if receipt.CustomerName == "" {
			receipt.CustomerName = o.CustomerName
		}
		if receipt.CustomerEmail == "" {
			receipt.CustomerEmail = o.CustomerEmail
		}
		if currency == "" {
			currency = o.Currency
		}
		total += o.TotalAmount
		receipt.Lines = append(receipt.Lines, pdf.ReceiptLine{
			Description: o.ProductName,
			Qty:         int(o.Quantity),
			UnitPrice:   notificationservice.FormatAmount(o.UnitAmount, o.Currency),
			Amount:      notificationservice.FormatAmount(o.TotalAmount, o.Currency),
		})
	}
	receipt.Total = notificationservice.FormatAmount(total, currency)

	doc, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), receipt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	raw, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+sessionID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", raw)
}
