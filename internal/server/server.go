package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/audit"
	auditdomain "github.com/seawell/laguna/internal/audit/domain"
	"github.com/seawell/laguna/internal/cart"
	cartdomain "github.com/seawell/laguna/internal/cart/domain"
	"github.com/seawell/laguna/internal/catalog"
	catalogdomain "github.com/seawell/laguna/internal/catalog/domain"
	"github.com/seawell/laguna/internal/category"
	categorydomain "github.com/seawell/laguna/internal/category/domain"
	"github.com/seawell/laguna/internal/checkout"
	checkoutdomain "github.com/seawell/laguna/internal/checkout/domain"
	"github.com/seawell/laguna/internal/config"
	"github.com/seawell/laguna/internal/gatewayconfig"
	gatewaydomain "github.com/seawell/laguna/internal/gatewayconfig/domain"
	"github.com/seawell/laguna/internal/notification"
	"github.com/seawell/laguna/internal/observability"
	obsmiddleware "github.com/seawell/laguna/internal/observability/logger"
	obsmetrics "github.com/seawell/laguna/internal/observability/metrics"
	obstracing "github.com/seawell/laguna/internal/observability/tracing"
	"github.com/seawell/laguna/internal/order"
	orderservice "github.com/seawell/laguna/internal/order/service"
	"github.com/seawell/laguna/internal/payment"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
	"github.com/seawell/laguna/internal/providers"
	"github.com/seawell/laguna/internal/providers/pdf"
	"github.com/seawell/laguna/internal/ratelimit"
	"github.com/seawell/laguna/internal/review"
	reviewdomain "github.com/seawell/laguna/internal/review/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	gatewayconfig.Module,
	audit.Module,
	catalog.Module,
	category.Module,
	review.Module,
	ratelimit.Module,
	cart.Module,
	checkout.Module,
	order.Module,
	notification.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	catalogSvc  catalogdomain.Service
	categorySvc categorydomain.Service
	reviewSvc   reviewdomain.Service
	cartSvc     cartdomain.Service
	checkoutSvc checkoutdomain.Service
	orderSvc    *orderservice.Service
	paymentSvc  paymentdomain.Service
	gatewaySvc  gatewaydomain.Service
	auditSvc    auditdomain.Service
	pdfProvider *pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	CatalogSvc  catalogdomain.Service
	CategorySvc categorydomain.Service
	ReviewSvc   reviewdomain.Service
	CartSvc     cartdomain.Service
	CheckoutSvc checkoutdomain.Service
	OrderSvc    *orderservice.Service
	PaymentSvc  paymentdomain.Service
	GatewaySvc  gatewaydomain.Service
	AuditSvc    auditdomain.Service
	PDFProvider *pdf.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		catalogSvc:  p.CatalogSvc,
		categorySvc: p.CategorySvc,
		reviewSvc:   p.ReviewSvc,
		cartSvc:     p.CartSvc,
		checkoutSvc: p.CheckoutSvc,
		orderSvc:    p.OrderSvc,
		paymentSvc:  p.PaymentSvc,
		gatewaySvc:  p.GatewaySvc,
		auditSvc:    p.AuditSvc,
		pdfProvider: p.PDFProvider,
	}

	svc.registerStorefrontRoutes()
	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerStorefrontRoutes() {
	api := s.engine.Group("/api")

	api.GET("/categories", s.ListCategories)
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProduct)
	api.GET("/products/:id/reviews", s.ListProductReviews)
	api.POST("/products/:id/reviews", s.SubmitReview)

	api.GET("/cart", s.GetCart)
	api.POST("/cart/items", s.AddCartItem)
	api.PATCH("/cart/items/:product_id", s.UpdateCartItem)
	api.DELETE("/cart", s.ClearCart)

	api.POST("/checkout", s.CreateCheckoutSession)

	api.GET("/orders/:session_id", s.GetOrdersBySession)
	api.GET("/orders/:session_id/receipt", s.GetOrderReceipt)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/api/payments/webhooks/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminAuthRequired())

	admin.POST("/categories", s.CreateCategory)
	admin.PATCH("/categories/:id", s.UpdateCategory)
	admin.DELETE("/categories/:id", s.DeleteCategory)

	admin.POST("/products", s.CreateProduct)
	admin.PATCH("/products/:id", s.UpdateProduct)
	admin.GET("/products", s.AdminListProducts)

	admin.GET("/products/:id/reviews", s.AdminListProductReviews)
	admin.POST("/reviews/:id/approve", s.ApproveReview)
	admin.DELETE("/reviews/:id", s.DeleteReview)

	admin.GET("/orders", s.AdminListOrders)

	admin.GET("/gateway-configs", s.ListGatewayConfigs)
	admin.PUT("/gateway-configs/:provider", s.SaveGatewayConfig)
	admin.POST("/gateway-configs/:provider/active", s.SetGatewayConfigActive)

	admin.GET("/audit-logs", s.ListAuditLogs)
}
