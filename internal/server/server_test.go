package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	auditdomain "github.com/seawell/laguna/internal/audit/domain"
	cartdomain "github.com/seawell/laguna/internal/cart/domain"
	catalogdomain "github.com/seawell/laguna/internal/catalog/domain"
	categorydomain "github.com/seawell/laguna/internal/category/domain"
	checkoutdomain "github.com/seawell/laguna/internal/checkout/domain"
	"github.com/seawell/laguna/internal/config"
	gatewaydomain "github.com/seawell/laguna/internal/gatewayconfig/domain"
	orderrepo "github.com/seawell/laguna/internal/order/repository"
	orderservice "github.com/seawell/laguna/internal/order/service"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
	reviewdomain "github.com/seawell/laguna/internal/review/domain"
	"github.com/seawell/laguna/internal/server"
)

const adminTestKey = "admin-test-key"

type stubCatalog struct {
	products map[string]*catalogdomain.Response
}

func (s *stubCatalog) Get(ctx context.Context, id string) (*catalogdomain.Response, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, catalogdomain.ErrNotFound
}

func (s *stubCatalog) GetBySlug(ctx context.Context, slug string) (*catalogdomain.Response, error) {
	for _, p := range s.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, catalogdomain.ErrNotFound
}

func (s *stubCatalog) Create(ctx context.Context, req catalogdomain.CreateRequest) (*catalogdomain.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCatalog) Update(ctx context.Context, id string, req catalogdomain.UpdateRequest) (*catalogdomain.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCatalog) List(ctx context.Context, req catalogdomain.ListRequest) (*catalogdomain.ListResponse, error) {
	out := &catalogdomain.ListResponse{Products: []catalogdomain.Response{}}
	for _, p := range s.products {
		if req.Active != nil && p.Active != *req.Active {
			continue
		}
		out.Products = append(out.Products, *p)
	}
	return out, nil
}

type stubCategory struct{}

func (stubCategory) Create(ctx context.Context, req categorydomain.CreateRequest) (*categorydomain.Response, error) {
	return nil, errors.New("not implemented")
}

func (stubCategory) Update(ctx context.Context, id string, req categorydomain.UpdateRequest) (*categorydomain.Response, error) {
	return nil, errors.New("not implemented")
}

func (stubCategory) Delete(ctx context.Context, id string) error { return nil }

func (stubCategory) List(ctx context.Context) ([]categorydomain.Response, error) {
	return []categorydomain.Response{{ID: "1", Name: "Massage", Slug: "massage"}}, nil
}

func (stubCategory) Get(ctx context.Context, id string) (*categorydomain.Response, error) {
	return nil, categorydomain.ErrNotFound
}

func (stubCategory) GetBySlug(ctx context.Context, slug string) (*categorydomain.Response, error) {
	return nil, categorydomain.ErrNotFound
}

type stubReview struct {
	submitErr error
}

func (s *stubReview) Submit(ctx context.Context, req reviewdomain.SubmitRequest) (*reviewdomain.Response, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &reviewdomain.Response{ID: "1", ProductID: req.ProductID, AuthorName: req.AuthorName, Rating: req.Rating}, nil
}

func (s *stubReview) Approve(ctx context.Context, id string) (*reviewdomain.Response, error) {
	return nil, reviewdomain.ErrNotFound
}

func (s *stubReview) Delete(ctx context.Context, id string) error { return nil }

func (s *stubReview) ListByProduct(ctx context.Context, productID string, approvedOnly bool) ([]reviewdomain.Response, error) {
	return []reviewdomain.Response{}, nil
}

type stubCart struct {
	lastToken string
}

func (s *stubCart) Get(ctx context.Context, token string) (*cartdomain.View, error) {
	s.lastToken = token
	return &cartdomain.View{Token: token, Items: []cartdomain.ViewItem{}, Currency: "usd"}, nil
}

func (s *stubCart) AddItem(ctx context.Context, token string, req cartdomain.AddItemRequest) (*cartdomain.View, error) {
	s.lastToken = token
	if req.Quantity < 1 {
		return nil, cartdomain.ErrInvalidQuantity
	}
	return &cartdomain.View{
		Token:       "issued-token",
		Items:       []cartdomain.ViewItem{{ProductID: req.ProductID, Quantity: req.Quantity}},
		TotalAmount: 5000,
		Currency:    "usd",
	}, nil
}

func (s *stubCart) UpdateItem(ctx context.Context, token, productID string, quantity int) (*cartdomain.View, error) {
	return nil, cartdomain.ErrItemNotFound
}

func (s *stubCart) Clear(ctx context.Context, token string) error { return nil }

type stubCheckout struct {
	err error
}

func (s *stubCheckout) CreateSession(ctx context.Context, req checkoutdomain.CreateSessionRequest) (*checkoutdomain.CreateSessionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &checkoutdomain.CreateSessionResponse{SessionID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

type stubPayment struct {
	err error
}

func (s *stubPayment) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	return s.err
}

type stubGateway struct{}

func (stubGateway) Save(ctx context.Context, provider string, config map[string]any) error {
	return nil
}

func (stubGateway) ActiveConfig(ctx context.Context, provider string) (map[string]any, error) {
	return nil, gatewaydomain.ErrConfigNotFound
}

func (stubGateway) SetActive(ctx context.Context, provider string, active bool) error {
	return nil
}

func (stubGateway) List(ctx context.Context) ([]*gatewaydomain.GatewayConfig, error) {
	return []*gatewaydomain.GatewayConfig{{Provider: "stripe", Active: true, UpdatedAt: time.Now().UTC()}}, nil
}

type stubAudit struct{}

func (stubAudit) AuditLog(ctx context.Context, actor string, action string, entityType string, entityID string, metadata map[string]any) error {
	return nil
}

func (stubAudit) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{AuditLogs: []*auditdomain.AuditLog{}}, nil
}

type testServer struct {
	engine   *gin.Engine
	cart     *stubCart
	checkout *stubCheckout
	payment  *stubPayment
	review   *stubReview
	orderSvc *orderservice.Service
	node     *snowflake.Node
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminTestKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash admin key: %v", err)
	}

	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	orderSvc := orderservice.NewService(orderservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  orderrepo.Provide(),
	})

	engine := gin.New()
	engine.Use(server.ErrorHandlingMiddleware())

	cartSvc := &stubCart{}
	checkoutSvc := &stubCheckout{}
	paymentSvc := &stubPayment{}
	reviewSvc := &stubReview{}

	server.NewServer(server.ServerParams{
		Gin: engine,
		Cfg: config.Config{AppName: "laguna", AdminAPIKeyHash: string(hash)},
		DB:  db,
		CatalogSvc: &stubCatalog{products: map[string]*catalogdomain.Response{
			"101": {ID: "101", Name: "Hot Stone Massage", Slug: "hot-stone-massage", PriceAmount: 5000, Currency: "usd", Active: true},
		}},
		CategorySvc: stubCategory{},
		ReviewSvc:   reviewSvc,
		CartSvc:     cartSvc,
		CheckoutSvc: checkoutSvc,
		OrderSvc:    orderSvc,
		PaymentSvc:  paymentSvc,
		GatewaySvc:  stubGateway{},
		AuditSvc:    stubAudit{},
	})

	return &testServer{
		engine:   engine,
		cart:     cartSvc,
		checkout: checkoutSvc,
		payment:  paymentSvc,
		review:   reviewSvc,
		orderSvc: orderSvc,
		node:     node,
	}
}

func (ts *testServer) do(method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHandlePaymentWebhookStatusMapping(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"processed", nil, http.StatusOK},
		{"redelivery", paymentdomain.ErrEventAlreadyProcessed, http.StatusOK},
		{"bad signature", paymentdomain.ErrInvalidSignature, http.StatusBadRequest},
		{"malformed payload", paymentdomain.ErrInvalidPayload, http.StatusBadRequest},
		{"unknown provider", paymentdomain.ErrProviderNotFound, http.StatusNotFound},
		{"unhandled event type", paymentdomain.ErrEventIgnored, http.StatusInternalServerError},
		{"handler failure", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		ts.payment.err = tc.err
		w := ts.do(http.MethodPost, "/api/payments/webhooks/stripe", `{"id":"evt_1"}`, nil)
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.status, w.Code, w.Body.String())
		}
	}
}

func TestAdminAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/admin/gateway-configs", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = ts.do(http.MethodGet, "/admin/gateway-configs", "", map[string]string{"X-Admin-Api-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", w.Code)
	}

	w = ts.do(http.MethodGet, "/admin/gateway-configs", "", map[string]string{"X-Admin-Api-Key": adminTestKey})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid key, got %d (%s)", w.Code, w.Body.String())
	}

	// Credential material never leaves the service.
	if body := w.Body.String(); strings.Contains(body, "encrypted_config") || strings.Contains(body, "secret_key") {
		t.Fatalf("gateway config listing leaked credentials: %s", body)
	}
}

func TestGetProduct(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/products/101", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	data, _ := body["data"].(map[string]any)
	if data["name"] != "Hot Stone Massage" {
		t.Fatalf("unexpected product: %v", data)
	}

	w = ts.do(http.MethodGet, "/api/products/999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	body = decodeBody(t, w)
	errPayload, _ := body["error"].(map[string]any)
	if errPayload["type"] != "not_found" {
		t.Fatalf("unexpected error payload: %v", body)
	}
}

func TestCartRoutes(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/cart", "", map[string]string{"X-Cart-Token": "tok_1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ts.cart.lastToken != "tok_1" {
		t.Fatalf("expected token from header, got %q", ts.cart.lastToken)
	}

	w = ts.do(http.MethodPost, "/api/cart/items", `{"product_id":"101","quantity":2}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	data, _ := body["data"].(map[string]any)
	if data["token"] != "issued-token" {
		t.Fatalf("unexpected cart view: %v", data)
	}

	w = ts.do(http.MethodPost, "/api/cart/items", `not json`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}

	// quantity is required on PATCH.
	w = ts.do(http.MethodPatch, "/api/cart/items/101", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without quantity, got %d", w.Code)
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/checkout", `{"customer_email":"jamie@example.com"}`, map[string]string{"X-Cart-Token": "tok_1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	data, _ := body["data"].(map[string]any)
	if data["session_id"] != "cs_test_1" {
		t.Fatalf("unexpected response: %v", data)
	}

	ts.checkout.err = checkoutdomain.ErrEmptyCart
	w = ts.do(http.MethodPost, "/api/checkout", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", w.Code)
	}

	ts.checkout.err = checkoutdomain.ErrDuplicateRequest
	w = ts.do(http.MethodPost, "/api/checkout", `{}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate request, got %d", w.Code)
	}

	ts.checkout.err = checkoutdomain.ErrGatewayUnavailable
	w = ts.do(http.MethodPost, "/api/checkout", `{}`, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when gateway is down, got %d", w.Code)
	}
}

func TestSubmitReviewRateLimited(t *testing.T) {
	ts := newTestServer(t)

	ts.review.submitErr = reviewdomain.ErrRateLimited
	w := ts.do(http.MethodPost, "/api/products/101/reviews", `{"author_name":"Jamie","rating":5}`, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestGetOrdersBySession(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	event := &paymentdomain.CheckoutEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		Type:            paymentdomain.EventTypeCheckoutCompleted,
		SessionID:       "cs_700",
		CustomerEmail:   "jamie@example.com",
		CustomerName:    "Jamie",
		Currency:        "usd",
		OccurredAt:      time.Now().UTC(),
		Lines: []paymentdomain.LineItem{
			{ProductID: ts.node.Generate().String(), Name: "Massage", Quantity: 1, UnitAmount: 5000, Amount: 5000},
		},
	}
	if _, err := ts.orderSvc.Materialize(ctx, event); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	w := ts.do(http.MethodGet, "/api/orders/cs_700", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	data, _ := body["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 order, got %v", body)
	}
	order, _ := data[0].(map[string]any)
	if order["product_name"] != "Massage" || order["status"] != "paid" {
		t.Fatalf("unexpected order: %v", order)
	}

	w = ts.do(http.MethodGet, "/api/orders/cs_missing", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty session, got %d", w.Code)
	}
}

func TestAdminListOrdersRequiresFilter(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/admin/orders", "", map[string]string{"X-Admin-Api-Key": adminTestKey})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without filter, got %d", w.Code)
	}

	w = ts.do(http.MethodGet, "/admin/orders?session_id=cs_1", "", map[string]string{"X-Admin-Api-Key": adminTestKey})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with session filter, got %d (%s)", w.Code, w.Body.String())
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_server_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			session_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			product_id BIGINT NOT NULL,
			product_name TEXT NOT NULL DEFAULT '',
			quantity BIGINT NOT NULL,
			unit_amount BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			user_ref TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_orders_session_product ON orders(session_id, product_id)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}
