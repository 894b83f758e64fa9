package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	orderdomain "github.com/seawell/laguna/internal/order/domain"
	orderrepo "github.com/seawell/laguna/internal/order/repository"
	orderservice "github.com/seawell/laguna/internal/order/service"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
)

func newOrderService(t *testing.T) (*orderservice.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := orderservice.NewService(orderservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  orderrepo.Provide(),
	})
	return svc, db, node
}

func checkoutEvent(node *snowflake.Node, sessionID string, lines []paymentdomain.LineItem) *paymentdomain.CheckoutEvent {
	var total int64
	for _, l := range lines {
		total += l.Amount
	}
	return &paymentdomain.CheckoutEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_" + sessionID,
		Type:            paymentdomain.EventTypeCheckoutCompleted,
		SessionID:       sessionID,
		CustomerEmail:   "jamie@example.com",
		CustomerName:    "Jamie",
		AmountTotal:     total,
		Currency:        "usd",
		Lines:           lines,
		OccurredAt:      time.Now().UTC(),
	}
}

func TestMaterializeCreatesOrderPerLine(t *testing.T) {
	ctx := context.Background()
	svc, db, node := newOrderService(t)

	p1 := node.Generate()
	lines := []paymentdomain.LineItem{
		{ProductID: p1.String(), Name: "Hot Stone Massage", Quantity: 1, UnitAmount: 5000, Amount: 5000},
		{ProductID: node.Generate().String(), Name: "Facial", Quantity: 2, UnitAmount: 2500, Amount: 5000},
	}
	event := checkoutEvent(node, "cs_600", lines)

	created, err := svc.Materialize(ctx, event)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}

	orders, err := svc.ListBySession(ctx, "cs_600")
	if err != nil {
		t.Fatalf("list by session: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	first := orders[0]
	if first.ProductID != p1 || first.ProductName != "Hot Stone Massage" {
		t.Fatalf("unexpected first order: %+v", first)
	}
	if first.Status != orderdomain.StatusPaid {
		t.Fatalf("expected status paid, got %s", first.Status)
	}
	if first.TotalAmount != 5000 || first.Currency != "usd" {
		t.Fatalf("unexpected amounts: %+v", first)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM orders", 2)
}

func TestMaterializeIsIdempotentPerLine(t *testing.T) {
	ctx := context.Background()
	svc, db, node := newOrderService(t)

	lines := []paymentdomain.LineItem{
		{ProductID: node.Generate().String(), Name: "Sauna", Quantity: 1, UnitAmount: 3000, Amount: 3000},
	}
	event := checkoutEvent(node, "cs_610", lines)

	if _, err := svc.Materialize(ctx, event); err != nil {
		t.Fatalf("first materialize: %v", err)
	}
	created, err := svc.Materialize(ctx, event)
	if err != nil {
		t.Fatalf("second materialize: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected 0 created on replay, got %d", created)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM orders", 1)
}

func TestMaterializeSkipsUnresolvableLines(t *testing.T) {
	ctx := context.Background()
	svc, db, node := newOrderService(t)

	lines := []paymentdomain.LineItem{
		{ProductID: node.Generate().String(), Name: "Massage", Quantity: 1, UnitAmount: 5000, Amount: 5000},
		{ProductID: "", Name: "Deleted Product", Quantity: 1, UnitAmount: 1000, Amount: 1000},
		{ProductID: "not-a-number", Name: "Corrupt Metadata", Quantity: 1, UnitAmount: 500, Amount: 500},
	}
	event := checkoutEvent(node, "cs_620", lines)

	created, err := svc.Materialize(ctx, event)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected 1 created, got %d", created)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM orders", 1)

	count, err := svc.CountBySession(ctx, "cs_620")
	if err != nil {
		t.Fatalf("count by session: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestListByEmailNormalizesAndLimits(t *testing.T) {
	ctx := context.Background()
	svc, _, node := newOrderService(t)

	for i := 0; i < 3; i++ {
		sessionID := fmt.Sprintf("cs_63%d", i)
		lines := []paymentdomain.LineItem{
			{ProductID: node.Generate().String(), Name: "Facial", Quantity: 1, UnitAmount: 2500, Amount: 2500},
		}
		if _, err := svc.Materialize(ctx, checkoutEvent(node, sessionID, lines)); err != nil {
			t.Fatalf("materialize %s: %v", sessionID, err)
		}
	}

	orders, err := svc.ListByEmail(ctx, "  JAMIE@example.com ", 2)
	if err != nil {
		t.Fatalf("list by email: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders with limit, got %d", len(orders))
	}

	orders, err = svc.ListByEmail(ctx, "nobody@example.com", 10)
	if err != nil {
		t.Fatalf("list by email: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
}

func TestFindByID(t *testing.T) {
	ctx := context.Background()
	svc, _, node := newOrderService(t)

	lines := []paymentdomain.LineItem{
		{ProductID: node.Generate().String(), Name: "Body Wrap", Quantity: 1, UnitAmount: 8000, Amount: 8000},
	}
	if _, err := svc.Materialize(ctx, checkoutEvent(node, "cs_640", lines)); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	orders, err := svc.ListBySession(ctx, "cs_640")
	if err != nil || len(orders) != 1 {
		t.Fatalf("list by session: %v, %d orders", err, len(orders))
	}

	found, err := svc.FindByID(ctx, orders[0].ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if found == nil || found.SessionID != "cs_640" {
		t.Fatalf("unexpected order: %+v", found)
	}

	missing, err := svc.FindByID(ctx, node.Generate())
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_orders_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64) {
	t.Helper()

	var count int64
	if err := db.Raw(query).Scan(&count).Error; err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d, got %d", expected, count)
	}
}
