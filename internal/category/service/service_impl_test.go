package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/category/domain"
	"github.com/seawell/laguna/internal/category/repository"
	"github.com/seawell/laguna/internal/category/service"
)

func newCategoryService(t *testing.T) domain.Service {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	return service.NewService(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateCategoryGeneratesSlug(t *testing.T) {
	ctx := context.Background()
	svc := newCategoryService(t)

	created, err := svc.Create(ctx, domain.CreateRequest{
		Name:        "Massage Therapy",
		Description: "Full body treatments",
		Position:    2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Slug != "massage-therapy" {
		t.Fatalf("unexpected slug: %s", created.Slug)
	}
	if created.ID == "" {
		t.Fatalf("expected an id")
	}

	got, err := svc.GetBySlug(ctx, "massage-therapy")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.Name != "Massage Therapy" || got.Position != 2 {
		t.Fatalf("unexpected category: %+v", got)
	}
}

func TestCreateCategoryDuplicateSlug(t *testing.T) {
	ctx := context.Background()
	svc := newCategoryService(t)

	if _, err := svc.Create(ctx, domain.CreateRequest{Name: "Facials"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, domain.CreateRequest{Name: "Facials"}); !errors.Is(err, domain.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestCreateCategoryValidation(t *testing.T) {
	ctx := context.Background()
	svc := newCategoryService(t)

	if _, err := svc.Create(ctx, domain.CreateRequest{Name: "   "}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestListCategoriesOrdersByPosition(t *testing.T) {
	ctx := context.Background()
	svc := newCategoryService(t)

	for _, c := range []struct {
		name     string
		position int
	}{
		{"Wellness", 3},
		{"Massage", 1},
		{"Facials", 2},
	} {
		if _, err := svc.Create(ctx, domain.CreateRequest{Name: c.name, Position: c.position}); err != nil {
			t.Fatalf("create %s: %v", c.name, err)
		}
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(items))
	}
	if items[0].Name != "Massage" || items[1].Name != "Facials" || items[2].Name != "Wellness" {
		t.Fatalf("unexpected order: %s, %s, %s", items[0].Name, items[1].Name, items[2].Name)
	}
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	svc := newCategoryService(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Body Treatments"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	description := "Wraps and scrubs"
	position := 5
	updated, err := svc.Update(ctx, created.ID, domain.UpdateRequest{
		Description: &description,
		Position:    &position,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "Wraps and scrubs" || updated.Position != 5 {
		t.Fatalf("unexpected category: %+v", updated)
	}
	if updated.Name != "Body Treatments" {
		t.Fatalf("untouched field changed: %s", updated.Name)
	}

	if _, err := svc.Update(ctx, "12345", domain.UpdateRequest{Description: &description}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, "not-a-number", domain.UpdateRequest{}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	svc := newCategoryService(t)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Seasonal"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_categories_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE categories (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_categories_slug ON categories(slug)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}
