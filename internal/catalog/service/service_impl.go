package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/catalog/domain"
	categorydomain "github.com/seawell/laguna/internal/category/domain"
	"github.com/seawell/laguna/pkg/db"
	"github.com/seawell/laguna/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	CategorySvc categorydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	categorySvc categorydomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("catalog.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		categorySvc: p.CategorySvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.PriceAmount <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	var categoryID int64
	if raw := strings.TrimSpace(req.CategoryID); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidCategory
		}
		category, err := s.categorySvc.Get(ctx, raw)
		if err != nil {
			return nil, domain.ErrInvalidCategory
		}
		if category == nil {
			return nil, domain.ErrInvalidCategory
		}
		categoryID = parsed
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:              s.genID.Generate().Int64(),
		CategoryID:      categoryID,
		Name:            name,
		Slug:            slug.Make(name),
		Description:     strings.TrimSpace(req.Description),
		PriceAmount:     req.PriceAmount,
		Currency:        currency,
		DurationMinutes: req.DurationMinutes,
		ImageURL:        strings.TrimSpace(req.ImageURL),
		Active:          active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, s.db, product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	resp := s.toResponse(product)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	productID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	product, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.PriceAmount != nil {
		if *req.PriceAmount <= 0 {
			return nil, domain.ErrInvalidPrice
		}
		product.PriceAmount = *req.PriceAmount
	}
	if req.Currency != nil {
		currency := strings.ToLower(strings.TrimSpace(*req.Currency))
		if currency != "" {
			product.Currency = currency
		}
	}
	if req.DurationMinutes != nil {
		product.DurationMinutes = *req.DurationMinutes
	}
	if req.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return nil, err
	}

	resp := s.toResponse(product)
	return &resp, nil
}

// sortColumns is the allowlist of sortable product columns; anything else
// is rejected before it reaches the query.
var sortColumns = map[string]bool{
	"name":         true,
	"price_amount": true,
	"created_at":   true,
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{
		Name:   strings.TrimSpace(req.Name),
		Active: req.Active,
	}

	sortBy := strings.TrimSpace(req.SortBy)
	if sortBy != "" && !sortColumns[sortBy] {
		return nil, domain.ErrInvalidSort
	}
	filter.SortColumn = sortBy
	switch strings.ToLower(strings.TrimSpace(req.OrderBy)) {
	case "", "asc":
	case "desc":
		if sortBy == "" {
			return nil, domain.ErrInvalidSort
		}
		filter.SortDesc = true
	default:
		return nil, domain.ErrInvalidSort
	}

	if categorySlug := strings.TrimSpace(req.CategorySlug); categorySlug != "" {
		category, err := s.categorySvc.GetBySlug(ctx, categorySlug)
		if err != nil {
			return nil, domain.ErrInvalidCategory
		}
		parsed, err := strconv.ParseInt(category.ID, 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidCategory
		}
		filter.CategoryID = parsed
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}
	filter.Limit = limit

	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		id, err := strconv.ParseInt(decoded.ID, 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		cursor := &domain.Cursor{ID: id}
		if filter.SortColumn != "" {
			value, err := decodeSortValue(filter.SortColumn, decoded.Value)
			if err != nil {
				return nil, domain.ErrInvalidID
			}
			cursor.Value = value
		}
		filter.Cursor = cursor
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(p *domain.Product) string {
		cursor := pagination.Cursor{ID: strconv.FormatInt(p.ID, 10)}
		if filter.SortColumn != "" {
			cursor.Value = encodeSortValue(filter.SortColumn, p)
		}
		token, err := pagination.EncodeCursor(cursor)
		if err != nil {
			return ""
		}
		return token
	})

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(item))
	}

	return &domain.ListResponse{
		PageInfo: *pageInfo,
		Products: resp,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	productID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	product, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(product)
	return &resp, nil
}

func (s *Service) GetBySlug(ctx context.Context, productSlug string) (*domain.Response, error) {
	productSlug = strings.TrimSpace(productSlug)
	if productSlug == "" {
		return nil, domain.ErrInvalidID
	}

	product, err := s.repo.FindBySlug(ctx, s.db, productSlug)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(product)
	return &resp, nil
}

// decodeSortValue rebuilds the typed sort-column value carried in a page
// token. Types must match the column so the keyset comparison binds
// natively on both sqlite and postgres.
func decodeSortValue(column, raw string) (any, error) {
	switch column {
	case "price_amount":
		return strconv.ParseInt(raw, 10, 64)
	case "created_at":
		return time.Parse(time.RFC3339Nano, raw)
	default:
		return raw, nil
	}
}

func encodeSortValue(column string, p *domain.Product) string {
	switch column {
	case "name":
		return p.Name
	case "price_amount":
		return strconv.FormatInt(p.PriceAmount, 10)
	case "created_at":
		return p.CreatedAt.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

func (s *Service) toResponse(p *domain.Product) domain.Response {
	resp := domain.Response{
		ID:              strconv.FormatInt(p.ID, 10),
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		PriceAmount:     p.PriceAmount,
		Currency:        p.Currency,
		DurationMinutes: p.DurationMinutes,
		ImageURL:        p.ImageURL,
		Active:          p.Active,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.CategoryID != 0 {
		resp.CategoryID = strconv.FormatInt(p.CategoryID, 10)
	}
	return resp
}
