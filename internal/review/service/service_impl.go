package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/seawell/laguna/internal/catalog/domain"
	"github.com/seawell/laguna/internal/observability/obscontext"
	"github.com/seawell/laguna/internal/ratelimit"
	"github.com/seawell/laguna/internal/review/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	CatalogSvc catalogdomain.Service
	Limiter    *ratelimit.ReviewLimiter
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	catalogSvc catalogdomain.Service
	limiter    *ratelimit.ReviewLimiter
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("review.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		catalogSvc: p.CatalogSvc,
		limiter:    p.Limiter,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Response, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, domain.ErrInvalidRating
	}

	authorName := strings.TrimSpace(req.AuthorName)
	if authorName == "" {
		return nil, domain.ErrInvalidAuthor
	}

	productID, err := strconv.ParseInt(strings.TrimSpace(req.ProductID), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidProduct
	}
	if _, err := s.catalogSvc.Get(ctx, strconv.FormatInt(productID, 10)); err != nil {
		return nil, domain.ErrInvalidProduct
	}

	if !s.limiter.Allow(ctx, obscontext.ClientIPFromContext(ctx)) {
		return nil, domain.ErrRateLimited
	}

	review := &domain.Review{
		ID:          s.genID.Generate().Int64(),
		ProductID:   productID,
		AuthorName:  authorName,
		AuthorEmail: strings.ToLower(strings.TrimSpace(req.AuthorEmail)),
		Rating:      req.Rating,
		Body:        strings.TrimSpace(req.Body),
		Approved:    false,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, review); err != nil {
		return nil, err
	}

	resp := toResponse(review)
	return &resp, nil
}

func (s *Service) Approve(ctx context.Context, id string) (*domain.Response, error) {
	review, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !review.Approved {
		review.Approved = true
		if err := s.repo.Update(ctx, s.db, review); err != nil {
			return nil, err
		}
	}

	resp := toResponse(review)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	review, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, review.ID)
}

func (s *Service) ListByProduct(ctx context.Context, productID string, approvedOnly bool) ([]domain.Response, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(productID), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidProduct
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		ProductID:    parsed,
		ApprovedOnly: approvedOnly,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	return resp, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Review, error) {
	reviewID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	review, err := s.repo.FindByID(ctx, s.db, reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, domain.ErrNotFound
	}
	return review, nil
}

func toResponse(r *domain.Review) domain.Response {
	return domain.Response{
		ID:         strconv.FormatInt(r.ID, 10),
		ProductID:  strconv.FormatInt(r.ProductID, 10),
		AuthorName: r.AuthorName,
		Rating:     r.Rating,
		Body:       r.Body,
		Approved:   r.Approved,
		CreatedAt:  r.CreatedAt,
	}
}
