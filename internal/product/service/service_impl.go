package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/product/domain"
	categorydomain "github.com/smallbiznis/gymcore/internal/productcategory/domain"
	"github.com/smallbiznis/gymcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Categories repository.Repository[categorydomain.ProductCategory]
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	categories repository.Repository[categorydomain.ProductCategory]
	genID      *snowflake.Node
	clock      clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("product.service"),
		repo:       p.Repo,
		categories: p.Categories,
		genID:      p.GenID,
		clock:      p.Clock,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	filter := domain.ListFilter{
		Name:    strings.TrimSpace(req.Name),
		Active:  req.Active,
		SortBy:  strings.TrimSpace(req.SortBy),
		OrderBy: strings.TrimSpace(req.OrderBy),
	}
	if raw := strings.TrimSpace(req.CategoryID); raw != "" {
		categoryID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidCategory
		}
		filter.CategoryID = &categoryID
	}

	items, err := s.repo.List(ctx, s.db, gymID, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}

	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price < 0 || req.Price > domain.MaxPrice {
		return nil, domain.ErrInvalidPrice
	}
	if req.StockQuantity < 0 {
		return nil, domain.ErrInvalidStock
	}

	categoryID, err := s.resolveCategory(ctx, gymID, req.CategoryID)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := s.clock.Now()
	p := &domain.Product{
		ID:            s.genID.Generate(),
		GymID:         gymID,
		CategoryID:    categoryID,
		Name:          name,
		Description:   normalize(req.Description),
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		IsActive:      active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Metadata != nil {
		p.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		return nil, err
	}
	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, gymID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	productID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, gymID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = normalize(req.Description)
	}
	if req.CategoryID != nil {
		item.CategoryID, err = s.resolveCategory(ctx, gymID, req.CategoryID)
		if err != nil {
			return nil, err
		}
	}
	if req.Price != nil {
		if *req.Price < 0 || *req.Price > domain.MaxPrice {
			return nil, domain.ErrInvalidPrice
		}
		item.Price = *req.Price
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return nil, domain.ErrInvalidStock
		}
		item.StockQuantity = *req.StockQuantity
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if req.Metadata != nil {
		item.Metadata = datatypes.JSONMap(req.Metadata)
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

// resolveCategory checks that a referenced category belongs to the gym. A nil
// or blank reference means no category.
func (s *Service) resolveCategory(ctx context.Context, gymID snowflake.ID, raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	categoryID, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, domain.ErrInvalidCategory
	}
	category, err := s.categories.FindOne(ctx, &categorydomain.ProductCategory{ID: categoryID, GymID: gymID})
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrInvalidCategory
	}
	return &categoryID, nil
}

func (s *Service) toResponse(p *domain.Product) domain.Response {
	resp := domain.Response{
		ID:            p.ID.String(),
		GymID:         p.GymID.String(),
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.CategoryID != nil {
		categoryID := p.CategoryID.String()
		resp.CategoryID = &categoryID
	}
	if len(p.Metadata) > 0 {
		resp.Metadata = map[string]any(p.Metadata)
	}

	return resp
}

func normalize(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
