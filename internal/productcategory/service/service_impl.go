package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/productcategory/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/smallbiznis/gymcore/pkg/db/option"
	"github.com/smallbiznis/gymcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var sortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Store repository.Repository[domain.ProductCategory]
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	store repository.Repository[domain.ProductCategory]
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("productcategory.service"),
		genID: p.GenID,
		clock: p.Clock,
		store: p.Store,
	}
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

	existing, err := s.store.FindOne(ctx, &domain.ProductCategory{GymID: gymID, Name: name})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrNameTaken
	}

	now := s.clock.Now()
	category := &domain.ProductCategory{
		ID:          s.genID.Generate(),
		GymID:       gymID,
		Name:        name,
		Description: normalize(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, category); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}
	return toResponse(category), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	category, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(category), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	items, err := s.store.Find(ctx, &domain.ProductCategory{GymID: gymID},
		option.WithSortBy(option.WithQuerySortBy(req.SortBy, req.OrderBy, sortColumns)),
	)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, *toResponse(item))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	category, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		if name != category.Name {
			taken, err := s.store.FindOne(ctx, &domain.ProductCategory{GymID: category.GymID, Name: name})
			if err != nil {
				return nil, err
			}
			if taken != nil {
				return nil, domain.ErrNameTaken
			}
		}
		category.Name = name
		values["name"] = name
	}
	if req.Description != nil {
		category.Description = normalize(req.Description)
		values["description"] = category.Description
	}
	if len(values) == 0 {
		return toResponse(category), nil
	}

	category.UpdatedAt = s.clock.Now()
	values["updated_at"] = category.UpdatedAt

	if _, err := s.store.Update(ctx, &domain.ProductCategory{ID: category.ID, GymID: category.GymID}, values); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}
	return toResponse(category), nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.ProductCategory, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	categoryID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	category, err := s.store.FindOne(ctx, &domain.ProductCategory{ID: categoryID, GymID: gymID})
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrNotFound
	}
	return category, nil
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

func toResponse(c *domain.ProductCategory) *domain.Response {
	return &domain.Response{
		ID:          c.ID.String(),
		GymID:       c.GymID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
