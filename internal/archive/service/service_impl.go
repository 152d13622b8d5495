package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("archive.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) CreateContext(ctx context.Context, req domain.CreateContextRequest) (*domain.CategoryContext, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	item := &domain.CategoryContext{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Contexts.Create(ctx, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}
	return item, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	parent, err := s.repo.Contexts.FindByID(ctx, req.ContextID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, domain.ErrContextNotFound
	}

	item := &domain.Category{
		ID:        s.genID.Generate().Int64(),
		ContextID: parent.ID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Categories.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) CreateClassification(ctx context.Context, req domain.CreateClassificationRequest) (*domain.Classification, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	item := &domain.Classification{
		ID:        s.genID.Generate().Int64(),
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Classifications.Create(ctx, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}
	return item, nil
}

func (s *Service) ListContexts(ctx context.Context) ([]domain.CategoryContext, error) {
	items, err := s.repo.Contexts.Find(ctx, nil, option.WithSortBy("name ASC"))
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) ListCategories(ctx context.Context, contextID *int64) ([]domain.Category, error) {
	opts := []option.QueryOption{option.WithSortBy("name ASC")}
	if contextID != nil {
		opts = append(opts, option.WithWhere("context_id = ?", *contextID))
	}
	items, err := s.repo.Categories.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) ListClassifications(ctx context.Context) ([]domain.Classification, error) {
	items, err := s.repo.Classifications.Find(ctx, nil, option.WithSortBy("code ASC"))
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) EnsureCategoriesExist(ctx context.Context, ids []int64) error {
	unique := map[int64]struct{}{}
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return nil
	}
	keys := make([]int64, 0, len(unique))
	for id := range unique {
		keys = append(keys, id)
	}

	items, err := s.repo.Categories.Find(ctx, nil, option.WithWhere("id IN ?", keys))
	if err != nil {
		return err
	}
	if len(items) != len(keys) {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (s *Service) EnsureClassificationExists(ctx context.Context, id int64) error {
	item, err := s.repo.Classifications.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrClassificationMissing
	}
	return nil
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}
