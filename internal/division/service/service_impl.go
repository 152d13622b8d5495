package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Quota  quotadomain.Service
	Policy *config.PolicyHolder
}

type Service struct {
	log    *zap.Logger
	repo   domain.Repository
	genID  *snowflake.Node
	quota  quotadomain.Service
	policy *config.PolicyHolder
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("division.service"),
		repo:   p.Repo,
		genID:  p.GenID,
		quota:  p.Quota,
		policy: p.Policy,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Division, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	existing, err := s.repo.FindOne(ctx, &domain.Division{Code: code})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}

	now := time.Now().UTC()
	division := &domain.Division{
		ID:        s.genID.Generate().Int64(),
		Name:      name,
		Code:      code,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, division); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}

	if defaultMax := s.policy.Get().StorageQuota.DefaultMaxSize; defaultMax > 0 {
		if err := s.quota.SetMax(ctx, division.ID, defaultMax); err != nil {
			s.log.Warn("failed to apply default storage quota",
				zap.Int64("division_id", division.ID),
				zap.Error(err),
			)
		}
	}

	return division, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Division, error) {
	division, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if division == nil {
		return nil, domain.ErrNotFound
	}
	return division, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Division, error) {
	filter := &domain.Division{}
	opts := []option.QueryOption{}
	if name := strings.TrimSpace(req.Name); name != "" {
		opts = append(opts, option.WithWhere("name LIKE ?", "%"+name+"%"))
	}
	if req.Active != nil {
		// A zero-value bool in the struct filter is ignored by gorm.
		opts = append(opts, option.WithWhere("active = ?", *req.Active))
	}
	sortBy := option.WithQuerySortBy(req.SortBy, req.OrderBy, map[string]bool{
		"name":       true,
		"code":       true,
		"created_at": true,
	})
	if sortBy == "" {
		sortBy = "name ASC"
	}
	opts = append(opts, option.WithSortBy(sortBy))

	items, err := s.repo.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Division, 0, len(items))
	for _, item := range items {
		resp = append(resp, *item)
	}
	return resp, nil
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*domain.Division, error) {
	division, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.Update(ctx, id, map[string]any{
		"active":     active,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}

	division.Active = active
	division.UpdatedAt = now
	return division, nil
}

func (s *Service) EnsureExist(ctx context.Context, ids []int64) error {
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

	items, err := s.repo.Find(ctx, nil, option.WithWhere("id IN ?", keys))
	if err != nil {
		return err
	}
	if len(items) != len(keys) {
		return domain.ErrNotFound
	}
	return nil
}
