package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	archivedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/blob"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/clock"
	divisiondomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/document/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/logger"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Quota         quotadomain.Service
	Blob          blob.Store
	Divisions     divisiondomain.Service
	Archive       archivedomain.Service
	Clock         clock.Clock
	Metrics       *metrics.Metrics       `optional:"true"`
	LedgerMetrics *metrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	quota         quotadomain.Service
	blob          blob.Store
	divisions     divisiondomain.Service
	archive       archivedomain.Service
	clock         clock.Clock
	metrics       *metrics.Metrics
	ledgerMetrics *metrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("document.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		quota:         p.Quota,
		blob:          p.Blob,
		divisions:     p.Divisions,
		archive:       p.Archive,
		clock:         p.Clock,
		metrics:       p.Metrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

// Upload charges the divisions, stores the blob and writes the document in
// one transaction. An over-quota upload stores nothing.
func (s *Service) Upload(ctx context.Context, req domain.UploadRequest) (*domain.Document, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	fileName := strings.TrimSpace(req.File.Name)
	if fileName == "" || len(req.File.Content) == 0 {
		return nil, domain.ErrInvalidFile
	}
	divisionIDs, err := uniqueIDs(req.DivisionIDs)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := uniqueIDs(req.CategoryIDs)
	if err != nil {
		return nil, err
	}
	userIDs, err := uniqueIDs(req.UserIDs)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.ClassificationID, categoryIDs, divisionIDs); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	doc := &domain.Document{
		ID:               s.genID.Generate().Int64(),
		Title:            title,
		Description:      strings.TrimSpace(req.Description),
		ClassificationID: normalizeRef(req.ClassificationID),
		FileName:         fileName,
		FileSize:         int64(len(req.File.Content)),
		UploaderID:       req.ActorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var stored string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocation, err := s.quota.Reserve(ctx, tx, divisionIDs, doc.FileSize)
		if err != nil {
			return err
		}

		path, err := s.blob.Put(ctx, fileName, req.File.Content)
		if err != nil {
			return fmt.Errorf("store blob: %w", err)
		}
		stored = path
		doc.FilePath = path

		if err := s.repo.Create(ctx, tx, doc); err != nil {
			return err
		}
		if err := s.repo.ReplaceDivisions(ctx, tx, doc.ID, allocation); err != nil {
			return err
		}
		if err := s.repo.ReplaceCategories(ctx, tx, doc.ID, categoryIDs); err != nil {
			return err
		}
		if err := s.repo.ReplaceUsers(ctx, tx, doc.ID, userIDs); err != nil {
			return err
		}
		doc.Divisions = allocationRows(doc.ID, allocation)
		doc.CategoryIDs = categoryIDs
		doc.UserIDs = userIDs
		return nil
	})
	if err != nil {
		if stored != "" {
			s.compensate(ctx, stored)
		}
		s.recordFailure("document.upload", err)
		return nil, err
	}

	s.metrics.RecordDocumentOperation(ctx, "upload")
	s.log.Info("document uploaded",
		zap.Int64("document_id", doc.ID),
		zap.Int64("file_size", doc.FileSize),
		zap.Int("divisions", len(divisionIDs)),
	)
	return doc, nil
}

// Update re-charges the quota whenever the file or the division set changes.
// The replaced blob is removed only after the new state has committed.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Document, error) {
	var title string
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
	}
	if req.File != nil {
		if strings.TrimSpace(req.File.Name) == "" || len(req.File.Content) == 0 {
			return nil, domain.ErrInvalidFile
		}
	}

	var divisionIDs, categoryIDs, userIDs []int64
	var err error
	if req.DivisionIDs != nil {
		if divisionIDs, err = uniqueIDs(*req.DivisionIDs); err != nil {
			return nil, err
		}
	}
	if req.CategoryIDs != nil {
		if categoryIDs, err = uniqueIDs(*req.CategoryIDs); err != nil {
			return nil, err
		}
	}
	if req.UserIDs != nil {
		if userIDs, err = uniqueIDs(*req.UserIDs); err != nil {
			return nil, err
		}
	}
	if err := s.checkReferences(ctx, normalizeRef(req.ClassificationID), categoryIDs, divisionIDs); err != nil {
		return nil, err
	}

	var stored, replaced string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, req.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}

		rows, err := s.repo.ListDivisions(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
		previous := domain.AllocationOf(rows)

		targets := previous.DivisionIDs()
		divisionsChanged := false
		if req.DivisionIDs != nil {
			divisionsChanged = !slices.Equal(divisionIDs, targets)
			targets = divisionIDs
		}

		size := doc.FileSize
		if req.File != nil {
			size = int64(len(req.File.Content))
		}
		if req.File != nil || divisionsChanged {
			allocation, err := s.quota.Replace(ctx, tx, previous, targets, size)
			if err != nil {
				return err
			}
			if err := s.repo.ReplaceDivisions(ctx, tx, doc.ID, allocation); err != nil {
				return err
			}
		}

		if req.File != nil {
			name := strings.TrimSpace(req.File.Name)
			path, err := s.blob.Put(ctx, name, req.File.Content)
			if err != nil {
				return fmt.Errorf("store blob: %w", err)
			}
			stored = path
			replaced = doc.FilePath
			doc.FileName = name
			doc.FilePath = path
			doc.FileSize = size
		}

		if req.Title != nil {
			doc.Title = title
		}
		if req.Description != nil {
			doc.Description = strings.TrimSpace(*req.Description)
		}
		if req.ClassificationID != nil {
			doc.ClassificationID = normalizeRef(req.ClassificationID)
		}
		doc.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, doc); err != nil {
			return err
		}

		if req.CategoryIDs != nil {
			if err := s.repo.ReplaceCategories(ctx, tx, doc.ID, categoryIDs); err != nil {
				return err
			}
		}
		if req.UserIDs != nil {
			if err := s.repo.ReplaceUsers(ctx, tx, doc.ID, userIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if stored != "" {
			s.compensate(ctx, stored)
		}
		s.recordFailure("document.update", err)
		return nil, err
	}

	if replaced != "" && replaced != stored {
		s.cleanup(ctx, replaced)
	}
	s.metrics.RecordDocumentOperation(ctx, "update")
	return s.Get(ctx, req.DocumentID)
}

// Delete releases the exact persisted allocation and removes the blob after commit.
func (s *Service) Delete(ctx context.Context, req domain.DeleteRequest) error {
	var path string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.repo.FindByIDForUpdate(ctx, tx, req.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}

		rows, err := s.repo.ListDivisions(ctx, tx, doc.ID)
		if err != nil {
			return err
		}
		if err := s.quota.Release(ctx, tx, domain.AllocationOf(rows)); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, doc.ID); err != nil {
			return err
		}
		path = doc.FilePath
		return nil
	})
	if err != nil {
		s.recordFailure("document.delete", err)
		return err
	}

	s.cleanup(ctx, path)
	s.metrics.RecordDocumentOperation(ctx, "delete")
	s.log.Info("document deleted", zap.Int64("document_id", req.DocumentID), zap.Int64("actor_id", req.ActorID))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Document, error) {
	doc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.hydrate(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	after, err := req.Pagination.After()
	if err != nil {
		return domain.ListResponse{}, err
	}
	size := req.Pagination.Size()

	docs, err := s.repo.List(ctx, s.db, req, after, size)
	if err != nil {
		return domain.ListResponse{}, err
	}
	docs, pageInfo := pagination.Page(docs, size, func(doc domain.Document) int64 { return doc.ID })
	for i := range docs {
		if err := s.hydrate(ctx, &docs[i]); err != nil {
			return domain.ListResponse{}, err
		}
	}
	return domain.ListResponse{Documents: docs, PageInfo: pageInfo}, nil
}

func (s *Service) hydrate(ctx context.Context, doc *domain.Document) error {
	rows, err := s.repo.ListDivisions(ctx, s.db, doc.ID)
	if err != nil {
		return err
	}
	categoryIDs, err := s.repo.ListCategoryIDs(ctx, s.db, doc.ID)
	if err != nil {
		return err
	}
	userIDs, err := s.repo.ListUserIDs(ctx, s.db, doc.ID)
	if err != nil {
		return err
	}
	doc.Divisions = rows
	doc.CategoryIDs = categoryIDs
	doc.UserIDs = userIDs
	return nil
}

func (s *Service) checkReferences(ctx context.Context, classificationID *int64, categoryIDs, divisionIDs []int64) error {
	if err := s.divisions.EnsureExist(ctx, divisionIDs); err != nil {
		return referenceErr(err, divisiondomain.ErrNotFound)
	}
	if err := s.archive.EnsureCategoriesExist(ctx, categoryIDs); err != nil {
		return referenceErr(err, archivedomain.ErrCategoryNotFound)
	}
	if classificationID != nil {
		if err := s.archive.EnsureClassificationExists(ctx, *classificationID); err != nil {
			return referenceErr(err, archivedomain.ErrClassificationMissing)
		}
	}
	return nil
}

func referenceErr(err, missing error) error {
	if errors.Is(err, missing) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidReference, err)
	}
	return err
}

// compensate removes a blob written by a transaction that did not commit.
func (s *Service) compensate(ctx context.Context, path string) {
	if err := s.blob.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.metrics.RecordBlobCompensation(ctx, "failed")
		logger.WithContext(ctx, s.log).Warn("orphaned blob after rollback", zap.String("path", path), zap.Error(err))
		return
	}
	s.metrics.RecordBlobCompensation(ctx, "deleted")
}

// cleanup removes a blob no committed document points at anymore.
func (s *Service) cleanup(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.blob.Delete(context.WithoutCancel(ctx), path); err != nil {
		logger.WithContext(ctx, s.log).Warn("failed to delete replaced blob", zap.String("path", path), zap.Error(err))
	}
}

func (s *Service) recordFailure(operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, quotadomain.ErrQuotaExceeded),
		errors.Is(err, quotadomain.ErrInvalidDivision),
		errors.Is(err, quotadomain.ErrInvalidSize):
		return
	}
	s.ledgerMetrics.IncOperationError(operation, err)
}

// uniqueIDs sorts and dedupes ids, rejecting non-positive values.
func uniqueIDs(ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, domain.ErrInvalidReference
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// normalizeRef treats an explicit zero as "no classification".
func normalizeRef(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

func allocationRows(documentID int64, allocation quotadomain.Allocation) []domain.DocumentDivision {
	rows := make([]domain.DocumentDivision, 0, len(allocation))
	for _, id := range allocation.DivisionIDs() {
		rows = append(rows, domain.DocumentDivision{DocumentID: documentID, DivisionID: id, AllocatedSize: allocation[id]})
	}
	return rows
}
