package repository

import (
	"context"
	"errors"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/document/domain"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO documents (id, title, description, classification_id, file_name, file_path, file_size, uploader_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.ClassificationID,
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.UploaderID,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Exec(
		`UPDATE documents
		 SET title = ?, description = ?, classification_id = ?, file_name = ?, file_path = ?, file_size = ?, updated_at = ?
		 WHERE id = ?`,
		doc.Title,
		doc.Description,
		doc.ClassificationID,
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.UpdatedAt,
		doc.ID,
	).Error
}

// Delete removes the document row and every link table row pointing at it.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	for _, stmt := range []string{
		`DELETE FROM document_divisions WHERE document_id = ?`,
		`DELETE FROM document_categories WHERE document_id = ?`,
		`DELETE FROM document_users WHERE document_id = ?`,
		`DELETE FROM documents WHERE id = ?`,
	} {
		if err := db.WithContext(ctx).Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT id, title, description, classification_id, file_name, file_path, file_size, uploader_id, created_at, updated_at
		 FROM documents WHERE id = ?`,
		id,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest, after int64, size int) ([]domain.Document, error) {
	stmt := db.WithContext(ctx).Model(&domain.Document{})
	if filter.DivisionID != nil {
		stmt = stmt.Where("id IN (SELECT document_id FROM document_divisions WHERE division_id = ?)", *filter.DivisionID)
	}
	if filter.UserID != nil {
		stmt = stmt.Where("(uploader_id = ? OR id IN (SELECT document_id FROM document_users WHERE user_id = ?))", *filter.UserID, *filter.UserID)
	}
	if filter.CategoryID != nil {
		stmt = stmt.Where("id IN (SELECT document_id FROM document_categories WHERE category_id = ?)", *filter.CategoryID)
	}
	stmt = option.WithKeyset("id", after, size).Apply(stmt)

	var docs []domain.Document
	if err := stmt.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) ListDivisions(ctx context.Context, db *gorm.DB, documentID int64) ([]domain.DocumentDivision, error) {
	var rows []domain.DocumentDivision
	err := db.WithContext(ctx).Raw(
		`SELECT document_id, division_id, allocated_size
		 FROM document_divisions WHERE document_id = ? ORDER BY division_id ASC`,
		documentID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ReplaceDivisions(ctx context.Context, db *gorm.DB, documentID int64, allocation quotadomain.Allocation) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM document_divisions WHERE document_id = ?`, documentID).Error; err != nil {
		return err
	}
	if len(allocation) == 0 {
		return nil
	}
	rows := make([]domain.DocumentDivision, 0, len(allocation))
	for _, divisionID := range allocation.DivisionIDs() {
		rows = append(rows, domain.DocumentDivision{
			DocumentID:    documentID,
			DivisionID:    divisionID,
			AllocatedSize: allocation[divisionID],
		})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) ListCategoryIDs(ctx context.Context, db *gorm.DB, documentID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT category_id FROM document_categories WHERE document_id = ? ORDER BY category_id ASC`,
		documentID,
	).Scan(&ids).Error
	return ids, err
}

func (r *repo) ReplaceCategories(ctx context.Context, db *gorm.DB, documentID int64, categoryIDs []int64) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM document_categories WHERE document_id = ?`, documentID).Error; err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]domain.DocumentCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		rows = append(rows, domain.DocumentCategory{DocumentID: documentID, CategoryID: id})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) ListUserIDs(ctx context.Context, db *gorm.DB, documentID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT user_id FROM document_users WHERE document_id = ? ORDER BY user_id ASC`,
		documentID,
	).Scan(&ids).Error
	return ids, err
}

func (r *repo) ReplaceUsers(ctx context.Context, db *gorm.DB, documentID int64, userIDs []int64) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM document_users WHERE document_id = ?`, documentID).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]domain.DocumentUser, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, domain.DocumentUser{DocumentID: documentID, UserID: id})
	}
	return db.WithContext(ctx).Create(&rows).Error
}
