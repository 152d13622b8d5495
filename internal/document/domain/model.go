package domain

import (
	"time"

	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
)

// Document is an archived file. FileSize always equals the stored blob length.
type Document struct {
	ID               int64     `json:"id,string" gorm:"primaryKey"`
	Title            string    `json:"title" gorm:"type:text;not null"`
	Description      string    `json:"description" gorm:"type:text"`
	ClassificationID *int64    `json:"classification_id,string,omitempty" gorm:"index"`
	FileName         string    `json:"file_name" gorm:"type:text;not null"`
	FilePath         string    `json:"file_path" gorm:"type:text;not null"`
	FileSize         int64     `json:"file_size" gorm:"not null"`
	UploaderID       int64     `json:"uploader_id,string" gorm:"not null;index"`
	CreatedAt        time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"not null"`

	Divisions   []DocumentDivision `json:"divisions" gorm:"-"`
	CategoryIDs []int64            `json:"category_ids" gorm:"-"`
	UserIDs     []int64            `json:"user_ids" gorm:"-"`
}

func (Document) TableName() string { return "documents" }

// DocumentDivision is the bytes a document charges one division's quota.
type DocumentDivision struct {
	DocumentID    int64 `json:"document_id,string" gorm:"primaryKey;autoIncrement:false"`
	DivisionID    int64 `json:"division_id,string" gorm:"primaryKey;autoIncrement:false;index"`
	AllocatedSize int64 `json:"allocated_size" gorm:"not null;default:0"`
}

func (DocumentDivision) TableName() string { return "document_divisions" }

type DocumentCategory struct {
	DocumentID int64 `gorm:"primaryKey;autoIncrement:false"`
	CategoryID int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

func (DocumentCategory) TableName() string { return "document_categories" }

type DocumentUser struct {
	DocumentID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID     int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

func (DocumentUser) TableName() string { return "document_users" }

// AllocationOf rebuilds the persisted quota allocation of a document.
func AllocationOf(rows []DocumentDivision) quotadomain.Allocation {
	allocation := make(quotadomain.Allocation, len(rows))
	for _, row := range rows {
		allocation[row.DivisionID] = row.AllocatedSize
	}
	return allocation
}

// Models lists every table the document module owns.
func Models() []any {
	return []any{&Document{}, &DocumentDivision{}, &DocumentCategory{}, &DocumentUser{}}
}
