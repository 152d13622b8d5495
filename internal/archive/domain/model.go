package domain

import "time"

// CategoryContext groups categories, e.g. "Subject" or "Retention".
type CategoryContext struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:191;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (CategoryContext) TableName() string { return "category_contexts" }

type Category struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	ContextID int64     `json:"context_id,string" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

type Classification struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Classification) TableName() string { return "document_classifications" }
