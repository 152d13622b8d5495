package repository

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) domain.Repository {
	return domain.Repository{
		Contexts:        repository.ProvideStore[domain.CategoryContext](db),
		Categories:      repository.ProvideStore[domain.Category](db),
		Classifications: repository.ProvideStore[domain.Classification](db),
	}
}
