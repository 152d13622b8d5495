package repository

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Repository[domain.Division]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{Repository: repository.ProvideStore[domain.Division](db)}
}
