package domain

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/repository"
)

type Repository interface {
	repository.Repository[Division]
}
