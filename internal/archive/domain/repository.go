package domain

import "github.com/syaokifaradisa9/e-office-app-sub001/pkg/repository"

type Repository struct {
	Contexts        repository.Repository[CategoryContext]
	Categories      repository.Repository[Category]
	Classifications repository.Repository[Classification]
}
