package document

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/document/repository"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
