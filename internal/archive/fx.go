package archive

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/repository"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/service"
	"go.uber.org/fx"
)

var Module = fx.Module("archive.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
