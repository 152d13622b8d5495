package division

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/division/repository"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/division/service"
	"go.uber.org/fx"
)

var Module = fx.Module("division.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
