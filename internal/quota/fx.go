package quota

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/repository"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
