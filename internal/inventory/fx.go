package inventory

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/repository"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
