package stockopname

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/repository"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/service"
	"go.uber.org/fx"
)

var Module = fx.Module("stockopname.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
