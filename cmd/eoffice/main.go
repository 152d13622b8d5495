package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/archive"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/authorization"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/blob"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/clock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/division"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/document"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/migration"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/quota"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/ratelimit"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/scheduler"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/scopelock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/server"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		scopelock.Module,
		blob.Module,
		ratelimit.Module,

		// Domains
		authorization.Module,
		quota.Module,
		division.Module,
		archive.Module,
		inventory.Module,
		stockopname.Module,
		document.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
