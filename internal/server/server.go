package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	archivedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/authorization"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/blob"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	divisiondomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
	documentdomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/document/domain"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability"
	obslogger "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/logger"
	obsmetrics "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	obstracing "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/tracing"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/ratelimit"
	stockopnamedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

// maxUploadBytes bounds multipart bodies kept in memory.
const maxUploadBytes = 64 << 20

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Params struct {
	fx.In

	Engine       *gin.Engine
	Log          *zap.Logger
	Authz        authorization.Service
	Documents    documentdomain.Service
	Quota        quotadomain.Service
	Blob         blob.Store
	StockOpnames stockopnamedomain.Service
	Inventory    inventorydomain.Service
	Divisions    divisiondomain.Service
	Archive      archivedomain.Service
	Limiter      ratelimit.Limiter `optional:"true"`
}

type Server struct {
	engine         *gin.Engine
	log            *zap.Logger
	authzSvc       authorization.Service
	documentSvc    documentdomain.Service
	quotaSvc       quotadomain.Service
	blobs          blob.Store
	stockOpnameSvc stockopnamedomain.Service
	inventorySvc   inventorydomain.Service
	divisionSvc    divisiondomain.Service
	archiveSvc     archivedomain.Service
	limiter        ratelimit.Limiter
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:         p.Engine,
		log:            p.Log.Named("http.server"),
		authzSvc:       p.Authz,
		documentSvc:    p.Documents,
		quotaSvc:       p.Quota,
		blobs:          p.Blob,
		stockOpnameSvc: p.StockOpnames,
		inventorySvc:   p.Inventory,
		divisionSvc:    p.Divisions,
		archiveSvc:     p.Archive,
		limiter:        p.Limiter,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Unlimited{}
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api", ActorFromHeaders())

	api.GET("/documents", s.require(authorization.DocumentView), s.ListDocuments)
	api.POST("/documents", s.require(authorization.DocumentCreate), s.limitUploads(), s.UploadDocument)
	api.GET("/documents/:id", s.require(authorization.DocumentView), s.GetDocument)
	api.GET("/documents/:id/file", s.require(authorization.DocumentView), s.DownloadDocument)
	api.PUT("/documents/:id", s.require(authorization.DocumentUpdate), s.limitUploads(), s.UpdateDocument)
	api.DELETE("/documents/:id", s.require(authorization.DocumentDelete), s.DeleteDocument)

	api.GET("/storage-quotas", s.require(authorization.StorageQuotaView), s.ListStorageQuotas)
	api.GET("/storage-quotas/:division_id", s.require(authorization.StorageQuotaView), s.GetStorageQuota)
	api.PUT("/storage-quotas/:division_id", s.require(authorization.StorageQuotaManage), s.SetStorageQuota)
	api.POST("/storage-quotas/:division_id/reconcile", s.require(authorization.StorageQuotaManage), s.ReconcileStorageQuota)

	api.GET("/stock-opnames", s.require(authorization.StockOpnameView), s.ListStockOpnames)
	api.POST("/stock-opnames", s.require(authorization.StockOpnameCreate), s.CreateStockOpname)
	api.GET("/stock-opnames/:id", s.require(authorization.StockOpnameView), s.GetStockOpname)
	api.POST("/stock-opnames/:id/process", s.require(authorization.StockOpnameProcess), s.ProcessStockOpname)
	api.POST("/stock-opnames/:id/finalize", s.require(authorization.StockOpnameFinalize), s.FinalizeStockOpname)

	api.POST("/items", s.require(authorization.InventoryRecord), s.CreateItem)
	api.GET("/items/:id", s.require(authorization.InventoryView), s.GetItem)
	api.GET("/items/:id/transactions", s.require(authorization.InventoryView), s.ListItemTransactions)
	api.POST("/items/:id/transactions", s.require(authorization.InventoryRecord), s.RecordItemTransaction)

	api.GET("/divisions", s.ListDivisions)
	api.POST("/divisions", s.require(authorization.DivisionManage), s.CreateDivision)
	api.PATCH("/divisions/:id", s.require(authorization.DivisionManage), s.SetDivisionActive)

	api.GET("/archive/contexts", s.ListCategoryContexts)
	api.POST("/archive/contexts", s.require(authorization.ArchiveManage), s.CreateCategoryContext)
	api.GET("/archive/categories", s.ListCategories)
	api.POST("/archive/categories", s.require(authorization.ArchiveManage), s.CreateCategory)
	api.GET("/archive/classifications", s.ListClassifications)
	api.POST("/archive/classifications", s.require(authorization.ArchiveManage), s.CreateClassification)
}
