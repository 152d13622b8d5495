package authorization

import (
	"context"
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads persisted grants through the gorm adapter and seeds the
// default grants on top of them.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func New(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role string, capability Capability) error {
	if normalizeRole(role) == "" {
		return ErrInvalidRole
	}
	if !capability.Valid() {
		return ErrUnknownCapability
	}

	allowed, err := s.enforcer.Enforce(subject(role), capability.Object(), string(capability))
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("role", normalizeRole(role)),
			zap.String("capability", string(capability)),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	grants := map[string][]Capability{
		RoleArchiveAdmin: {
			DocumentView, DocumentCreate, DocumentUpdate, DocumentDelete,
			StorageQuotaView, StorageQuotaManage,
			ArchiveManage,
		},
		RoleWarehouseAdmin: {
			StockOpnameView, StockOpnameCreate, StockOpnameProcess, StockOpnameFinalize,
			InventoryView, InventoryRecord,
		},
		RoleDivisionAdmin: {
			DocumentView, DocumentCreate, DocumentUpdate, DocumentDelete,
			StorageQuotaView,
			StockOpnameView, StockOpnameCreate, StockOpnameProcess, StockOpnameFinalize,
			InventoryView, InventoryRecord,
		},
		RoleStaff: {
			DocumentView, DocumentCreate,
			InventoryView,
		},
		RoleSuperadmin: {
			DivisionManage,
		},
	}

	for role, caps := range grants {
		for _, capability := range caps {
			if _, err := enforcer.AddPolicy(subject(role), capability.Object(), string(capability)); err != nil {
				return err
			}
		}
	}

	// Superadmin inherits both administrative roles.
	for _, inherited := range []string{RoleArchiveAdmin, RoleWarehouseAdmin} {
		if _, err := enforcer.AddGroupingPolicy(subject(RoleSuperadmin), subject(inherited)); err != nil {
			return err
		}
	}
	return nil
}
