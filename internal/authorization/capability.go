package authorization

import "strings"

// Capability names one guarded operation as "<object>.<action>".
type Capability string

const (
	DocumentView   Capability = "document.view"
	DocumentCreate Capability = "document.create"
	DocumentUpdate Capability = "document.update"
	DocumentDelete Capability = "document.delete"

	StorageQuotaView   Capability = "storage_quota.view"
	StorageQuotaManage Capability = "storage_quota.manage"

	StockOpnameView     Capability = "stock_opname.view"
	StockOpnameCreate   Capability = "stock_opname.create"
	StockOpnameProcess  Capability = "stock_opname.process"
	StockOpnameFinalize Capability = "stock_opname.finalize"

	InventoryView   Capability = "inventory.view"
	InventoryRecord Capability = "inventory.record"

	DivisionManage Capability = "division.manage"
	ArchiveManage  Capability = "archive.manage"
)

var capabilities = []Capability{
	DocumentView, DocumentCreate, DocumentUpdate, DocumentDelete,
	StorageQuotaView, StorageQuotaManage,
	StockOpnameView, StockOpnameCreate, StockOpnameProcess, StockOpnameFinalize,
	InventoryView, InventoryRecord,
	DivisionManage, ArchiveManage,
}

// Capabilities returns the closed capability set.
func Capabilities() []Capability {
	out := make([]Capability, len(capabilities))
	copy(out, capabilities)
	return out
}

func (c Capability) Object() string {
	object, _, _ := strings.Cut(string(c), ".")
	return object
}

func (c Capability) Valid() bool {
	for _, known := range capabilities {
		if c == known {
			return true
		}
	}
	return false
}

const (
	RoleSuperadmin     = "superadmin"
	RoleArchiveAdmin   = "archive_admin"
	RoleWarehouseAdmin = "warehouse_admin"
	RoleDivisionAdmin  = "division_admin"
	RoleStaff          = "staff"
)

// IsDivisionScoped reports whether the role may only target its own division.
func IsDivisionScoped(role string) bool {
	switch normalizeRole(role) {
	case RoleDivisionAdmin, RoleStaff:
		return true
	default:
		return false
	}
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func subject(role string) string {
	return "role:" + normalizeRole(role)
}
