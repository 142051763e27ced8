package identity

// Role is the coarse-grained access level of a user
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleAccountant Role = "ACCOUNTANT"
	RoleViewer     Role = "VIEWER"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleViewer:
		return true
	}
	return false
}

// Permission strings follow the resource:action convention
const (
	PermShipmentRead  = "shipment:read"
	PermShipmentWrite = "shipment:write"
	PermPaymentRead   = "payment:read"
	PermPaymentWrite  = "payment:write"
	PermRateRead      = "rate:read"
	PermRateWrite     = "rate:write"
	PermSupplierRead  = "supplier:read"
	PermSupplierWrite = "supplier:write"
	PermReportRead    = "report:read"
	PermUserManage    = "user:manage"
)

// rolePermissions is the fixed permission map; roles are not editable at
// runtime
var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermShipmentRead, PermShipmentWrite,
		PermPaymentRead, PermPaymentWrite,
		PermRateRead, PermRateWrite,
		PermSupplierRead, PermSupplierWrite,
		PermReportRead, PermUserManage,
	},
	RoleAccountant: {
		PermShipmentRead, PermShipmentWrite,
		PermPaymentRead, PermPaymentWrite,
		PermRateRead, PermRateWrite,
		PermSupplierRead, PermSupplierWrite,
		PermReportRead,
	},
	RoleViewer: {
		PermShipmentRead, PermPaymentRead,
		PermRateRead, PermSupplierRead,
		PermReportRead,
	},
}

// Permissions returns the permission strings granted to the role
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission checks whether the role grants the permission
func (r Role) HasPermission(permission string) bool {
	for _, p := range rolePermissions[r] {
		if p == permission {
			return true
		}
	}
	return false
}
