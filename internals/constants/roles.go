package constants

import "fmt"

// ==========================
// Role dari claim JWT
// ==========================
const (
	RoleAdmin   = "admin"
	RoleFinance = "finance"
	RoleUser    = "user"
)

// Template pesan error role
const (
	ErrOnlyFinanceStaffCanAccess = "❌ Hanya admin atau finance yang boleh mengakses fitur %s."
	ErrMissingRole               = "Unauthorized: missing role information"
)

func RoleErrorFinanceStaff(feature string) string {
	return fmt.Sprintf(ErrOnlyFinanceStaffCanAccess, feature)
}

// ==========================
// ✅ Grouped Role Slices
// ==========================
var (
	AllRoles = []string{
		RoleUser,
		RoleAdmin,
		RoleFinance,
	}

	// FinanceStaff boleh verifikasi / invoice / cancel cicilan.
	FinanceStaff = []string{
		RoleAdmin,
		RoleFinance,
	}
)
