// Package rbac defines permission identifiers and the cached permission set
// for the console. A permission identifier is "<module>.<action>" over a
// fixed catalog of modules and actions; the backend grants a flat set of
// these strings per user.
package rbac

// Module is a console module that permissions are scoped to.
type Module string

const (
	ModuleUsers          Module = "users"
	ModuleTheaters       Module = "theaters"
	ModuleHalls          Module = "halls"
	ModuleSeats          Module = "seats"
	ModuleMovies         Module = "movies"
	ModuleShowtimes      Module = "showtimes"
	ModuleBookings       Module = "bookings"
	ModuleBookingDetails Module = "bookingDetails"
	ModuleInvoices       Module = "invoices"
	ModulePayments       Module = "payments"
	ModulePromotions     Module = "promotions"
	ModuleDashboard      Module = "dashboard"
	ModuleAnalytics      Module = "analytics"
	ModuleSettings       Module = "settings"
	ModuleSystem         Module = "system"
)

// Action is an operation within a module.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Modules lists every known module in catalog order.
func Modules() []Module {
	return []Module{
		ModuleUsers, ModuleTheaters, ModuleHalls, ModuleSeats, ModuleMovies,
		ModuleShowtimes, ModuleBookings, ModuleBookingDetails, ModuleInvoices,
		ModulePayments, ModulePromotions, ModuleDashboard, ModuleAnalytics,
		ModuleSettings, ModuleSystem,
	}
}

// IsValid returns true if the module is part of the catalog.
func (m Module) IsValid() bool {
	for _, known := range Modules() {
		if m == known {
			return true
		}
	}
	return false
}

// IsValid returns true if the action is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete, ActionManage:
		return true
	default:
		return false
	}
}

// ID builds the permission identifier for a module/action pair.
func ID(m Module, a Action) string {
	return string(m) + "." + string(a)
}
