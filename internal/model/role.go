package model

import "strings"

// Role is the authorization role carried in the access token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// Capability names one thing a role may do. Every role-dependent branch in
// the booking flow goes through Role.Can instead of comparing role names.
type Capability int

const (
	// CapViewAnyBooking lets the actor read, confirm and update bookings of
	// any customer.
	CapViewAnyBooking Capability = iota
	// CapBookForCustomer lets the actor book on behalf of a customer found by
	// phone number.
	CapBookForCustomer
	CapFilterByCustomer
	CapLookupByCode
	CapUpdateBooking
	CapDeleteBooking
	CapCleanupBookings
	CapManageCustomers
	CapManageStaff
)

var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapViewAnyBooking:   true,
		CapBookForCustomer:  true,
		CapFilterByCustomer: true,
		CapLookupByCode:     true,
		CapUpdateBooking:    true,
		CapDeleteBooking:    true,
		CapCleanupBookings:  true,
		CapManageCustomers:  true,
		CapManageStaff:      true,
	},
	RoleStaff: {
		CapViewAnyBooking:   true,
		CapBookForCustomer:  true,
		CapFilterByCustomer: true,
		CapLookupByCode:     true,
		CapUpdateBooking:    true,
		CapManageCustomers:  true,
	},
	RoleCustomer: {},
}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

func (r Role) IsValid() bool {
	_, ok := capabilities[r]
	return ok
}

// Can reports whether r holds capability c. Unknown roles hold nothing.
func (r Role) Can(c Capability) bool { return capabilities[r][c] }

// RolesWith lists the roles holding c, in a stable order. Route guards use it
// so the role lists never drift from the capability table.
func RolesWith(c Capability) []string {
	out := make([]string, 0, 3)
	for _, r := range []Role{RoleAdmin, RoleStaff, RoleCustomer} {
		if r.Can(c) {
			out = append(out, string(r))
		}
	}
	return out
}

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	ID   uint64
	Role Role
}
