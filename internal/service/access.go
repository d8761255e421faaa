package service

import "github.com/iliyamo/cinema-booking/internal/model"

// CanAccessBooking reports whether actor may see b. Staff and admins see
// every booking; a customer only their own. Callers report a denial exactly
// like a missing booking so existence is never revealed.
func CanAccessBooking(actor model.Actor, b *model.Booking) bool {
	if b == nil {
		return false
	}
	return actor.Role.Can(model.CapViewAnyBooking) || b.CustomerID == actor.ID
}
