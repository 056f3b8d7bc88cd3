package model

import "time"

// Days of the weekly grid, in display order.  Reservation days are stored
// as these three-letter names.
var Days = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// HoursPerDay is the number of bookable hour slots per day.  Time indices
// run from 0 to HoursPerDay-1.
const HoursPerDay = 24

// PrivilegedSlots are the pre-dawn time indices that may only be booked
// together, and only by privileged roles.  They form an atomic unit: a
// request touching any of them must request all of them.
var PrivilegedSlots = map[int]bool{0: true, 1: true, 2: true, 3: true}

// Slot identifies one bookable cell in the weekly grid.
type Slot struct {
	Day       string `json:"day"`
	TimeIndex int    `json:"time_index"`
}

// Valid reports whether the slot names a real cell: a known day and a
// time index inside the grid.
func (s Slot) Valid() bool {
	if s.TimeIndex < 0 || s.TimeIndex >= HoursPerDay {
		return false
	}
	for _, d := range Days {
		if s.Day == d {
			return true
		}
	}
	return false
}

// Reservation records an active occupation of exactly one slot.  At most
// one reservation may exist per (Day, TimeIndex); the store enforces this
// with a uniqueness constraint.
type Reservation struct {
	Day       string    `json:"day"`        // reservations.reservation_day
	TimeIndex int       `json:"time_index"` // reservations.time_index
	Username  string    `json:"username"`   // reservations.username
	CreatedAt time.Time `json:"created_at"` // reservations.created_at
}

// Slot returns the grid cell occupied by the reservation.
func (r Reservation) Slot() Slot {
	return Slot{Day: r.Day, TimeIndex: r.TimeIndex}
}
