// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationChangedEvent is published after every committed change to the
// slot grid.  It carries the full snapshot so downstream consumers can
// log or mirror the state without querying the primary database.
type ReservationChangedEvent struct {
	ChangedAt    string             `json:"changed_at"`
	Count        int                `json:"count"`
	Reservations []ReservationEntry `json:"reservations"`
}

// ReservationEntry is one occupied slot inside a snapshot event.
type ReservationEntry struct {
	Day       string `json:"day"`
	TimeIndex int    `json:"time_index"`
	Username  string `json:"username"`
}
