// Package store defines the transactional interface the reservation engine
// runs against.  The engine never talks to a database driver directly; it
// begins a transaction, performs its reads and writes through Tx, and
// commits or rolls back.  The store is the sole source of atomicity and
// isolation: two transactions must never both observe a slot as free and
// both insert into it.  The one-reservation-per-slot rule is enforced by
// the store itself (a uniqueness constraint in MySQL, the grid map in the
// in-memory engine) and surfaces as ErrSlotTaken.
package store

import (
	"context"
	"errors"

	"github.com/mugeunji/studio-reservation/internal/model"
)

// ErrSlotTaken is returned by Tx.InsertReservation when the target slot
// already holds a reservation.  Callers translate it into a slot-conflict
// result; it must never surface as a generic store failure.
var ErrSlotTaken = errors.New("slot already reserved")

// ErrUserNotFound is returned by Tx.UserByUsername when no row matches.
var ErrUserNotFound = errors.New("user not found")

// Store opens transactions against the underlying engine.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is one transaction.  Every method either succeeds or leaves the
// transaction usable for rollback; after Commit or Rollback the Tx must
// not be reused.
type Tx interface {
	Commit() error
	Rollback() error

	// Users.  The engine reads quota records; it never writes them.
	// ReplaceUsers exists for the admin import path only.
	UserByUsername(ctx context.Context, username string) (model.User, error)
	ReplaceUsers(ctx context.Context, users []model.User) error

	// Reservations.
	CountReservationsByUser(ctx context.Context, username string) (int, error)
	InsertReservation(ctx context.Context, r model.Reservation) error
	DeleteReservation(ctx context.Context, day string, timeIndex int) (bool, error)
	DeleteReservationsExcept(ctx context.Context, exemptUsername string) (int64, error)
	ListReservations(ctx context.Context) ([]model.Reservation, error)

	// Settings.  Values are nullable strings keyed by the constants in
	// package model.  UpdateSettings applies all given keys atomically
	// within this transaction.
	Settings(ctx context.Context) (map[string]*string, error)
	UpdateSettings(ctx context.Context, values map[string]*string) error
}
