// Package memstore is a serializable in-memory reservation store.  One
// transaction runs at a time: Begin acquires the store, Commit or Rollback
// releases it, and Rollback restores the pre-transaction snapshot.  The
// whole-store lock makes every transaction fully
// isolated, which is exactly the contract the engine's race properties
// (quota read-then-write, one-shot clear) depend on.  Used by tests and as
// a single-process engine when no MySQL is configured.
package memstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store"
)

type slotKey struct {
	day string
	idx int
}

// Store holds the grid, users and settings in maps.  Access only through
// transactions.
type Store struct {
	sem chan struct{} // held by the open transaction

	users        map[string]model.User
	reservations map[slotKey]model.Reservation
	settings     map[string]*string
}

// New returns an empty store with the three settings keys seeded to their
// initial state: reservations enabled, nothing scheduled, nothing cleared.
func New() *Store {
	enabled := "true"
	return &Store{
		sem:          make(chan struct{}, 1),
		users:        make(map[string]model.User),
		reservations: make(map[slotKey]model.Reservation),
		settings: map[string]*string{
			model.KeyReservationEnabled: &enabled,
			model.KeyReservationOpensAt: nil,
			model.KeyLastClearedFor:     nil,
		},
	}
}

// SeedUser inserts a quota record outside any transaction.  Test helper;
// not part of the store.Store contract.
func (s *Store) SeedUser(u model.User) {
	s.sem <- struct{}{}
	s.users[u.Username] = u
	<-s.sem
}

// Begin acquires the store for one transaction, waiting until any open
// transaction finishes or the context is cancelled.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memTx{
		s:            s,
		users:        copyUsers(s.users),
		reservations: copyReservations(s.reservations),
		settings:     copySettings(s.settings),
	}, nil
}

func (s *Store) Close() error { return nil }

func copyUsers(m map[string]model.User) map[string]model.User {
	out := make(map[string]model.User, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyReservations(m map[slotKey]model.Reservation) map[slotKey]model.Reservation {
	out := make(map[slotKey]model.Reservation, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySettings(m map[string]*string) map[string]*string {
	out := make(map[string]*string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memTx mutates the live maps and keeps a snapshot for rollback.
type memTx struct {
	s    *Store
	done bool

	users        map[string]model.User
	reservations map[slotKey]model.Reservation
	settings     map[string]*string
}

var errTxDone = errors.New("memstore: transaction already finished")

func (t *memTx) finish(restore bool) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	if restore {
		t.s.users = t.users
		t.s.reservations = t.reservations
		t.s.settings = t.settings
	}
	<-t.s.sem
	return nil
}

func (t *memTx) Commit() error   { return t.finish(false) }
func (t *memTx) Rollback() error { return t.finish(true) }

func (t *memTx) UserByUsername(_ context.Context, username string) (model.User, error) {
	if t.done {
		return model.User{}, errTxDone
	}
	u, ok := t.s.users[username]
	if !ok {
		return model.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (t *memTx) ReplaceUsers(_ context.Context, users []model.User) error {
	if t.done {
		return errTxDone
	}
	t.s.users = make(map[string]model.User, len(users))
	for _, u := range users {
		t.s.users[u.Username] = u
	}
	return nil
}

func (t *memTx) CountReservationsByUser(_ context.Context, username string) (int, error) {
	if t.done {
		return 0, errTxDone
	}
	n := 0
	for _, r := range t.s.reservations {
		if r.Username == username {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertReservation(_ context.Context, r model.Reservation) error {
	if t.done {
		return errTxDone
	}
	key := slotKey{day: r.Day, idx: r.TimeIndex}
	if _, taken := t.s.reservations[key]; taken {
		return store.ErrSlotTaken
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	t.s.reservations[key] = r
	return nil
}

func (t *memTx) DeleteReservation(_ context.Context, day string, timeIndex int) (bool, error) {
	if t.done {
		return false, errTxDone
	}
	key := slotKey{day: day, idx: timeIndex}
	if _, ok := t.s.reservations[key]; !ok {
		return false, nil
	}
	delete(t.s.reservations, key)
	return true, nil
}

func (t *memTx) DeleteReservationsExcept(_ context.Context, exemptUsername string) (int64, error) {
	if t.done {
		return 0, errTxDone
	}
	var n int64
	for key, r := range t.s.reservations {
		if r.Username == exemptUsername {
			continue
		}
		delete(t.s.reservations, key)
		n++
	}
	return n, nil
}

func (t *memTx) ListReservations(_ context.Context) ([]model.Reservation, error) {
	if t.done {
		return nil, errTxDone
	}
	out := make([]model.Reservation, 0, len(t.s.reservations))
	for _, r := range t.s.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].TimeIndex < out[j].TimeIndex
	})
	return out, nil
}

func (t *memTx) Settings(_ context.Context) (map[string]*string, error) {
	if t.done {
		return nil, errTxDone
	}
	return copySettings(t.s.settings), nil
}

func (t *memTx) UpdateSettings(_ context.Context, values map[string]*string) error {
	if t.done {
		return errTxDone
	}
	for k, v := range values {
		t.s.settings[k] = v
	}
	return nil
}
