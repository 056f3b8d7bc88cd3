package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/mugeunji/studio-reservation/internal/clock"
	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store"
)

// Notifier receives the full reservation snapshot after every committed
// change to the grid.  Delivery happens outside the store transaction and
// must not fail the operation.
type Notifier interface {
	ReservationsChanged(ctx context.Context, snapshot []model.Reservation)
}

// Notifiers fans a change out to several notifiers in order.
type Notifiers []Notifier

func (ns Notifiers) ReservationsChanged(ctx context.Context, snapshot []model.Reservation) {
	for _, n := range ns {
		n.ReservationsChanged(ctx, snapshot)
	}
}

// Ledger is the authority of record for the weekly slot grid.
type Ledger struct {
	store       store.Store
	clock       clock.Clock
	clearExempt string   // reservations owned by this name survive ClearReservations
	notifier    Notifier // may be nil
}

// New builds a Ledger.  clearExempt is the sentinel owner whose bookings
// mark slots as not bookable and are skipped by every clear.
func New(st store.Store, clk clock.Clock, clearExempt string) *Ledger {
	return &Ledger{store: st, clock: clk, clearExempt: clearExempt}
}

// SetNotifier wires the change fan-out.  Call before serving requests.
func (l *Ledger) SetNotifier(n Notifier) { l.notifier = n }

func (l *Ledger) notify(ctx context.Context, snapshot []model.Reservation) {
	if l.notifier != nil {
		l.notifier.ReservationsChanged(ctx, snapshot)
	}
}

// CreateReservation books the requested slots for username as one atomic
// unit.  The checks run in a fixed order inside a single transaction:
// gate, then quota, then the privileged-group rule, then the insert race
// against the uniqueness constraint.  The order matters: a request that
// both exceeds quota and collides on a slot reports the quota failure.
// On success it returns the resulting full snapshot.
func (l *Ledger) CreateReservation(ctx context.Context, username string, slots []model.Slot) ([]model.Reservation, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	gate, err := l.evaluateGate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !gate.open {
		if gate.cleared {
			// The pre-open auto-clear fired: its writes commit on their
			// own even though the booking is refused.
			snapshot, lerr := tx.ListReservations(ctx)
			if lerr != nil {
				return nil, storeErr("list reservations", lerr)
			}
			if cerr := tx.Commit(); cerr != nil {
				return nil, storeErr("commit", cerr)
			}
			committed = true
			l.notify(ctx, snapshot)
		}
		return nil, &NotOpenError{Reason: gate.reason}
	}

	user, err := tx.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, storeErr("lookup user", err)
	}

	current, err := tx.CountReservationsByUser(ctx, username)
	if err != nil {
		return nil, storeErr("count reservations", err)
	}
	if current+len(slots) > user.AllowedHours {
		return nil, &QuotaExceededError{Limit: user.AllowedHours}
	}

	if err := checkPrivilegedGroup(user.Role, slots); err != nil {
		return nil, err
	}

	now := l.clock.Now()
	for _, s := range slots {
		r := model.Reservation{Day: s.Day, TimeIndex: s.TimeIndex, Username: username, CreatedAt: now}
		if err := tx.InsertReservation(ctx, r); err != nil {
			if errors.Is(err, store.ErrSlotTaken) {
				return nil, &SlotConflictError{Slot: s}
			}
			return nil, storeErr("insert reservation", err)
		}
	}

	snapshot, err := tx.ListReservations(ctx)
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit", err)
	}
	committed = true
	l.notify(ctx, snapshot)
	return snapshot, nil
}

// checkPrivilegedGroup enforces the pre-dawn rule: only admin and free
// roles may touch indices 0..3, and any day touching one of them must
// request the whole group for that day.
func checkPrivilegedGroup(role string, slots []model.Slot) error {
	touched := make(map[string]map[int]bool) // day -> privileged indices requested
	for _, s := range slots {
		if !model.PrivilegedSlots[s.TimeIndex] {
			continue
		}
		if touched[s.Day] == nil {
			touched[s.Day] = make(map[int]bool)
		}
		touched[s.Day][s.TimeIndex] = true
	}
	if len(touched) == 0 {
		return nil
	}
	if role != model.RoleAdmin && role != model.RoleFree {
		return ErrPrivilegedSlotDenied
	}
	for _, got := range touched {
		if len(got) != len(model.PrivilegedSlots) {
			return ErrPrivilegedGroupNotAtomic
		}
	}
	return nil
}

// ForceCreateReservation writes the given slots for username regardless of
// the gate, quota or privileged rules, evicting whatever occupies them.
// Admin-only; authorization is the caller's job.  Atomic as a batch.
func (l *Ledger) ForceCreateReservation(ctx context.Context, username string, slots []model.Slot) ([]model.Reservation, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := l.clock.Now()
	for _, s := range slots {
		if _, err := tx.DeleteReservation(ctx, s.Day, s.TimeIndex); err != nil {
			return nil, storeErr("evict reservation", err)
		}
		r := model.Reservation{Day: s.Day, TimeIndex: s.TimeIndex, Username: username, CreatedAt: now}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return nil, storeErr("insert reservation", err)
		}
	}

	snapshot, err := tx.ListReservations(ctx)
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit", err)
	}
	committed = true
	l.notify(ctx, snapshot)
	return snapshot, nil
}

// DeleteReservations removes whatever bookings occupy the given slots and
// returns how many were removed.  Empty slots are silent no-ops.
func (l *Ledger) DeleteReservations(ctx context.Context, slots []model.Slot) (int, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return 0, storeErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	removed := 0
	for _, s := range slots {
		ok, err := tx.DeleteReservation(ctx, s.Day, s.TimeIndex)
		if err != nil {
			return 0, storeErr("delete reservation", err)
		}
		if ok {
			removed++
		}
	}

	snapshot, err := tx.ListReservations(ctx)
	if err != nil {
		return 0, storeErr("list reservations", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("commit", err)
	}
	committed = true
	if removed > 0 {
		l.notify(ctx, snapshot)
	}
	return removed, nil
}

// ClearReservations wipes the grid except for bookings owned by the
// sentinel name, which marks permanently unbookable slots.
func (l *Ledger) ClearReservations(ctx context.Context) (int64, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return 0, storeErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	removed, err := tx.DeleteReservationsExcept(ctx, l.clearExempt)
	if err != nil {
		return 0, storeErr("clear reservations", err)
	}
	snapshot, err := tx.ListReservations(ctx)
	if err != nil {
		return 0, storeErr("list reservations", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr("commit", err)
	}
	committed = true
	l.notify(ctx, snapshot)
	return removed, nil
}

// GetAllReservations returns a read-only snapshot of the grid.
func (l *Ledger) GetAllReservations(ctx context.Context) ([]model.Reservation, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()
	snapshot, err := tx.ListReservations(ctx)
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	return snapshot, nil
}

// GetSettings returns the raw settings map.
func (l *Ledger) GetSettings(ctx context.Context) (map[string]*string, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()
	settings, err := tx.Settings(ctx)
	if err != nil {
		return nil, storeErr("read settings", err)
	}
	return settings, nil
}

// UpdateSettings applies all given key updates as one transaction.
func (l *Ledger) UpdateSettings(ctx context.Context, values map[string]*string) error {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return storeErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := tx.UpdateSettings(ctx, values); err != nil {
		return storeErr("update settings", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	committed = true
	return nil
}

// ScheduleOpening records a new opens-at instant.  It deliberately leaves
// last_cleared_for alone: re-scheduling to the same instant must not
// re-trigger the auto-clear, while a different instant fails the guard's
// equality check on its own.
func (l *Ledger) ScheduleOpening(ctx context.Context, opensAt time.Time) error {
	v := opensAt.Format(time.RFC3339)
	return l.UpdateSettings(ctx, map[string]*string{
		model.KeyReservationOpensAt: &v,
	})
}
