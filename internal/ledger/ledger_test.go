package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store/memstore"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestLedger(t *testing.T) (*Ledger, *memstore.Store, *fakeClock) {
	t.Helper()
	st := memstore.New()
	clk := &fakeClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	return New(st, clk, "blocked"), st, clk
}

func seedUsers(st *memstore.Store) {
	st.SeedUser(model.User{Username: "A", AllowedHours: 2, Role: model.RoleUser})
	st.SeedUser(model.User{Username: "B", AllowedHours: 1, Role: model.RoleUser})
	st.SeedUser(model.User{Username: "F", AllowedHours: 8, Role: model.RoleFree})
	st.SeedUser(model.User{Username: "admin", AllowedHours: 0, Role: model.RoleAdmin})
}

func slots(pairs ...interface{}) []model.Slot {
	out := make([]model.Slot, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.Slot{Day: pairs[i].(string), TimeIndex: pairs[i+1].(int)})
	}
	return out
}

func TestCreateReservationSuccess(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)

	snapshot, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5, "Mon", 6))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(snapshot))
	}
	for _, r := range snapshot {
		if r.Username != "A" {
			t.Fatalf("expected owner A, got %q", r.Username)
		}
		if r.CreatedAt.IsZero() {
			t.Fatal("expected created_at to be set")
		}
	}
}

func TestCreateReservationUnknownUser(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, err := l.CreateReservation(context.Background(), "ghost", slots("Mon", 5))
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestQuotaExceeded(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)

	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := l.CreateReservation(context.Background(), "A", slots("Tue", 5, "Tue", 6))
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quota.Limit != 2 {
		t.Fatalf("expected limit 2 in error, got %d", quota.Limit)
	}
	// Exactly filling the quota is allowed.
	if _, err := l.CreateReservation(context.Background(), "A", slots("Tue", 5)); err != nil {
		t.Fatalf("filling quota exactly should succeed: %v", err)
	}
}

func TestQuotaCheckedBeforeSlotConflict(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)

	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5)); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	// B has quota 1; requesting two slots, one of which collides, must
	// report the quota failure, not the collision.
	_, err := l.CreateReservation(context.Background(), "B", slots("Mon", 5, "Mon", 6))
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
}

func TestPrivilegedSlotDenied(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	_, err := l.CreateReservation(context.Background(), "A", slots("Mon", 0))
	if !errors.Is(err, ErrPrivilegedSlotDenied) {
		t.Fatalf("expected ErrPrivilegedSlotDenied, got %v", err)
	}
}

func TestPrivilegedGroupMustBeAtomic(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	_, err := l.CreateReservation(context.Background(), "F", slots("Mon", 0, "Mon", 1, "Mon", 2))
	if !errors.Is(err, ErrPrivilegedGroupNotAtomic) {
		t.Fatalf("expected ErrPrivilegedGroupNotAtomic, got %v", err)
	}
}

func TestPrivilegedGroupFullSetSucceeds(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	snapshot, err := l.CreateReservation(context.Background(), "F", slots("Mon", 0, "Mon", 1, "Mon", 2, "Mon", 3))
	if err != nil {
		t.Fatalf("full pre-dawn group for free role should succeed: %v", err)
	}
	if len(snapshot) != 4 {
		t.Fatalf("expected 4 reservations, got %d", len(snapshot))
	}
}

func TestSlotConflict(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5)); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	_, err := l.CreateReservation(context.Background(), "B", slots("Mon", 5))
	var conflict *SlotConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
	if conflict.Slot.Day != "Mon" || conflict.Slot.TimeIndex != 5 {
		t.Fatalf("conflict names wrong slot: %+v", conflict.Slot)
	}
}

func TestCreateRollsBackWholeBatchOnConflict(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5)); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	// F requests a free slot plus the taken one; nothing may stick.
	if _, err := l.CreateReservation(context.Background(), "F", slots("Tue", 5, "Mon", 5)); err == nil {
		t.Fatal("expected conflict")
	}
	snapshot, err := l.GetAllReservations(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected only the seeded booking to remain, got %d", len(snapshot))
	}
	if snapshot[0].Username != "A" {
		t.Fatalf("unexpected survivor: %+v", snapshot[0])
	}
}

func TestConcurrentExclusivity(t *testing.T) {
	l, st, _ := newTestLedger(t)
	for _, name := range []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9"} {
		st.SeedUser(model.User{Username: name, AllowedHours: 10, Role: model.RoleUser})
	}

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			username := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9"}[i%10]
			_, err := l.CreateReservation(context.Background(), username, slots("Wed", 10))
			mu.Lock()
			defer mu.Unlock()
			var conflict *SlotConflictError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if conflicts != workers-1 {
		t.Fatalf("expected %d conflicts, got %d", workers-1, conflicts)
	}
}

func TestForceCreateEvicts(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5)); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	snapshot, err := l.ForceCreateReservation(context.Background(), "B", slots("Mon", 5))
	if err != nil {
		t.Fatalf("force create: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].Username != "B" {
		t.Fatalf("expected slot handed to B, got %+v", snapshot)
	}
}

func TestForceCreateIgnoresGateAndQuota(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	disabled := "false"
	if err := l.UpdateSettings(context.Background(), map[string]*string{model.KeyReservationEnabled: &disabled}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	// admin has allowed_hours 0 and the gate is closed; force still works.
	if _, err := l.ForceCreateReservation(context.Background(), "admin", slots("Sun", 0)); err != nil {
		t.Fatalf("force create with gate closed: %v", err)
	}
}

func TestDeleteReservations(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5, "Mon", 6)); err != nil {
		t.Fatalf("seed bookings: %v", err)
	}
	// One of the three requested slots is empty; that one is a no-op.
	removed, err := l.DeleteReservations(context.Background(), slots("Mon", 5, "Mon", 6, "Mon", 7))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	removed, err = l.DeleteReservations(context.Background(), slots("Mon", 5))
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed on empty slot, got %d", removed)
	}
}

func TestClearReservationsKeepsSentinel(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	if _, err := l.ForceCreateReservation(context.Background(), "blocked", slots("Sun", 23)); err != nil {
		t.Fatalf("seed sentinel: %v", err)
	}
	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5, "Mon", 6)); err != nil {
		t.Fatalf("seed bookings: %v", err)
	}
	removed, err := l.ClearReservations(context.Background())
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	snapshot, err := l.GetAllReservations(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].Username != "blocked" {
		t.Fatalf("expected only the sentinel booking to survive, got %+v", snapshot)
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	snapshots [][]model.Reservation
}

func (n *recordingNotifier) ReservationsChanged(_ context.Context, snapshot []model.Reservation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, snapshot)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.snapshots)
}

func TestNotifierFiresOnChangeOnly(t *testing.T) {
	l, st, _ := newTestLedger(t)
	seedUsers(st)
	rec := &recordingNotifier{}
	l.SetNotifier(rec)

	if _, err := l.CreateReservation(context.Background(), "A", slots("Mon", 5)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected 1 notification after create, got %d", rec.count())
	}
	// A failed create must not notify.
	if _, err := l.CreateReservation(context.Background(), "B", slots("Mon", 5)); err == nil {
		t.Fatal("expected conflict")
	}
	if rec.count() != 1 {
		t.Fatalf("expected no notification after failed create, got %d", rec.count())
	}
	// Deleting an empty slot must not notify either.
	if _, err := l.DeleteReservations(context.Background(), slots("Fri", 1)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected no notification after no-op delete, got %d", rec.count())
	}
}
