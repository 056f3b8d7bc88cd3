package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store"
)

func TestInsertAndConflict(t *testing.T) {
	s := New()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	r := model.Reservation{Day: "Mon", TimeIndex: 5, Username: "A"}
	if err := tx.InsertReservation(context.Background(), r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err = tx.InsertReservation(context.Background(), model.Reservation{Day: "Mon", TimeIndex: 5, Username: "B"})
	if !errors.Is(err, store.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestRollbackRestoresState(t *testing.T) {
	s := New()
	s.SeedUser(model.User{Username: "A", AllowedHours: 2, Role: model.RoleUser})

	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.InsertReservation(context.Background(), model.Reservation{Day: "Mon", TimeIndex: 5, Username: "A"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	v := "2026-03-02T13:00:00Z"
	if err := tx.UpdateSettings(context.Background(), map[string]*string{model.KeyReservationOpensAt: &v}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	tx, err = s.Begin(context.Background())
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()
	list, err := tx.ListReservations(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("rolled-back insert leaked: %+v", list)
	}
	settings, err := tx.Settings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings[model.KeyReservationOpensAt] != nil {
		t.Fatalf("rolled-back settings write leaked: %q", *settings[model.KeyReservationOpensAt])
	}
}

func TestTxMethodsAfterFinish(t *testing.T) {
	s := New()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Commit(); err == nil {
		t.Fatal("second commit should fail")
	}
	if _, err := tx.ListReservations(context.Background()); err == nil {
		t.Fatal("use after commit should fail")
	}
}

func TestBeginWaitsForOpenTransaction(t *testing.T) {
	s := New()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		tx2, err := s.Begin(context.Background())
		if err != nil {
			t.Errorf("second begin: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		_ = tx2.Rollback()
	}()

	select {
	case <-acquired:
		t.Fatal("second transaction started while the first was open")
	case <-time.After(50 * time.Millisecond):
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second transaction never acquired the store")
	}
}

func TestBeginHonorsContextCancel(t *testing.T) {
	s := New()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Begin(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestDeleteReservationsExcept(t *testing.T) {
	s := New()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, r := range []model.Reservation{
		{Day: "Mon", TimeIndex: 5, Username: "A"},
		{Day: "Tue", TimeIndex: 6, Username: "B"},
		{Day: "Sun", TimeIndex: 23, Username: "blocked"},
	} {
		if err := tx.InsertReservation(context.Background(), r); err != nil {
			t.Fatalf("insert %+v: %v", r, err)
		}
	}
	n, err := tx.DeleteReservationsExcept(context.Background(), "blocked")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	list, err := tx.ListReservations(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Username != "blocked" {
		t.Fatalf("expected only the exempt booking, got %+v", list)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestReplaceUsers(t *testing.T) {
	s := New()
	s.SeedUser(model.User{Username: "old", AllowedHours: 1, Role: model.RoleUser})

	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = tx.ReplaceUsers(context.Background(), []model.User{
		{Username: "new1", AllowedHours: 3, Role: model.RoleUser},
		{Username: "new2", AllowedHours: 8, Role: model.RoleFree},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := tx.UserByUsername(context.Background(), "old"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("old user should be gone, got %v", err)
	}
	u, err := tx.UserByUsername(context.Background(), "new2")
	if err != nil {
		t.Fatalf("lookup new2: %v", err)
	}
	if u.AllowedHours != 8 || u.Role != model.RoleFree {
		t.Fatalf("unexpected user record: %+v", u)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}
