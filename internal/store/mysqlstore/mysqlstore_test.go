package mysqlstore

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store"
)

func newMockTx(t *testing.T) (store.Tx, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	mock.ExpectBegin()
	tx, err := New(db).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx, mock
}

func TestUserLookupLocksRow(t *testing.T) {
	tx, mock := newMockTx(t)
	mock.ExpectQuery(`SELECT username, password, allowed_hours, role FROM users WHERE username = \? LIMIT 1 FOR UPDATE`).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password", "allowed_hours", "role"}).
			AddRow("A", "hash", 2, model.RoleUser))
	mock.ExpectRollback()

	u, err := tx.UserByUsername(context.Background(), "A")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.AllowedHours != 2 || u.Role != model.RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserLookupNotFound(t *testing.T) {
	tx, mock := newMockTx(t)
	mock.ExpectQuery(`SELECT username, password, allowed_hours, role FROM users WHERE username = \? LIMIT 1 FOR UPDATE`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password", "allowed_hours", "role"}))
	mock.ExpectRollback()

	if _, err := tx.UserByUsername(context.Background(), "ghost"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	_ = tx.Rollback()
}

func TestSettingsReadLocksRows(t *testing.T) {
	tx, mock := newMockTx(t)
	mock.ExpectQuery("SELECT `key`, value FROM system_settings FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow(model.KeyReservationEnabled, "true").
			AddRow(model.KeyReservationOpensAt, nil))
	mock.ExpectRollback()

	settings, err := tx.Settings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if v := settings[model.KeyReservationEnabled]; v == nil || *v != "true" {
		t.Fatalf("unexpected enabled value: %v", v)
	}
	if settings[model.KeyReservationOpensAt] != nil {
		t.Fatal("expected nil opens-at")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertDuplicateMapsToSlotTaken(t *testing.T) {
	tx, mock := newMockTx(t)
	mock.ExpectExec(`INSERT INTO reservations \(username, reservation_day, time_index\) VALUES \(\?, \?, \?\)`).
		WithArgs("A", "Mon", 5).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'Mon-5' for key 'uq_slot'"))
	mock.ExpectRollback()

	err := tx.InsertReservation(context.Background(), model.Reservation{Day: "Mon", TimeIndex: 5, Username: "A"})
	if !errors.Is(err, store.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	_ = tx.Rollback()
}
