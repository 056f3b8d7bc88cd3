// Package mysqlstore backs the reservation store with MySQL through
// database/sql.  Exclusivity rests on the UNIQUE(reservation_day,
// time_index) constraint: a concurrent check-then-insert race resolves at
// insert time as a duplicate-key error, which this package classifies as
// store.ErrSlotTaken.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/store"
)

// Store wraps a *sql.DB opened by internal/database.
type Store struct {
	db *sql.DB
}

// New returns a Store bound to the given database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &mysqlTx{tx: tx}, nil
}

func (s *Store) Close() error { return s.db.Close() }

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) Commit() error   { return t.tx.Commit() }
func (t *mysqlTx) Rollback() error { return t.tx.Rollback() }

// UserByUsername loads one quota record and locks its row for the
// transaction.  The lock serializes concurrent bookings by the same user,
// so the count-then-insert quota check cannot double-admit under InnoDB's
// snapshot reads.  Missing rows map to store.ErrUserNotFound so callers
// need not import database/sql.
func (t *mysqlTx) UserByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := t.tx.QueryRowContext(ctx,
		`SELECT username, password, allowed_hours, role FROM users WHERE username = ? LIMIT 1 FOR UPDATE`,
		username).Scan(&u.Username, &u.PasswordHash, &u.AllowedHours, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, store.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// ReplaceUsers swaps the whole user list for the given one.  Used by the
// admin CSV import; the reservation engine itself never writes users.
func (t *mysqlTx) ReplaceUsers(ctx context.Context, users []model.User) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}
	query := `INSERT INTO users (username, password, allowed_hours, role) VALUES `
	args := make([]interface{}, 0, len(users)*4)
	for i, u := range users {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, u.Username, u.PasswordHash, u.AllowedHours, u.Role)
	}
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

func (t *mysqlTx) CountReservationsByUser(ctx context.Context, username string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE username = ?`, username).Scan(&n)
	return n, err
}

func (t *mysqlTx) InsertReservation(ctx context.Context, r model.Reservation) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO reservations (username, reservation_day, time_index) VALUES (?, ?, ?)`,
		r.Username, r.Day, r.TimeIndex)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") { // mysql duplicate entry
			return store.ErrSlotTaken
		}
		return err
	}
	return nil
}

func (t *mysqlTx) DeleteReservation(ctx context.Context, day string, timeIndex int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE reservation_day = ? AND time_index = ?`, day, timeIndex)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *mysqlTx) DeleteReservationsExcept(ctx context.Context, exemptUsername string) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE username <> ?`, exemptUsername)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListReservations returns the full grid state.  Ordering by day and index
// gives a stable enumeration and nothing more.
func (t *mysqlTx) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT username, reservation_day, time_index, created_at
		 FROM reservations
		 ORDER BY reservation_day, time_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(&r.Username, &r.Day, &r.TimeIndex, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Settings reads all settings rows and locks them for the transaction.
// The availability gate's one-shot clear guard is a read-then-write on
// last_cleared_for; the row locks keep two pre-open transactions from
// both passing the guard and double-firing the clear.
func (t *mysqlTx) Settings(ctx context.Context) (map[string]*string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+"`key`"+`, value FROM system_settings FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]*string)
	for rows.Next() {
		var key string
		var val sql.NullString
		if err := rows.Scan(&key, &val); err != nil {
			return nil, err
		}
		if val.Valid {
			v := val.String
			out[key] = &v
		} else {
			out[key] = nil
		}
	}
	return out, rows.Err()
}

func (t *mysqlTx) UpdateSettings(ctx context.Context, values map[string]*string) error {
	for key, val := range values {
		var arg interface{}
		if val != nil {
			arg = *val
		}
		if _, err := t.tx.ExecContext(ctx,
			`UPDATE system_settings SET value = ? WHERE `+"`key`"+` = ?`, arg, key); err != nil {
			return err
		}
	}
	return nil
}
