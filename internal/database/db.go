package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/mugeunji/studio-reservation/internal/model"
	"github.com/mugeunji/studio-reservation/internal/utils"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Setup creates the three tables if they do not exist and seeds the
// built-in admin account and the settings keys.  The UNIQUE constraint on
// (reservation_day, time_index) is what makes the one-booking-per-slot
// rule hold under concurrent inserts; the engine relies on it rather than
// on check-then-insert.
func Setup(ctx context.Context, db *sql.DB, adminPassword string, bcryptCost int) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username VARCHAR(64) NOT NULL PRIMARY KEY,
			password VARCHAR(128) NOT NULL,
			allowed_hours INT NOT NULL,
			role VARCHAR(16) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			reservation_day VARCHAR(8) NOT NULL,
			time_index INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_slot (reservation_day, time_index)
		)`,
		"CREATE TABLE IF NOT EXISTS system_settings (" +
			"`key` VARCHAR(64) NOT NULL PRIMARY KEY," +
			"value TEXT NULL" +
			")",
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}

	hash, err := utils.HashPassword(adminPassword, bcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT IGNORE INTO users (username, password, allowed_hours, role) VALUES (?, ?, ?, ?)`,
		"admin", hash, 0, model.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	seeds := []struct {
		key   string
		value *string
	}{
		{model.KeyReservationEnabled, ptr("true")},
		{model.KeyReservationOpensAt, nil},
		{model.KeyLastClearedFor, nil},
	}
	for _, s := range seeds {
		var arg interface{}
		if s.value != nil {
			arg = *s.value
		}
		if _, err := db.ExecContext(ctx,
			"INSERT IGNORE INTO system_settings (`key`, value) VALUES (?, ?)",
			s.key, arg); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}
	return nil
}

func ptr(s string) *string { return &s }
