package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedHost creates the host account from the configured password if none
// exists. Idempotent: an existing host is left untouched.
func SeedHost(ctx context.Context, logger *slog.Logger, db *sql.DB, password string) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hosts`).Scan(&count); err != nil {
		return fmt.Errorf("counting hosts: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing host password: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO hosts (password_hash) VALUES (?)
	`, string(hash)); err != nil {
		return fmt.Errorf("creating host: %w", err)
	}

	logger.Info("host account created")
	return nil
}
