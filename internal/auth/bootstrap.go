package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
)

// Bootstrapper creates the first admin user and an admin API key on first
// boot. The whole flow is one transaction: a partial failure rolls back and
// the next boot retries.
type Bootstrapper struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// Bootstrap runs the first-boot admin bootstrap routine if, and only if, no
// admin user yet exists. It logs the generated raw admin API key exactly
// once on success — this is the only time the raw value is ever visible.
func (b *Bootstrapper) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("auth: starting bootstrap transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM users WHERE is_admin`).Scan(&existing); err != nil {
		return fmt.Errorf("auth: checking for existing admin: %w", err)
	}
	if existing > 0 {
		return nil
	}

	passwordHash, err := cryptoutil.HashPassword(password)
	if err != nil {
		return fmt.Errorf("auth: hashing bootstrap admin password: %w", err)
	}

	var userID string
	if err := tx.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, is_admin, created_at) VALUES ($1, $2, true, now()) RETURNING id`,
		email, passwordHash,
	).Scan(&userID); err != nil {
		return fmt.Errorf("auth: inserting bootstrap admin user: %w", err)
	}

	rawKey, err := cryptoutil.GenerateToken(APIKeyPrefix, 32)
	if err != nil {
		return fmt.Errorf("auth: generating bootstrap admin API key: %w", err)
	}
	keyHash := cryptoutil.SHA256Hex(rawKey)
	keyPrefix := rawKey[:len(APIKeyPrefix)+8]

	if _, err := tx.Exec(ctx,
		`INSERT INTO api_keys (key_prefix, key_hash_sha256, is_active, is_admin, user_id, created_at)
		 VALUES ($1, $2, true, true, $3, now())`,
		keyPrefix, keyHash, userID,
	); err != nil {
		return fmt.Errorf("auth: inserting bootstrap admin API key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("auth: committing bootstrap transaction: %w", err)
	}

	b.Logger.Info("admin bootstrap complete",
		"email", email,
		"user_id", userID,
		"admin_api_key", rawKey,
		"bootstrapped_at", time.Now().UTC().Format(time.RFC3339),
	)
	return nil
}
