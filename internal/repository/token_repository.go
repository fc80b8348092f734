package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/account-service/internal/auth"
)

// RevokedTokenRepo is a durable revocation set backed by the revoked_tokens
// table. Only the SHA-256 of a token is stored. A positive MaxTTL bounds how
// far in the future a row's expiry may lie.
type RevokedTokenRepo struct {
	DB     *sql.DB
	MaxTTL time.Duration
	now    func() time.Time
}

func NewRevokedTokenRepo(db *sql.DB) *RevokedTokenRepo {
	return &RevokedTokenRepo{DB: db, now: time.Now}
}

// Revoke inserts the token hash. Revoking twice keeps the later expiry.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if r.MaxTTL > 0 && r.now != nil {
		if limit := r.now().Add(r.MaxTTL); expiresAt.After(limit) {
			expiresAt = limit
		}
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO revoked_tokens (token_hash, expires_at) VALUES (?,?) "+
			"ON DUPLICATE KEY UPDATE expires_at=GREATEST(expires_at, VALUES(expires_at))",
		auth.TokenHash(token), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE token_hash=? LIMIT 1", auth.TokenHash(token)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return true, nil
}

// PurgeExpired deletes rows whose token expired before the given instant.
func (r *RevokedTokenRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return res.RowsAffected()
}

var _ auth.RevocationSet = (*RevokedTokenRepo)(nil)
