package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/auth"
)

func TestRevokedTokenRepo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRevokedTokenRepo(db)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revoked_tokens (token_hash, expires_at) VALUES (?,?) ON DUPLICATE KEY UPDATE")).
		WithArgs(auth.TokenHash("tok"), exp.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM revoked_tokens WHERE token_hash=?")).
		WithArgs(auth.TokenHash("tok")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM revoked_tokens WHERE token_hash=?")).
		WithArgs(auth.TokenHash("other")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	require.NoError(t, repo.Revoke(ctx, "tok", exp))

	revoked, err := repo.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokedTokenRepo_CapsExpiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	repo := NewRevokedTokenRepo(db)
	repo.MaxTTL = 7 * 24 * time.Hour
	repo.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO revoked_tokens")).
		WithArgs(auth.TokenHash("forged"), now.Add(7*24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	far := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Revoke(context.Background(), "forged", far))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokedTokenRepo_PurgeExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRevokedTokenRepo(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM revoked_tokens WHERE expires_at < ?")).
		WithArgs(now.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
