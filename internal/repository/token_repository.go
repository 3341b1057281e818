package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh-token hashes.  Raw tokens never reach this
// layer; callers hash first.  A record is usable until it is revoked or
// its expiry passes; both states are terminal and equivalent.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns the owning userID if a non-revoked, non-expired
// record matches the hash.  Expiry is checked here, not stored: an expired
// row behaves exactly like a revoked one.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revoked   bool
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revoked)
	if err != nil {
		return 0, err
	}
	if revoked {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeForUser marks a token revoked only when it belongs to the given
// user.  A miss (unknown hash, or someone else's token) is a silent
// no-op, so revocation cannot be used to probe other users' tokens.
func (r *TokenRepo) RevokeForUser(ctx context.Context, userID uint64, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=1 WHERE token_hash=? AND user_id=? AND revoked=0",
		tokenHash, userID)
	return err
}

// RevokeAllForUser revokes every live token a user owns.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=1 WHERE user_id=? AND revoked=0",
		userID)
	return err
}
