package repo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func CreatePasswordResetToken(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, exp time.Duration) (token string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token = hex.EncodeToString(b)
	expiresAt := time.Now().Add(exp)
	_, err = pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, psychologistID, expiresAt)
	return token, err
}

func ConsumePasswordResetToken(ctx context.Context, pool *pgxpool.Pool, token string) (psychologistID uuid.UUID, err error) {
	err = pool.QueryRow(ctx, `
		UPDATE password_reset_tokens SET used_at = now() WHERE token = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING user_id
	`, token).Scan(&psychologistID)
	return
}

func GetPasswordResetToken(ctx context.Context, pool *pgxpool.Pool, token string) (psychologistID uuid.UUID, expiresAt time.Time, usedAt *time.Time, err error) {
	err = pool.QueryRow(ctx, `
		SELECT user_id, expires_at, used_at FROM password_reset_tokens WHERE token = $1
	`, token).Scan(&psychologistID, &expiresAt, &usedAt)
	return
}
