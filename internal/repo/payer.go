package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Payer struct {
	ID             uuid.UUID
	PsychologistID uuid.UUID
	FullName       string
	Phone          string
	Email          *string
	CPF            CPFData
}

func CreatePayer(ctx context.Context, pool *pgxpool.Pool, p *Payer) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO payers (psychologist_id, full_name, phone, email,
		                    cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.PsychologistID, p.FullName, p.Phone, p.Email,
		p.CPF.Encrypted, p.CPF.Nonce, p.CPF.KeyVersion, p.CPF.Hash).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Validationf("CPF já cadastrado para outro pagador")
		}
		return err
	}
	return nil
}

func PayerByIDAndPsychologist(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) (*Payer, error) {
	var p Payer
	err := pool.QueryRow(ctx, `
		SELECT id, psychologist_id, full_name, phone, email,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM payers
		WHERE id = $1 AND psychologist_id = $2 AND deleted_at IS NULL
	`, id, psychologistID).Scan(&p.ID, &p.PsychologistID, &p.FullName, &p.Phone, &p.Email,
		&p.CPF.Encrypted, &p.CPF.Nonce, &p.CPF.KeyVersion, &p.CPF.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func PayersByPsychologist(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, limit, offset int) ([]Payer, error) {
	q := `
		SELECT id, psychologist_id, full_name, phone, email,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM payers
		WHERE psychologist_id = $1 AND deleted_at IS NULL
		ORDER BY full_name
	`
	args := []interface{}{psychologistID}
	if limit > 0 {
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Payer
	for rows.Next() {
		var p Payer
		if err := rows.Scan(&p.ID, &p.PsychologistID, &p.FullName, &p.Phone, &p.Email,
			&p.CPF.Encrypted, &p.CPF.Nonce, &p.CPF.KeyVersion, &p.CPF.Hash); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func UpdatePayer(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID, fullName, phone, email *string, cpf *CPFData) error {
	result, err := pool.Exec(ctx, `
		UPDATE payers
		SET full_name = COALESCE($1, full_name),
		    phone = COALESCE($2, phone),
		    email = CASE WHEN $3::text IS NULL THEN email ELSE NULLIF($3::text, '') END,
		    cpf_encrypted = CASE WHEN $4::bytea IS NULL THEN cpf_encrypted ELSE $4 END,
		    cpf_nonce = CASE WHEN $5::bytea IS NULL THEN cpf_nonce ELSE $5 END,
		    cpf_key_version = CASE WHEN $6::text IS NULL THEN cpf_key_version ELSE $6::text END,
		    cpf_hash = CASE WHEN $7::text IS NULL THEN cpf_hash ELSE $7::text END,
		    updated_at = now()
		WHERE id = $8 AND psychologist_id = $9 AND deleted_at IS NULL
	`, fullName, phone, email,
		cpfEncrypted(cpf), cpfNonce(cpf), cpfKeyVersion(cpf), cpfHash(cpf), id, psychologistID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Validationf("CPF já cadastrado para outro pagador")
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeletePayerCascade tombstones the payer, removes the payer's payments
// and detaches those payments from any appointments, all in one transaction.
// Appointments keep their status; only their payment reference is cleared.
func SoftDeletePayerCascade(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE payers SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND psychologist_id = $2 AND deleted_at IS NULL
	`, id, psychologistID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET payment_id = NULL, updated_at = now()
		WHERE payment_id IN (SELECT id FROM payments WHERE payer_id = $1)
	`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE payer_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
