package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CPFData carries the at-rest encrypted CPF of a person record.
// The plaintext never touches the database; cpf_hash backs uniqueness checks.
type CPFData struct {
	Encrypted  []byte
	Nonce      []byte
	KeyVersion *string
	Hash       *string
}

type Psychologist struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Phone        string
	CRPNumber    *string
	Specialty    *string
	CPF          CPFData
}

func CreatePsychologist(ctx context.Context, pool *pgxpool.Pool, p *Psychologist) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO psychologists (full_name, email, password_hash, phone, crp_number, specialty,
		                           cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, p.FullName, p.Email, p.PasswordHash, p.Phone, p.CRPNumber, p.Specialty,
		p.CPF.Encrypted, p.CPF.Nonce, p.CPF.KeyVersion, p.CPF.Hash).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "ux_psychologists_email" {
				return Validationf("e-mail já cadastrado")
			}
			return Validationf("CPF já cadastrado")
		}
		return err
	}
	return nil
}

// PsychologistByEmail resolves the active tenant for an authenticated
// principal. A soft-deleted account behaves as nonexistent.
func PsychologistByEmail(ctx context.Context, pool *pgxpool.Pool, email string) (*Psychologist, error) {
	var p Psychologist
	err := pool.QueryRow(ctx, `
		SELECT id, full_name, email, password_hash, phone, crp_number, specialty,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM psychologists WHERE lower(email) = lower($1) AND deleted_at IS NULL
	`, email).Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.Phone, &p.CRPNumber, &p.Specialty,
		&p.CPF.Encrypted, &p.CPF.Nonce, &p.CPF.KeyVersion, &p.CPF.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func PsychologistByID(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (*Psychologist, error) {
	var p Psychologist
	err := pool.QueryRow(ctx, `
		SELECT id, full_name, email, password_hash, phone, crp_number, specialty,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM psychologists WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.Phone, &p.CRPNumber, &p.Specialty,
		&p.CPF.Encrypted, &p.CPF.Nonce, &p.CPF.KeyVersion, &p.CPF.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func UpdatePsychologistProfile(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, fullName, phone string, crpNumber, specialty *string, cpf *CPFData) error {
	result, err := pool.Exec(ctx, `
		UPDATE psychologists
		SET full_name = $1,
		    phone = $2,
		    crp_number = CASE WHEN $3::text IS NULL THEN crp_number ELSE NULLIF($3::text, '') END,
		    specialty = CASE WHEN $4::text IS NULL THEN specialty ELSE NULLIF($4::text, '') END,
		    cpf_encrypted = CASE WHEN $5::bytea IS NULL THEN cpf_encrypted ELSE $5 END,
		    cpf_nonce = CASE WHEN $6::bytea IS NULL THEN cpf_nonce ELSE $6 END,
		    cpf_key_version = CASE WHEN $7::text IS NULL THEN cpf_key_version ELSE $7::text END,
		    cpf_hash = CASE WHEN $8::text IS NULL THEN cpf_hash ELSE $8::text END,
		    updated_at = now()
		WHERE id = $9 AND deleted_at IS NULL
	`, fullName, phone, crpNumber, specialty,
		cpfEncrypted(cpf), cpfNonce(cpf), cpfKeyVersion(cpf), cpfHash(cpf), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func UpdatePsychologistPassword(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, passwordHash string) error {
	result, err := pool.Exec(ctx, `
		UPDATE psychologists SET password_hash = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL
	`, passwordHash, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeletePsychologist tombstones the account. Historical appointments and
// payments stay referenced; nothing is cascaded here.
func SoftDeletePsychologist(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) error {
	result, err := pool.Exec(ctx, `
		UPDATE psychologists SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func cpfEncrypted(c *CPFData) []byte {
	if c == nil {
		return nil
	}
	return c.Encrypted
}

func cpfNonce(c *CPFData) []byte {
	if c == nil {
		return nil
	}
	return c.Nonce
}

func cpfKeyVersion(c *CPFData) *string {
	if c == nil {
		return nil
	}
	return c.KeyVersion
}

func cpfHash(c *CPFData) *string {
	if c == nil {
		return nil
	}
	return c.Hash
}
