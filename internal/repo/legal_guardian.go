package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LegalGuardian struct {
	ID             uuid.UUID
	PsychologistID uuid.UUID
	FullName       string
	Phone          string
	Email          *string
	CPF            CPFData
}

func CreateLegalGuardian(ctx context.Context, pool *pgxpool.Pool, g *LegalGuardian) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO legal_guardians (psychologist_id, full_name, phone, email,
		                             cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, g.PsychologistID, g.FullName, g.Phone, g.Email,
		g.CPF.Encrypted, g.CPF.Nonce, g.CPF.KeyVersion, g.CPF.Hash).Scan(&g.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Validationf("CPF já cadastrado para outro responsável")
		}
		return err
	}
	return nil
}

func LegalGuardianByIDAndPsychologist(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) (*LegalGuardian, error) {
	var g LegalGuardian
	err := pool.QueryRow(ctx, `
		SELECT id, psychologist_id, full_name, phone, email,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM legal_guardians
		WHERE id = $1 AND psychologist_id = $2 AND deleted_at IS NULL
	`, id, psychologistID).Scan(&g.ID, &g.PsychologistID, &g.FullName, &g.Phone, &g.Email,
		&g.CPF.Encrypted, &g.CPF.Nonce, &g.CPF.KeyVersion, &g.CPF.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func LegalGuardiansByPsychologist(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, limit, offset int) ([]LegalGuardian, error) {
	q := `
		SELECT id, psychologist_id, full_name, phone, email,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM legal_guardians
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
	var list []LegalGuardian
	for rows.Next() {
		var g LegalGuardian
		if err := rows.Scan(&g.ID, &g.PsychologistID, &g.FullName, &g.Phone, &g.Email,
			&g.CPF.Encrypted, &g.CPF.Nonce, &g.CPF.KeyVersion, &g.CPF.Hash); err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

// GuardianIDsByPatient returns the ids of live guardians linked to the patient.
func GuardianIDsByPatient(ctx context.Context, pool *pgxpool.Pool, patientID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT g.id
		FROM legal_guardians g
		JOIN patient_guardians pg ON pg.guardian_id = g.id
		WHERE pg.patient_id = $1 AND g.deleted_at IS NULL
		ORDER BY g.full_name
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func UpdateLegalGuardian(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID, fullName, phone, email *string, cpf *CPFData) error {
	result, err := pool.Exec(ctx, `
		UPDATE legal_guardians
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
			return Validationf("CPF já cadastrado para outro responsável")
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteLegalGuardian tombstones the guardian and drops their links to
// patients. Patients themselves are never touched; a minor patient may end
// up with zero guardians, which the API tolerates.
func SoftDeleteLegalGuardian(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE legal_guardians SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND psychologist_id = $2 AND deleted_at IS NULL
	`, id, psychologistID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM patient_guardians WHERE guardian_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GuardiansExistForPsychologist checks that every id belongs to a live
// guardian of the tenant.
func GuardiansExistForPsychologist(ctx context.Context, pool *pgxpool.Pool, ids []uuid.UUID, psychologistID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var n int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM legal_guardians
		WHERE id = ANY($1) AND psychologist_id = $2 AND deleted_at IS NULL
	`, dedupeIDs(ids), psychologistID).Scan(&n)
	if err != nil {
		return err
	}
	if n != len(dedupeIDs(ids)) {
		return Validationf("há responsável(is) inexistente(s) no payload")
	}
	return nil
}
