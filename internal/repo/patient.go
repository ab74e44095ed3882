package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Patient struct {
	ID             uuid.UUID
	PsychologistID uuid.UUID
	FullName       string
	Phone          string
	BirthDate      string // YYYY-MM-DD
	Notes          *string
	CPF            CPFData
}

func CreatePatient(ctx context.Context, pool *pgxpool.Pool, p *Patient) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO patients (psychologist_id, full_name, phone, birth_date, notes,
		                      cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
		RETURNING id
	`, p.PsychologistID, p.FullName, p.Phone, p.BirthDate, p.Notes,
		p.CPF.Encrypted, p.CPF.Nonce, p.CPF.KeyVersion, p.CPF.Hash).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Validationf("CPF já cadastrado para outro paciente")
		}
		return err
	}
	return nil
}

func PatientByIDAndPsychologist(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) (*Patient, error) {
	var p Patient
	err := pool.QueryRow(ctx, `
		SELECT id, psychologist_id, full_name, phone, birth_date::text, notes,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM patients
		WHERE id = $1 AND psychologist_id = $2 AND deleted_at IS NULL
	`, id, psychologistID).Scan(&p.ID, &p.PsychologistID, &p.FullName, &p.Phone, &p.BirthDate, &p.Notes,
		&p.CPF.Encrypted, &p.CPF.Nonce, &p.CPF.KeyVersion, &p.CPF.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func PatientsByPsychologist(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, limit, offset int) ([]Patient, error) {
	q := `
		SELECT id, psychologist_id, full_name, phone, birth_date::text, notes,
		       cpf_encrypted, cpf_nonce, cpf_key_version, cpf_hash
		FROM patients
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
	var list []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.PsychologistID, &p.FullName, &p.Phone, &p.BirthDate, &p.Notes,
			&p.CPF.Encrypted, &p.CPF.Nonce, &p.CPF.KeyVersion, &p.CPF.Hash); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func PatientsCountByPsychologist(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM patients WHERE psychologist_id = $1 AND deleted_at IS NULL
	`, psychologistID).Scan(&n)
	return n, err
}

// UpdatePatient applies partial updates; nil fields keep current values.
// The owning psychologist is immutable.
func UpdatePatient(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID, fullName, phone, birthDate, notes *string, cpf *CPFData) error {
	result, err := pool.Exec(ctx, `
		UPDATE patients
		SET full_name = COALESCE($1, full_name),
		    phone = COALESCE($2, phone),
		    birth_date = CASE WHEN $3::text IS NULL THEN birth_date ELSE $3::date END,
		    notes = CASE WHEN $4::text IS NULL THEN notes ELSE NULLIF($4::text, '') END,
		    cpf_encrypted = CASE WHEN $5::bytea IS NULL THEN cpf_encrypted ELSE $5 END,
		    cpf_nonce = CASE WHEN $6::bytea IS NULL THEN cpf_nonce ELSE $6 END,
		    cpf_key_version = CASE WHEN $7::text IS NULL THEN cpf_key_version ELSE $7::text END,
		    cpf_hash = CASE WHEN $8::text IS NULL THEN cpf_hash ELSE $8::text END,
		    updated_at = now()
		WHERE id = $9 AND psychologist_id = $10 AND deleted_at IS NULL
	`, fullName, phone, birthDate, notes,
		cpfEncrypted(cpf), cpfNonce(cpf), cpfKeyVersion(cpf), cpfHash(cpf), id, psychologistID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Validationf("CPF já cadastrado para outro paciente")
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeletePatient tombstones the patient and force-cancels their open
// appointments (SCHEDULED or NO_SHOW) in the same transaction, so a crash
// cannot leave the cascade half-applied. Already-cancelled and completed
// appointments are untouched; re-running the cascade is a no-op.
func SoftDeletePatient(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE patients SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND psychologist_id = $2 AND deleted_at IS NULL
	`, id, psychologistID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET status = 'CANCELLED', updated_at = now()
		WHERE status IN ('SCHEDULED', 'NO_SHOW')
		  AND id IN (SELECT appointment_id FROM appointment_patients WHERE patient_id = $1)
	`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lockPatients resolves and row-locks the given patients within the tenant.
// The lock serializes concurrent bookings that share a patient. A count
// mismatch means unknown, foreign or deleted ids and is reported as a
// validation problem without telling which.
func lockPatients(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, psychologistID uuid.UUID) ([]PatientSummary, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, full_name FROM patients
		WHERE id = ANY($1) AND psychologist_id = $2 AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE
	`, ids, psychologistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []PatientSummary
	for rows.Next() {
		var p PatientSummary
		if err := rows.Scan(&p.ID, &p.FullName); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) != len(dedupeIDs(ids)) {
		return nil, Validationf("há paciente(s) inexistente(s) no payload")
	}
	return list, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
