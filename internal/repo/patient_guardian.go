package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LinkPatientGuardian creates the association; linking twice is a no-op.
func LinkPatientGuardian(ctx context.Context, pool *pgxpool.Pool, patientID, guardianID uuid.UUID) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO patient_guardians (patient_id, guardian_id)
		VALUES ($1, $2)
		ON CONFLICT (patient_id, guardian_id) DO NOTHING
	`, patientID, guardianID)
	return err
}

func UnlinkPatientGuardian(ctx context.Context, pool *pgxpool.Pool, patientID, guardianID uuid.UUID) error {
	result, err := pool.Exec(ctx, `
		DELETE FROM patient_guardians WHERE patient_id = $1 AND guardian_id = $2
	`, patientID, guardianID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplacePatientGuardians swaps the patient's guardian set atomically.
func ReplacePatientGuardians(ctx context.Context, pool *pgxpool.Pool, patientID uuid.UUID, guardianIDs []uuid.UUID) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM patient_guardians WHERE patient_id = $1`, patientID); err != nil {
		return err
	}
	for _, gid := range dedupeIDs(guardianIDs) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO patient_guardians (patient_id, guardian_id) VALUES ($1, $2)
		`, patientID, gid); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
