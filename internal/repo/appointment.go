package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

type PatientSummary struct {
	ID       uuid.UUID
	FullName string
}

type Appointment struct {
	ID              uuid.UUID
	PsychologistID  uuid.UUID
	StartAt         time.Time
	EndAt           *time.Time
	Status          string
	AppointmentType string
	Notes           *string
	PaymentID       *uuid.UUID
	Patients        []PatientSummary
}

type AppointmentInput struct {
	StartAt         time.Time
	EndAt           *time.Time
	AppointmentType string
	Notes           *string
	PatientIDs      []uuid.UUID
	PaymentID       *uuid.UUID
}

// PaymentPatch distinguishes "leave the payment alone" (Set false) from
// "set it to this id" and "detach it" (Set true, ID nil).
type PaymentPatch struct {
	Set bool
	ID  *uuid.UUID
}

type AppointmentUpdate struct {
	StartAt         *time.Time
	EndAt           *time.Time
	Status          *string
	AppointmentType *string
	Notes           *string
	PatientIDs      []uuid.UUID // nil keeps the current set
	Payment         PaymentPatch
}

// CreateAppointment books a slot inside one transaction. The psychologist
// row and every patient row are locked first, so two concurrent bookings
// that share the professional or a patient serialize; the loser then sees
// the winner's row in the conflict check. The partial unique index on
// (psychologist_id, start_at) backstops the professional side regardless.
func CreateAppointment(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, in *AppointmentInput) (*Appointment, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockPsychologist(ctx, tx, psychologistID); err != nil {
		return nil, err
	}
	patients, err := lockPatients(ctx, tx, in.PatientIDs, psychologistID)
	if err != nil {
		return nil, err
	}
	if err := checkSlotFree(ctx, tx, psychologistID, in.StartAt, in.PatientIDs, nil); err != nil {
		return nil, err
	}
	if in.PaymentID != nil {
		if err := paymentOwnedByPsychologist(ctx, tx, *in.PaymentID, psychologistID); err != nil {
			return nil, err
		}
	}

	a := &Appointment{
		PsychologistID:  psychologistID,
		StartAt:         in.StartAt,
		EndAt:           in.EndAt,
		Status:          StatusScheduled,
		AppointmentType: in.AppointmentType,
		Notes:           in.Notes,
		PaymentID:       in.PaymentID,
		Patients:        patients,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (psychologist_id, start_at, end_at, status, appointment_type, notes, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, psychologistID, in.StartAt, in.EndAt, StatusScheduled, in.AppointmentType, in.Notes, in.PaymentID).Scan(&a.ID)
	if err != nil {
		return nil, mapAppointmentPgError(err)
	}
	for _, p := range patients {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointment_patients (appointment_id, patient_id) VALUES ($1, $2)
		`, a.ID, p.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapAppointmentPgError(err)
	}
	return a, nil
}

// UpdateAppointment applies a partial update. When the start time, status or
// patient set changes, conflicts are re-checked with the appointment itself
// excluded so rescheduling onto the same slot is always allowed.
func UpdateAppointment(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID, up *AppointmentUpdate) (*Appointment, error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockPsychologist(ctx, tx, psychologistID); err != nil {
		return nil, err
	}

	var cur Appointment
	err = tx.QueryRow(ctx, `
		SELECT id, psychologist_id, start_at, end_at, status, appointment_type, notes, payment_id
		FROM appointments
		WHERE id = $1 AND psychologist_id = $2
		FOR UPDATE
	`, id, psychologistID).Scan(&cur.ID, &cur.PsychologistID, &cur.StartAt, &cur.EndAt,
		&cur.Status, &cur.AppointmentType, &cur.Notes, &cur.PaymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if up.StartAt != nil {
		cur.StartAt = *up.StartAt
	}
	if up.EndAt != nil {
		cur.EndAt = up.EndAt
	}
	if up.Status != nil {
		cur.Status = *up.Status
	}
	if up.AppointmentType != nil {
		cur.AppointmentType = *up.AppointmentType
	}
	if up.Notes != nil {
		cur.Notes = up.Notes
	}
	if up.Payment.Set {
		cur.PaymentID = up.Payment.ID
		if up.Payment.ID != nil {
			if err := paymentOwnedByPsychologist(ctx, tx, *up.Payment.ID, psychologistID); err != nil {
				return nil, err
			}
		}
	}

	if cur.EndAt != nil && cur.EndAt.Before(cur.StartAt) {
		return nil, Validationf("horário de término não pode ser anterior ao início")
	}

	patientIDs := up.PatientIDs
	if patientIDs == nil {
		patientIDs, err = appointmentPatientIDs(ctx, tx, id)
		if err != nil {
			return nil, err
		}
	}
	patients, err := lockPatients(ctx, tx, patientIDs, psychologistID)
	if err != nil {
		return nil, err
	}
	cur.Patients = patients

	if cur.Status != StatusCancelled {
		if err := checkSlotFree(ctx, tx, psychologistID, cur.StartAt, patientIDs, &id); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET start_at = $1, end_at = $2, status = $3, appointment_type = $4,
		    notes = $5, payment_id = $6, updated_at = now()
		WHERE id = $7
	`, cur.StartAt, cur.EndAt, cur.Status, cur.AppointmentType, cur.Notes, cur.PaymentID, id); err != nil {
		return nil, mapAppointmentPgError(err)
	}
	if up.PatientIDs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM appointment_patients WHERE appointment_id = $1`, id); err != nil {
			return nil, err
		}
		for _, p := range patients {
			if _, err := tx.Exec(ctx, `
				INSERT INTO appointment_patients (appointment_id, patient_id) VALUES ($1, $2)
			`, id, p.ID); err != nil {
				return nil, err
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapAppointmentPgError(err)
	}
	return &cur, nil
}

// DeleteAppointment removes the appointment and, if one was linked, its
// payment. Removal is physical; cancelled history should use the CANCELLED
// status instead.
func DeleteAppointment(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var paymentID *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT payment_id FROM appointments WHERE id = $1 AND psychologist_id = $2
		FOR UPDATE
	`, id, psychologistID).Scan(&paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
		return err
	}
	if paymentID != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE id = $1`, *paymentID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func AppointmentByIDAndPsychologist(ctx context.Context, pool *pgxpool.Pool, id, psychologistID uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := pool.QueryRow(ctx, `
		SELECT id, psychologist_id, start_at, end_at, status, appointment_type, notes, payment_id
		FROM appointments
		WHERE id = $1 AND psychologist_id = $2
	`, id, psychologistID).Scan(&a.ID, &a.PsychologistID, &a.StartAt, &a.EndAt,
		&a.Status, &a.AppointmentType, &a.Notes, &a.PaymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	byAppt, err := patientsForAppointments(ctx, pool, []uuid.UUID{a.ID})
	if err != nil {
		return nil, err
	}
	a.Patients = byAppt[a.ID]
	return &a, nil
}

type AppointmentFilter struct {
	From      *time.Time
	To        *time.Time
	Status    *string
	PatientID *uuid.UUID
	Limit     int
	Offset    int
}

func AppointmentsByPsychologist(ctx context.Context, pool *pgxpool.Pool, psychologistID uuid.UUID, f AppointmentFilter) ([]Appointment, error) {
	q := `
		SELECT a.id, a.psychologist_id, a.start_at, a.end_at, a.status, a.appointment_type, a.notes, a.payment_id
		FROM appointments a
		WHERE a.psychologist_id = $1
		  AND ($2::timestamptz IS NULL OR a.start_at >= $2)
		  AND ($3::timestamptz IS NULL OR a.start_at < $3)
		  AND ($4::text IS NULL OR a.status = $4)
		  AND ($5::uuid IS NULL OR a.id IN (SELECT appointment_id FROM appointment_patients WHERE patient_id = $5))
		ORDER BY a.start_at
	`
	args := []interface{}{psychologistID, f.From, f.To, f.Status, f.PatientID}
	if f.Limit > 0 {
		q += ` LIMIT $6 OFFSET $7`
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Appointment
	var ids []uuid.UUID
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PsychologistID, &a.StartAt, &a.EndAt,
			&a.Status, &a.AppointmentType, &a.Notes, &a.PaymentID); err != nil {
			return nil, err
		}
		list = append(list, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		byAppt, err := patientsForAppointments(ctx, pool, ids)
		if err != nil {
			return nil, err
		}
		for i := range list {
			list[i].Patients = byAppt[list[i].ID]
		}
	}
	return list, nil
}

func lockPsychologist(ctx context.Context, tx pgx.Tx, psychologistID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT id FROM psychologists WHERE id = $1 AND deleted_at IS NULL FOR UPDATE
	`, psychologistID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// checkSlotFree reports a conflict when the professional or any of the
// patients already has a non-cancelled appointment at exactly startAt.
func checkSlotFree(ctx context.Context, tx pgx.Tx, psychologistID uuid.UUID, startAt time.Time, patientIDs []uuid.UUID, excludeID *uuid.UUID) error {
	var taken bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE psychologist_id = $1 AND start_at = $2 AND status <> 'CANCELLED'
			  AND ($3::uuid IS NULL OR id <> $3)
		)
	`, psychologistID, startAt, excludeID).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return Conflictf("já existe atendimento marcado para este horário")
	}
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments a
			JOIN appointment_patients ap ON ap.appointment_id = a.id
			WHERE ap.patient_id = ANY($1) AND a.start_at = $2 AND a.status <> 'CANCELLED'
			  AND ($3::uuid IS NULL OR a.id <> $3)
		)
	`, patientIDs, startAt, excludeID).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return Conflictf("paciente já possui atendimento marcado para este horário")
	}
	return nil
}

func appointmentPatientIDs(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		SELECT patient_id FROM appointment_patients WHERE appointment_id = $1
	`, appointmentID)
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

func patientsForAppointments(ctx context.Context, pool *pgxpool.Pool, appointmentIDs []uuid.UUID) (map[uuid.UUID][]PatientSummary, error) {
	rows, err := pool.Query(ctx, `
		SELECT ap.appointment_id, p.id, p.full_name
		FROM appointment_patients ap
		JOIN patients p ON p.id = ap.patient_id
		WHERE ap.appointment_id = ANY($1)
		ORDER BY p.full_name
	`, appointmentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]PatientSummary)
	for rows.Next() {
		var apptID uuid.UUID
		var p PatientSummary
		if err := rows.Scan(&apptID, &p.ID, &p.FullName); err != nil {
			return nil, err
		}
		out[apptID] = append(out[apptID], p)
	}
	return out, rows.Err()
}

func mapAppointmentPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "ux_appointments_psych_slot":
			return Conflictf("já existe atendimento marcado para este horário")
		case "appointments_payment_id_key":
			return Validationf("pagamento já vinculado a outro atendimento")
		}
	}
	return err
}
