package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func createTestAppointment(t *testing.T, ctx context.Context, pool *pgxpool.Pool, owner uuid.UUID, startAt time.Time, patients ...uuid.UUID) *Appointment {
	t.Helper()
	a, err := CreateAppointment(ctx, pool, owner, &AppointmentInput{
		StartAt:         startAt,
		AppointmentType: "sessão",
		PatientIDs:      patients,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	return a
}

func TestAppointmentConflict_SamePsychologist(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	p1 := createTestPatient(t, ctx, pool, owner, "Paciente Um")
	p2 := createTestPatient(t, ctx, pool, owner, "Paciente Dois")
	slot := time.Date(2027, 3, 10, 14, 0, 0, 0, time.UTC)

	createTestAppointment(t, ctx, pool, owner, slot, p1)

	// Mesmo horário, outro paciente: o profissional está ocupado.
	_, err := CreateAppointment(ctx, pool, owner, &AppointmentInput{
		StartAt:         slot,
		AppointmentType: "sessão",
		PatientIDs:      []uuid.UUID{p2},
	})
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	// Outro profissional no mesmo horário pode.
	other := createTestPsychologist(t, ctx, pool)
	pOther := createTestPatient(t, ctx, pool, other, "Paciente Outro")
	createTestAppointment(t, ctx, pool, other, slot, pOther)
}

func TestAppointmentConflict_SharedPatient(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	p1 := createTestPatient(t, ctx, pool, owner, "Paciente Compartilhado")
	p2 := createTestPatient(t, ctx, pool, owner, "Paciente Livre")
	slot := time.Date(2027, 3, 11, 9, 0, 0, 0, time.UTC)

	createTestAppointment(t, ctx, pool, owner, slot, p1, p2)

	// p1 já está ocupado nesse horário, mesmo em atendimento de grupo.
	_, err := CreateAppointment(ctx, pool, owner, &AppointmentInput{
		StartAt:         slot,
		AppointmentType: "sessão",
		PatientIDs:      []uuid.UUID{p1},
	})
	if !IsConflict(err) {
		t.Fatalf("expected ConflictError for busy patient, got %v", err)
	}
}

func TestAppointmentConflict_CancelledFreesSlot(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	p1 := createTestPatient(t, ctx, pool, owner, "Paciente Cancela")
	slot := time.Date(2027, 3, 12, 10, 0, 0, 0, time.UTC)

	a := createTestAppointment(t, ctx, pool, owner, slot, p1)
	cancelled := StatusCancelled
	if _, err := UpdateAppointment(ctx, pool, a.ID, owner, &AppointmentUpdate{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Após cancelar, o horário volta a ficar livre.
	createTestAppointment(t, ctx, pool, owner, slot, p1)
}

func TestAppointmentUpdate_RescheduleOntoOwnSlot(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	p1 := createTestPatient(t, ctx, pool, owner, "Paciente Remarca")
	slot := time.Date(2027, 3, 13, 11, 0, 0, 0, time.UTC)

	a := createTestAppointment(t, ctx, pool, owner, slot, p1)

	// Atualizar sem mudar o horário não pode conflitar consigo mesmo.
	notes := "observação"
	if _, err := UpdateAppointment(ctx, pool, a.ID, owner, &AppointmentUpdate{Notes: &notes}); err != nil {
		t.Fatalf("self-slot update: %v", err)
	}
}

func TestAppointmentUpdate_PaymentPatch(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	p1 := createTestPatient(t, ctx, pool, owner, "Paciente Pagamento")
	payer := &Payer{PsychologistID: owner, FullName: "Pagador", Phone: "11933334444"}
	if err := CreatePayer(ctx, pool, payer); err != nil {
		t.Fatalf("CreatePayer: %v", err)
	}
	pay := &Payment{PayerID: payer.ID, Amount: "200.00", PaymentDate: "2027-03-14"}
	if err := CreatePayment(ctx, pool, owner, pay); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	a := createTestAppointment(t, ctx, pool, owner, time.Date(2027, 3, 14, 15, 0, 0, 0, time.UTC), p1)

	// Vincula pagamento.
	got, err := UpdateAppointment(ctx, pool, a.ID, owner, &AppointmentUpdate{Payment: PaymentPatch{Set: true, ID: &pay.ID}})
	if err != nil {
		t.Fatalf("attach payment: %v", err)
	}
	if got.PaymentID == nil || *got.PaymentID != pay.ID {
		t.Fatalf("payment not attached: %+v", got.PaymentID)
	}

	// Patch sem o campo mantém o vínculo.
	notes := "mantém pagamento"
	got, err = UpdateAppointment(ctx, pool, a.ID, owner, &AppointmentUpdate{Notes: &notes})
	if err != nil {
		t.Fatalf("neutral patch: %v", err)
	}
	if got.PaymentID == nil {
		t.Fatal("neutral patch must keep payment")
	}

	// Patch com Set e ID nil desvincula.
	got, err = UpdateAppointment(ctx, pool, a.ID, owner, &AppointmentUpdate{Payment: PaymentPatch{Set: true}})
	if err != nil {
		t.Fatalf("detach payment: %v", err)
	}
	if got.PaymentID != nil {
		t.Fatal("detach must clear payment")
	}
}

func TestSoftDeletePatient_CancelsOpenAppointments(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	p1 := createTestPatient(t, ctx, pool, owner, "Paciente Sai")

	a1 := createTestAppointment(t, ctx, pool, owner, time.Date(2027, 4, 1, 9, 0, 0, 0, time.UTC), p1)
	a2 := createTestAppointment(t, ctx, pool, owner, time.Date(2027, 4, 2, 9, 0, 0, 0, time.UTC), p1)
	completed := StatusCompleted
	if _, err := UpdateAppointment(ctx, pool, a2.ID, owner, &AppointmentUpdate{Status: &completed}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := SoftDeletePatient(ctx, pool, p1, owner); err != nil {
		t.Fatalf("SoftDeletePatient: %v", err)
	}

	got1, err := AppointmentByIDAndPsychologist(ctx, pool, a1.ID, owner)
	if err != nil {
		t.Fatalf("get a1: %v", err)
	}
	if got1.Status != StatusCancelled {
		t.Errorf("scheduled appointment must be cancelled after patient delete, got %s", got1.Status)
	}
	got2, err := AppointmentByIDAndPsychologist(ctx, pool, a2.ID, owner)
	if err != nil {
		t.Fatalf("get a2: %v", err)
	}
	if got2.Status != StatusCompleted {
		t.Errorf("completed appointment must stay completed, got %s", got2.Status)
	}

	// Repetir a remoção é not found, não um erro interno.
	if err := SoftDeletePatient(ctx, pool, p1, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete must be ErrNotFound, got %v", err)
	}
}

func TestSoftDeletePayerCascade(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	p1 := createTestPatient(t, ctx, pool, owner, "Paciente Recibo")
	payer := &Payer{PsychologistID: owner, FullName: "Pagador Cascata", Phone: "11955556666"}
	if err := CreatePayer(ctx, pool, payer); err != nil {
		t.Fatalf("CreatePayer: %v", err)
	}
	pay := &Payment{PayerID: payer.ID, Amount: "300.00", PaymentDate: "2027-05-01"}
	if err := CreatePayment(ctx, pool, owner, pay); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	a, err := CreateAppointment(ctx, pool, owner, &AppointmentInput{
		StartAt:         time.Date(2027, 5, 1, 16, 0, 0, 0, time.UTC),
		AppointmentType: "sessão",
		PatientIDs:      []uuid.UUID{p1},
		PaymentID:       &pay.ID,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	if err := SoftDeletePayerCascade(ctx, pool, payer.ID, owner); err != nil {
		t.Fatalf("SoftDeletePayerCascade: %v", err)
	}

	if _, err := PaymentByIDAndPsychologist(ctx, pool, pay.ID, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("payment must be gone after payer cascade, got %v", err)
	}
	got, err := AppointmentByIDAndPsychologist(ctx, pool, a.ID, owner)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got.PaymentID != nil {
		t.Error("appointment must be unlinked from deleted payment")
	}
	if _, err := PayerByIDAndPsychologist(ctx, pool, payer.ID, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("payer must read as not found after soft delete, got %v", err)
	}
}

func TestCreateAppointment_UnknownPatient(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	other := createTestPsychologist(t, ctx, pool)
	foreign := createTestPatient(t, ctx, pool, other, "Paciente Alheio")

	_, err := CreateAppointment(ctx, pool, owner, &AppointmentInput{
		StartAt:         time.Date(2027, 6, 1, 8, 0, 0, 0, time.UTC),
		AppointmentType: "sessão",
		PatientIDs:      []uuid.UUID{foreign},
	})
	if !IsValidation(err) {
		t.Fatalf("foreign patient id must be a validation error, got %v", err)
	}
}
