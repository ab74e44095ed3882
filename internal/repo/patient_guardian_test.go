package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func createTestGuardian(t *testing.T, ctx context.Context, pool *pgxpool.Pool, owner uuid.UUID, name string) uuid.UUID {
	t.Helper()
	g := &LegalGuardian{
		PsychologistID: owner,
		FullName:       name,
		Phone:          "11933332222",
	}
	if err := CreateLegalGuardian(ctx, pool, g); err != nil {
		t.Fatalf("CreateLegalGuardian: %v", err)
	}
	return g.ID
}

// TestReplacePatientGuardians exige DATABASE_URL.
func TestReplacePatientGuardians(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	owner := createTestPsychologist(t, ctx, pool)
	patient := createTestPatient(t, ctx, pool, owner, "Paciente Responsáveis")
	g1 := createTestGuardian(t, ctx, pool, owner, "Responsável Um")
	g2 := createTestGuardian(t, ctx, pool, owner, "Responsável Dois")

	if err := ReplacePatientGuardians(ctx, pool, patient, []uuid.UUID{g1, g2, g1}); err != nil {
		t.Fatalf("ReplacePatientGuardians: %v", err)
	}
	ids, err := GuardianIDsByPatient(ctx, pool, patient)
	if err != nil {
		t.Fatalf("GuardianIDsByPatient: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 guardians after replace (deduped), got %d", len(ids))
	}

	// Um id inexistente no novo conjunto não pode deixar o paciente pela
	// metade: a troca inteira falha e o conjunto anterior permanece.
	if err := ReplacePatientGuardians(ctx, pool, patient, []uuid.UUID{g2, uuid.New()}); err == nil {
		t.Fatal("replace with unknown guardian id must fail")
	}
	ids, err = GuardianIDsByPatient(ctx, pool, patient)
	if err != nil {
		t.Fatalf("GuardianIDsByPatient after failed replace: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("failed replace must keep previous set, got %d guardians", len(ids))
	}

	if err := ReplacePatientGuardians(ctx, pool, patient, []uuid.UUID{g2}); err != nil {
		t.Fatalf("shrink to one guardian: %v", err)
	}
	ids, err = GuardianIDsByPatient(ctx, pool, patient)
	if err != nil {
		t.Fatalf("GuardianIDsByPatient after shrink: %v", err)
	}
	if len(ids) != 1 || ids[0] != g2 {
		t.Fatalf("expected only the remaining guardian, got %v", ids)
	}
}
