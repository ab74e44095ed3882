package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func createTestPsychologist(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	p := &Psychologist{
		FullName:     "Psicólogo Teste",
		Email:        fmt.Sprintf("teste-%s@ampliar.local", uuid.New()),
		PasswordHash: "x",
		Phone:        "11999990000",
	}
	if err := CreatePsychologist(ctx, pool, p); err != nil {
		t.Fatalf("CreatePsychologist: %v", err)
	}
	return p.ID
}

func createTestPatient(t *testing.T, ctx context.Context, pool *pgxpool.Pool, owner uuid.UUID, name string) uuid.UUID {
	t.Helper()
	p := &Patient{
		PsychologistID: owner,
		FullName:       name,
		Phone:          "11988887777",
		BirthDate:      "2000-01-15",
	}
	if err := CreatePatient(ctx, pool, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	return p.ID
}

// TestTenantIsolation exige DATABASE_URL. Rode: go test -v -run TestTenantIsolation ./internal/repo
func TestTenantIsolation(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	ownerA := createTestPsychologist(t, ctx, pool)
	ownerB := createTestPsychologist(t, ctx, pool)
	patientA := createTestPatient(t, ctx, pool, ownerA, "Paciente Isolamento")

	// B não enxerga o paciente de A nem pela busca direta.
	if _, err := PatientByIDAndPsychologist(ctx, pool, patientA, ownerB); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant read must be ErrNotFound, got %v", err)
	}
	listB, err := PatientsByPsychologist(ctx, pool, ownerB, 0, 0)
	if err != nil {
		t.Fatalf("PatientsByPsychologist B: %v", err)
	}
	for _, p := range listB {
		if p.ID == patientA {
			t.Errorf("patient from tenant A must not appear when listing tenant B")
		}
	}

	// O dono enxerga normalmente.
	if _, err := PatientByIDAndPsychologist(ctx, pool, patientA, ownerA); err != nil {
		t.Errorf("owner read: %v", err)
	}

	// Update e delete de fora do tenant também são não encontrados.
	if err := UpdatePatient(ctx, pool, patientA, ownerB, nil, nil, nil, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant update must be ErrNotFound, got %v", err)
	}
	if err := SoftDeletePatient(ctx, pool, patientA, ownerB); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant delete must be ErrNotFound, got %v", err)
	}
}

func TestTenantIsolation_Payers(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	ownerA := createTestPsychologist(t, ctx, pool)
	ownerB := createTestPsychologist(t, ctx, pool)

	payer := &Payer{PsychologistID: ownerA, FullName: "Pagador Isolamento", Phone: "11911112222"}
	if err := CreatePayer(ctx, pool, payer); err != nil {
		t.Fatalf("CreatePayer: %v", err)
	}
	if _, err := PayerByIDAndPsychologist(ctx, pool, payer.ID, ownerB); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant payer read must be ErrNotFound, got %v", err)
	}

	// Pagamento referenciando pagador de outro tenant não pode ser criado.
	pay := &Payment{PayerID: payer.ID, Amount: "100.00", PaymentDate: "2026-01-10"}
	if err := CreatePayment(ctx, pool, ownerB, pay); !errors.Is(err, ErrNotFound) {
		t.Errorf("payment with foreign payer must be ErrNotFound, got %v", err)
	}
	if err := CreatePayment(ctx, pool, ownerA, pay); err != nil {
		t.Fatalf("CreatePayment owner: %v", err)
	}
	if _, err := PaymentByIDAndPsychologist(ctx, pool, pay.ID, ownerB); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant payment read must be ErrNotFound, got %v", err)
	}
}
