//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pucciNatan/AmpliarProject/internal/auth"
	"github.com/pucciNatan/AmpliarProject/internal/cache"
	"github.com/pucciNatan/AmpliarProject/internal/config"
	"github.com/pucciNatan/AmpliarProject/internal/crypto"
	"github.com/pucciNatan/AmpliarProject/internal/middleware"
	"github.com/pucciNatan/AmpliarProject/internal/testutil"
)

func newTestHandler(t *testing.T) (*Handler, *mux.Router) {
	t.Helper()
	ctx := context.Background()
	pool := testutil.OpenPool(ctx)
	if pool == nil {
		t.Skip("DATABASE_URL não configurada para testes de integração")
	}
	t.Cleanup(pool.Close)
	db, _ := testutil.OpenDB(ctx)
	if db == nil {
		t.Skip("DATABASE_URL não configurada para testes de integração")
	}
	if err := testutil.MustMigrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Load()
	keys, err := crypto.ParseKeysEnv(cfg.DataEncryptionKeys)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	h := &Handler{Pool: pool, DB: db, Cfg: cfg, Cache: cache.New(time.Minute), Keys: keys}
	h.SetHashPassword(auth.HashPassword)

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/patients", h.CreatePatient).Methods(http.MethodPost)
	protected.HandleFunc("/patients", h.ListPatients).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{patientId}", h.GetPatient).Methods(http.MethodGet)
	protected.HandleFunc("/payers", h.CreatePayer).Methods(http.MethodPost)
	protected.HandleFunc("/payments", h.CreatePayment).Methods(http.MethodPost)
	protected.HandleFunc("/payments/{paymentId}/receipt", h.PaymentReceipt).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", h.UpdateAppointment).Methods(http.MethodPatch)
	return h, r
}

func doJSON(t *testing.T, r *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// registerAndLogin cria uma conta nova e devolve o token dela.
func registerAndLogin(t *testing.T, r *mux.Router) string {
	t.Helper()
	email := fmt.Sprintf("int-%s@ampliar.local", uuid.New())
	rr := doJSON(t, r, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"full_name": "Psicóloga Integração",
		"email":     email,
		"password":  "Senha123!",
		"phone":     "11988887777",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "Senha123!",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	var out LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out.Token
}

func TestIntegration_RegisterLoginAndBook(t *testing.T) {
	_, r := newTestHandler(t)
	token := registerAndLogin(t, r)

	// Sem token, a API protegida recusa.
	rr := doJSON(t, r, http.MethodGet, "/api/me", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /me: expected 401, got %d", rr.Code)
	}

	rr = doJSON(t, r, http.MethodPost, "/api/patients", token, map[string]interface{}{
		"full_name":  "Paciente Integração",
		"phone":      "11977776666",
		"cpf":        "52998224725",
		"birth_date": "2001-09-09",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create patient: %d %s", rr.Code, rr.Body.String())
	}
	var patient PatientResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &patient); err != nil {
		t.Fatalf("decode patient: %v", err)
	}
	if patient.CPF == nil || *patient.CPF != "52998224725" {
		t.Errorf("cpf must round-trip decrypted for the owner, got %v", patient.CPF)
	}

	slot := time.Date(2028, 1, 10, 14, 0, 0, 0, time.UTC)
	rr = doJSON(t, r, http.MethodPost, "/api/appointments", token, map[string]interface{}{
		"start_at":         slot.Format(time.RFC3339),
		"appointment_type": "sessão",
		"patient_ids":      []string{patient.ID},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create appointment: %d %s", rr.Code, rr.Body.String())
	}

	// Mesmo horário de novo: 409.
	rr = doJSON(t, r, http.MethodPost, "/api/appointments", token, map[string]interface{}{
		"start_at":         slot.Format(time.RFC3339),
		"appointment_type": "sessão",
		"patient_ids":      []string{patient.ID},
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("double booking: expected 409, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestIntegration_TenantIsolationHTTP(t *testing.T) {
	_, r := newTestHandler(t)
	tokenA := registerAndLogin(t, r)
	tokenB := registerAndLogin(t, r)

	rr := doJSON(t, r, http.MethodPost, "/api/patients", tokenA, map[string]interface{}{
		"full_name":  "Paciente de A",
		"phone":      "11966665555",
		"cpf":        "11144477735",
		"birth_date": "1999-01-01",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create patient: %d %s", rr.Code, rr.Body.String())
	}
	var patient PatientResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &patient); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// B não enxerga o paciente de A; 404 indistinguível de inexistente.
	rr = doJSON(t, r, http.MethodGet, "/api/patients/"+patient.ID, tokenB, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant get: expected 404, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestIntegration_PaymentValidationAndReceipt(t *testing.T) {
	_, r := newTestHandler(t)
	token := registerAndLogin(t, r)

	rr := doJSON(t, r, http.MethodPost, "/api/payers", token, map[string]interface{}{
		"full_name": "Pagador Integração",
		"phone":     "11955554444",
		"cpf":       "52998224725",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create payer: %d %s", rr.Code, rr.Body.String())
	}
	var payer PayerResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payer); err != nil {
		t.Fatalf("decode payer: %v", err)
	}

	paidAt := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	// Valor zerado é 400.
	rr = doJSON(t, r, http.MethodPost, "/api/payments", token, map[string]interface{}{
		"payer_id":     payer.ID,
		"amount":       "0",
		"payment_date": paidAt,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("zero amount: expected 400, got %d %s", rr.Code, rr.Body.String())
	}

	// Data futura é 400.
	rr = doJSON(t, r, http.MethodPost, "/api/payments", token, map[string]interface{}{
		"payer_id":     payer.ID,
		"amount":       "180.00",
		"payment_date": time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("future payment date: expected 400, got %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, r, http.MethodPost, "/api/payments", token, map[string]interface{}{
		"payer_id":     payer.ID,
		"amount":       "180.00",
		"payment_date": paidAt,
		"method":       "pix",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create payment: %d %s", rr.Code, rr.Body.String())
	}
	var payment PaymentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payment); err != nil {
		t.Fatalf("decode payment: %v", err)
	}

	rr = doJSON(t, r, http.MethodGet, "/api/payments/"+payment.ID+"/receipt", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("receipt: %d %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("receipt content type: %s", ct)
	}
}
