package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pucciNatan/AmpliarProject/internal/api"
	"github.com/pucciNatan/AmpliarProject/internal/auth"
	"github.com/pucciNatan/AmpliarProject/internal/cache"
	"github.com/pucciNatan/AmpliarProject/internal/config"
	"github.com/pucciNatan/AmpliarProject/internal/crypto"
	"github.com/pucciNatan/AmpliarProject/internal/email"
	"github.com/pucciNatan/AmpliarProject/internal/middleware"
	"github.com/pucciNatan/AmpliarProject/internal/migrate"
	"github.com/pucciNatan/AmpliarProject/internal/seed"
)

func main() {
	cfg := config.Load()
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	keys, err := crypto.ParseKeysEnv(cfg.DataEncryptionKeys)
	if err != nil {
		log.Fatalf("chaves de criptografia: %v", err)
	}

	var pool *pgxpool.Pool
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("config postgres: %v", err)
		}
		if cfg.DBMaxConns > 0 {
			poolConfig.MaxConns = int32(cfg.DBMaxConns)
		}
		if cfg.DBMinConns > 0 {
			poolConfig.MinConns = int32(cfg.DBMinConns)
		}
		if cfg.DBMaxConnLifetime > 0 {
			poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
		}
		pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatalf("conexão postgres: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			log.Fatalf("ping postgres: %v", err)
		}
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatalf("conexão gorm: %v", err)
		}
		if err := migrate.Run(context.Background(), db, "migrations"); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		if err := seed.Run(context.Background(), db); err != nil {
			log.Printf("seed (ignored if already applied): %v", err)
		}
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no database"}`))
			return
		}
		if err := pool.Ping(context.Background()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	h := &api.Handler{Pool: pool, DB: db, Cfg: cfg, Cache: cache.New(5 * time.Minute), Keys: keys}
	h.SetHashPassword(auth.HashPassword)
	if cfg.AppPublicURL != "" {
		mailCfg := &email.Config{
			Host:     cfg.SMTPHost,
			Port:     email.PortFromString(cfg.SMTPPort),
			User:     cfg.SMTPUser,
			Pass:     cfg.SMTPPass,
			FromName: cfg.SMTPFromName,
			FromAddr: cfg.SMTPFromEmail,
		}
		mailCfg.LogConfigSummary()
		h.SetSendPasswordResetEmail(func(to, token string) error {
			resetURL := cfg.AppPublicURL + "/reset-password?token=" + token
			return mailCfg.SendPasswordReset(to, resetURL)
		})
	} else {
		log.Printf("[email] Envio de e-mail desativado: APP_PUBLIC_URL vazio. Defina APP_PUBLIC_URL para habilitar reset de senha por e-mail.")
	}

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/password/forgot", h.ForgotPassword).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/password/reset", h.ResetPassword).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/me", h.UpdateMe).Methods(http.MethodPatch)
	protected.HandleFunc("/me", h.DeleteMe).Methods(http.MethodDelete)
	protected.HandleFunc("/me/password", h.ChangePassword).Methods(http.MethodPut)
	protected.HandleFunc("/me/working-hours", h.ListWorkingHours).Methods(http.MethodGet)
	protected.HandleFunc("/me/working-hours", h.PutWorkingHours).Methods(http.MethodPut)

	protected.HandleFunc("/patients", h.ListPatients).Methods(http.MethodGet)
	protected.HandleFunc("/patients", h.CreatePatient).Methods(http.MethodPost)
	protected.HandleFunc("/patients/{patientId}", h.GetPatient).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{patientId}", h.UpdatePatient).Methods(http.MethodPatch)
	protected.HandleFunc("/patients/{patientId}", h.DeletePatient).Methods(http.MethodDelete)
	protected.HandleFunc("/patients/{patientId}/guardians/{guardianId}", h.LinkGuardian).Methods(http.MethodPut)
	protected.HandleFunc("/patients/{patientId}/guardians/{guardianId}", h.UnlinkGuardian).Methods(http.MethodDelete)

	protected.HandleFunc("/guardians", h.ListGuardians).Methods(http.MethodGet)
	protected.HandleFunc("/guardians", h.CreateGuardian).Methods(http.MethodPost)
	protected.HandleFunc("/guardians/{guardianId}", h.GetGuardian).Methods(http.MethodGet)
	protected.HandleFunc("/guardians/{guardianId}", h.UpdateGuardian).Methods(http.MethodPatch)
	protected.HandleFunc("/guardians/{guardianId}", h.DeleteGuardian).Methods(http.MethodDelete)

	protected.HandleFunc("/payers", h.ListPayers).Methods(http.MethodGet)
	protected.HandleFunc("/payers", h.CreatePayer).Methods(http.MethodPost)
	protected.HandleFunc("/payers/{payerId}", h.GetPayer).Methods(http.MethodGet)
	protected.HandleFunc("/payers/{payerId}", h.UpdatePayer).Methods(http.MethodPatch)
	protected.HandleFunc("/payers/{payerId}", h.DeletePayer).Methods(http.MethodDelete)

	protected.HandleFunc("/payments", h.ListPayments).Methods(http.MethodGet)
	protected.HandleFunc("/payments", h.CreatePayment).Methods(http.MethodPost)
	protected.HandleFunc("/payments/{paymentId}", h.GetPayment).Methods(http.MethodGet)
	protected.HandleFunc("/payments/{paymentId}", h.UpdatePayment).Methods(http.MethodPatch)
	protected.HandleFunc("/payments/{paymentId}", h.DeletePayment).Methods(http.MethodDelete)
	protected.HandleFunc("/payments/{paymentId}/receipt", h.PaymentReceipt).Methods(http.MethodGet)

	protected.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", h.GetAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}", h.UpdateAppointment).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}", h.DeleteAppointment).Methods(http.MethodDelete)

	chain := middleware.Recover(middleware.RequestID(middleware.Timeout(cfg.RequestTimeoutSec)(middleware.CORS(cfg.CORSOrigins)(middleware.Gzip(r)))))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("backend listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("backend stopped")
}
