package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

// writeRepoError traduz os erros da camada repo para HTTP:
// validação -> 400, não encontrado -> 404, conflito de horário -> 409, resto -> 500.
func writeRepoError(w http.ResponseWriter, err error) {
	var vErr *repo.ValidationError
	if errors.As(err, &vErr) {
		writeJSONError(w, http.StatusBadRequest, vErr.Msg)
		return
	}
	var cErr *repo.ConflictError
	if errors.As(err, &cErr) {
		writeJSONError(w, http.StatusConflict, cErr.Msg)
		return
	}
	if errors.Is(err, repo.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "registro não encontrado")
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		writeJSONError(w, http.StatusGatewayTimeout, "timeout")
		return
	}
	log.Printf("internal error: %v", err)
	writeJSONError(w, http.StatusInternalServerError, "internal")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
