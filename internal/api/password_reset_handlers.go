package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pucciNatan/AmpliarProject/internal/auth"
	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ForgotPassword sempre responde 200 com a mesma mensagem para não revelar
// se o e-mail está cadastrado.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		forgotPasswordOK(w)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	const exp = time.Hour
	if p, err := repo.PsychologistByEmail(r.Context(), h.Pool, req.Email); err == nil {
		tok, errTok := repo.CreatePasswordResetToken(r.Context(), h.Pool, p.ID, exp)
		if errTok != nil {
			log.Printf("[password-reset] falha ao gerar token para %s: %v", req.Email, errTok)
		}
		if tok != "" {
			if h.sendPasswordResetEmail != nil {
				log.Printf("[password-reset] enviando para %s", req.Email)
				if errSend := h.sendPasswordResetEmail(req.Email, tok); errSend != nil {
					log.Printf("[password-reset] falha ao enviar e-mail para %s: %v", req.Email, errSend)
				}
			} else {
				log.Printf("[password-reset] email disabled (would send to %s)", req.Email)
			}
		}
	}
	forgotPasswordOK(w)
}

func forgotPasswordOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"message":"Se o e-mail existir, você receberá instruções."}`))
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if req.Token == "" || len(req.NewPassword) < 8 {
		writeJSONError(w, http.StatusBadRequest, "token e nova senha (mínimo 8 caracteres) são obrigatórios")
		return
	}
	userID, err := repo.ConsumePasswordResetToken(r.Context(), h.Pool, req.Token)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "token inválido ou expirado")
		return
	}
	hashFn := h.hashPassword
	if hashFn == nil {
		hashFn = auth.HashPassword
	}
	hash, err := hashFn(req.NewPassword)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal")
		return
	}
	if err := repo.UpdatePsychologistPassword(r.Context(), h.Pool, userID, hash); err != nil {
		writeRepoError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"message":"Senha alterada com sucesso."}`))
}
