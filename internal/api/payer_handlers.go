package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

type PayerRequest struct {
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	CPF      string  `json:"cpf"`
	Email    *string `json:"email,omitempty"`
}

type PayerResponse struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	CPF      *string `json:"cpf,omitempty"`
	Email    *string `json:"email,omitempty"`
}

func (h *Handler) CreatePayer(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req PayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if err := ValidateName(req.FullName); err != nil {
		writeRepoError(w, err)
		return
	}
	if err := ValidatePhone(req.Phone); err != nil {
		writeRepoError(w, err)
		return
	}
	if req.Email != nil {
		if err := ValidateEmail(*req.Email); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	cpfData, err := h.encryptCPF(req.CPF)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	p := &repo.Payer{
		PsychologistID: owner.ID,
		FullName:       strings.TrimSpace(req.FullName),
		Phone:          onlyDigits(req.Phone),
		Email:          req.Email,
		CPF:            *cpfData,
	}
	if err := repo.CreatePayer(r.Context(), h.Pool, p); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.payerResponse(p))
}

func (h *Handler) ListPayers(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	limit, offset := ParseLimitOffset(r)
	list, err := repo.PayersByPsychologist(r.Context(), h.Pool, owner.ID, limit, offset)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	out := make([]PayerResponse, len(list))
	for i := range list {
		out[i] = h.payerResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payers": out,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetPayer(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["payerId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	p, err := repo.PayerByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.payerResponse(p))
}

type PayerUpdateRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	CPF      *string `json:"cpf,omitempty"`
	Email    *string `json:"email,omitempty"`
}

func (h *Handler) UpdatePayer(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["payerId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var req PayerUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if req.FullName != nil {
		if err := ValidateName(*req.FullName); err != nil {
			writeRepoError(w, err)
			return
		}
		t := strings.TrimSpace(*req.FullName)
		req.FullName = &t
	}
	if req.Phone != nil {
		if err := ValidatePhone(*req.Phone); err != nil {
			writeRepoError(w, err)
			return
		}
		d := onlyDigits(*req.Phone)
		req.Phone = &d
	}
	if req.Email != nil && *req.Email != "" {
		if err := ValidateEmail(*req.Email); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	var cpfData *repo.CPFData
	if req.CPF != nil {
		cpfData, err = h.encryptCPF(*req.CPF)
		if err != nil {
			writeRepoError(w, err)
			return
		}
	}
	if err := repo.UpdatePayer(r.Context(), h.Pool, id, owner.ID, req.FullName, req.Phone, req.Email, cpfData); err != nil {
		writeRepoError(w, err)
		return
	}
	p, err := repo.PayerByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.payerResponse(p))
}

// DeletePayer remove o pagador e, em cascata, os pagamentos dele; os
// atendimentos que apontavam para esses pagamentos ficam sem pagamento.
func (h *Handler) DeletePayer(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["payerId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := repo.SoftDeletePayerCascade(r.Context(), h.Pool, id, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payerResponse(p *repo.Payer) PayerResponse {
	return PayerResponse{
		ID:       p.ID.String(),
		FullName: p.FullName,
		Phone:    p.Phone,
		CPF:      h.decryptCPF(&p.CPF),
		Email:    p.Email,
	}
}
