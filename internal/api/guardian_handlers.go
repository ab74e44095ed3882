package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

type GuardianRequest struct {
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	CPF      string  `json:"cpf"`
	Email    *string `json:"email,omitempty"`
}

type GuardianResponse struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	CPF      *string `json:"cpf,omitempty"`
	Email    *string `json:"email,omitempty"`
}

func (h *Handler) CreateGuardian(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req GuardianRequest
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
	g := &repo.LegalGuardian{
		PsychologistID: owner.ID,
		FullName:       strings.TrimSpace(req.FullName),
		Phone:          onlyDigits(req.Phone),
		Email:          req.Email,
		CPF:            *cpfData,
	}
	if err := repo.CreateLegalGuardian(r.Context(), h.Pool, g); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.guardianResponse(g))
}

func (h *Handler) ListGuardians(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	limit, offset := ParseLimitOffset(r)
	list, err := repo.LegalGuardiansByPsychologist(r.Context(), h.Pool, owner.ID, limit, offset)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	out := make([]GuardianResponse, len(list))
	for i := range list {
		out[i] = h.guardianResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"guardians": out,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *Handler) GetGuardian(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["guardianId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	g, err := repo.LegalGuardianByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.guardianResponse(g))
}

type GuardianUpdateRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	CPF      *string `json:"cpf,omitempty"`
	Email    *string `json:"email,omitempty"`
}

func (h *Handler) UpdateGuardian(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["guardianId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var req GuardianUpdateRequest
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
	if err := repo.UpdateLegalGuardian(r.Context(), h.Pool, id, owner.ID, req.FullName, req.Phone, req.Email, cpfData); err != nil {
		writeRepoError(w, err)
		return
	}
	g, err := repo.LegalGuardianByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.guardianResponse(g))
}

func (h *Handler) DeleteGuardian(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["guardianId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := repo.SoftDeleteLegalGuardian(r.Context(), h.Pool, id, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkGuardian associa um responsável já cadastrado a um paciente do tenant.
func (h *Handler) LinkGuardian(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	patientID, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	guardianID, err := uuid.Parse(mux.Vars(r)["guardianId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if _, err := repo.PatientByIDAndPsychologist(r.Context(), h.Pool, patientID, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	if _, err := repo.LegalGuardianByIDAndPsychologist(r.Context(), h.Pool, guardianID, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	if err := repo.LinkPatientGuardian(r.Context(), h.Pool, patientID, guardianID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnlinkGuardian(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	patientID, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	guardianID, err := uuid.Parse(mux.Vars(r)["guardianId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if _, err := repo.PatientByIDAndPsychologist(r.Context(), h.Pool, patientID, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	if err := repo.UnlinkPatientGuardian(r.Context(), h.Pool, patientID, guardianID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) guardianResponse(g *repo.LegalGuardian) GuardianResponse {
	return GuardianResponse{
		ID:       g.ID.String(),
		FullName: g.FullName,
		Phone:    g.Phone,
		CPF:      h.decryptCPF(&g.CPF),
		Email:    g.Email,
	}
}
