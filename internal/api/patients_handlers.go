package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

type PatientRequest struct {
	FullName    string      `json:"full_name"`
	Phone       string      `json:"phone"`
	CPF         string      `json:"cpf"`
	BirthDate   string      `json:"birth_date"`
	Notes       *string     `json:"notes,omitempty"`
	GuardianIDs []uuid.UUID `json:"guardian_ids,omitempty"`
}

type PatientResponse struct {
	ID          string   `json:"id"`
	FullName    string   `json:"full_name"`
	Phone       string   `json:"phone"`
	CPF         *string  `json:"cpf,omitempty"`
	BirthDate   string   `json:"birth_date"`
	Notes       *string  `json:"notes,omitempty"`
	GuardianIDs []string `json:"guardian_ids"`
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req PatientRequest
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
	if err := ValidateBirthDate(req.BirthDate); err != nil {
		writeRepoError(w, err)
		return
	}
	cpfData, err := h.encryptCPF(req.CPF)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if err := repo.GuardiansExistForPsychologist(r.Context(), h.Pool, req.GuardianIDs, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}

	p := &repo.Patient{
		PsychologistID: owner.ID,
		FullName:       strings.TrimSpace(req.FullName),
		Phone:          onlyDigits(req.Phone),
		BirthDate:      req.BirthDate,
		Notes:          req.Notes,
		CPF:            *cpfData,
	}
	if err := repo.CreatePatient(r.Context(), h.Pool, p); err != nil {
		writeRepoError(w, err)
		return
	}
	if len(req.GuardianIDs) > 0 {
		if err := repo.ReplacePatientGuardians(r.Context(), h.Pool, p.ID, req.GuardianIDs); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, h.patientResponse(r, p))
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	limit, offset := ParseLimitOffset(r)
	total, err := repo.PatientsCountByPsychologist(r.Context(), h.Pool, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	list, err := repo.PatientsByPsychologist(r.Context(), h.Pool, owner.ID, limit, offset)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	type patientItem struct {
		ID        string `json:"id"`
		FullName  string `json:"full_name"`
		Phone     string `json:"phone"`
		BirthDate string `json:"birth_date"`
	}
	out := make([]patientItem, len(list))
	for i := range list {
		out[i] = patientItem{
			ID:        list[i].ID.String(),
			FullName:  list[i].FullName,
			Phone:     list[i].Phone,
			BirthDate: list[i].BirthDate,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": out,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
	})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	p, err := repo.PatientByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.patientResponse(r, p))
}

type PatientUpdateRequest struct {
	FullName    *string      `json:"full_name,omitempty"`
	Phone       *string      `json:"phone,omitempty"`
	CPF         *string      `json:"cpf,omitempty"`
	BirthDate   *string      `json:"birth_date,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	GuardianIDs *[]uuid.UUID `json:"guardian_ids,omitempty"`
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var req PatientUpdateRequest
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
	if req.BirthDate != nil {
		if err := ValidateBirthDate(*req.BirthDate); err != nil {
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
	if req.GuardianIDs != nil {
		if err := repo.GuardiansExistForPsychologist(r.Context(), h.Pool, *req.GuardianIDs, owner.ID); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	if err := repo.UpdatePatient(r.Context(), h.Pool, id, owner.ID, req.FullName, req.Phone, req.BirthDate, req.Notes, cpfData); err != nil {
		writeRepoError(w, err)
		return
	}
	if req.GuardianIDs != nil {
		if err := repo.ReplacePatientGuardians(r.Context(), h.Pool, id, *req.GuardianIDs); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	p, err := repo.PatientByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.patientResponse(r, p))
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := repo.SoftDeletePatient(r.Context(), h.Pool, id, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) patientResponse(r *http.Request, p *repo.Patient) PatientResponse {
	guardianIDs := []string{}
	if ids, err := repo.GuardianIDsByPatient(r.Context(), h.Pool, p.ID); err == nil {
		for _, id := range ids {
			guardianIDs = append(guardianIDs, id.String())
		}
	}
	return PatientResponse{
		ID:          p.ID.String(),
		FullName:    p.FullName,
		Phone:       p.Phone,
		CPF:         h.decryptCPF(&p.CPF),
		BirthDate:   p.BirthDate,
		Notes:       p.Notes,
		GuardianIDs: guardianIDs,
	}
}
