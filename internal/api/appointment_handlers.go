package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

// NullableUUID distingue três estados no PATCH: campo ausente (Set=false),
// campo null (Set=true, ID=nil) e campo com valor (Set=true, ID!=nil).
type NullableUUID struct {
	Set bool
	ID  *uuid.UUID
}

func (n *NullableUUID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.ID = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	n.ID = &id
	return nil
}

type AppointmentRequest struct {
	StartAt         time.Time   `json:"start_at"`
	EndAt           *time.Time  `json:"end_at,omitempty"`
	AppointmentType string      `json:"appointment_type"`
	Notes           *string     `json:"notes,omitempty"`
	PatientIDs      []uuid.UUID `json:"patient_ids"`
	PaymentID       *uuid.UUID  `json:"payment_id,omitempty"`
}

type AppointmentPatientView struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

type AppointmentResponse struct {
	ID              string                   `json:"id"`
	StartAt         time.Time                `json:"start_at"`
	EndAt           *time.Time               `json:"end_at,omitempty"`
	Status          string                   `json:"status"`
	AppointmentType string                   `json:"appointment_type"`
	Notes           *string                  `json:"notes,omitempty"`
	PaymentID       *string                  `json:"payment_id,omitempty"`
	PaymentStatus   string                   `json:"payment_status"`
	Patients        []AppointmentPatientView `json:"patients"`
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if len(req.PatientIDs) == 0 {
		writeJSONError(w, http.StatusBadRequest, "ao menos um paciente é obrigatório")
		return
	}
	if err := ValidateAppointmentTimes(req.StartAt, req.EndAt); err != nil {
		writeRepoError(w, err)
		return
	}
	if req.StartAt.Before(time.Now()) {
		writeJSONError(w, http.StatusBadRequest, "horário de início não pode estar no passado")
		return
	}
	if err := ValidateAppointmentType(req.AppointmentType); err != nil {
		writeRepoError(w, err)
		return
	}
	if err := ValidateNotes(req.Notes); err != nil {
		writeRepoError(w, err)
		return
	}
	a, err := repo.CreateAppointment(r.Context(), h.Pool, owner.ID, &repo.AppointmentInput{
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
		PatientIDs:      req.PatientIDs,
		PaymentID:       req.PaymentID,
	})
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appointmentResponse(a))
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var f repo.AppointmentFilter
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "parâmetro from inválido (use RFC3339)")
			return
		}
		f.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "parâmetro to inválido (use RFC3339)")
			return
		}
		f.To = &t
	}
	if s := q.Get("status"); s != "" {
		if err := ValidateStatus(s); err != nil {
			writeRepoError(w, err)
			return
		}
		f.Status = &s
	}
	if s := q.Get("patient_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "patient_id inválido")
			return
		}
		f.PatientID = &id
	}
	f.Limit, f.Offset = ParseLimitOffset(r)
	list, err := repo.AppointmentsByPsychologist(r.Context(), h.Pool, owner.ID, f)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	out := make([]AppointmentResponse, len(list))
	for i := range list {
		out[i] = appointmentResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": out,
		"limit":        f.Limit,
		"offset":       f.Offset,
	})
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["appointmentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	a, err := repo.AppointmentByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(a))
}

type AppointmentPatchRequest struct {
	StartAt         *time.Time   `json:"start_at,omitempty"`
	EndAt           *time.Time   `json:"end_at,omitempty"`
	Status          *string      `json:"status,omitempty"`
	AppointmentType *string      `json:"appointment_type,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
	PatientIDs      *[]uuid.UUID `json:"patient_ids,omitempty"`
	PaymentID       NullableUUID `json:"payment_id"`
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["appointmentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var req AppointmentPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if req.Status != nil {
		if err := ValidateStatus(*req.Status); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	if req.AppointmentType != nil {
		if err := ValidateAppointmentType(*req.AppointmentType); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	if err := ValidateNotes(req.Notes); err != nil {
		writeRepoError(w, err)
		return
	}
	if req.PatientIDs != nil && len(*req.PatientIDs) == 0 {
		writeJSONError(w, http.StatusBadRequest, "ao menos um paciente é obrigatório")
		return
	}
	up := &repo.AppointmentUpdate{
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		Status:          req.Status,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
		Payment:         repo.PaymentPatch{Set: req.PaymentID.Set, ID: req.PaymentID.ID},
	}
	if req.PatientIDs != nil {
		up.PatientIDs = *req.PatientIDs
	}
	a, err := repo.UpdateAppointment(r.Context(), h.Pool, id, owner.ID, up)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(a))
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["appointmentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := repo.DeleteAppointment(r.Context(), h.Pool, id, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// derivePaymentStatus classifica o atendimento: "paid" quando há pagamento
// vinculado, "overdue" quando o fim (ou o início, se não houver fim) já passou
// sem pagamento, "pending" nos demais casos.
func derivePaymentStatus(paymentID *uuid.UUID, startAt time.Time, endAt *time.Time, now time.Time) string {
	if paymentID != nil {
		return "paid"
	}
	due := startAt
	if endAt != nil {
		due = *endAt
	}
	if due.Before(now) {
		return "overdue"
	}
	return "pending"
}

func appointmentResponse(a *repo.Appointment) AppointmentResponse {
	var paymentID *string
	if a.PaymentID != nil {
		s := a.PaymentID.String()
		paymentID = &s
	}
	patients := make([]AppointmentPatientView, len(a.Patients))
	for i, p := range a.Patients {
		patients[i] = AppointmentPatientView{ID: p.ID.String(), FullName: p.FullName}
	}
	return AppointmentResponse{
		ID:              a.ID.String(),
		StartAt:         a.StartAt,
		EndAt:           a.EndAt,
		Status:          a.Status,
		AppointmentType: a.AppointmentType,
		Notes:           a.Notes,
		PaymentID:       paymentID,
		PaymentStatus:   derivePaymentStatus(a.PaymentID, a.StartAt, a.EndAt, time.Now()),
		Patients:        patients,
	}
}
