package api

import (
	"encoding/json"
	"net/http"

	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

type WorkingHoursDay struct {
	DayOfWeek                   int     `json:"day_of_week"`
	Enabled                     bool    `json:"enabled"`
	StartTime                   *string `json:"start_time,omitempty"`
	EndTime                     *string `json:"end_time,omitempty"`
	ConsultationDurationMinutes int     `json:"consultation_duration_minutes"`
}

func (h *Handler) ListWorkingHours(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	list, err := repo.ListWorkingHours(r.Context(), h.DB, owner.ID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal")
		return
	}
	out := make([]WorkingHoursDay, len(list))
	for i := range list {
		out[i] = WorkingHoursDay{
			DayOfWeek:                   list[i].DayOfWeek,
			Enabled:                     list[i].Enabled,
			StartTime:                   list[i].StartTime,
			EndTime:                     list[i].EndTime,
			ConsultationDurationMinutes: list[i].ConsultationDurationMinutes,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"days": out})
}

// PutWorkingHours substitui a agenda semanal: upsert nos dias enviados e
// remoção dos dias desabilitados.
func (h *Handler) PutWorkingHours(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req struct {
		Days []WorkingHoursDay `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	for _, d := range req.Days {
		if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
			writeJSONError(w, http.StatusBadRequest, "day_of_week deve estar entre 0 e 6")
			return
		}
		if d.ConsultationDurationMinutes <= 0 {
			d.ConsultationDurationMinutes = 50
		}
		if !d.Enabled {
			if err := repo.DeleteWorkingHoursDay(r.Context(), h.DB, owner.ID, d.DayOfWeek); err != nil {
				writeJSONError(w, http.StatusInternalServerError, "internal")
				return
			}
			continue
		}
		wh := &repo.WorkingHours{
			PsychologistID:              owner.ID,
			DayOfWeek:                   d.DayOfWeek,
			Enabled:                     true,
			StartTime:                   d.StartTime,
			EndTime:                     d.EndTime,
			ConsultationDurationMinutes: d.ConsultationDurationMinutes,
		}
		if err := repo.UpsertWorkingHours(r.Context(), h.DB, wh); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "internal")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
