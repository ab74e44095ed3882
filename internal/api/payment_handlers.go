package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pucciNatan/AmpliarProject/internal/pdf"
	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

type PaymentRequest struct {
	PayerID     uuid.UUID `json:"payer_id"`
	Amount      string    `json:"amount"`
	PaymentDate string    `json:"payment_date"`
	Method      *string   `json:"method,omitempty"`
}

type PaymentResponse struct {
	ID          string  `json:"id"`
	PayerID     string  `json:"payer_id"`
	PayerName   string  `json:"payer_name"`
	Amount      string  `json:"amount"`
	PaymentDate string  `json:"payment_date"`
	Method      *string `json:"method,omitempty"`
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if req.PayerID == uuid.Nil {
		writeJSONError(w, http.StatusBadRequest, "pagador é obrigatório")
		return
	}
	if err := ValidateAmount(req.Amount); err != nil {
		writeRepoError(w, err)
		return
	}
	if err := ValidatePaymentDate(req.PaymentDate); err != nil {
		writeRepoError(w, err)
		return
	}
	p := &repo.Payment{
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate,
		Method:      req.Method,
	}
	if err := repo.CreatePayment(r.Context(), h.Pool, owner.ID, p); err != nil {
		writeRepoError(w, err)
		return
	}
	full, err := repo.PaymentByIDAndPsychologist(r.Context(), h.Pool, p.ID, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResponse(full))
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if s := r.URL.Query().Get("payer_id"); s != "" {
		payerID, err := uuid.Parse(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "payer_id inválido")
			return
		}
		list, err := repo.PaymentsByPayer(r.Context(), h.Pool, payerID, owner.ID)
		if err != nil {
			writeRepoError(w, err)
			return
		}
		writePaymentList(w, list, 0, 0)
		return
	}
	limit, offset := ParseLimitOffset(r)
	list, err := repo.PaymentsByPsychologist(r.Context(), h.Pool, owner.ID, limit, offset)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writePaymentList(w, list, limit, offset)
}

func writePaymentList(w http.ResponseWriter, list []repo.Payment, limit, offset int) {
	out := make([]PaymentResponse, len(list))
	for i := range list {
		out[i] = paymentResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": out,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	p, err := repo.PaymentByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse(p))
}

type PaymentUpdateRequest struct {
	PayerID     *uuid.UUID `json:"payer_id,omitempty"`
	Amount      *string    `json:"amount,omitempty"`
	PaymentDate *string    `json:"payment_date,omitempty"`
	Method      *string    `json:"method,omitempty"`
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	var req PaymentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if req.Amount != nil {
		if err := ValidateAmount(*req.Amount); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	if req.PaymentDate != nil {
		if err := ValidatePaymentDate(*req.PaymentDate); err != nil {
			writeRepoError(w, err)
			return
		}
	}
	if err := repo.UpdatePayment(r.Context(), h.Pool, id, owner.ID, req.PayerID, req.Amount, req.PaymentDate, req.Method); err != nil {
		writeRepoError(w, err)
		return
	}
	p, err := repo.PaymentByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse(p))
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := repo.DeletePayment(r.Context(), h.Pool, id, owner.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaymentReceipt gera o recibo do pagamento em PDF, com QR code de
// verificação apontando para a URL pública da aplicação.
func (h *Handler) PaymentReceipt(w http.ResponseWriter, r *http.Request) {
	owner, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["paymentId"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "id inválido")
		return
	}
	p, err := repo.PaymentByIDAndPsychologist(r.Context(), h.Pool, id, owner.ID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	verifyURL := fmt.Sprintf("%s/recibos/%s", h.Cfg.AppPublicURL, p.ID)
	doc, err := pdf.PaymentReceipt(pdf.ReceiptData{
		ReceiptID:        p.ID.String(),
		PsychologistName: owner.FullName,
		PayerName:        p.PayerName,
		Amount:           p.Amount,
		PaymentDate:      p.PaymentDate,
		Method:           p.Method,
		VerifyURL:        verifyURL,
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="recibo-%s.pdf"`, p.ID))
	_, _ = w.Write(doc)
}

func paymentResponse(p *repo.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID.String(),
		PayerID:     p.PayerID.String(),
		PayerName:   p.PayerName,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
		Method:      p.Method,
	}
}
