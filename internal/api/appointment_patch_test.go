package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppointmentPatch_PaymentTriState(t *testing.T) {
	id := uuid.New()

	var absent AppointmentPatchRequest
	if err := json.Unmarshal([]byte(`{"notes":"x"}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if absent.PaymentID.Set {
		t.Error("absent payment_id must not be Set")
	}

	var null AppointmentPatchRequest
	if err := json.Unmarshal([]byte(`{"payment_id":null}`), &null); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !null.PaymentID.Set || null.PaymentID.ID != nil {
		t.Errorf("null payment_id must be Set with nil ID, got %+v", null.PaymentID)
	}

	var set AppointmentPatchRequest
	if err := json.Unmarshal([]byte(`{"payment_id":"`+id.String()+`"}`), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !set.PaymentID.Set || set.PaymentID.ID == nil || *set.PaymentID.ID != id {
		t.Errorf("payment_id with value must be Set with ID, got %+v", set.PaymentID)
	}

	var bad AppointmentPatchRequest
	if err := json.Unmarshal([]byte(`{"payment_id":"not-a-uuid"}`), &bad); err == nil {
		t.Error("invalid uuid must fail to unmarshal")
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	now := time.Date(2027, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	payID := uuid.New()

	cases := []struct {
		name      string
		paymentID *uuid.UUID
		startAt   time.Time
		endAt     *time.Time
		want      string
	}{
		{"paid regardless of date", &payID, past, nil, "paid"},
		{"past without payment is overdue", nil, past, nil, "overdue"},
		{"future without payment is pending", nil, future, nil, "pending"},
		{"future end keeps it pending", nil, past, &future, "pending"},
		{"past end is overdue", nil, past, &past, "overdue"},
	}
	for _, c := range cases {
		if got := derivePaymentStatus(c.paymentID, c.startAt, c.endAt, now); got != c.want {
			t.Errorf("%s: got %q want %q", c.name, got, c.want)
		}
	}
}
