package pdf

import (
	"bytes"
	"testing"
)

func TestPaymentReceipt(t *testing.T) {
	method := "pix"
	doc, err := PaymentReceipt(ReceiptData{
		ReceiptID:        "8f14e45f-ceea-467f-9c2e-000000000000",
		PsychologistName: "Dra. Ana Souza",
		PayerName:        "Carlos Pereira",
		Amount:           "150.00",
		PaymentDate:      "2027-02-10",
		Method:           &method,
		VerifyURL:        "http://localhost:5173/recibos/8f14e45f",
	})
	if err != nil {
		t.Fatalf("PaymentReceipt: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatalf("output is not a PDF (starts with %q)", doc[:8])
	}
	if len(doc) < 1000 {
		t.Errorf("PDF suspiciously small: %d bytes", len(doc))
	}
}

func TestPaymentReceipt_NoQR(t *testing.T) {
	doc, err := PaymentReceipt(ReceiptData{
		ReceiptID:        "x",
		PsychologistName: "Dra. Ana",
		PayerName:        "Pagador",
		Amount:           "50.00",
		PaymentDate:      "2027-02-11",
	})
	if err != nil {
		t.Fatalf("PaymentReceipt without URL: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}
