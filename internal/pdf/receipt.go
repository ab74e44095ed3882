package pdf

import (
	"bytes"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// ReceiptData dados do recibo de pagamento.
type ReceiptData struct {
	ReceiptID        string
	PsychologistName string
	PayerName        string
	Amount           string
	PaymentDate      string
	Method           *string
	VerifyURL        string
}

// PaymentReceipt gera o recibo em PDF com QR code de verificação.
func PaymentReceipt(d ReceiptData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Recibo de Pagamento", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Recibo: "+d.ReceiptID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Profissional: "+d.PsychologistName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Pagador: "+d.PayerName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Valor: R$ "+d.Amount, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Data do pagamento: "+d.PaymentDate, "", 1, "L", false, 0, "")
	if d.Method != nil && *d.Method != "" {
		pdf.CellFormat(0, 6, "Forma de pagamento: "+*d.Method, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if d.VerifyURL != "" {
		qrPNG, err := qrcode.Encode(d.VerifyURL, qrcode.Medium, 128)
		if err == nil {
			tmpFile, err := os.CreateTemp("", "qr-*.png")
			if err == nil {
				tmpFile.Write(qrPNG)
				path := tmpFile.Name()
				tmpFile.Close()
				defer os.Remove(path)
				pdf.RegisterImage(path, "PNG")
				pdf.Image(path, 15, pdf.GetY(), 30, 30, false, "", 0, "")
				pdf.SetY(pdf.GetY() + 32)
			}
		}
		pdf.CellFormat(0, 6, "Link para verificacao: "+d.VerifyURL, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
	pdf.MultiCell(0, 5, "Este recibo foi gerado eletronicamente e pode ser conferido pelo link acima.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
