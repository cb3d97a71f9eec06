// Package ticketpdf renders a printable PDF for a ticket, embedding its
// redemption token as a QR image.
package ticketpdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/eventia/ticketing-backend/internal/models"
)

const qrSizePx = 256

// Render produces the PDF bytes for a ticket and its event.
func Render(ticket *models.Ticket, event *models.Event, attendee *models.UserPublic) ([]byte, error) {
	qrPNG, err := qrcode.Encode(ticket.QRCode, qrcode.Medium, qrSizePx)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, event.Name, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s at %s", event.Date.Format("2006-01-02"), event.Time), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, event.Location, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s ticket - %.2f", ticket.Type, ticket.Price), "", 1, "C", false, 0, "")
	if attendee != nil {
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, attendee.Name, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pageW, _ := pdf.GetPageSize()
	const qrMM = 60.0
	pdf.ImageOptions("qr", (pageW-qrMM)/2, pdf.GetY(), qrMM, qrMM, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + qrMM + 6)

	pdf.SetFont("Courier", "", 10)
	pdf.CellFormat(0, 6, ticket.QRCode, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
