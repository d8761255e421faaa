// Package ticket renders e-tickets for confirmed bookings.
package ticket

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/cinema-booking/internal/model"
)

const timeLayout = "Mon 02 Jan 2006 15:04 MST"

// Renderer draws single page A4 e-tickets. The QR code encodes the booking
// code, which staff look up at the door.
type Renderer struct {
	Title string // header line, e.g. the cinema name
}

func NewRenderer(title string) *Renderer {
	if title == "" {
		title = "CINEMA E-TICKET"
	}
	return &Renderer{Title: title}
}

// Render returns the PDF bytes of the booking's e-ticket.
func (r *Renderer) Render(d *model.BookingDetail) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("nil booking")
	}
	qr, err := qrcode.Encode(d.BookingCode, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 15, r.Title)
	pdf.Ln(18)
	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	// summary box with the QR code on its right
	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 55, "F")
	pdf.SetXY(20, yStart+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "BOOKING "+d.BookingCode)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	line(pdf, "Customer: %s", d.CustomerName)
	line(pdf, "Status: %s", d.Status)
	if d.Invoice != nil {
		line(pdf, "Total paid: %s", d.Invoice.Amount)
		line(pdf, "Payment: %s", d.Invoice.PaymentMethod)
	}

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qr))
	pdf.ImageOptions("qr", 145, yStart+5, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 63)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Show this code at the entrance.")
	pdf.Ln(10)

	section(pdf, "SCREENING")
	line(pdf, "Movie: %s", d.MovieTitle)
	if d.MovieRating != "" {
		line(pdf, "Rating: %s", d.MovieRating)
	}
	line(pdf, "Room: %s", d.RoomName)
	line(pdf, "Starts: %s", d.StartTime.Format(timeLayout))
	pdf.Ln(4)

	section(pdf, "SEATS")
	names := make([]string, len(d.Tickets))
	for i, t := range d.Tickets {
		names[i] = t.SeatName
	}
	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 8, strings.Join(names, ", "), "", "", false)
	pdf.Ln(4)

	if len(d.FoodOrders) > 0 {
		section(pdf, "FOOD & DRINKS")
		for _, o := range d.FoodOrders {
			line(pdf, "%d x %s  %s", o.Quantity, o.FoodName, o.Price)
		}
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 8, "This ticket is valid for the screening above only.", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func line(pdf *gofpdf.Fpdf, format string, args ...any) {
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf(format, args...))
	pdf.Ln(6)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
}
