package qrpass

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/program"
)

const (
	pageMargin = 15.0
	cellWidth  = 90.0
	cellHeight = 110.0
	qrEdge     = 70.0
)

// RenderPDF lays out the four day passes of an attendee on a single A4 page.
// Days without a signed link get a note pointing at the venue QR code.
func RenderPDF(a attendee.Attendee, sched *program.Schedule) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Program Attendance Pass", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, a.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Code: %s", a.UID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(pageMargin, pdf.GetY(), 210-pageMargin, pdf.GetY())
	top := pdf.GetY() + 6

	for _, day := range program.AllDays() {
		col := float64(day.Index() % 2)
		row := float64(day.Index() / 2)
		x := pageMargin + col*cellWidth
		y := top + row*cellHeight
		drawDayCell(pdf, a, sched, day, x, y)
	}

	pdf.SetY(285)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Each code is valid once, on its own day only.", "", 0, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pass pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pass pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawDayCell(pdf *gofpdf.Fpdf, a attendee.Attendee, sched *program.Schedule, day program.Day, x, y float64) {
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(x+2, y, cellWidth-4, cellHeight-6, "F")

	pdf.SetXY(x+2, y+4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(cellWidth-4, 7, day.String(), "", 2, "C", false, 0, "")
	if sched != nil {
		pdf.SetFont("Helvetica", "", 10)
		label := fmt.Sprintf("%s, %s", sched.DayName(day), sched.FormatDate(day))
		pdf.CellFormat(cellWidth-4, 6, label, "", 2, "C", false, 0, "")
	}

	url := a.DayURLs[day.Index()]
	if url == "" {
		pdf.SetXY(x+6, y+45)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(cellWidth-12, 5, "Scan the venue QR code and confirm with your phone number.", "", "C", false)
		return
	}

	png, err := RenderPNG(url, ImageSize)
	if err != nil {
		pdf.SetError(err)
		return
	}
	name := fmt.Sprintf("qr-day%d", int(day))
	opts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, x+(cellWidth-qrEdge)/2, y+22, qrEdge, 0, false, opts, 0, "")
}
