// Package report renders investigation reports as PDF.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Row is one result line of a report.
type Row struct {
	Parameter string
	Value     string
	Unit      string
	Range     string
	Flag      string
}

// Document is everything printed on a report.
type Document struct {
	Organisation string
	Title        string
	Patient      string
	HospitalNo   string
	DateOfBirth  string
	RequestedBy  string
	ReportedBy   string
	ReportedAt   time.Time
	Summary      string
	Rows         []Row
}

var columns = []struct {
	title string
	width float64
}{
	{"Parameter", 60},
	{"Result", 30},
	{"Unit", 25},
	{"Reference", 45},
	{"Flag", 30},
}

// Render writes doc as an A4 PDF to w.
func Render(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(15, 118, 110)
	pdf.CellFormat(0, 10, tr(doc.Organisation), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, tr(doc.Title), "1", 1, "C", false, 0, "")
	pdf.Ln(2)

	addDetail(pdf, tr, "Patient", doc.Patient)
	addDetail(pdf, tr, "Hospital no.", doc.HospitalNo)
	addDetail(pdf, tr, "Date of birth", doc.DateOfBirth)
	addDetail(pdf, tr, "Requested by", doc.RequestedBy)
	addDetail(pdf, tr, "Reported by", doc.ReportedBy)
	if !doc.ReportedAt.IsZero() {
		addDetail(pdf, tr, "Reported at", doc.ReportedAt.Format("02 Jan 2006 15:04"))
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, r := range doc.Rows {
		abnormal := r.Flag == "low" || r.Flag == "high"
		if abnormal {
			pdf.SetTextColor(185, 28, 28)
		}
		cells := []string{r.Parameter, r.Value, r.Unit, r.Range, r.Flag}
		for i, col := range columns {
			pdf.CellFormat(col.width, 8, tr(cells[i]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
		if abnormal {
			pdf.SetTextColor(0, 0, 0)
		}
	}

	if doc.Summary != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(doc.Summary), "", "L", false)
	}

	pdf.SetY(pdf.GetY() + 10)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "Simulated record for training use only", "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func addDetail(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(45, 8, label, "1", 0, "", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, tr(value), "1", 1, "", false, 0, "")
}
