package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate carries the fields printed on a completion certificate.
type Certificate struct {
	InternName           string
	ProgramTitle         string
	ProgramDomain        string
	Grade                string
	CompletionPercentage float64
	DurationInWeeks      int
	Issuer               string
	SignedBy             string
	IssuedAt             time.Time
}

// PDFExporter renders completion certificates into PDF bytes.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderCertificate produces an A4 landscape certificate document.
func (e *PDFExporter) RenderCertificate(cert Certificate) ([]byte, error) {
	if cert.InternName == "" || cert.ProgramTitle == "" {
		return nil, fmt.Errorf("certificate requires intern name and program title")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetDrawColor(10, 77, 140)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 18, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(10, 77, 140)
	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 12, strings.ToUpper(cert.InternName), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, "has successfully completed the", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 18)
	program := cert.ProgramTitle
	if cert.ProgramDomain != "" {
		program = fmt.Sprintf("%s (%s)", cert.ProgramTitle, cert.ProgramDomain)
	}
	pdf.CellFormat(0, 10, program, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	summary := fmt.Sprintf("Grade: %s   |   Completion: %.2f%%", cert.Grade, cert.CompletionPercentage)
	if cert.DurationInWeeks > 0 {
		summary = fmt.Sprintf("%s   |   Duration: %d weeks", summary, cert.DurationInWeeks)
	}
	pdf.CellFormat(0, 8, summary, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	issued := cert.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	pdf.SetFont("Arial", "I", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", issued.Format("2 January 2006")), "", 1, "C", false, 0, "")
	if cert.Issuer != "" {
		pdf.CellFormat(0, 6, cert.Issuer, "", 1, "C", false, 0, "")
	}
	if cert.SignedBy != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 6, cert.SignedBy, "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
