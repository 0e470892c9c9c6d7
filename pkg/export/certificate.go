package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Certificate is the content of one award certificate page.
type Certificate struct {
	Number      string
	Competition string
	Year        int
	AwardLevel  string
	Status      string
	IssuedOn    string
	Teacher     string
	EmployeeID  string
	Department  string
	CoTeacher   string
	Students    []string
}

// CertificateRenderer draws one A4 portrait page per certificate, each
// watermarked with its certificate number.
type CertificateRenderer struct {
	// WatermarkPrefix precedes the certificate number in the watermark grid.
	WatermarkPrefix string
}

// NewCertificateRenderer constructs a renderer with the default watermark.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{WatermarkPrefix: "No: "}
}

const (
	certPageWidth  = 210.0
	certPageHeight = 297.0
)

// Render produces a single PDF holding every certificate in order.
func (r *CertificateRenderer) Render(certs []Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("certificate pdf requires at least one certificate")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Award Certificates", false)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, cert := range certs {
		pdf.AddPage()
		r.frame(pdf)
		r.body(pdf, tr, cert)
		r.watermark(pdf, tr(r.WatermarkPrefix+cert.Number))
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *CertificateRenderer) frame(pdf *gofpdf.Fpdf) {
	pdf.SetDrawColor(51, 102, 178)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, certPageWidth-20, certPageHeight-20, "D")
	pdf.SetDrawColor(153, 178, 229)
	pdf.SetLineWidth(0.4)
	pdf.Rect(14, 14, certPageWidth-28, certPageHeight-28, "D")
}

func (r *CertificateRenderer) body(pdf *gofpdf.Fpdf, tr func(string) string, cert Certificate) {
	pdf.SetTextColor(26, 77, 153)
	pdf.SetFont("Arial", "B", 24)
	pdf.SetXY(20, 40)
	pdf.CellFormat(certPageWidth-40, 14, "CERTIFICATE OF AWARD", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.SetX(20)
	pdf.CellFormat(certPageWidth-40, 12, tr(AwardLevelTitle(cert.AwardLevel)), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	line := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetX(28)
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(38, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.SetTextColor(51, 51, 51)
		pdf.MultiCell(certPageWidth-28-38-28, 8, tr(value), "", "L", false)
	}

	year := ""
	if cert.Year > 0 {
		year = fmt.Sprintf("%d", cert.Year)
	}
	instructor := cert.Teacher
	if cert.EmployeeID != "" {
		instructor = fmt.Sprintf("%s (%s)", cert.Teacher, cert.EmployeeID)
	}
	line("Competition", cert.Competition)
	line("Year", year)
	line("Instructor", instructor)
	line("Co-instructor", cert.CoTeacher)
	line("Department", cert.Department)
	line("Students", strings.Join(cert.Students, ", "))
	line("Certificate No.", cert.Number)
	line("Status", cert.Status)
	line("Issued", cert.IssuedOn)
}

func (r *CertificateRenderer) watermark(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Arial", "", 16)
	pdf.SetTextColor(204, 204, 204)
	pdf.SetAlpha(0.2, "Normal")
	for y := 35.0; y < certPageHeight; y += 70 {
		for x := 18.0; x < certPageWidth; x += 88 {
			pdf.TransformBegin()
			pdf.TransformRotate(45, x, y)
			pdf.Text(x, y, text)
			pdf.TransformEnd()
		}
	}
	pdf.SetAlpha(1, "Normal")
}

// AwardLevelTitle turns an award level code such as FIRST_PRIZE into display text.
func AwardLevelTitle(level string) string {
	switch level {
	case "SPECIAL_PRIZE":
		return "Special Prize"
	case "FIRST_PRIZE":
		return "First Prize"
	case "SECOND_PRIZE":
		return "Second Prize"
	case "THIRD_PRIZE":
		return "Third Prize"
	case "EXCELLENCE":
		return "Excellence Award"
	}
	return level
}
