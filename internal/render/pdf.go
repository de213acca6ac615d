// Package render produces the final Daily Diary document from a reviewed
// record.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/thywilljoshua/site-diary/internal/diary"
)

// Title is printed at the top of every diary.
const Title = "DAILY DIARY"

// RenderError reports a record that could not be rendered. It wraps a
// *diary.ValidationError when the record was incomplete.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return "render diary: " + e.Err.Error() }

func (e *RenderError) Unwrap() error { return e.Err }

// Config sets the fixed parts of the template.
type Config struct {
	CompanyName  string
	CompanyLines []string
	Author       string
	// Compress deflates page content streams.
	Compress bool
}

// Renderer lays out records on the Daily Diary template.
type Renderer struct {
	cfg Config
}

func New(cfg Config) *Renderer {
	return &Renderer{cfg: cfg}
}

const (
	marginMM   = 15.0
	lineHeight = 6.0
	labelWidth = 42.0
	indentMM   = 6.0
	fontFamily = "Helvetica"
)

// Render validates rec and returns the PDF bytes. Nothing is returned when
// validation fails. Every field is printed as "Label: value", and list items
// as numbered lines under their label.
func (r *Renderer) Render(rec *diary.Record) ([]byte, error) {
	if rec == nil {
		return nil, &RenderError{Err: errors.New("no record")}
	}
	if err := rec.Validate(); err != nil {
		return nil, &RenderError{Err: err}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.cfg.Compress)
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(diaryTitle(rec), true)
	if r.cfg.Author != "" {
		pdf.SetAuthor(r.cfg.Author, true)
	}
	pdf.SetCreator("sitediary", true)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.header(pdf, tr)

	for _, f := range diary.Schema() {
		v, _ := rec.Get(f.Name)
		if f.Kind == diary.KindList {
			listField(pdf, tr, f.Label, v.List)
		} else {
			textField(pdf, tr, f.Label, v.Text)
		}
	}

	signatures(pdf, tr)

	if err := pdf.Error(); err != nil {
		return nil, &RenderError{Err: err}
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Err: fmt.Errorf("write pdf: %w", err)}
	}
	return buf.Bytes(), nil
}

// header is drawn once on the first page. Nothing here may look like a field
// label.
func (r *Renderer) header(pdf *gofpdf.Fpdf, tr func(string) string) {
	if name := strings.TrimSpace(r.cfg.CompanyName); name != "" {
		pdf.SetFont(fontFamily, "B", 14)
		pdf.CellFormat(0, 7, tr(name), "", 1, "C", false, 0, "")
	}
	pdf.SetFont(fontFamily, "", 9)
	for _, ln := range r.cfg.CompanyLines {
		if ln = strings.TrimSpace(ln); ln != "" {
			pdf.CellFormat(0, 5, tr(ln), "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(2)
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 9, Title, "TB", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func textField(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(labelWidth, lineHeight, tr(label+":"), "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		pdf.Ln(lineHeight)
		return
	}
	pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
}

func listField(pdf *gofpdf.Fpdf, tr func(string) string, label string, items []string) {
	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(0, lineHeight, tr(label+":"), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	for i, it := range items {
		pdf.SetX(marginMM + indentMM)
		text := fmt.Sprintf("%d. %s", i+1, strings.Join(strings.Fields(it), " "))
		pdf.MultiCell(0, lineHeight, tr(text), "", "L", false)
	}
	pdf.Ln(1)
}

// signatures draws the sign-off boxes below the fields.
func signatures(pdf *gofpdf.Fpdf, tr func(string) string) {
	const boxH = 22.0
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+boxH+8 > pageH-20 {
		pdf.AddPage()
	}
	pdf.Ln(4)
	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	w := (pageW - left - right) / 3
	y := pdf.GetY()

	pdf.SetFont(fontFamily, "", 9)
	for i := 0; i < 3; i++ {
		x := left + float64(i)*w
		pdf.Rect(x, y, w-2, boxH, "D")
		pdf.SetXY(x+2, y+boxH-7)
		pdf.CellFormat(w-6, 5, tr("Signature:"), "", 0, "L", false, 0, "")
	}
	pdf.SetY(y + boxH + 2)
}

func diaryTitle(rec *diary.Record) string {
	t := "Daily Diary"
	if d := rec.TextOf("date"); d != "" {
		t += " " + d
	}
	if p := rec.TextOf("project"); p != "" {
		t += " - " + p
	}
	return t
}
