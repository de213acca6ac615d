// Package extract turns an uploaded PDF site report into a first draft of the
// diary record by reading its text layer and matching labeled sections.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/logger"
)

// ErrNoText means the document has no extractable text layer, typically a
// scanned report.
var ErrNoText = errors.New("no extractable text")

// ExtractionError reports an unreadable or text-less document.
type ExtractionError struct {
	Document string
	Op       string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Document == "" {
		return fmt.Sprintf("extract: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("extract %s: %s: %v", e.Document, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RawDocument is an uploaded report. Pages is filled in by Extract.
type RawDocument struct {
	Name  string
	Data  []byte
	Pages int
}

// Result is the outcome of one extraction.
type Result struct {
	Record *diary.Record
	// Text is the cleaned text layer with "--- Page N ---" separators.
	Text  string
	Pages int
	// Reader names the text reader that produced Text: "layout", "plain"
	// or "ocr".
	Reader string
	// Matched lists fields that received content, in order of appearance.
	Matched []string
}

// Extractor reads site reports. The zero value is usable.
type Extractor struct {
	log logger.Logger
	ocr *ocrReader
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOCR enables the scanned-report fallback. A nil runner executes the
// configured binaries.
func WithOCR(cfg OCRConfig, runner Runner) Option {
	return func(e *Extractor) {
		e.ocr = &ocrReader{cfg: cfg.withDefaults(), runner: runner}
	}
}

// New returns an Extractor that logs through log. A nil logger discards.
func New(log logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{log: logger.OrNop(log)}
	for _, opt := range opts {
		opt(e)
	}
	if e.ocr != nil {
		e.ocr.log = e.log
		if e.ocr.runner == nil {
			e.ocr.runner = execRunner{log: e.log}
		}
	}
	return e
}

// Extract validates doc, reads its text and maps labeled sections onto a
// new record. Every schema field is present in the result; fields with no
// matching section are empty.
func (e *Extractor) Extract(ctx context.Context, doc RawDocument) (*Result, error) {
	log := logger.OrNop(e.log)
	fail := func(op string, err error) (*Result, error) {
		return nil, &ExtractionError{Document: doc.Name, Op: op, Err: err}
	}

	if len(doc.Data) == 0 {
		return fail("read", errors.New("document is empty"))
	}
	if err := ctx.Err(); err != nil {
		return fail("read", err)
	}

	pages, err := inspect(doc.Data)
	if err != nil {
		return fail("validate", err)
	}

	raw, reader, err := readPages(doc.Data)
	if e.ocr != nil && textLen(raw) < minTextChars {
		scanned, ocrErr := e.ocr.pages(ctx, doc.Data)
		switch {
		case ocrErr != nil:
			log.Warn("OCR fallback failed", logger.String("document", doc.Name), logger.Error(ocrErr))
		case textLen(scanned) > textLen(raw):
			raw, reader, err = scanned, "ocr", nil
		}
	}
	if err != nil {
		return fail("read text", err)
	}

	var (
		all  []textLine
		text strings.Builder
	)
	for i, p := range raw {
		lines := cleanLines(p)
		if len(lines) == 0 {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		fmt.Fprintf(&text, "--- Page %d ---\n", i+1)
		for j, ln := range lines {
			if j > 0 {
				text.WriteByte('\n')
			}
			text.WriteString(ln.text)
		}
		all = append(all, lines...)
	}
	if len(all) == 0 {
		return fail("read text", ErrNoText)
	}

	rec := diary.NewRecord()
	matched := parseSections(all, rec)

	log.Debug("Extracted diary draft",
		logger.String("document", doc.Name),
		logger.Int("pages", pages),
		logger.String("reader", reader),
		logger.Int("lines", len(all)),
		logger.Strings("matched", matched),
	)
	if len(matched) == 0 {
		log.Warn("No labeled sections found", logger.String("document", doc.Name))
	}

	return &Result{
		Record:  rec,
		Text:    text.String(),
		Pages:   pages,
		Reader:  reader,
		Matched: matched,
	}, nil
}
