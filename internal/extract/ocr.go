package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/thywilljoshua/site-diary/internal/logger"
)

// minTextChars is the text layer size below which a document is treated as
// scanned and handed to OCR.
const minTextChars = 50

// Runner runs an external command. Tests substitute it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// OCRConfig configures the scanned-report fallback: pages are rasterized
// with pdftoppm and read with tesseract.
type OCRConfig struct {
	Pdftoppm  string // binary name or path, default "pdftoppm"
	Tesseract string // binary name or path, default "tesseract"
	Lang      string // tesseract languages, default "eng"
	DPI       int    // default 300
	MaxPages  int    // 0 means all pages
}

func (c OCRConfig) withDefaults() OCRConfig {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

type execRunner struct {
	log logger.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	fields := []logger.Field{
		logger.String("cmd", name),
		logger.String("args", strings.Join(args, " ")),
		logger.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		r.log.Warn("Command failed", append(fields, logger.Error(err), logger.String("stderr", truncate(errb.String(), 4<<10)))...)
	} else {
		r.log.Debug("Command finished", append(fields, logger.Int("stdout_bytes", out.Len()))...)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}

type ocrReader struct {
	cfg    OCRConfig
	runner Runner
	log    logger.Logger
}

// pages rasterizes data and returns the recognised lines of each page.
// Pages tesseract cannot read are left empty.
func (o *ocrReader) pages(ctx context.Context, data []byte) ([][]textLine, error) {
	dir, err := os.MkdirTemp("", "sitediary-ocr-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			o.log.Warn("Failed to remove OCR work dir", logger.String("dir", dir), logger.Error(err))
		}
	}()

	in := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}
	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(o.cfg.DPI), "-png"}
	if o.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(o.cfg.MaxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := o.runner.Run(ctx, o.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, bytes.TrimSpace(errb))
	}

	// pdftoppm zero-pads page numbers, so names sort in page order.
	images, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(images)
	if len(images) == 0 {
		return nil, errors.New("pdftoppm produced no images")
	}

	pages := make([][]textLine, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, errb, err := o.runner.Run(ctx, o.cfg.Tesseract, img, "stdout", "-l", o.cfg.Lang, "--psm", "6")
		if err != nil {
			o.log.Warn("OCR failed for page",
				logger.Int("page", i+1),
				logger.Error(err),
				logger.String("stderr", truncate(string(errb), 1<<10)),
			)
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, plainLines(strings.Split(string(out), "\n")))
	}
	return pages, nil
}

// textLen counts the non-blank characters of pages.
func textLen(pages [][]textLine) int {
	n := 0
	for _, p := range pages {
		for _, ln := range p {
			n += len(strings.TrimSpace(ln.text))
		}
	}
	return n
}
