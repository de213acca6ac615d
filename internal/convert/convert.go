// Package convert runs the whole conversion for one report: extract, enhance,
// render, and write the outputs to disk.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thywilljoshua/site-diary/internal/ai"
	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/extract"
	"github.com/thywilljoshua/site-diary/internal/logger"
	"github.com/thywilljoshua/site-diary/internal/metrics"
	"github.com/thywilljoshua/site-diary/internal/render"
)

// ReadDocument loads a report from disk.
func ReadDocument(path string) (extract.RawDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return extract.RawDocument{}, fmt.Errorf("read %s: %w", path, err)
	}
	return extract.RawDocument{Name: filepath.Base(path), Data: b}, nil
}

// Run converts doc and writes <name>.pdf, plus <name>.json and <name>.xlsx
// when asked, into cfg.OutDir. The JSON record is written before rendering
// so an incomplete draft can be fixed and rendered later.
func Run(ctx context.Context, doc extract.RawDocument, cfg Config) (Result, error) {
	cfg = withDefaults(cfg)
	log := cfg.Logger.With(logger.String("source", doc.Name))
	res := Result{Source: doc.Name, Timings: map[string]int{}}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return res, err
	}
	name := cfg.Name
	if name == "" {
		name = outputName(doc.Name)
	}

	var ex *extract.Result
	err := stage(cfg, &res, metrics.StageExtract, func() (err error) {
		ex, err = cfg.Extractor.Extract(ctx, doc)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Pages, res.Reader = ex.Pages, ex.Reader
	res.Record = ex.Record
	log.Info("Extracted draft", logger.Int("pages", ex.Pages), logger.Strings("matched", ex.Matched))

	var rec *diary.Record
	err = stage(cfg, &res, metrics.StageEnhance, func() (err error) {
		rec, err = cfg.Enhancer.Enhance(ctx, ex.Record, ex.Text)
		return err
	})
	switch {
	case err == nil:
		_, isNoop := cfg.Enhancer.(ai.Noop)
		res.Enhanced = !isNoop
		res.Record = rec
	case cfg.KeepDraftOnAIError:
		log.Warn("Enhancement failed, keeping extracted draft", logger.Error(err))
		rec = ex.Record
	default:
		return res, err
	}
	res.Summary = rec.Summary()

	if cfg.WriteJSON {
		p := filepath.Join(cfg.OutDir, name+".json")
		if err := writeJSON(p, rec); err != nil {
			return res, err
		}
		res.Outputs = append(res.Outputs, p)
	}

	var pdf []byte
	err = stage(cfg, &res, metrics.StageRender, func() (err error) {
		pdf, err = cfg.Renderer.Render(rec)
		return err
	})
	if err != nil {
		return res, err
	}
	p := filepath.Join(cfg.OutDir, name+".pdf")
	if err := os.WriteFile(p, pdf, 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", p, err)
	}
	res.Outputs = append(res.Outputs, p)

	if cfg.WriteXLSX {
		var xlsx []byte
		err = stage(cfg, &res, metrics.StageExport, func() (err error) {
			xlsx, err = render.ExportXLSX(rec)
			return err
		})
		if err != nil {
			return res, err
		}
		p := filepath.Join(cfg.OutDir, name+".xlsx")
		if err := os.WriteFile(p, xlsx, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", p, err)
		}
		res.Outputs = append(res.Outputs, p)
	}

	log.Info("Diary written", logger.Strings("outputs", res.Outputs))
	return res, nil
}

func withDefaults(cfg Config) Config {
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	cfg.Logger = logger.OrNop(cfg.Logger)
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(cfg.Logger)
	}
	if cfg.Enhancer == nil {
		cfg.Enhancer = ai.Noop{}
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.New(render.Config{Compress: true})
	}
	return cfg
}

// stage runs fn, recording its duration in res and in the metrics.
func stage(cfg Config, res *Result, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	res.Timings[name] = int(elapsed.Milliseconds())
	cfg.Metrics.ObserveStage(name, elapsed, err)
	cfg.Logger.Debug("Stage finished",
		logger.String("stage", name),
		logger.Duration("elapsed", elapsed),
		logger.Bool("ok", err == nil),
	)
	return err
}

func writeJSON(path string, rec *diary.Record) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// outputName derives a file-safe base name from a document name.
func outputName(docName string) string {
	base := strings.TrimSuffix(filepath.Base(docName), filepath.Ext(docName))
	if s := slugify(base); s != "" {
		return s + "-diary"
	}
	return "daily-diary"
}
