package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/site-diary/internal/ai"
	"github.com/thywilljoshua/site-diary/internal/config"
	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/extract"
	"github.com/thywilljoshua/site-diary/internal/logger"
	"github.com/thywilljoshua/site-diary/internal/render"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app is the state shared by all commands once flags are parsed.
type app struct {
	cfgFile string
	cfg     config.Config
	log     logger.Logger
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"debug":               "debug",
	"log_level":           "log-level",
	"ai.provider":         "ai",
	"ai.model":            "model",
	"ai.timeout":          "ai-timeout",
	"server.addr":         "addr",
	"render.company_name": "company",
	"extract.ocr":         "ocr",
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sitediary",
		Short:         "Convert PDF site reports into Daily Diary documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./sitediary.yaml if present)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("log-level", "info", "log level: debug|info|warn|error")
	pf.String("ai", "off", "AI provider: off|gemini")
	pf.String("model", ai.DefaultModel, "Gemini model name")
	pf.Duration("ai-timeout", ai.DefaultTimeout, "timeout for one AI call")
	pf.String("company", "", "company name printed in the diary header")
	pf.Bool("ocr", true, "OCR scanned reports with pdftoppm and tesseract")

	root.AddCommand(
		extractCmd(a),
		enhanceCmd(a),
		renderCmd(a),
		convertCmd(a),
		serveCmd(a),
		versionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Debug})
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// enhancer builds the configured Enhancer. With AI off it is a Noop.
func (a *app) enhancer(ctx context.Context) (ai.Enhancer, error) {
	if !a.cfg.AIEnabled() {
		return ai.Noop{}, nil
	}
	opts := []ai.GeminiOption{ai.WithTemperature(a.cfg.AI.Temperature)}
	if a.cfg.AI.BaseURL != "" {
		opts = append(opts, ai.WithBaseURL(a.cfg.AI.BaseURL))
	}
	g, err := ai.NewGemini(ctx, a.cfg.AI.APIKey, a.cfg.AI.Model, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	a.log.Debug("AI enabled", logger.String("provider", a.cfg.AI.Provider), logger.String("model", a.cfg.AI.Model))
	return ai.NewGateway(g, ai.Config{Timeout: a.cfg.AI.Timeout}, a.log), nil
}

func (a *app) extractor() *extract.Extractor {
	var opts []extract.Option
	if c := a.cfg.Extract; c.OCR {
		opts = append(opts, extract.WithOCR(extract.OCRConfig{
			Pdftoppm:  c.Pdftoppm,
			Tesseract: c.Tesseract,
			Lang:      c.OCRLang,
			DPI:       c.OCRDPI,
			MaxPages:  c.OCRMaxPages,
		}, nil))
	}
	return extract.New(a.log, opts...)
}

func (a *app) renderer() *render.Renderer {
	return render.New(render.Config{
		CompanyName:  a.cfg.Render.CompanyName,
		CompanyLines: a.cfg.Render.CompanyLines,
		Author:       a.cfg.Render.CompanyName,
		Compress:     a.cfg.Render.Compress,
	})
}

// readRecord loads a diary record from a JSON file, or stdin for "-".
// Absent fields stay absent.
func readRecord(path string) (*diary.Record, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var rec diary.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &rec, nil
}

func writeRecord(w io.Writer, rec *diary.Record) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitediary %s\n", version)
		},
	}
}
