package convert

import (
	"github.com/thywilljoshua/site-diary/internal/ai"
	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/extract"
	"github.com/thywilljoshua/site-diary/internal/logger"
	"github.com/thywilljoshua/site-diary/internal/metrics"
	"github.com/thywilljoshua/site-diary/internal/render"
)

// Result describes one pipeline run.
type Result struct {
	Source   string         `json:"source"`
	Pages    int            `json:"pages"`
	Reader   string         `json:"reader"`
	Enhanced bool           `json:"enhanced"`
	Summary  diary.Summary  `json:"summary"`
	Outputs  []string       `json:"outputs"`
	Timings  map[string]int `json:"timings_ms"`
	// Record is the record that was rendered, or the last good draft when a
	// later stage failed.
	Record *diary.Record `json:"record"`
}

// Config wires the stages together. Nil stages get defaults: a plain
// extractor, no enhancement and a renderer without a company header.
type Config struct {
	OutDir string
	// Name is the base name of the outputs. Defaults to the slug of the
	// source document name.
	Name      string
	WriteJSON bool
	WriteXLSX bool
	// KeepDraftOnAIError renders the extracted draft when enhancement fails
	// instead of stopping.
	KeepDraftOnAIError bool

	Extractor *extract.Extractor
	Enhancer  ai.Enhancer
	Renderer  *render.Renderer
	Metrics   *metrics.Metrics
	Logger    logger.Logger
}
