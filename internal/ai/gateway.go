package ai

import (
	"context"
	"errors"
	"time"

	"github.com/thywilljoshua/site-diary/internal/diary"
	"github.com/thywilljoshua/site-diary/internal/logger"
)

// Config controls a Gateway. It is built by the caller; the package never
// reads the environment.
type Config struct {
	Timeout time.Duration
}

// Gateway is the Enhancer that talks to a Generator.
type Gateway struct {
	gen     Generator
	timeout time.Duration
	log     logger.Logger
}

// NewGateway returns a gateway over gen.
func NewGateway(gen Generator, cfg Config, log logger.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gateway{gen: gen, timeout: cfg.Timeout, log: logger.OrNop(log)}
}

// Enhance makes one model call and returns a new record with the model's
// answers merged in. Fields the model leaves null or empty keep their draft
// value. rec is not modified, and on error no record is returned.
func (g *Gateway) Enhance(ctx context.Context, rec *diary.Record, rawText string) (*diary.Record, error) {
	if rec == nil {
		rec = diary.NewRecord()
	}
	prompt, err := buildPrompt(rec, rawText)
	if err != nil {
		return nil, &GatewayError{Kind: KindParse, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	answer, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		ge := classify(err)
		g.log.Warn("Model call failed",
			logger.String("kind", string(ge.Kind)),
			logger.Int("status", ge.StatusCode),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		return nil, ge
	}
	g.log.Debug("Model answered",
		logger.Int("bytes", len(answer)),
		logger.Duration("elapsed", time.Since(start)),
	)

	obj, err := extractObject(answer)
	if err != nil {
		return nil, &GatewayError{Kind: KindParse, Err: err}
	}
	upd, err := decodeUpdates(obj)
	if err != nil {
		return nil, &GatewayError{Kind: KindParse, Err: err}
	}
	if len(upd.ignored) > 0 {
		g.log.Warn("Ignoring unknown keys in model answer", logger.Strings("keys", upd.ignored))
	}

	out := rec.Clone()
	out.Fill()
	changed := make([]string, 0, len(upd.values))
	for _, f := range diary.Schema() {
		v, ok := upd.values[f.Name]
		if !ok {
			continue
		}
		if cur, _ := out.Get(f.Name); cur.Equal(v) {
			continue
		}
		if err := out.Set(f.Name, v); err != nil {
			return nil, &GatewayError{Kind: KindParse, Err: err}
		}
		changed = append(changed, f.Name)
	}
	g.log.Info("Enhanced diary", logger.Strings("changed", changed))
	return out, nil
}

// IsTimeout reports whether err is a gateway failure caused by the call
// deadline.
func IsTimeout(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Kind == KindNetwork && errors.Is(err, context.DeadlineExceeded)
}
