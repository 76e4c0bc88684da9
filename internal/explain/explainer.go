package explain

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Explainer runs the randomized and parallel analyses. It holds configuration
// only, so one Explainer may serve concurrent callers.
type Explainer struct {
	cfg    Config
	logger *slog.Logger
}

// NewExplainer creates an explainer. Invalid concurrency falls back to
// DefaultMaxConcurrency; a nil logger falls back to slog.Default().
func NewExplainer(cfg Config, logger *slog.Logger) *Explainer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	return &Explainer{
		cfg:    cfg,
		logger: logger,
	}
}

// WithSeed returns a copy of the explainer whose random streams derive from seed
func (e *Explainer) WithSeed(seed int64) *Explainer {
	cfg := e.cfg
	cfg.Seed = seed
	cfg.Seeded = true
	return &Explainer{cfg: cfg, logger: e.logger}
}

// Config returns the explainer configuration
func (e *Explainer) Config() Config {
	return e.cfg
}

// newRand returns the random stream for one independent unit of work.
// Seeded explainers give the same stream for the same id on every call.
func (e *Explainer) newRand(stream int64) *rand.Rand {
	if e.cfg.Seeded {
		return rand.New(rand.NewSource(e.cfg.Seed + stream))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano() + stream))
}

func (e *Explainer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, e.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
