package adapters

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// loadGuard makes Load idempotent and lets Generate check readiness
type loadGuard struct {
	mu      sync.Mutex
	loaded  bool
	backend string
	logger  *zap.Logger
}

func newLoadGuard(backend string, logger *zap.Logger) *loadGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loadGuard{backend: backend, logger: logger}
}

func (g *loadGuard) load(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.loaded {
		g.logger.Info("model already loaded", zap.String("backend", g.backend))
		return nil
	}
	if err := fn(ctx); err != nil {
		return &ModelLoadError{Backend: g.backend, Err: err}
	}
	g.loaded = true
	g.logger.Info("model loaded", zap.String("backend", g.backend))
	return nil
}

func (g *loadGuard) ready() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return &NotLoadedError{Backend: g.backend}
	}
	return nil
}
