package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/resilience"
)

// Guarded wraps a Source with a circuit breaker. While the breaker is open
// Fetch fails immediately with resilience.ErrOpen.
type Guarded struct {
	Source
	breaker *resilience.Breaker
}

// NewGuarded wraps src. Breaker state changes are logged.
func NewGuarded(src Source, cfg resilience.Config) *Guarded {
	log := zap.L().With(zap.String("component", "source"), zap.String("source", src.Name()))
	cfg.OnStateChange = func(from, to resilience.State) {
		log.Warn("source circuit breaker state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return &Guarded{Source: src, breaker: resilience.NewBreaker(cfg)}
}

// Fetch delegates to the wrapped Source through the breaker.
func (g *Guarded) Fetch(ctx context.Context) (*model.RecordSet, error) {
	return resilience.Do(ctx, g.breaker, g.Source.Fetch)
}

// Breaker exposes the breaker for status reporting.
func (g *Guarded) Breaker() *resilience.Breaker { return g.breaker }
