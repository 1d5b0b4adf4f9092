package isr

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const warmConcurrency = 4

// Target is one page the warmer should have in the store.
type Target struct {
	Key      string
	Locale   string
	Path     string
	Generate GenerateFunc
}

// TargetsFunc enumerates the pages to warm. It is called on every run so new
// content is picked up.
type TargetsFunc func(ctx context.Context) ([]Target, error)

// WarmStats summarizes one warming run.
type WarmStats struct {
	Targets  int
	Rendered int
	Failed   int
}

// Prebuild drops expired pages, then renders every missing target into the
// engine's store.
func (e *Engine) Prebuild(ctx context.Context, targets TargetsFunc) (WarmStats, error) {
	if pruner, ok := e.store.(Pruner); ok {
		removed, err := pruner.PruneExpired(ctx, e.now())
		if err != nil {
			log.Warn().Err(err).Msg("prune expired pages")
		} else if removed > 0 {
			log.Info().Int64("removed", removed).Msg("pruned expired pages")
		}
	}

	list, err := targets(ctx)
	if err != nil {
		return WarmStats{}, fmt.Errorf("enumerate pages: %w", err)
	}

	stats := WarmStats{Targets: len(list)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, target := range list {
		g.Go(func() error {
			rendered, err := e.Warm(gctx, target.Key, target.Generate)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				log.Warn().Err(err).Str("key", target.Key).Msg("prebuild page failed")
			case rendered:
				stats.Rendered++
			}
			return nil
		})
	}
	_ = g.Wait()

	return stats, nil
}

// Warmer re-runs Prebuild on a cron schedule.
type Warmer struct {
	cron *cron.Cron
}

// NewWarmer schedules Prebuild. An empty schedule disables warming and
// returns nil.
func NewWarmer(engine *Engine, schedule string, targets TargetsFunc) (*Warmer, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		stats, err := engine.Prebuild(context.Background(), targets)
		if err != nil {
			log.Error().Err(err).Msg("scheduled warm failed")
			return
		}
		log.Info().
			Int("targets", stats.Targets).
			Int("rendered", stats.Rendered).
			Int("failed", stats.Failed).
			Msg("scheduled warm finished")
	})
	if err != nil {
		return nil, fmt.Errorf("parse warm schedule %q: %w", schedule, err)
	}
	return &Warmer{cron: c}, nil
}

// Start begins running the schedule.
func (w *Warmer) Start() {
	if w == nil {
		return
	}
	w.cron.Start()
}

// Stop halts the schedule and waits for a running warm to finish.
func (w *Warmer) Stop() {
	if w == nil {
		return
	}
	<-w.cron.Stop().Done()
}
