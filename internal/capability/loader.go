package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Zachdehooge/wms-animator/internal/events"
	"github.com/Zachdehooge/wms-animator/internal/fetcher"
	"github.com/Zachdehooge/wms-animator/internal/metrics"
)

// Fetcher retrieves the parsed capabilities of a bundle.
type Fetcher interface {
	FetchCapabilities(ctx context.Context, product, bundle string) (*fetcher.Capabilities, error)
}

// Loader fetches every bundle concurrently and ingests each result as it
// arrives. Completion order between bundles is not significant.
type Loader struct {
	Index   *Index
	Fetcher Fetcher
	Product string
	Bundles []Bundle
	Emitter events.Emitter
	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	// mu serializes ingestion and emission.
	mu sync.Mutex
}

// Load fetches all bundles. Failed bundles are reported through the emitter
// (unauthorized) and in the returned error; they are not retried here.
func (l *Loader) Load(ctx context.Context) error {
	// A plain group rather than WithContext: one bundle failing must not
	// cancel the others, and every failure is reported, not just the first.
	var g errgroup.Group
	errs := make([]error, len(l.Bundles))
	for i, bundle := range l.Bundles {
		i, bundle := i, bundle
		g.Go(func() error {
			errs[i] = l.loadBundle(ctx, bundle)
			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}

func (l *Loader) loadBundle(ctx context.Context, bundle Bundle) error {
	logger := l.Logger.With().Str("bundle", string(bundle)).Logger()

	caps, err := l.Fetcher.FetchCapabilities(ctx, l.Product, string(bundle))
	unauthorized := errors.Is(err, fetcher.ErrUnauthorized)
	if l.Metrics != nil {
		l.Metrics.CapabilityFetches.WithLabelValues(string(bundle), metrics.FetchResult(err, unauthorized)).Inc()
	}
	if err != nil {
		if unauthorized {
			logger.Warn().Msg("API request failed for the Weather WMS API, a valid API key is required")
			l.emit(events.Event{Type: events.EventUnauthorized, Payload: events.Unauthorized{Bundle: string(bundle)}})
		} else {
			logger.Error().Err(err).Msg("failed to retrieve capabilities")
		}
		return fmt.Errorf("%s: %w", bundle, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	ready, err := l.Index.Ingest(bundle, caps)
	if err != nil {
		logger.Error().Err(err).Msg("failed to index capabilities")
		return err
	}
	if latest, ok := l.Index.Latest(bundle); ok {
		logger.Info().Str("date", latest.Date).Str("hour", latest.Hour).Int("layers", len(latest.Layers)).Msg("indexed capabilities")
	}
	if ready {
		titles := l.Index.Titles()
		logger.Info().Int("options", len(titles)).Msg("WMS configuration is ready")
		if l.Emitter != nil {
			l.Emitter.Emit(events.Event{Type: events.EventCapabilitiesReady, Payload: events.CapabilitiesReady{Titles: titles}})
		}
	}
	return nil
}

func (l *Loader) emit(ev events.Event) {
	if l.Emitter == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Emitter.Emit(ev)
}
