package capability

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/wms-animator/internal/events"
	"github.com/Zachdehooge/wms-animator/internal/fetcher"
	"github.com/Zachdehooge/wms-animator/internal/metrics"
)

type fakeFetcher struct {
	mu       sync.Mutex
	caps     map[string]*fetcher.Capabilities
	errs     map[string]error
	requests []string
}

func (f *fakeFetcher) FetchCapabilities(_ context.Context, product, bundle string) (*fetcher.Capabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, product+"/"+bundle)
	if err := f.errs[bundle]; err != nil {
		return nil, err
	}
	return f.caps[bundle], nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestLoaderEmitsReadyOnce(t *testing.T) {
	rec := &recorder{}
	f := &fakeFetcher{caps: map[string]*fetcher.Capabilities{
		"basic":    basicCaps(),
		"maritime": maritimeCaps(),
	}}
	m := metrics.New(prometheus.NewRegistry())
	l := &Loader{
		Index:   NewIndex(ExpectedBundles, ""),
		Fetcher: f,
		Product: "sof-d",
		Bundles: []Bundle{BundleBasic, BundleMaritime},
		Emitter: rec,
		Metrics: m,
		Logger:  zerolog.Nop(),
	}

	require.NoError(t, l.Load(context.Background()))
	assert.True(t, l.Index.Ready())
	assert.ElementsMatch(t, []string{"sof-d/basic", "sof-d/maritime"}, f.requests)

	ready := rec.ofType(events.EventCapabilitiesReady)
	require.Len(t, ready, 1)
	payload := ready[0].Payload.(events.CapabilitiesReady)
	assert.ElementsMatch(t, []string{"Air Temperature", "Wind Speed", "Sea Surface Temperature"}, payload.Titles)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapabilityFetches.WithLabelValues("basic", metrics.ResultOK)))
}

func TestLoaderReportsUnauthorized(t *testing.T) {
	rec := &recorder{}
	f := &fakeFetcher{
		caps: map[string]*fetcher.Capabilities{"basic": basicCaps()},
		errs: map[string]error{"maritime": fetcher.ErrUnauthorized},
	}
	l := &Loader{
		Index:   NewIndex(ExpectedBundles, ""),
		Fetcher: f,
		Bundles: []Bundle{BundleBasic, BundleMaritime},
		Emitter: rec,
		Logger:  zerolog.Nop(),
	}

	err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrUnauthorized))
	assert.False(t, l.Index.Ready())
	assert.Empty(t, l.Index.LatestOptions())

	unauthorized := rec.ofType(events.EventUnauthorized)
	require.Len(t, unauthorized, 1)
	assert.Equal(t, events.Unauthorized{Bundle: "maritime"}, unauthorized[0].Payload)
	assert.Empty(t, rec.ofType(events.EventCapabilitiesReady))

	// re-invocation after the key is fixed completes the index
	f.errs = nil
	f.caps["maritime"] = maritimeCaps()
	l.Bundles = []Bundle{BundleMaritime}
	require.NoError(t, l.Load(context.Background()))
	assert.True(t, l.Index.Ready())
	assert.Len(t, rec.ofType(events.EventCapabilitiesReady), 1)
}

func TestLoaderReportsEveryFailedBundle(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{errs: map[string]error{
		"basic":    fetcher.ErrUnauthorized,
		"maritime": boom,
	}}
	l := &Loader{
		Index:   NewIndex(ExpectedBundles, ""),
		Fetcher: f,
		Bundles: []Bundle{BundleBasic, BundleMaritime},
		Logger:  zerolog.Nop(),
	}

	err := l.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fetcher.ErrUnauthorized)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.requests, 2)
}
