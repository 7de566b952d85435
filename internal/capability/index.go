package capability

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Zachdehooge/wms-animator/internal/fetcher"
)

// ExpectedBundles is the number of bundles the deployment fetches.
const ExpectedBundles = 2

// MinCompleteSteps is the number of time steps below which an issuance is
// treated as still being generated.
const MinCompleteSteps = 50

// IssuancePriority is the order issuance hours are considered in.
var IssuancePriority = []string{"18", "12", "06", "00"}

// fallbackHour is used when no issuance in IssuancePriority is complete.
const fallbackHour = "00"

var (
	// ErrMalformed is returned when the layer tree lacks the date level.
	ErrMalformed = errors.New("capabilities layer tree is malformed")
	// ErrNoForecast is returned when no usable issuance exists.
	ErrNoForecast = errors.New("no forecast issuance available")
)

// catalogue holds every forecast of one bundle by date and issuance hour.
type catalogue struct {
	dates      []string
	forecasts  map[string]map[string]*Forecast
	latestDate string
	latest     *Forecast
}

// Index normalizes parsed capabilities into layers keyed by title. It is safe
// for concurrent use: bundles are ingested from fetch goroutines while
// sessions read options.
type Index struct {
	mu        sync.RWMutex
	expected  int
	legendKey string

	bundles   []Bundle
	catalogue map[Bundle]*catalogue

	options map[string]*Layer
	titles  []string
}

// NewIndex creates an index that becomes ready once expected bundles have
// been ingested. legendKey is appended to legend URLs.
func NewIndex(expected int, legendKey string) *Index {
	if expected <= 0 {
		expected = ExpectedBundles
	}
	return &Index{
		expected:  expected,
		legendKey: legendKey,
		catalogue: make(map[Bundle]*catalogue),
	}
}

// Ingest walks a bundle's capabilities (forecast date > issuance hour >
// variable) and records its latest forecast. It reports whether all expected
// bundles have now been ingested. Ingesting a bundle again replaces it.
func (ix *Index) Ingest(bundle Bundle, caps *fetcher.Capabilities) (bool, error) {
	cat, err := ix.walk(bundle, caps)
	if err != nil {
		return ix.Ready(), err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, seen := ix.catalogue[bundle]; !seen {
		ix.bundles = append(ix.bundles, bundle)
	}
	ix.catalogue[bundle] = cat

	if len(ix.catalogue) < ix.expected {
		return false, nil
	}
	forecasts := make([]*Forecast, 0, len(ix.bundles))
	for _, b := range ix.bundles {
		forecasts = append(forecasts, ix.catalogue[b].latest)
	}
	ix.merge(forecasts)
	return true, nil
}

func (ix *Index) walk(bundle Bundle, caps *fetcher.Capabilities) (*catalogue, error) {
	if caps == nil || len(caps.Capability.Layer.Layers) == 0 {
		return nil, fmt.Errorf("%s: %w", bundle, ErrMalformed)
	}

	cat := &catalogue{forecasts: make(map[string]map[string]*Forecast)}
	var latestEpoch time.Time
	for _, day := range caps.Capability.Layer.Layers[0].Layers {
		date := day.Title
		if epoch, err := time.Parse("20060102", date); err == nil && epoch.After(latestEpoch) {
			latestEpoch = epoch
			cat.latestDate = date
		}
		if _, ok := cat.forecasts[date]; !ok {
			cat.dates = append(cat.dates, date)
		}
		hours := make(map[string]*Forecast, len(day.Layers))
		for _, hour := range day.Layers {
			hours[hour.Title] = ix.forecast(bundle, date, hour)
		}
		cat.forecasts[date] = hours
	}
	if cat.latestDate == "" {
		return nil, fmt.Errorf("%s: %w", bundle, ErrNoForecast)
	}

	latest, ok := SelectIssuance(cat.forecasts[cat.latestDate])
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", bundle, cat.latestDate, ErrNoForecast)
	}
	cat.latest = latest
	return cat, nil
}

func (ix *Index) forecast(bundle Bundle, date string, hour fetcher.Layer) *Forecast {
	f := &Forecast{Date: date, Hour: hour.Title}
	for _, variable := range hour.Layers {
		dim, ok := variable.Dimension("time")
		if !ok {
			// variables without a time dimension cannot be animated
			continue
		}
		times := dim.List()
		if len(times) == 0 {
			continue
		}
		layer := &Layer{
			Name:   variable.Name,
			Title:  variable.Title,
			Bundle: bundle,
			Times:  times,
		}
		for _, s := range variable.Styles {
			legend := NoLegend
			if href, ok := s.Legend(); ok {
				legend = withKey(href, ix.legendKey)
			}
			layer.Styles = append(layer.Styles, Style{Name: s.Name, LegendURL: legend})
		}
		f.Layers = append(f.Layers, layer)
	}
	return f
}

// SelectIssuance picks the newest complete issuance among the hours of one
// date: the first of 18, 12, 06, 00 with at least MinCompleteSteps time steps,
// otherwise 00 regardless of its length.
func SelectIssuance(hours map[string]*Forecast) (*Forecast, bool) {
	for _, hour := range IssuancePriority {
		if f, ok := hours[hour]; ok && f.Steps() >= MinCompleteSteps {
			return f, true
		}
	}
	f, ok := hours[fallbackHour]
	return f, ok
}

// merge rebuilds the options from forecasts in order. A later title replaces
// an earlier one but keeps its position.
func (ix *Index) merge(forecasts []*Forecast) {
	ix.options = make(map[string]*Layer)
	ix.titles = ix.titles[:0]
	for _, f := range forecasts {
		for _, l := range f.Layers {
			if _, ok := ix.options[l.Title]; !ok {
				ix.titles = append(ix.titles, l.Title)
			}
			ix.options[l.Title] = l
		}
	}
}

// Ready reports whether every expected bundle has been ingested.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.catalogue) >= ix.expected
}

// Ingested returns the number of distinct bundles ingested so far.
func (ix *Index) Ingested() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.catalogue)
}

// LatestOptions returns the selectable layers by title. It is empty until
// the index is ready.
func (ix *Index) LatestOptions() map[string]*Layer {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]*Layer, len(ix.options))
	for k, v := range ix.options {
		out[k] = v
	}
	return out
}

// Titles returns the selectable titles in capabilities order.
func (ix *Index) Titles() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.titles...)
}

// Lookup finds a selectable layer by title.
func (ix *Index) Lookup(title string) (*Layer, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	l, ok := ix.options[title]
	return l, ok
}

// Dates returns the forecast dates known for the bundle.
func (ix *Index) Dates(bundle Bundle) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	cat, ok := ix.catalogue[bundle]
	if !ok {
		return nil
	}
	return append([]string(nil), cat.dates...)
}

// Latest returns the issuance currently chosen for the bundle.
func (ix *Index) Latest(bundle Bundle) (*Forecast, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	cat, ok := ix.catalogue[bundle]
	if !ok {
		return nil, false
	}
	return cat.latest, true
}

// Forecast returns a specific issuance of the bundle.
func (ix *Index) Forecast(bundle Bundle, date, hour string) (*Forecast, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	cat, ok := ix.catalogue[bundle]
	if !ok {
		return nil, false
	}
	f, ok := cat.forecasts[date][hour]
	return f, ok
}

// UseForecast replaces the options with the issuance at date and hour,
// merged across every ingested bundle that has it.
func (ix *Index) UseForecast(date, hour string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(ix.catalogue) < ix.expected {
		return fmt.Errorf("capabilities not loaded: %d of %d bundles", len(ix.catalogue), ix.expected)
	}

	var forecasts []*Forecast
	for _, b := range ix.bundles {
		if f, ok := ix.catalogue[b].forecasts[date][hour]; ok {
			forecasts = append(forecasts, f)
		}
	}
	if len(forecasts) == 0 {
		return fmt.Errorf("%s %s: %w", date, hour, ErrNoForecast)
	}
	ix.merge(forecasts)
	return nil
}

func withKey(href, key string) string {
	if key == "" {
		return href
	}
	sep := "&"
	if !strings.Contains(href, "?") {
		sep = "?"
	}
	return href + sep + fetcher.APIKeyParam + "=" + url.QueryEscape(key)
}
