package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/wms-animator/internal/capability"
	"github.com/Zachdehooge/wms-animator/internal/events"
)

type fakeOptions map[string]*capability.Layer

func (f fakeOptions) Lookup(title string) (*capability.Layer, bool) {
	l, ok := f[title]
	return l, ok
}

type fakeTracker struct {
	calls []string
	times []string
}

func (f *fakeTracker) Activate(times []string) {
	f.calls = append(f.calls, "activate")
	f.times = times
}

func (f *fakeTracker) Deactivate() {
	f.calls = append(f.calls, "deactivate")
	f.times = nil
}

type eventLog []events.Event

func (l *eventLog) Emit(ev events.Event) { *l = append(*l, ev) }

func (l eventLog) count(t events.EventType) int {
	n := 0
	for _, ev := range l {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (l eventLog) last() events.Event { return l[len(l)-1] }

var (
	temperature = &capability.Layer{
		Name:   "basic.air_temperature",
		Title:  "Air Temperature",
		Bundle: capability.BundleBasic,
		Styles: []capability.Style{
			{Name: "nearest_neighbor", LegendURL: "https://legend/nn"},
			{Name: "smooth", LegendURL: "https://legend/smooth"},
			{Name: "contour", LegendURL: capability.NoLegend},
		},
		Times: []string{"t0", "t1", "t2"},
	}
	waves = &capability.Layer{
		Name:   "maritime.wave_height",
		Title:  "Wave Height",
		Bundle: capability.BundleMaritime,
		Styles: []capability.Style{{Name: "nearest_neighbor", LegendURL: capability.NoLegend}},
		Times:  []string{"t1", "t2", "t3"},
	}
)

func newSelection() (*State, *fakeTracker, *eventLog) {
	tracker := &fakeTracker{}
	log := &eventLog{}
	opts := fakeOptions{temperature.Title: temperature, waves.Title: waves}
	return New(opts, tracker, log), tracker, log
}

func TestDefaultStylePerSlot(t *testing.T) {
	s, _, log := newSelection()

	st, err := s.SelectLayer(Overlay, "Air Temperature")
	require.NoError(t, err)
	assert.Equal(t, "contour", st.Style)

	st, err = s.SelectLayer(Base, "Air Temperature")
	require.NoError(t, err)
	assert.Equal(t, "nearest_neighbor", st.Style)

	changed := log.last().Payload.(events.LayerChanged)
	assert.Equal(t, events.LayerChanged{
		Slot:      0,
		Layer:     "basic.air_temperature",
		Title:     "Air Temperature",
		Bundle:    "basic",
		Style:     "nearest_neighbor",
		Styles: []events.StyleOption{
			{Name: "nearest_neighbor", LegendURL: "https://legend/nn", Selectable: true},
			{Name: "smooth", LegendURL: "https://legend/smooth", Selectable: true},
			{Name: "contour", LegendURL: capability.NoLegend, Selectable: true},
		},
		LegendURL: "https://legend/nn",
		Times:     []string{"t0", "t1", "t2"},
	}, changed)
}

func TestFirstActiveSlotDrivesAnimation(t *testing.T) {
	s, tracker, _ := newSelection()

	_, err := s.SelectLayer(Base, "Air Temperature")
	require.NoError(t, err)
	_, err = s.SelectLayer(Overlay, "Wave Height")
	require.NoError(t, err)

	assert.Equal(t, []string{"activate"}, tracker.calls)
	assert.Equal(t, temperature.Times, tracker.times)
	owner, ok := s.Owner()
	require.True(t, ok)
	assert.Equal(t, Base, owner)
}

func TestClearOwnerHandsAnimationToRemainingSlot(t *testing.T) {
	s, tracker, log := newSelection()
	_, _ = s.SelectLayer(Base, "Air Temperature")
	_, _ = s.SelectLayer(Overlay, "Wave Height")

	require.NoError(t, s.ClearLayer(Base))
	assert.Equal(t, waves.Times, tracker.times)
	owner, _ := s.Owner()
	assert.Equal(t, Overlay, owner)
	assert.Equal(t, 0, log.count(events.EventNoLayersActive))
	assert.Equal(t, 1, log.count(events.EventLayerCleared))
}

func TestClearOnlyActiveSlotEmitsNoLayersOnce(t *testing.T) {
	s, tracker, log := newSelection()
	_, _ = s.SelectLayer(Overlay, "Wave Height")

	require.NoError(t, s.ClearLayer(Overlay))
	require.NoError(t, s.ClearLayer(Overlay))
	_, err := s.SelectLayer(Base, NoneTitle)
	require.NoError(t, err)

	assert.Equal(t, 1, log.count(events.EventNoLayersActive))
	assert.Equal(t, []string{"activate", "deactivate"}, tracker.calls)
	assert.False(t, s.AnyActive())
	_, ok := s.Owner()
	assert.False(t, ok)
}

func TestSelectNoneClearsSlot(t *testing.T) {
	s, _, log := newSelection()
	_, _ = s.SelectLayer(Base, "Air Temperature")

	st, err := s.SelectLayer(Base, NoneTitle)
	require.NoError(t, err)
	assert.False(t, st.IsActive())
	assert.False(t, s.Slot(Base).IsActive())
	assert.Equal(t, events.EventNoLayersActive, log.last().Type)
}

func TestReplaceOnlyLayerReactivates(t *testing.T) {
	s, tracker, log := newSelection()
	_, _ = s.SelectLayer(Base, "Air Temperature")
	_, _ = s.SelectLayer(Base, "Wave Height")

	assert.Equal(t, []string{"activate", "deactivate", "activate"}, tracker.calls)
	assert.Equal(t, waves.Times, tracker.times)
	assert.Equal(t, 0, log.count(events.EventNoLayersActive))
	assert.Equal(t, 2, log.count(events.EventLayerChanged))
}

func TestSelectStyle(t *testing.T) {
	s, tracker, log := newSelection()

	_, err := s.SelectStyle(Base, "smooth")
	assert.ErrorIs(t, err, ErrSlotInactive)

	_, _ = s.SelectLayer(Base, "Air Temperature")
	st, err := s.SelectStyle(Base, "smooth")
	require.NoError(t, err)
	assert.Equal(t, "smooth", st.Style)
	assert.Equal(t, "https://legend/smooth", st.LegendURL())

	changed := log.last().Payload.(events.LayerChanged)
	assert.Equal(t, "smooth", changed.Style)
	assert.Equal(t, temperature.Times, changed.Times)
	assert.Equal(t, []string{"activate"}, tracker.calls)

	_, err = s.SelectStyle(Base, "isobars")
	assert.ErrorIs(t, err, ErrUnknownStyle)
}

func TestOverlayCannotSelectNearestStyle(t *testing.T) {
	s, _, _ := newSelection()
	_, _ = s.SelectLayer(Overlay, "Air Temperature")

	_, err := s.SelectStyle(Overlay, "nearest_neighbor")
	assert.ErrorIs(t, err, ErrStyleNotSelectable)
	assert.Equal(t, "contour", s.Slot(Overlay).Style)

	opts := StyleOptions(Overlay, temperature)
	require.Len(t, opts, 3)
	assert.Equal(t, "nearest_neighbor", opts[0].Name)
	assert.False(t, opts[0].Selectable)
	assert.True(t, opts[1].Selectable)

	for _, o := range StyleOptions(Base, temperature) {
		assert.True(t, o.Selectable, o.Name)
	}
}

func TestSelectErrors(t *testing.T) {
	s, _, _ := newSelection()
	_, err := s.SelectLayer(Slot(2), "Air Temperature")
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = s.SelectLayer(Base, "Snow Depth")
	assert.ErrorIs(t, err, ErrUnknownLayer)
	assert.ErrorIs(t, s.ClearLayer(Slot(-1)), ErrInvalidSlot)
	assert.False(t, s.Slot(Slot(5)).IsActive())
}
