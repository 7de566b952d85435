// Package session ties the layer selection, the animation and the tile
// renderer of one map view together behind a single lock.
package session

import (
	"errors"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Zachdehooge/wms-animator/internal/animation"
	"github.com/Zachdehooge/wms-animator/internal/events"
	"github.com/Zachdehooge/wms-animator/internal/metrics"
	"github.com/Zachdehooge/wms-animator/internal/render"
	"github.com/Zachdehooge/wms-animator/internal/selection"
	"github.com/Zachdehooge/wms-animator/internal/wms"
)

// ErrClosed is returned for inputs sent after Close.
var ErrClosed = errors.New("session closed")

// Config holds the collaborators shared by every session.
type Config struct {
	Options selection.Options
	Builder wms.Builder
	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	// Scheduler drives playback. Defaults to animation.TickerScheduler.
	Scheduler animation.Scheduler
}

// Session is the state of one map view. All mutations, including animation
// ticks, run while holding the session lock.
type Session struct {
	ID string

	mu        sync.Mutex
	closed    bool
	bus       *events.Bus
	selection *selection.State
	animation *animation.State
	renderer  *render.Renderer
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New creates an idle session.
func New(id string, cfg Config) *Session {
	s := &Session{
		ID:      id,
		bus:     events.NewBus(),
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With().Str("session", id).Logger(),
	}

	sched := cfg.Scheduler
	if sched == nil {
		sched = animation.TickerScheduler{}
	}

	s.renderer = render.New(cfg.Builder, s.bus, s.logger)
	// subscribers see the core event before the tile update it causes
	emitter := events.Fanout(s.bus, s.renderer)

	var opts []animation.Option
	if s.metrics != nil {
		opts = append(opts, animation.WithTickHook(s.metrics.AnimationTicks.Inc))
	}
	s.animation = animation.New(animation.Locked(sched, &s.mu), emitter, opts...)
	s.selection = selection.New(cfg.Options, s.animation, emitter)

	s.logger.Debug().Msg("session created")
	return s
}

// Subscribe returns a channel receiving the session's events of the given
// types, or all events when none are given.
func (s *Session) Subscribe(types ...events.EventType) events.Subscriber {
	return s.bus.Subscribe(types...)
}

// Unsubscribe stops delivery to sub and closes it.
func (s *Session) Unsubscribe(sub events.Subscriber) {
	s.bus.Unsubscribe(sub)
}

// SelectLayer shows the layer titled title in slot, or clears the slot for
// selection.NoneTitle.
func (s *Session) SelectLayer(slot int, title string) (selection.SlotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return selection.SlotState{}, ErrClosed
	}
	st, err := s.selection.SelectLayer(selection.Slot(slot), title)
	if err != nil {
		return st, err
	}
	if st.IsActive() && s.metrics != nil {
		s.metrics.LayerSelections.WithLabelValues(strconv.Itoa(slot)).Inc()
	}
	s.logger.Info().Int("slot", slot).Str("layer", title).Msg("layer selected")
	return st, nil
}

// SelectStyle changes the style of an active slot.
func (s *Session) SelectStyle(slot int, style string) (selection.SlotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return selection.SlotState{}, ErrClosed
	}
	return s.selection.SelectStyle(selection.Slot(slot), style)
}

// ClearLayer empties slot.
func (s *Session) ClearLayer(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.selection.ClearLayer(selection.Slot(slot))
}

// PreviewTime returns the step at index for a slider drag and publishes it
// as a TimePreview. The current step is not changed.
func (s *Session) PreviewTime(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false
	}
	token, ok := s.animation.Preview(index)
	if ok {
		s.bus.Publish(events.EventTimePreview, events.TimePreview{Time: token, Index: index})
	}
	return token, ok
}

// CommitTime moves the animation to the step at index.
func (s *Session) CommitTime(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.animation.SetIndex(index)
}

// SetTime moves the animation to token. Unknown tokens are ignored.
func (s *Session) SetTime(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.animation.SetTime(token)
}

// TogglePlay starts playback when stopped and stops it when playing.
func (s *Session) TogglePlay() animation.Status {
	return s.withAnimation((*animation.State).Toggle)
}

// Play starts playback.
func (s *Session) Play() animation.Status {
	return s.withAnimation((*animation.State).Play)
}

// Stop halts playback.
func (s *Session) Stop() animation.Status {
	return s.withAnimation((*animation.State).Stop)
}

func (s *Session) withAnimation(fn func(*animation.State)) animation.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		fn(s.animation)
	}
	return s.animation.Status()
}

// SetOpacity changes the raster opacity of slot.
func (s *Session) SetOpacity(slot int, opacity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.renderer.SetOpacity(slot, opacity)
	}
}

// SetBuilder swaps the tile URL builder, for instance after a new API key.
func (s *Session) SetBuilder(b wms.Builder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.renderer.SetBuilder(b)
	}
}

// SlotSnapshot describes one slot for a freshly connected view.
type SlotSnapshot struct {
	Slot      int                     `json:"slot"`
	Title     string                  `json:"title"`
	Layer     string                  `json:"layer"`
	Style     string                  `json:"style"`
	LegendURL string                  `json:"legendUrl"`
	Styles    []selection.StyleOption `json:"styles"`
}

// Snapshot is the full state of a session.
type Snapshot struct {
	ID     string               `json:"id"`
	Slots  []SlotSnapshot       `json:"slots"`
	Times  []string             `json:"times"`
	Index  int                  `json:"index"`
	Time   string               `json:"time"`
	Status string               `json:"status"`
	Tiles  []events.TileUpdated `json:"tiles"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:     s.ID,
		Times:  append([]string(nil), s.animation.Times()...),
		Index:  s.animation.Index(),
		Status: s.animation.Status().String(),
		Tiles:  s.renderer.Tiles(),
	}
	snap.Time, _ = s.animation.Current()
	for i := 0; i < selection.Slots; i++ {
		slot := selection.Slot(i)
		st := s.selection.Slot(slot)
		ss := SlotSnapshot{Slot: i, Title: selection.NoneTitle}
		if st.IsActive() {
			ss.Title = st.Active.Title
			ss.Layer = st.Active.Name
			ss.Style = st.Style
			ss.LegendURL = st.LegendURL()
			ss.Styles = selection.StyleOptions(slot, st.Active)
		}
		snap.Slots = append(snap.Slots, ss)
	}
	return snap
}

// Close stops playback and rejects further input. It is safe to call more
// than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.animation.Stop()
	s.closed = true
	s.logger.Debug().Msg("session closed")
}
