package animation

import (
	"slices"
	"time"

	"github.com/Zachdehooge/wms-animator/internal/events"
)

// TickPeriod is the animation frame interval (10 frames per second).
const TickPeriod = 100 * time.Millisecond

// Status is the playback state.
type Status int

const (
	Idle Status = iota
	Ready
	Playing
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

// Option configures a State.
type Option func(*State)

// WithTickHook calls fn after every frame advanced by the timer.
func WithTickHook(fn func()) Option {
	return func(s *State) { s.onTick = fn }
}

// State tracks the time steps of the active layers, the current step and
// playback. It is not safe for concurrent use; callers serialize access and
// schedule ticks through a scheduler that takes the same lock.
type State struct {
	sched   Scheduler
	emitter events.Emitter
	onTick  func()

	times   []string
	index   int
	current string
	playing bool

	// handle is the running timer; gen invalidates ticks of earlier timers.
	handle Handle
	gen    uint64
}

// New creates an idle animation state.
func New(sched Scheduler, emitter events.Emitter, opts ...Option) *State {
	s := &State{sched: sched, emitter: emitter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate loads the time steps of the first active layer. The previously
// shown time is kept when the new list has it, otherwise the first step is
// used. An empty list stops playback.
func (s *State) Activate(times []string) {
	s.times = times
	s.index = 0
	if len(times) == 0 {
		s.Stop()
		return
	}
	if i := slices.Index(times, s.current); s.current != "" && i >= 0 {
		s.index = i
	}
	s.current = times[s.index]
	s.emitTime()
}

// SetTime jumps to token. It does nothing when token is not one of the
// tracked steps.
func (s *State) SetTime(token string) bool {
	i := slices.Index(s.times, token)
	if i < 0 {
		return false
	}
	s.index = i
	s.current = token
	s.emitTime()
	return true
}

// SetIndex jumps to the step at i.
func (s *State) SetIndex(i int) bool {
	if i < 0 || i >= len(s.times) {
		return false
	}
	return s.SetTime(s.times[i])
}

// Preview returns the step at i without changing state, for slider drags.
func (s *State) Preview(i int) (string, bool) {
	if i < 0 || i >= len(s.times) {
		return "", false
	}
	return s.times[i], true
}

// Deactivate stops playback and clears the steps.
func (s *State) Deactivate() {
	s.Stop()
	s.times = nil
	s.index = 0
}

// Play starts advancing one step per TickPeriod, wrapping at the end.
// Playing again restarts the timer.
func (s *State) Play() {
	if len(s.times) == 0 {
		return
	}
	s.stop()
	s.playing = true
	gen := s.gen
	s.handle = s.sched.Every(TickPeriod, func() {
		if gen != s.gen || !s.playing {
			return
		}
		s.advance()
	})
	s.emitPlayback()
}

// Stop halts playback and keeps the current step.
func (s *State) Stop() {
	if s.stop() {
		s.emitPlayback()
	}
}

// Toggle plays when stopped and stops when playing.
func (s *State) Toggle() {
	if s.playing {
		s.Stop()
		return
	}
	s.Play()
}

func (s *State) stop() bool {
	s.gen++
	if s.handle != nil {
		s.handle.Cancel()
		s.handle = nil
	}
	was := s.playing
	s.playing = false
	return was
}

func (s *State) advance() {
	if len(s.times) == 0 {
		return
	}
	s.index = (s.index + 1) % len(s.times)
	s.current = s.times[s.index]
	s.emitTime()
	if s.onTick != nil {
		s.onTick()
	}
}

// Status reports Idle, Ready or Playing.
func (s *State) Status() Status {
	switch {
	case s.playing:
		return Playing
	case len(s.times) > 0:
		return Ready
	default:
		return Idle
	}
}

// Times returns the tracked steps.
func (s *State) Times() []string { return s.times }

// Index returns the current step index.
func (s *State) Index() int { return s.index }

// Current returns the current step, if any steps are loaded.
func (s *State) Current() (string, bool) {
	if len(s.times) == 0 {
		return "", false
	}
	return s.times[s.index], true
}

func (s *State) emitTime() {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(events.Event{
		Type:    events.EventTimeChanged,
		Payload: events.TimeChanged{Time: s.current, Index: s.index, Count: len(s.times)},
	})
}

func (s *State) emitPlayback() {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(events.Event{
		Type:    events.EventPlaybackChanged,
		Payload: events.PlaybackChanged{Playing: s.playing},
	})
}
