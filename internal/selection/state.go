package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zachdehooge/wms-animator/internal/capability"
	"github.com/Zachdehooge/wms-animator/internal/events"
)

// Slot indexes one of the two layer positions.
type Slot int

const (
	// Base is the first layer, drawn underneath.
	Base Slot = 0
	// Overlay is the second layer, usually contours on top of Base.
	Overlay Slot = 1
)

// Slots is the number of configurable layer positions.
const Slots = 2

// NoneTitle is the dropdown value that clears a slot.
const NoneTitle = "none"

// nearestMarker identifies the interpolated default style that the overlay
// slot lists but does not allow selecting.
const nearestMarker = "nearest"

// noOwner marks that no slot drives the animation.
const noOwner Slot = -1

var (
	// ErrInvalidSlot is returned for a slot outside [0, Slots).
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrUnknownLayer is returned when no layer has the requested title.
	ErrUnknownLayer = errors.New("unknown layer")
	// ErrSlotInactive is returned when changing the style of an empty slot.
	ErrSlotInactive = errors.New("slot has no active layer")
	// ErrUnknownStyle is returned for a style the layer does not offer.
	ErrUnknownStyle = errors.New("unknown style")
	// ErrStyleNotSelectable is returned for a listed style the slot may not use.
	ErrStyleNotSelectable = errors.New("style is not selectable for this slot")
)

// Options looks up selectable layers by title.
type Options interface {
	Lookup(title string) (*capability.Layer, bool)
}

// TimeTracker receives the time steps that drive the animation.
type TimeTracker interface {
	Activate(times []string)
	Deactivate()
}

// SlotState is the configuration of one slot.
type SlotState struct {
	Active *capability.Layer
	Style  string
}

// IsActive reports whether the slot shows a layer.
func (s SlotState) IsActive() bool { return s.Active != nil }

// LegendURL returns the legend of the selected style, or capability.NoLegend.
func (s SlotState) LegendURL() string {
	if s.Active == nil {
		return capability.NoLegend
	}
	if st, ok := s.Active.Style(s.Style); ok {
		return st.LegendURL
	}
	return capability.NoLegend
}

// StyleOption is a style as listed in a slot's style dropdown.
type StyleOption = events.StyleOption

// StyleOptions lists the layer's styles for the slot.
func StyleOptions(slot Slot, layer *capability.Layer) []StyleOption {
	opts := make([]StyleOption, 0, len(layer.Styles))
	for _, st := range layer.Styles {
		opts = append(opts, StyleOption{
			Name:       st.Name,
			LegendURL:  st.LegendURL,
			Selectable: selectable(slot, st.Name),
		})
	}
	return opts
}

func selectable(slot Slot, style string) bool {
	return !(slot == Overlay && strings.Contains(style, nearestMarker))
}

// DefaultStyle is the style a slot starts with: the last style for the
// overlay slot, the first for any other.
func DefaultStyle(slot Slot, layer *capability.Layer) string {
	if len(layer.Styles) == 0 {
		return ""
	}
	if slot == Overlay {
		return layer.Styles[len(layer.Styles)-1].Name
	}
	return layer.Styles[0].Name
}

// State tracks which layer and style each slot shows. Effects are emitted as
// events; the time steps of the slot that became active first are handed to
// the TimeTracker. It is not safe for concurrent use.
type State struct {
	options Options
	tracker TimeTracker
	emitter events.Emitter

	slots [Slots]SlotState
	// owner is the slot whose times drive the animation.
	owner Slot
}

// New creates a selection with both slots empty.
func New(options Options, tracker TimeTracker, emitter events.Emitter) *State {
	return &State{options: options, tracker: tracker, emitter: emitter, owner: noOwner}
}

func validSlot(slot Slot) error {
	if slot < 0 || slot >= Slots {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return nil
}

// SelectLayer shows the layer with the given title in the slot using the
// slot's default style. NoneTitle clears the slot.
func (s *State) SelectLayer(slot Slot, title string) (SlotState, error) {
	if err := validSlot(slot); err != nil {
		return SlotState{}, err
	}
	if title == NoneTitle {
		return SlotState{}, s.ClearLayer(slot)
	}
	layer, ok := s.options.Lookup(title)
	if !ok {
		return SlotState{}, fmt.Errorf("%w: %q", ErrUnknownLayer, title)
	}

	if s.slots[slot].IsActive() {
		s.release(slot)
	}

	s.slots[slot] = SlotState{Active: layer, Style: DefaultStyle(slot, layer)}
	if s.owner == noOwner {
		s.owner = slot
		s.tracker.Activate(layer.Times)
	}
	s.emitChanged(slot)
	return s.slots[slot], nil
}

// SelectStyle changes the style of an active slot. The time steps are
// unchanged.
func (s *State) SelectStyle(slot Slot, style string) (SlotState, error) {
	if err := validSlot(slot); err != nil {
		return SlotState{}, err
	}
	cur := s.slots[slot]
	if !cur.IsActive() {
		return SlotState{}, ErrSlotInactive
	}
	if _, ok := cur.Active.Style(style); !ok {
		return cur, fmt.Errorf("%w: %q", ErrUnknownStyle, style)
	}
	if !selectable(slot, style) {
		return cur, fmt.Errorf("%w: %q", ErrStyleNotSelectable, style)
	}

	s.slots[slot].Style = style
	s.emitChanged(slot)
	return s.slots[slot], nil
}

// ClearLayer removes the slot's layer. Clearing the last active slot resets
// the animation and emits NoLayersActive.
func (s *State) ClearLayer(slot Slot) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if !s.slots[slot].IsActive() {
		return nil
	}

	// cleared goes out before the remaining slot takes over the timeline, so
	// listeners drop the slot before the time moves.
	s.emit(events.EventLayerCleared, events.LayerCleared{Slot: int(slot)})
	s.release(slot)
	if !s.AnyActive() {
		s.emit(events.EventNoLayersActive, events.NoLayersActive{})
	}
	return nil
}

// release empties the slot and hands the animation to the remaining slot, or
// resets it when none remains.
func (s *State) release(slot Slot) {
	s.slots[slot] = SlotState{}
	if s.owner != slot {
		return
	}
	for i, other := range s.slots {
		if other.IsActive() {
			s.owner = Slot(i)
			s.tracker.Activate(other.Active.Times)
			return
		}
	}
	s.owner = noOwner
	s.tracker.Deactivate()
}

// Slot returns the state of the slot.
func (s *State) Slot(slot Slot) SlotState {
	if validSlot(slot) != nil {
		return SlotState{}
	}
	return s.slots[slot]
}

// Owner returns the slot whose times drive the animation.
func (s *State) Owner() (Slot, bool) {
	return s.owner, s.owner != noOwner
}

// AnyActive reports whether any slot shows a layer.
func (s *State) AnyActive() bool {
	for _, st := range s.slots {
		if st.IsActive() {
			return true
		}
	}
	return false
}

func (s *State) emitChanged(slot Slot) {
	st := s.slots[slot]
	s.emit(events.EventLayerChanged, events.LayerChanged{
		Slot:      int(slot),
		Layer:     st.Active.Name,
		Title:     st.Active.Title,
		Bundle:    string(st.Active.Bundle),
		Style:     st.Style,
		Styles:    StyleOptions(slot, st.Active),
		LegendURL: st.LegendURL(),
		Times:     st.Active.Times,
	})
}

func (s *State) emit(t events.EventType, payload any) {
	if s.emitter != nil {
		s.emitter.Emit(events.Event{Type: t, Payload: payload})
	}
}
