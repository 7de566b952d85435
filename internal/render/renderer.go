// Package render turns selection and animation events into tile URL
// templates for the browser map.
package render

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/Zachdehooge/wms-animator/internal/events"
	"github.com/Zachdehooge/wms-animator/internal/wms"
)

// DefaultOpacity is the raster opacity every slot starts with.
const DefaultOpacity = 0.8

const slots = 2

type slotTile struct {
	layer   events.LayerChanged
	url     string
	opacity float64
}

func (t slotTile) active() bool { return t.url != "" }

// Renderer keeps one tile URL template per slot in step with the selected
// layers and the animation time. It consumes core events through Emit and
// publishes TileUpdated and TimesMisaligned to out. It is not safe for
// concurrent use.
type Renderer struct {
	builder wms.Builder
	out     events.Emitter
	logger  zerolog.Logger

	tiles   [slots]slotTile
	current string
}

// New creates a renderer building URLs with b.
func New(b wms.Builder, out events.Emitter, logger zerolog.Logger) *Renderer {
	r := &Renderer{builder: b, out: out, logger: logger}
	r.reset()
	return r
}

func (r *Renderer) reset() {
	r.current = ""
	for i := range r.tiles {
		r.tiles[i] = slotTile{opacity: DefaultOpacity}
	}
}

// Emit implements events.Emitter.
func (r *Renderer) Emit(ev events.Event) {
	switch p := ev.Payload.(type) {
	case events.LayerChanged:
		r.layerChanged(p)
	case events.LayerCleared:
		r.layerCleared(p.Slot)
	case events.TimeChanged:
		r.timeChanged(p.Time)
	case events.NoLayersActive:
		r.reset()
	}
}

func (r *Renderer) layerChanged(p events.LayerChanged) {
	if p.Slot < 0 || p.Slot >= slots {
		return
	}
	t := &r.tiles[p.Slot]
	t.layer = p

	token := r.current
	if token == "" || !slices.Contains(p.Times, token) {
		if len(p.Times) > 0 {
			token = p.Times[0]
		}
		if r.current != "" {
			r.misaligned(p.Slot, token)
		}
	}
	t.url = r.builder.GetMap(wms.Tile{
		Layer:  p.Layer,
		Style:  p.Style,
		Time:   token,
		Bundle: p.Bundle,
	})
	r.logger.Debug().Int("slot", p.Slot).Str("layer", p.Layer).Str("style", p.Style).Msg("tile layer updated")
	r.publish(p.Slot)
}

func (r *Renderer) layerCleared(slot int) {
	if slot < 0 || slot >= slots {
		return
	}
	opacity := r.tiles[slot].opacity
	r.tiles[slot] = slotTile{opacity: opacity}
	r.publish(slot)
}

func (r *Renderer) timeChanged(token string) {
	r.current = token
	for i := range r.tiles {
		t := &r.tiles[i]
		if !t.active() {
			continue
		}
		if !slices.Contains(t.layer.Times, token) {
			r.misaligned(i, wms.TimeOf(t.url))
			continue
		}
		t.url = wms.ReplaceTime(t.url, token)
		r.publish(i)
	}
}

func (r *Renderer) misaligned(slot int, showing string) {
	r.logger.Warn().Int("slot", slot).Str("requested", r.current).Str("showing", showing).
		Msg("layer has no tile for the animation time")
	r.emit(events.EventTimesMisaligned, events.TimesMisaligned{
		Slot:      slot,
		Requested: r.current,
		Showing:   showing,
	})
}

// SetOpacity changes a slot's raster opacity, clamped to [0, 1].
func (r *Renderer) SetOpacity(slot int, opacity float64) {
	if slot < 0 || slot >= slots {
		return
	}
	r.tiles[slot].opacity = min(max(opacity, 0), 1)
	if r.tiles[slot].active() {
		r.publish(slot)
	}
}

// SetBuilder replaces the URL builder, for instance after the API key
// changed. Active slots are rebuilt at their current time.
func (r *Renderer) SetBuilder(b wms.Builder) {
	r.builder = b
	for i := range r.tiles {
		t := &r.tiles[i]
		if !t.active() {
			continue
		}
		token := wms.TimeOf(t.url)
		t.url = b.GetMap(wms.Tile{Layer: t.layer.Layer, Style: t.layer.Style, Time: token, Bundle: t.layer.Bundle})
		r.publish(i)
	}
}

// Tiles returns the current tile of every slot.
func (r *Renderer) Tiles() []events.TileUpdated {
	out := make([]events.TileUpdated, 0, slots)
	for i := range r.tiles {
		out = append(out, r.tile(i))
	}
	return out
}

func (r *Renderer) tile(slot int) events.TileUpdated {
	t := r.tiles[slot]
	return events.TileUpdated{Slot: slot, URL: t.url, Visible: t.active(), Opacity: t.opacity}
}

func (r *Renderer) publish(slot int) {
	r.emit(events.EventTileUpdated, r.tile(slot))
}

func (r *Renderer) emit(t events.EventType, payload any) {
	if r.out != nil {
		r.out.Emit(events.Event{Type: t, Payload: payload})
	}
}
