package events

// StyleOption is a style as listed in a slot's style dropdown.
type StyleOption struct {
	Name       string `json:"name"`
	LegendURL  string `json:"legendUrl"`
	Selectable bool   `json:"selectable"`
}

// LayerChanged is emitted whenever a slot gets a new layer or style.
type LayerChanged struct {
	Slot      int           `json:"slot"`
	Layer     string        `json:"layer"`
	Title     string        `json:"title"`
	Bundle    string        `json:"bundle"`
	Style     string        `json:"style"`
	Styles    []StyleOption `json:"styles"`
	LegendURL string        `json:"legendUrl"`
	Times     []string      `json:"times"`
}

// LayerCleared is emitted when a slot's layer is removed.
type LayerCleared struct {
	Slot int `json:"slot"`
}

// TimeChanged carries the new current time of the animation.
type TimeChanged struct {
	Time  string `json:"time"`
	Index int    `json:"index"`
	Count int    `json:"count"`
}

// NoLayersActive is emitted once the last active slot is cleared.
type NoLayersActive struct{}

// TileUpdated describes the tile URL template the map should use for a slot.
// An empty URL with Visible false means the slot's raster layer is removed.
type TileUpdated struct {
	Slot    int     `json:"slot"`
	URL     string  `json:"url"`
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity"`
}

// TimesMisaligned warns that a slot has no tile for the requested time and
// keeps showing its previous time.
type TimesMisaligned struct {
	Slot      int    `json:"slot"`
	Requested string `json:"requested"`
	Showing   string `json:"showing"`
}

// CapabilitiesReady lists the selectable layer titles.
type CapabilitiesReady struct {
	Titles []string `json:"titles"`
}

// Unauthorized reports a rejected capabilities request for a bundle.
type Unauthorized struct {
	Bundle string `json:"bundle"`
}

// PlaybackChanged reports play/stop transitions.
type PlaybackChanged struct {
	Playing bool `json:"playing"`
}

// TimePreview answers a slider drag with the step under the thumb. The
// animation state is not changed.
type TimePreview struct {
	Time  string `json:"time"`
	Index int    `json:"index"`
}

// InputRejected reports an input event the session could not apply.
type InputRejected struct {
	Input string `json:"input"`
	Error string `json:"error"`
}
