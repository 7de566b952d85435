package capability

// Bundle names a group of WMS layers fetched with its own capabilities request.
type Bundle string

const (
	BundleBasic    Bundle = "basic"
	BundleMaritime Bundle = "maritime"
)

// NoLegend stands in for a style that has no legend image.
const NoLegend = "none"

// Style is a named rendering of a layer and its legend image URL.
type Style struct {
	Name      string `json:"name"`
	LegendURL string `json:"legendUrl"`
}

// Layer describes one selectable weather variable of a forecast issuance.
// Layers are shared between sessions and must not be modified.
type Layer struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Bundle Bundle   `json:"bundle"`
	Styles []Style  `json:"styles"`
	Times  []string `json:"times"`
}

// Style returns the style with the given name.
func (l *Layer) Style(name string) (Style, bool) {
	for _, s := range l.Styles {
		if s.Name == name {
			return s, true
		}
	}
	return Style{}, false
}

// HasTime reports whether the layer has a tile for the time token.
func (l *Layer) HasTime(token string) bool {
	return IndexOf(l.Times, token) >= 0
}

// IndexOf returns the position of token in times, or -1.
func IndexOf(times []string, token string) int {
	for i, t := range times {
		if t == token {
			return i
		}
	}
	return -1
}

// Forecast is the set of layers of one issuance, in capabilities order.
type Forecast struct {
	Date   string
	Hour   string
	Layers []*Layer
}

// Steps is the number of time steps of the forecast's first layer, used to
// judge whether the issuance has finished populating.
func (f *Forecast) Steps() int {
	if f == nil || len(f.Layers) == 0 {
		return 0
	}
	return len(f.Layers[0].Times)
}
