// Package wms builds GetMap tile URL templates for the map renderer.
package wms

import (
	"fmt"
	"net/url"
	"strings"
)

// BBoxPlaceholder is substituted by the map renderer with each tile's
// bounding box in EPSG:3857.
const BBoxPlaceholder = "{bbox-epsg-3857}"

// Fixed GetMap parameters.
const (
	Version    = "1.3.0"
	Format     = "image/png"
	TileWidth  = 1280
	TileHeight = 1280
	CRS        = "EPSG:3857"
)

// Builder produces tile URL templates against one WMS endpoint.
type Builder struct {
	Endpoint string
	KeyParam string
	APIKey   string
}

// Tile selects one layer rendering at one time step.
type Tile struct {
	Layer  string
	Style  string
	Time   string
	Bundle string
}

// GetMap returns the URL template for the tile. The bounding box is left as
// BBoxPlaceholder.
func (b Builder) GetMap(t Tile) string {
	var sb strings.Builder
	sb.WriteString(b.Endpoint)
	if strings.Contains(b.Endpoint, "?") {
		sb.WriteString("&")
	} else {
		sb.WriteString("?")
	}
	sb.WriteString("VERSION=" + Version)
	sb.WriteString("&SERVICE=WMS&REQUEST=GetMap&FORMAT=" + Format + "&TRANSPARENT=true")
	fmt.Fprintf(&sb, "&WIDTH=%d&HEIGHT=%d&CRS=%s&BBOX=%s", TileWidth, TileHeight, CRS, BBoxPlaceholder)
	// layer names, styles and time tokens come from the capabilities
	// document and are passed through as the server published them
	sb.WriteString("&LAYERS=" + t.Layer)
	sb.WriteString("&STYLES=" + t.Style)
	sb.WriteString("&TIME=" + t.Time)
	sb.WriteString("&bundle=" + t.Bundle)
	if b.KeyParam != "" {
		sb.WriteString("&" + b.KeyParam + "=" + url.QueryEscape(b.APIKey))
	}
	return sb.String()
}

// ReplaceTime swaps the TIME parameter of a URL template, leaving every other
// parameter and the bounding box placeholder untouched.
func ReplaceTime(template, token string) string {
	i := strings.Index(template, "&TIME=")
	if i < 0 {
		return template
	}
	start := i + len("&TIME=")
	end := strings.IndexByte(template[start:], '&')
	rest := ""
	if end >= 0 {
		rest = template[start+end:]
	}
	return template[:start] + token + rest
}

// TimeOf extracts the TIME parameter of a URL template.
func TimeOf(template string) string {
	i := strings.Index(template, "&TIME=")
	if i < 0 {
		return ""
	}
	v := template[i+len("&TIME="):]
	if end := strings.IndexByte(v, '&'); end >= 0 {
		v = v[:end]
	}
	return v
}
