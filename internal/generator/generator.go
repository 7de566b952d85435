package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/Zachdehooge/wms-animator/internal/render"
	"github.com/Zachdehooge/wms-animator/internal/selection"
	"github.com/Zachdehooge/wms-animator/internal/wms"
)

// DefaultSocketURL is where a generated page connects when no server URL is
// given.
const DefaultSocketURL = "ws://localhost:8080/ws"

// Page holds everything the map page template needs.
type Page struct {
	Title string
	// SocketURL is the session websocket. Relative paths are resolved
	// against the page location.
	SocketURL string
	// Titles are the layer options known when the page is rendered. The
	// page refreshes them from capabilities.ready events.
	Titles      []string
	Center      [2]float64
	Zoom        float64
	GeneratedAt time.Time
}

// NewPage returns a page with the defaults of the demo map.
func NewPage(socketURL string, titles []string) Page {
	return Page{
		Title:       "Weather WMS",
		SocketURL:   socketURL,
		Titles:      titles,
		Center:      [2]float64{-40, 20},
		Zoom:        1.5,
		GeneratedAt: time.Now().UTC(),
	}
}

var pageTemplate = template.Must(template.New("map").Funcs(template.FuncMap{
	"toJSON": toJSON,
	"slots":  slotRange,
}).Parse(pageHTML))

// Render writes the page to w.
func Render(w io.Writer, p Page) error {
	data := struct {
		Page
		Slots           int
		NoneTitle       string
		DefaultOpacity  float64
		BBoxPlaceholder string
		Updated         string
	}{
		Page:            p,
		Slots:           selection.Slots,
		NoneTitle:       selection.NoneTitle,
		DefaultOpacity:  render.DefaultOpacity,
		BBoxPlaceholder: wms.BBoxPlaceholder,
		Updated:         p.GeneratedAt.Format("Jan 2, 2006 at 15:04 UTC"),
	}
	return pageTemplate.Execute(w, data)
}

// GenerateMapHTML renders the page into outputPath. The file is written to a
// temporary name first so a browser never reads a partial page.
func GenerateMapHTML(p Page, outputPath string) error {
	var buf bytes.Buffer
	if err := Render(&buf, p); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write tmp failed: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

func slotRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func toJSON(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
