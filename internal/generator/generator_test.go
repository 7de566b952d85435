package generator

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmbedsOptionsAndSocket(t *testing.T) {
	var buf bytes.Buffer
	p := NewPage("/ws", []string{"Air Temperature", "Wave <Height>"})
	require.NoError(t, Render(&buf, p))

	html := buf.String()
	assert.Contains(t, html, `<option value="Air Temperature">Air Temperature</option>`)
	assert.Contains(t, html, `Wave &lt;Height&gt;`, "titles are escaped in markup")
	assert.Regexp(t, `const socketURL = "(\\/|/)ws";`, html)
	assert.Contains(t, html, `id="layer-0"`)
	assert.Contains(t, html, `id="layer-1"`)
	assert.NotContains(t, html, `id="layer-2"`)
	assert.Contains(t, html, `value="0.8"`)
}

func TestGenerateMapHTMLWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "wms.html")

	require.NoError(t, GenerateMapHTML(NewPage(DefaultSocketURL, nil), out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "maplibre-gl")
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateMapHTMLMissingDir(t *testing.T) {
	err := GenerateMapHTML(NewPage(DefaultSocketURL, nil), filepath.Join(t.TempDir(), "missing", "wms.html"))
	assert.Error(t, err)
}
