package wms

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder() Builder {
	return Builder{Endpoint: "https://api.wx.spire.com/ows/wms/", KeyParam: "spire-api-key", APIKey: "k3y"}
}

func TestGetMapTemplate(t *testing.T) {
	got := testBuilder().GetMap(Tile{
		Layer:  "sof-d.20200414.12.air_temperature",
		Style:  "contour",
		Time:   "2020-04-14T18:00:00Z",
		Bundle: "basic",
	})

	assert.True(t, strings.HasPrefix(got, "https://api.wx.spire.com/ows/wms/?VERSION=1.3.0&"))
	assert.Contains(t, got, "&BBOX={bbox-epsg-3857}&")

	u, err := url.Parse(strings.Replace(got, BBoxPlaceholder, "0,0,1,1", 1))
	require.NoError(t, err)
	q := u.Query()
	for k, want := range map[string]string{
		"SERVICE":       "WMS",
		"REQUEST":       "GetMap",
		"FORMAT":        "image/png",
		"TRANSPARENT":   "true",
		"WIDTH":         "1280",
		"HEIGHT":        "1280",
		"CRS":           "EPSG:3857",
		"LAYERS":        "sof-d.20200414.12.air_temperature",
		"STYLES":        "contour",
		"TIME":          "2020-04-14T18:00:00Z",
		"bundle":        "basic",
		"spire-api-key": "k3y",
	} {
		assert.Equal(t, want, q.Get(k), k)
	}
}

func TestReplaceTime(t *testing.T) {
	tmpl := testBuilder().GetMap(Tile{Layer: "l", Style: "s", Time: "2020-04-14T18:00:00Z", Bundle: "maritime"})
	got := ReplaceTime(tmpl, "2020-04-15T00:00:00Z")

	assert.Equal(t, "2020-04-15T00:00:00Z", TimeOf(got))
	assert.Equal(t, strings.Replace(tmpl, "2020-04-14T18:00:00Z", "2020-04-15T00:00:00Z", 1), got)
	assert.Contains(t, got, "&bundle=maritime&spire-api-key=k3y")
}

func TestReplaceTimeAtEnd(t *testing.T) {
	assert.Equal(t, "x?a=1&TIME=new", ReplaceTime("x?a=1&TIME=old", "new"))
	assert.Equal(t, "x?a=1", ReplaceTime("x?a=1", "new"))
	assert.Equal(t, "", TimeOf("x?a=1"))
}
