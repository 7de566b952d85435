package capability

import (
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/wms-animator/internal/fetcher"
)

func timesOf(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("2020-04-14T%02d:00:00Z", i%24)
	}
	return s
}

func variable(name, title string, steps int, styles ...string) fetcher.Layer {
	v := fetcher.Layer{Name: name, Title: title}
	if steps > 0 {
		v.Dimensions = []fetcher.Dimension{
			{Name: "reference_time", Values: "2020-04-14T00:00:00Z"},
			{Name: "time", Values: timesOf(steps)},
		}
	}
	for _, s := range styles {
		style := fetcher.Style{Name: s}
		if s != "contour" {
			style.LegendURLs = []fetcher.LegendURL{{OnlineResource: fetcher.OnlineResource{Href: "https://legend.test/?style=" + s}}}
		}
		v.Styles = append(v.Styles, style)
	}
	return v
}

func hour(title string, variables ...fetcher.Layer) fetcher.Layer {
	return fetcher.Layer{Title: title, Layers: variables}
}

func day(date string, hours ...fetcher.Layer) fetcher.Layer {
	return fetcher.Layer{Title: date, Layers: hours}
}

func capsOf(days ...fetcher.Layer) *fetcher.Capabilities {
	caps := &fetcher.Capabilities{}
	caps.Capability.Layer = fetcher.Layer{Layers: []fetcher.Layer{{Title: "sof-d", Layers: days}}}
	return caps
}

func basicCaps() *fetcher.Capabilities {
	return capsOf(
		day("20200413", hour("18", variable("old.air_temperature", "Air Temperature", 60, "nearest_neighbor"))),
		day("20200414",
			hour("00", variable("basic.00.air_temperature", "Air Temperature", 60, "nearest_neighbor")),
			hour("12",
				variable("basic.12.air_temperature", "Air Temperature", 60, "nearest_neighbor", "smooth", "contour"),
				variable("basic.12.land_sea_mask", "Land Sea Mask", 0, "default"),
				variable("basic.12.wind_speed", "Wind Speed", 60, "nearest_neighbor"),
			),
		),
	)
}

func maritimeCaps() *fetcher.Capabilities {
	return capsOf(
		day("20200414",
			hour("06", variable("maritime.06.sea_surface_temperature", "Sea Surface Temperature", 55, "nearest_neighbor")),
			hour("00", variable("maritime.00.sea_surface_temperature", "Sea Surface Temperature", 55, "nearest_neighbor")),
		),
	)
}

func forecastWithSteps(hourTitle string, steps int) *Forecast {
	times := make([]string, steps)
	for i := range times {
		times[i] = fmt.Sprintf("t%d", i)
	}
	return &Forecast{Hour: hourTitle, Layers: []*Layer{{Title: "x", Times: times}}}
}

func TestSelectIssuancePriority(t *testing.T) {
	hours := map[string]*Forecast{
		"18": forecastWithSteps("18", 40),
		"12": forecastWithSteps("12", 60),
		"06": forecastWithSteps("06", 70),
		"00": forecastWithSteps("00", 10),
	}
	f, ok := SelectIssuance(hours)
	require.True(t, ok)
	assert.Equal(t, "12", f.Hour)

	hours["12"] = forecastWithSteps("12", 49)
	f, ok = SelectIssuance(hours)
	require.True(t, ok)
	assert.Equal(t, "06", f.Hour)

	hours["18"] = forecastWithSteps("18", 50)
	f, _ = SelectIssuance(hours)
	assert.Equal(t, "18", f.Hour)
}

func TestSelectIssuanceFallsBackToMidnight(t *testing.T) {
	hours := map[string]*Forecast{
		"18": forecastWithSteps("18", 40),
		"12": forecastWithSteps("12", 30),
		"06": forecastWithSteps("06", 20),
		"00": forecastWithSteps("00", 10),
	}
	f, ok := SelectIssuance(hours)
	require.True(t, ok)
	assert.Equal(t, "00", f.Hour)

	delete(hours, "00")
	_, ok = SelectIssuance(hours)
	assert.False(t, ok)
}

func TestIngestOrderDoesNotMatter(t *testing.T) {
	orders := [][]Bundle{
		{BundleBasic, BundleMaritime},
		{BundleMaritime, BundleBasic},
	}
	var results [][]string
	for _, order := range orders {
		ix := NewIndex(ExpectedBundles, "")
		for i, b := range order {
			caps := basicCaps()
			if b == BundleMaritime {
				caps = maritimeCaps()
			}
			ready, err := ix.Ingest(b, caps)
			require.NoError(t, err)
			if i == 0 {
				assert.False(t, ready)
				assert.Empty(t, ix.LatestOptions())
				assert.Empty(t, ix.Titles())
			} else {
				assert.True(t, ready)
			}
		}
		titles := ix.Titles()
		sort.Strings(titles)
		results = append(results, titles)
	}
	want := []string{"Air Temperature", "Sea Surface Temperature", "Wind Speed"}
	for _, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("titles mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestIngestSameBundleTwiceDoesNotCount(t *testing.T) {
	ix := NewIndex(ExpectedBundles, "")
	_, err := ix.Ingest(BundleBasic, basicCaps())
	require.NoError(t, err)
	ready, err := ix.Ingest(BundleBasic, basicCaps())
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, 1, ix.Ingested())
}

func TestIngestBuildsDescriptors(t *testing.T) {
	ix := NewIndex(ExpectedBundles, "k3y")
	_, err := ix.Ingest(BundleBasic, basicCaps())
	require.NoError(t, err)
	_, err = ix.Ingest(BundleMaritime, maritimeCaps())
	require.NoError(t, err)

	latest, ok := ix.Latest(BundleBasic)
	require.True(t, ok)
	assert.Equal(t, "20200414", latest.Date)
	assert.Equal(t, "12", latest.Hour)

	air, ok := ix.Lookup("Air Temperature")
	require.True(t, ok)
	assert.Equal(t, "basic.12.air_temperature", air.Name)
	assert.Equal(t, BundleBasic, air.Bundle)
	assert.Len(t, air.Times, 60)
	want := []Style{
		{Name: "nearest_neighbor", LegendURL: "https://legend.test/?style=nearest_neighbor&spire-api-key=k3y"},
		{Name: "smooth", LegendURL: "https://legend.test/?style=smooth&spire-api-key=k3y"},
		{Name: "contour", LegendURL: NoLegend},
	}
	if diff := cmp.Diff(want, air.Styles); diff != "" {
		t.Errorf("styles mismatch (-want +got):\n%s", diff)
	}

	// no time dimension: excluded
	_, ok = ix.Lookup("Land Sea Mask")
	assert.False(t, ok)

	sst, ok := ix.Lookup("Sea Surface Temperature")
	require.True(t, ok)
	assert.Equal(t, BundleMaritime, sst.Bundle)
	assert.Equal(t, "maritime.06.sea_surface_temperature", sst.Name)
}

func TestIngestSkipsEmptyTimeDimension(t *testing.T) {
	empty := variable("basic.12.empty", "Empty", 0, "contour")
	empty.Dimensions = []fetcher.Dimension{{Name: "time", Values: " "}}
	caps := capsOf(day("20200414", hour("12",
		variable("basic.12.air_temperature", "Air Temperature", 60, "contour"),
		empty,
	)))

	ix := NewIndex(1, "")
	ready, err := ix.Ingest(BundleBasic, caps)
	require.NoError(t, err)
	require.True(t, ready)

	_, ok := ix.Lookup("Empty")
	assert.False(t, ok)
	assert.Equal(t, []string{"Air Temperature"}, ix.Titles())
}

func TestIngestMalformed(t *testing.T) {
	ix := NewIndex(ExpectedBundles, "")
	_, err := ix.Ingest(BundleBasic, &fetcher.Capabilities{})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ix.Ingest(BundleBasic, capsOf(day("not-a-date", hour("00"))))
	assert.ErrorIs(t, err, ErrNoForecast)
	assert.Equal(t, 0, ix.Ingested())
}

func TestUseForecast(t *testing.T) {
	ix := NewIndex(ExpectedBundles, "")
	require.Error(t, ix.UseForecast("20200414", "00"))

	_, err := ix.Ingest(BundleBasic, basicCaps())
	require.NoError(t, err)
	_, err = ix.Ingest(BundleMaritime, maritimeCaps())
	require.NoError(t, err)

	assert.Equal(t, []string{"20200413", "20200414"}, ix.Dates(BundleBasic))
	f, ok := ix.Forecast(BundleBasic, "20200413", "18")
	require.True(t, ok)
	assert.Equal(t, "old.air_temperature", f.Layers[0].Name)

	require.NoError(t, ix.UseForecast("20200414", "00"))
	air, ok := ix.Lookup("Air Temperature")
	require.True(t, ok)
	assert.Equal(t, "basic.00.air_temperature", air.Name)
	sst, ok := ix.Lookup("Sea Surface Temperature")
	require.True(t, ok)
	assert.Equal(t, "maritime.00.sea_surface_temperature", sst.Name)
	_, ok = ix.Lookup("Wind Speed")
	assert.False(t, ok)

	assert.ErrorIs(t, ix.UseForecast("20190101", "00"), ErrNoForecast)
}
