package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Time bundles offered by the Point and File APIs.
const (
	ShortRangeHighFreq  = "short_range_high_freq"
	MediumRangeStdFreq  = "medium_range_std_freq"
	MediumRangeHighFreq = "medium_range_high_freq"
)

// ErrMissingData is returned when a response lacks its payload element.
var ErrMissingData = errors.New("response did not contain a data element")

// PointRequest selects a point forecast.
type PointRequest struct {
	Lat               float64
	Lon               float64
	Bundles           []string
	TimeBundle        string
	ValidTimeInterval string
	IssuanceTime      string
}

// PointForecast is one forecast step for a point.
type PointForecast struct {
	Times struct {
		IssuanceTime string `json:"issuance_time"`
		ValidTime    string `json:"valid_time"`
	} `json:"times"`
	Values map[string]float64 `json:"values"`
}

// ExpectedSteps returns the number of lead times a complete issuance of the
// time bundle contains.
func ExpectedSteps(timeBundle string) (int, error) {
	switch timeBundle {
	case ShortRangeHighFreq:
		// hourly 0-24h
		return 25, nil
	case MediumRangeStdFreq:
		// six hourly 0-168h
		return 29, nil
	case MediumRangeHighFreq:
		// hourly 0-24h then six hourly to 168h
		return 49, nil
	default:
		return 0, fmt.Errorf("unexpected time bundle %q", timeBundle)
	}
}

// IssuanceInterval is the time between two issuances of the time bundle.
func IssuanceInterval(timeBundle string) time.Duration {
	if strings.Contains(timeBundle, "medium_range") {
		return 12 * time.Hour
	}
	return 6 * time.Hour
}

func pointQuery(req PointRequest) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(req.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(req.Lon, 'f', -1, 64))
	if len(req.Bundles) > 0 {
		q.Set("bundles", strings.Join(req.Bundles, ","))
	}
	if req.TimeBundle != "" {
		q.Set("time_bundle", req.TimeBundle)
	}
	if req.ValidTimeInterval != "" {
		q.Set("valid_time_interval", req.ValidTimeInterval)
	}
	if req.IssuanceTime != "" {
		q.Set("issuance_time", req.IssuanceTime)
	}
	return q
}

// FetchPoint retrieves the point forecast.
func (c *Client) FetchPoint(ctx context.Context, req PointRequest) ([]PointForecast, error) {
	endpoint := strings.TrimRight(c.Host, "/") + "/forecast/point?" + pointQuery(req).Encode()
	c.Logger.Debug().Float64("lat", req.Lat).Float64("lon", req.Lon).Msg("retrieving point forecast")

	body, err := c.get(ctx, endpoint, c.authHeader())
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch point forecast")
	}

	var apiResponse struct {
		Data *[]PointForecast `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if apiResponse.Data == nil {
		return nil, ErrMissingData
	}
	return *apiResponse.Data, nil
}

// FetchLastCompletePoint returns the most recent complete issuance for the
// point. When the latest issuance is still populating, the previous issuance
// is requested instead.
func (c *Client) FetchLastCompletePoint(ctx context.Context, req PointRequest) ([]PointForecast, error) {
	expected, err := ExpectedSteps(req.TimeBundle)
	if err != nil {
		return nil, err
	}

	data, err := c.FetchPoint(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(data) == expected || len(data) == 0 {
		return data, nil
	}

	issued, err := time.Parse(time.RFC3339, data[0].Times.IssuanceTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issuance time %q: %w", data[0].Times.IssuanceTime, err)
	}
	prev := issued.Add(-IssuanceInterval(req.TimeBundle))
	c.Logger.Info().
		Int("steps", len(data)).
		Int("expected", expected).
		Time("issuance", prev).
		Msg("latest issuance incomplete, using previous issuance")

	req.IssuanceTime = prev.Format(time.RFC3339)
	return c.FetchPoint(ctx, req)
}
