package fetcher

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// DefaultProduct is the forecast product requested from the WMS endpoint.
const DefaultProduct = "sof-d"

// Capabilities is the root of a WMS 1.3.0 GetCapabilities document.
type Capabilities struct {
	XMLName    xml.Name   `xml:"WMS_Capabilities"`
	Version    string     `xml:"version,attr"`
	Capability Capability `xml:"Capability"`
}

// Capability holds the root layer tree.
type Capability struct {
	Layer Layer `xml:"Layer"`
}

// Layer is a node of the layer tree. Spire nests layers as
// root > product > forecast date > issuance hour > variable.
type Layer struct {
	Name       string      `xml:"Name"`
	Title      string      `xml:"Title"`
	Dimensions []Dimension `xml:"Dimension"`
	Styles     []Style     `xml:"Style"`
	Layers     []Layer     `xml:"Layer"`
}

// Dimension is a WMS dimension such as time or reference_time.
type Dimension struct {
	Name    string `xml:"name,attr"`
	Units   string `xml:"units,attr"`
	Default string `xml:"default,attr"`
	Values  string `xml:",chardata"`
}

// Style is a named rendering of a layer.
type Style struct {
	Name       string      `xml:"Name"`
	Title      string      `xml:"Title"`
	LegendURLs []LegendURL `xml:"LegendURL"`
}

// LegendURL points at a legend image for a style.
type LegendURL struct {
	Format         string         `xml:"Format"`
	OnlineResource OnlineResource `xml:"OnlineResource"`
}

// OnlineResource carries an xlink:href.
type OnlineResource struct {
	Href string `xml:"href,attr"`
}

// Dimension returns the dimension with the given name.
func (l Layer) Dimension(name string) (Dimension, bool) {
	for _, d := range l.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// List splits the comma separated dimension values.
func (d Dimension) List() []string {
	raw := strings.Split(d.Values, ",")
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Legend returns the first legend URL of the style, if any.
func (s Style) Legend() (string, bool) {
	for _, l := range s.LegendURLs {
		if l.OnlineResource.Href != "" {
			return l.OnlineResource.Href, true
		}
	}
	return "", false
}

// ParseCapabilities decodes a GetCapabilities XML document.
func ParseCapabilities(r io.Reader) (*Capabilities, error) {
	var caps Capabilities
	if err := xml.NewDecoder(r).Decode(&caps); err != nil {
		return nil, fmt.Errorf("failed to parse capabilities XML: %w", err)
	}
	return &caps, nil
}

// CapabilitiesURL builds the GetCapabilities request URL for a bundle.
func CapabilitiesURL(endpoint, product, bundle, apiKey string) string {
	q := url.Values{}
	q.Set("service", "WMS")
	q.Set("request", "GetCapabilities")
	q.Set("product", product)
	q.Set("bundle", bundle)
	q.Set(APIKeyParam, apiKey)
	return endpoint + "?" + q.Encode()
}

// WMSEndpoint returns the configured WMS endpoint, by default the one on the
// client's host.
func (c *Client) WMSEndpoint() string {
	if c.WMS != "" {
		return c.WMS
	}
	return strings.TrimRight(c.Host, "/") + "/ows/wms/"
}

// FetchCapabilities retrieves and parses the capabilities of one bundle.
// A rejected API key yields ErrUnauthorized.
func (c *Client) FetchCapabilities(ctx context.Context, product, bundle string) (*Capabilities, error) {
	if product == "" {
		product = DefaultProduct
	}
	c.Logger.Debug().Str("bundle", bundle).Msg("retrieving WMS capabilities")

	body, err := c.get(ctx, CapabilitiesURL(c.WMSEndpoint(), product, bundle, c.APIKey), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s capabilities", bundle)
	}

	caps, err := ParseCapabilities(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.Logger.Debug().Str("bundle", bundle).Msg("retrieved WMS capabilities")
	return caps, nil
}
