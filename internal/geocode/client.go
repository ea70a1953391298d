// Package geocode resolves free-text addresses through a RapidAPI-hosted
// Geoapify geocoder.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"route_planner/internal/stopflow"
)

// ErrNoMatch is returned by Geocode when the text resolves to nothing.
var ErrNoMatch = errors.New("no geocoding match")

// ErrDisabled is returned by Disabled for every call.
var ErrDisabled = errors.New("geocoding is not configured")

// Client talks to the geocoder over HTTP.
type Client struct {
	BaseURL string
	APIKey  string
	Host    string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey, host string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Host:    host,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type featureCollection struct {
	Features []struct {
		Properties properties `json:"properties"`
	} `json:"features"`
}

type properties struct {
	Formatted    string  `json:"formatted"`
	AddressLine1 string  `json:"address_line1"`
	HouseNumber  string  `json:"housenumber"`
	Street       string  `json:"street"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	StateCode    string  `json:"state_code"`
	Postcode     string  `json:"postcode"`
	CountryCode  string  `json:"country_code"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

func (p properties) address() *stopflow.Address {
	line1 := p.AddressLine1
	if line1 == "" {
		line1 = strings.TrimSpace(p.HouseNumber + " " + p.Street)
	}
	region := p.StateCode
	if region == "" {
		region = p.State
	}
	if line1 == "" || p.City == "" || region == "" {
		return nil
	}
	return &stopflow.Address{
		Line1:       line1,
		City:        p.City,
		Region:      strings.ToUpper(region),
		Postal:      p.Postcode,
		CountryCode: strings.ToUpper(p.CountryCode),
	}
}

// Autocomplete returns suggestions for partial address text.
func (c *Client) Autocomplete(ctx context.Context, text string) ([]stopflow.Suggestion, error) {
	fc, err := c.get(ctx, "/autocomplete", text)
	if err != nil {
		return nil, err
	}
	out := make([]stopflow.Suggestion, 0, len(fc.Features))
	for _, f := range fc.Features {
		p := f.Properties
		if p.Formatted == "" {
			continue
		}
		out = append(out, stopflow.Suggestion{
			Text:        p.Formatted,
			Address:     p.address(),
			Coordinates: &stopflow.Coordinates{Lat: p.Lat, Lng: p.Lon},
		})
	}
	return out, nil
}

// Geocode returns the coordinates of the best match for text.
func (c *Client) Geocode(ctx context.Context, text string) (stopflow.Coordinates, error) {
	fc, err := c.get(ctx, "/search", text)
	if err != nil {
		return stopflow.Coordinates{}, err
	}
	if len(fc.Features) == 0 {
		return stopflow.Coordinates{}, fmt.Errorf("%w: %q", ErrNoMatch, text)
	}
	p := fc.Features[0].Properties
	return stopflow.Coordinates{Lat: p.Lat, Lng: p.Lon}, nil
}

func (c *Client) get(ctx context.Context, path, text string) (*featureCollection, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("format", "geojson")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", c.APIKey)
	req.Header.Set("X-RapidAPI-Host", c.Host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geocoder returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	return &fc, nil
}

// Disabled is the resolver used when no API key is configured.
type Disabled struct{}

func (Disabled) Autocomplete(context.Context, string) ([]stopflow.Suggestion, error) {
	return nil, ErrDisabled
}

func (Disabled) Geocode(context.Context, string) (stopflow.Coordinates, error) {
	return stopflow.Coordinates{}, ErrDisabled
}
