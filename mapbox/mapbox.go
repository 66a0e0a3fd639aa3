// Package mapbox implements parkwatch.Geocoder over the Mapbox reverse
// geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/parkwatch"
)

const (
	DefaultBaseURL = "https://api.mapbox.com"
	DefaultTimeout = 5 * time.Second
)

var _ parkwatch.Geocoder = (*Client)(nil)

// Client is a reverse geocoding client restricted to neighbourhood and
// locality features, localized to Romanian.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type featureCollection struct {
	Features []parkwatch.PlaceCandidate `json:"features"`
}

// ReverseGeocode returns the features Mapbox reports for the coordinate, in
// response order.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) ([]parkwatch.PlaceCandidate, error) {
	if c.token == "" {
		return nil, parkwatch.Unauthorized("Mapbox access token not configured")
	}

	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("types", "neighborhood,locality")
	q.Set("language", "ro")

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s,%s.json?%s",
		c.baseURL,
		strconv.FormatFloat(lng, 'f', -1, 64),
		strconv.FormatFloat(lat, 'f', -1, 64),
		q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build geocoding request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geocoding request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	return fc.Features, nil
}
