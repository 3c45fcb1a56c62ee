// Package geocode resolves free-text addresses to coordinates using a
// Nominatim-compatible search endpoint (geocode.maps.co by default).
package geocode

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

	"adspower_sync/internal/retry"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Coordinates struct {
	Lat float64
	Lon float64
}

type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	retry     retry.Config
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func NewClient(baseURL, apiKey, contactEmail string, cooldown time.Duration, policy retry.Config) *Client {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}
	ua := "adspower_sync/1.0"
	if contactEmail != "" {
		ua += " (" + contactEmail + ")"
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: ua,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(limit, 1),
		retry:     policy,
	}
}

// Lookup returns the best match for address. ok is false when the service
// knows no such place.
func (c *Client) Lookup(ctx context.Context, address string) (coords Coordinates, ok bool, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, false, nil
	}

	places, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) ([]place, error) {
		return c.search(ctx, address)
	})
	if err != nil {
		return Coordinates{}, false, fmt.Errorf("geocoding %q: %w", address, err)
	}
	if len(places) == 0 {
		log.Debug().Str("address", address).Msg("No geocoding match")
		return Coordinates{}, false, nil
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return Coordinates{}, false, fmt.Errorf("geocoding %q: malformed coordinates %q,%q", address, places[0].Lat, places[0].Lon)
	}

	log.Debug().
		Str("address", address).
		Str("match", places[0].DisplayName).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("Geocoded address")
	return Coordinates{Lat: lat, Lon: lon}, true, nil
}

func (c *Client) search(ctx context.Context, address string) ([]place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("q", address)
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return places, nil
}
