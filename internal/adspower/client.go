package adspower

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"adspower_sync/internal/retry"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// PageSize is the page length used when listing profiles; a shorter page
// marks the end of the data.
const PageSize = 100

// ErrGroupNotFound is returned when no group matches a configured name.
var ErrGroupNotFound = errors.New("adspower: group not found")

type Client struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	limiter      *rate.Limiter
	retry        retry.Config
	apiCallCount int64
	apiCallMutex sync.Mutex
}

// NewClient talks to the AdsPower local API at baseURL. Successive requests
// are spaced by at least cooldown.
func NewClient(baseURL, apiKey string, cooldown time.Duration, policy retry.Config) *Client {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		retry:   policy,
	}
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// ResetAPICallCount resets the API call counter to zero
func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

// do sends one request with throttling and retries, and decodes the data
// field of a code==0 envelope into out. Transport failures and 5xx are
// retried; a non-zero code comes back as *APIError without retrying.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	env, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) (envelope, error) {
		return c.send(ctx, method, endpoint, payload)
	})
	if err != nil {
		return err
	}

	if env.Code != 0 {
		return &APIError{Endpoint: path, Code: env.Code, Msg: env.Msg}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s data: %w", path, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (envelope, error) {
	var env envelope
	if err := c.limiter.Wait(ctx); err != nil {
		return env, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return env, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	c.IncrementAPICall()

	resp, err := c.client.Do(req)
	if err != nil {
		return env, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return env, err
		}
		return env, retry.Permanent(err)
	}

	if err := json.Unmarshal(respBody, &env); err != nil {
		log.Debug().
			Err(err).
			Str("response_body", string(respBody[:min(500, len(respBody))])).
			Msg("Failed to unmarshal JSON response")
		return env, retry.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return env, nil
}

// Status checks that the local API is up.
func (c *Client) Status(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/status", nil, nil, nil)
}

// GroupID resolves a group name, compared case-insensitively, to its id.
func (c *Client) GroupID(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("group_name", name)
	query.Set("page_size", strconv.Itoa(PageSize))

	var data listData[Group]
	if err := c.do(ctx, http.MethodGet, "/api/v1/group/list", query, nil, &data); err != nil {
		return "", err
	}
	for _, g := range data.List {
		if strings.EqualFold(g.Name, name) {
			return g.ID.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrGroupNotFound, name)
}

// ListProfiles pages through every profile of a group. On failure the
// profiles fetched so far are returned along with the error.
func (c *Client) ListProfiles(ctx context.Context, groupID string) ([]Profile, error) {
	var profiles []Profile
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("group_id", groupID)
		query.Set("page", strconv.Itoa(page))
		query.Set("page_size", strconv.Itoa(PageSize))

		var data listData[Profile]
		if err := c.do(ctx, http.MethodGet, "/api/v1/user/list", query, nil, &data); err != nil {
			return profiles, fmt.Errorf("failed to list page %d of group %s: %w", page, groupID, err)
		}
		profiles = append(profiles, data.List...)

		log.Debug().
			Str("group_id", groupID).
			Int("page", page).
			Int("fetched", len(data.List)).
			Msg("Fetched profile page")

		if len(data.List) < PageSize {
			return profiles, nil
		}
	}
}

// CountProfiles returns the number of profiles in a group.
func (c *Client) CountProfiles(ctx context.Context, groupID string) (int, error) {
	profiles, err := c.ListProfiles(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return len(profiles), nil
}

// CreateProfile creates a browser profile and returns its user_id.
func (c *Client) CreateProfile(ctx context.Context, req CreateRequest) (string, error) {
	if req.ProxyConfig == nil {
		req.ProxyConfig = map[string]any{}
	}
	var data createData
	if err := c.do(ctx, http.MethodPost, "/api/v1/user/create", nil, req, &data); err != nil {
		return "", err
	}
	return data.ID.String(), nil
}

// UpdateProfile writes remark, credentials and location fingerprint.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/user/update", nil, req, nil)
}
