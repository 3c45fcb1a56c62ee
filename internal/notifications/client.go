package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"adspower_sync/internal/retry"

	"github.com/rs/zerolog/log"
)

// Client posts plain-text messages to an ntfy topic.
type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	retry      retry.Config
	totalSent  int64
	totalFail  int64
}

// RunSummary is what one sync run did.
type RunSummary struct {
	RunID          string
	Created        int
	CreateFailures int
	RemarksUpdated int
	RemarkFailures int
	RowsMirrored   int
	RowsDeleted    int
	CleanupSkipped bool
	Duration       time.Duration
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error { return e.Underlying }

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(baseURL, topic string, enabled bool, priority string, policy retry.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
		retry:    policy,
	}
}

func (c *Client) SendNotification(ctx context.Context, message string) error {
	if c == nil || !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	_, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		err := c.sendSingleNotification(ctx, message)
		var notifErr *NotificationError
		if errors.As(err, &notifErr) && !notifErr.IsRetryable() {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})
	if err != nil {
		c.totalFail++
		return err
	}
	c.totalSent++
	return nil
}

func (c *Client) sendSingleNotification(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Str("message", message).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "AdsPower sync")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().Int("status_code", resp.StatusCode).Msg("Notification sent successfully")
	return nil
}

// NotifyRunSummary reports a finished run. Runs that changed nothing and had
// no failures are not reported.
func (c *Client) NotifyRunSummary(ctx context.Context, s RunSummary) {
	if c == nil || !c.enabled {
		return
	}
	if s.Created+s.CreateFailures+s.RemarkFailures+s.RowsDeleted == 0 && !s.CleanupSkipped {
		log.Debug().Msg("Nothing noteworthy in this run, skipping notification")
		return
	}
	if err := c.SendNotification(ctx, FormatSummary(s)); err != nil {
		log.Warn().Err(err).Msg("Failed to send run summary")
	}
}

// FormatSummary renders a run summary as a short multi-line message.
func FormatSummary(s RunSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sync run %s finished in %s\n", s.RunID, s.Duration.Round(time.Second))
	fmt.Fprintf(&sb, "Profiles created: %d", s.Created)
	if s.CreateFailures > 0 {
		fmt.Fprintf(&sb, " (%d failed)", s.CreateFailures)
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "Remarks updated: %d", s.RemarksUpdated)
	if s.RemarkFailures > 0 {
		fmt.Fprintf(&sb, " (%d failed)", s.RemarkFailures)
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "Rows mirrored: %d\n", s.RowsMirrored)
	if s.CleanupSkipped {
		sb.WriteString("Cleanup skipped: profile listing incomplete")
	} else {
		fmt.Fprintf(&sb, "Rows deleted: %d", s.RowsDeleted)
	}
	return sb.String()
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns how many notifications were sent and how many failed.
func (c *Client) GetMetrics() (sent, failed int64) {
	return c.totalSent, c.totalFail
}
