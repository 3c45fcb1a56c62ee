package config

import (
	"time"

	"adspower_sync/internal/retry"
)

// ResilienceConfig holds the retry policy for each external collaborator.
// Three attempts in total for every HTTP call; exhausted retries surface to
// the caller, which logs and moves on to the next unit of work.
type ResilienceConfig struct {
	ProfileAPI   retry.Config
	SheetAPI     retry.Config
	Geocode      retry.Config
	Notification retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	ProfileAPI: retry.Config{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   8 * time.Second,
		Timeout:    15 * time.Second,
	},
	SheetAPI: retry.Config{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    30 * time.Second,
	},
	Geocode: retry.Config{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   8 * time.Second,
		Timeout:    10 * time.Second,
	},
	Notification: retry.Config{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    10 * time.Second,
	},
}
