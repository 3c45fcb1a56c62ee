package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"adspower_sync/internal/adspower"
	"adspower_sync/internal/app"
	"adspower_sync/internal/config"
	"adspower_sync/internal/geocode"
	"adspower_sync/internal/groups"
	"adspower_sync/internal/notifications"
	"adspower_sync/internal/processing"
	"adspower_sync/internal/sheets"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type clients struct {
	profiles *adspower.Client
	sheets   *sheets.Client
	geocoder *geocode.Client
	notifier *notifications.Client
}

// loadSettings reads and validates the configuration file.
func loadSettings(path string) (*config.Settings, error) {
	settings, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	log.Debug().Str("path", path).Strs("groups", settings.Groups).Msg("Configuration loaded")
	return settings, nil
}

func initializeClients(ctx context.Context, settings *config.Settings) (*clients, error) {
	log.Debug().Msg("Initializing clients")
	cooldown, err := settings.CooldownDuration()
	if err != nil {
		return nil, err
	}
	policy := config.DefaultResilienceConfig

	creds, err := sheetsCredentials(settings)
	if err != nil {
		return nil, err
	}
	sheetsClient, err := sheets.NewClient(ctx, cooldown, policy.SheetAPI, creds)
	if err != nil {
		return nil, err
	}

	geo := settings.Geolocation
	c := &clients{
		profiles: adspower.NewClient(settings.AdsPower.BaseURL(), settings.AdsPower.APIKey, cooldown, policy.ProfileAPI),
		sheets:   sheetsClient,
		geocoder: geocode.NewClient(geo.BaseURL, geo.APIKey, geo.UserAgentEmail, cooldown, policy.Geocode),
		notifier: notifications.NewClient(
			app.GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
			app.GetEnvWithDefault("NTFY_TOPIC", "adspower-sync"),
			strings.EqualFold(app.GetEnvWithDefault("NTFY_ENABLED", "false"), "true"),
			app.GetEnvWithDefault("NTFY_PRIORITY", "default"),
			policy.Notification,
		),
	}
	log.Debug().Str("adspower", settings.AdsPower.BaseURL()).Msg("Clients initialized successfully")
	return c, nil
}

// sheetsCredentials prefers an inline service account over a credentials file.
func sheetsCredentials(settings *config.Settings) (option.ClientOption, error) {
	if len(settings.ServiceAccount) > 0 {
		raw, err := json.Marshal(settings.ServiceAccount)
		if err != nil {
			return nil, fmt.Errorf("failed to encode service account: %w", err)
		}
		return option.WithCredentialsJSON(raw), nil
	}
	return option.WithCredentialsFile(settings.CredsFile), nil
}

// buildJob resolves the configured groups and assembles the flows selected
// by steps. An unknown group is a startup error.
func buildJob(ctx context.Context, settings *config.Settings, c *clients, steps processing.Steps) (*processing.Job, error) {
	dir, err := groups.Resolve(ctx, c.profiles, settings.Groups)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return processing.NewJob(c.profiles,
		processing.NewBalancer(c.profiles, c.sheets, settings, dir, rng),
		processing.NewRemarkUpdater(c.profiles, c.sheets, c.geocoder, settings, rng),
		processing.NewMirror(c.profiles, c.sheets, settings, dir),
		processing.NewCleaner(c.sheets, settings),
		c.notifier,
		steps,
	), nil
}

// prepare loads settings, builds clients and the job in one go.
func prepare(ctx context.Context, path string, steps processing.Steps) (*config.Settings, *clients, *processing.Job, error) {
	settings, err := loadSettings(path)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := initializeClients(ctx, settings)
	if err != nil {
		return nil, nil, nil, err
	}
	job, err := buildJob(ctx, settings, c, steps)
	if err != nil {
		return nil, nil, nil, err
	}
	return settings, c, job, nil
}
