package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"adspower_sync/internal/schedule"

	"github.com/goccy/go-yaml"
)

// Settings is the persisted job configuration. It is loaded once and passed
// by pointer into every component constructor.
type Settings struct {
	AdsPower       AdsPowerSettings          `yaml:"adspower"`
	GoogleSheets   SheetSettings             `yaml:"google_sheets"`
	Groups         []string                  `yaml:"groups"`
	ProxyGroups    map[string]map[string]any `yaml:"proxy_groups"`
	Profile        ProfileDefaults           `yaml:"default_profile_settings"`
	MaxBrowsers    int                       `yaml:"max_browsers"`
	Schedule       ScheduleSettings          `yaml:"schedule"`
	Geolocation    GeoSettings               `yaml:"geolocation"`
	Cooldown       string                    `yaml:"cooldown"`
	CredsFile      string                    `yaml:"credentials_file"`
	ServiceAccount map[string]any            `yaml:"service_account"`
}

type AdsPowerSettings struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// BaseURL returns the local API root, e.g. http://local.adspower.net:50325.
func (a AdsPowerSettings) BaseURL() string {
	host := a.Host
	if host == "" {
		host = "local.adspower.net"
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if a.Port == 0 {
		return host
	}
	return fmt.Sprintf("%s:%d", host, a.Port)
}

type SheetSettings struct {
	SpreadsheetID string       `yaml:"spreadsheet_id"`
	SourceSheets  []string     `yaml:"source_sheets"`
	OutputSheets  []string     `yaml:"output_sheets"`
	Names         NameSettings `yaml:"names"`
}

// NameSettings points at the sheet holding male (A), female (B) and last (C) names.
type NameSettings struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Sheet         string `yaml:"sheet"`
}

type ProfileDefaults struct {
	OS      string `yaml:"os"`
	Browser string `yaml:"browser"`
}

type ScheduleSettings struct {
	StartTime  string `yaml:"start_time"`
	RunsPerDay int    `yaml:"runs_per_day"`
}

type GeoSettings struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	UserAgentEmail string `yaml:"user_agent_email"`
}

const (
	DefaultCooldown = time.Second
	defaultGeoURL   = "https://geocode.maps.co"
)

// Load reads a YAML (or JSON) settings file, applies environment overrides
// and defaults, and validates the result.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes settings from raw bytes. See Load.
func Parse(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	s.applyEnv()
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("ADSPOWER_API_KEY"); v != "" {
		s.AdsPower.APIKey = v
	}
	if v := os.Getenv("SPREADSHEET_ID"); v != "" {
		s.GoogleSheets.SpreadsheetID = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_FILE"); v != "" {
		s.CredsFile = v
	}
	if v := os.Getenv("GEOCODE_API_KEY"); v != "" {
		s.Geolocation.APIKey = v
	}
}

func (s *Settings) applyDefaults() {
	// groups default to the proxy group names when not listed explicitly
	if len(s.Groups) == 0 && len(s.ProxyGroups) > 0 {
		for name := range s.ProxyGroups {
			s.Groups = append(s.Groups, name)
		}
		sort.Strings(s.Groups)
	}
	if s.GoogleSheets.Names.SpreadsheetID == "" {
		s.GoogleSheets.Names.SpreadsheetID = s.GoogleSheets.SpreadsheetID
	}
	if s.Geolocation.BaseURL == "" {
		s.Geolocation.BaseURL = defaultGeoURL
	}
	if s.CredsFile == "" && len(s.ServiceAccount) == 0 {
		s.CredsFile = "credentials.json"
	}
}

// Validate reports configuration errors that must stop the job at startup.
func (s *Settings) Validate() error {
	var errs []error
	if len(s.Groups) == 0 {
		errs = append(errs, errors.New("at least one group must be configured"))
	}
	seen := make(map[string]bool, len(s.Groups))
	for _, g := range s.Groups {
		key := strings.ToLower(strings.TrimSpace(g))
		if key == "" {
			errs = append(errs, errors.New("group names must not be blank"))
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Errorf("group %q is listed twice", g))
		}
		seen[key] = true
	}
	if s.MaxBrowsers < 0 {
		errs = append(errs, fmt.Errorf("max_browsers must not be negative, got %d", s.MaxBrowsers))
	}
	if s.GoogleSheets.SpreadsheetID == "" {
		errs = append(errs, errors.New("google_sheets.spreadsheet_id is required"))
	}
	if _, err := s.ParsedSchedule(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.CooldownDuration(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParsedSchedule returns the run cadence described by the schedule block.
func (s *Settings) ParsedSchedule() (schedule.Schedule, error) {
	return schedule.Parse(s.Schedule.StartTime, s.Schedule.RunsPerDay)
}

// CooldownDuration is the throttle applied between external calls.
func (s *Settings) CooldownDuration() (time.Duration, error) {
	if s.Cooldown == "" {
		return DefaultCooldown, nil
	}
	d, err := time.ParseDuration(s.Cooldown)
	if err != nil {
		return 0, fmt.Errorf("invalid cooldown %q: %w", s.Cooldown, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("cooldown must not be negative, got %s", d)
	}
	return d, nil
}

// ProxyFor returns the proxy configuration of a group, matched case-insensitively.
func (s *Settings) ProxyFor(group string) map[string]any {
	if p, ok := s.ProxyGroups[group]; ok {
		return p
	}
	for name, p := range s.ProxyGroups {
		if strings.EqualFold(name, group) {
			return p
		}
	}
	return map[string]any{}
}
