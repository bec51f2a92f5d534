package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"weekcal/internal/calendar"
	"weekcal/internal/ics"
	"weekcal/internal/layout"
)

// ICSConfig describes a single calendar source.
type ICSConfig struct {
	// ID is an internal identifier used for item ids and logging.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint; file:// reads from disk.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file. It is watched for changes when serving.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// Background lays the source out as blocked time behind other events.
	Background bool   `yaml:"background,omitempty" json:"background,omitempty"`
	Color      string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone timed events are laid out in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron schedule (e.g. "*/15 * * * *") for re-fetching
	// sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is how many days past the first visible day are fetched
	// and laid out.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`
	// BackfillDays is how many days before today are laid out.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`
	// VisibleDays is the number of day columns a view shows.
	VisibleDays int `yaml:"visible_days" json:"visible_days"`

	// MinHour / MaxHour bound the visible part of each day.
	MinHour int `yaml:"min_hour" json:"min_hour"`
	MaxHour int `yaml:"max_hour" json:"max_hour"`

	ArrangeAllDayVertically bool `yaml:"arrange_all_day_vertically" json:"arrange_all_day_vertically"`

	// MinDate / MaxDate (YYYY-MM-DD) optionally limit the navigable range.
	MinDate string `yaml:"min_date,omitempty" json:"min_date,omitempty"`
	MaxDate string `yaml:"max_date,omitempty" json:"max_date,omitempty"`

	// ShowAllDay toggles the all-day strip in query results.
	ShowAllDay bool `yaml:"show_all_day" json:"show_all_day"`

	// HighlightRed lists keywords that mark events as highlighted.
	HighlightRed []string `yaml:"highlight_red" json:"highlight_red"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "Asia/Seoul",
		WeekStart:    "monday",
		RefreshCron:  "*/15 * * * *",
		HorizonDays:  7,
		BackfillDays: 0,
		VisibleDays:  7,
		MinHour:      0,
		MaxHour:      24,
		ShowAllDay:   true,
		HighlightRed: []string{"휴일", "휴가", "중요"},
		CacheDir:     "./var/ics-cache",
		ICS:          []ICSConfig{},
	}
}

// Normalize fills in missing values and replaces invalid ones with
// defaults so partially filled or older configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.VisibleDays <= 0 {
		c.VisibleDays = def.VisibleDays
	}
	// A zero max hour is an unset field.
	if c.MaxHour == 0 {
		c.MaxHour = def.MaxHour
	}
	if err := (layout.Config{MinHour: c.MinHour, MaxHour: c.MaxHour}).Validate(); err != nil {
		c.MinHour, c.MaxHour = def.MinHour, def.MaxHour
	}
	if _, err := parseOptionalDate(c.MinDate); err != nil {
		c.MinDate = ""
	}
	if _, err := parseOptionalDate(c.MaxDate); err != nil {
		c.MaxDate = ""
	}
	if c.HighlightRed == nil {
		c.HighlightRed = def.HighlightRed
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LayoutConfig is the layout view of the configuration.
func (c *Config) LayoutConfig() layout.Config {
	return layout.Config{
		MinHour:                 c.MinHour,
		MaxHour:                 c.MaxHour,
		ArrangeAllDayVertically: c.ArrangeAllDayVertically,
		Location:                c.Location(),
	}
}

func (c *Config) FirstDayOfWeek() time.Weekday {
	return calendar.ParseWeekday(c.WeekStart)
}

// DateBounds returns MinDate and MaxDate; unset bounds are zero dates.
func (c *Config) DateBounds() (minDate, maxDate calendar.Date) {
	minDate, _ = parseOptionalDate(c.MinDate)
	maxDate, _ = parseOptionalDate(c.MaxDate)
	return minDate, maxDate
}

// Sources converts the ICS entries into fetcher sources.
func (c *Config) Sources() []ics.Source {
	out := make([]ics.Source, 0, len(c.ICS))
	for _, s := range c.ICS {
		out = append(out, ics.Source{
			ID:         s.ID,
			Name:       s.Name,
			URL:        s.URL,
			Path:       s.Path,
			Background: s.Background,
			Color:      s.Color,
		})
	}
	return out
}

// ItemConfig is how the resolver should style items.
func (c *Config) ItemConfig() ics.ItemConfig {
	ic := ics.DefaultItemConfig()
	ic.HighlightKeywords = c.HighlightRed
	return ic
}

func parseOptionalDate(s string) (calendar.Date, error) {
	if s == "" {
		return calendar.Date{}, nil
	}
	return calendar.ParseDate(s)
}

// Load reads configuration from the YAML file at path. A missing file is
// created with the defaults (0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
