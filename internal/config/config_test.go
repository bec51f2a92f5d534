package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"weekcal/internal/calendar"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d := cmp.Diff(DefaultConfig(), cfg); d != "" {
		t.Errorf("Load() on missing file (-want +got):\n%s", d)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.MinHour, cfg.MaxHour = 7, 21
	cfg.ArrangeAllDayVertically = true
	cfg.MinDate = "2025-01-01"
	cfg.ICS = []ICSConfig{
		{ID: "work", URL: "https://example.com/work.ics"},
		{ID: "blocked", Path: "/tmp/blocked.ics", Background: true, Color: "#cccccc"},
	}
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d := cmp.Diff(cfg, got); d != "" {
		t.Errorf("round trip (-want +got):\n%s", d)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    Config
		check func(t *testing.T, c Config)
	}{
		{
			name: "empty config gets defaults",
			in:   Config{},
			check: func(t *testing.T, c Config) {
				if c.MaxHour != 24 || c.VisibleDays != 7 || c.WeekStart != "monday" {
					t.Errorf("got %+v", c)
				}
			},
		},
		{
			name: "inverted hours reset",
			in:   Config{MinHour: 20, MaxHour: 8},
			check: func(t *testing.T, c Config) {
				if c.MinHour != 0 || c.MaxHour != 24 {
					t.Errorf("hours = %d..%d, want 0..24", c.MinHour, c.MaxHour)
				}
			},
		},
		{
			name: "unknown week start",
			in:   Config{WeekStart: "friday"},
			check: func(t *testing.T, c Config) {
				if c.WeekStart != "monday" {
					t.Errorf("WeekStart = %q", c.WeekStart)
				}
			},
		},
		{
			name: "bad dates dropped",
			in:   Config{MinDate: "yesterday", MaxDate: "2025-12-31"},
			check: func(t *testing.T, c Config) {
				if c.MinDate != "" || c.MaxDate != "2025-12-31" {
					t.Errorf("dates = %q, %q", c.MinDate, c.MaxDate)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.in
			c.Normalize()
			tt.check(t, c)
		})
	}
}

func TestLayoutConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.MinHour, cfg.MaxHour = 8, 18

	lc := cfg.LayoutConfig()
	if lc.MinHour != 8 || lc.MaxHour != 18 || lc.Location != time.UTC {
		t.Errorf("LayoutConfig() = %+v", lc)
	}

	cfg.Timezone = "Not/AZone"
	if cfg.Location() != time.Local {
		t.Error("invalid timezone did not fall back to Local")
	}
}

func TestDateBoundsAndSources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDate = "2025-12-31"
	cfg.ICS = []ICSConfig{{ID: "a", URL: "https://example.com/a.ics", Background: true}}

	minDate, maxDate := cfg.DateBounds()
	if !minDate.IsZero() {
		t.Errorf("minDate = %v, want zero", minDate)
	}
	if want := (calendar.Date{Year: 2025, Month: time.December, Day: 31}); maxDate != want {
		t.Errorf("maxDate = %v, want %v", maxDate, want)
	}

	srcs := cfg.Sources()
	if len(srcs) != 1 || srcs[0].ID != "a" || !srcs[0].Background {
		t.Errorf("Sources() = %+v", srcs)
	}
	if cfg.FirstDayOfWeek() != time.Monday {
		t.Errorf("FirstDayOfWeek() = %v", cfg.FirstDayOfWeek())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() on invalid YAML error = nil")
	}
}
