// Package config parses application configuration from environment
// variables using caarlos0/env/v11, plus the YAML credentials file for the
// issue tracker.
//
// Call [Load] once at startup; pass the resulting [Config] to subcommands.
// Classification policy (tracked releases, bake window, importance weights,
// the assume-affected heuristic) lives here so the engine stays free of
// hard-coded product policy.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/scarson/backport-monitor/internal/classify"
)

// Config holds all application configuration sourced from environment
// variables. Field defaults track the public OpenJDK tracker.
type Config struct {
	// ── Tracker ──────────────────────────────────────────────────────────────────
	TrackerURL string `env:"TRACKER_URL" envDefault:"https://bugs.openjdk.org"`
	// AuthFile is a YAML file with username/password; empty means anonymous.
	AuthFile string `env:"AUTH_FILE"`

	// ── Classification policy ────────────────────────────────────────────────────
	Releases []int `env:"TRACKED_RELEASES" envDefault:"8,11,17,21"`
	// LTSReleases get the heavier importance weights.
	LTSReleases    []int `env:"LTS_RELEASES"     envDefault:"8,11,17,21"`
	BakeDays       int   `env:"BAKE_DAYS"        envDefault:"10"`
	AssumeAffected bool  `env:"ASSUME_AFFECTED"  envDefault:"true"`

	// ── Fetching ─────────────────────────────────────────────────────────────────
	FetchConcurrency int `env:"FETCH_CONCURRENCY" envDefault:"8"`

	// ── Changeset index ──────────────────────────────────────────────────────────
	// HgRoot is the directory of local Mercurial checkouts; empty disables
	// changeset attribution.
	HgRoot string `env:"HG_ROOT"`

	// ── Logging ──────────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LTS importance weights; non-LTS releases fall back to the engine baseline.
const (
	ltsDefaultWeight  = 10
	ltsCriticalWeight = 40
	ltsOracleWeight   = 20
)

// Load parses and returns Config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// WeightTable builds the per-release importance table from the LTS list.
func (c *Config) WeightTable() classify.WeightTable {
	t := make(classify.WeightTable, len(c.LTSReleases))
	for _, r := range c.LTSReleases {
		t[r] = classify.Weights{
			Default:  ltsDefaultWeight,
			Critical: ltsCriticalWeight,
			Oracle:   ltsOracleWeight,
		}
	}
	return t
}

// Auth is the credentials file payload.
type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Credentials reads the auth file. Returns (nil, nil) when no file is
// configured; anonymous access is the common case for read-only reports.
func (c *Config) Credentials() (*Auth, error) {
	if c.AuthFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(c.AuthFile)
	if err != nil {
		return nil, fmt.Errorf("read auth file: %w", err)
	}
	var auth Auth
	if err := yaml.Unmarshal(raw, &auth); err != nil {
		return nil, fmt.Errorf("parse auth file %s: %w", c.AuthFile, err)
	}
	if auth.Username == "" || auth.Password == "" {
		return nil, fmt.Errorf("auth file %s: username and password are both required", c.AuthFile)
	}
	return &auth, nil
}
