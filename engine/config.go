package engine

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/petwatch/fetch"
	"github.com/hazyhaar/petwatch/notify"
)

// Config holds all engine configuration. Zero values are filled by defaults().
type Config struct {
	DBPath     string           `yaml:"db_path"`
	Fetch      fetch.Config     `yaml:"fetch"`
	President  PresidentConfig  `yaml:"president"`
	Cabinet    CabinetConfig    `yaml:"cabinet"`
	Politeness PolitenessConfig `yaml:"politeness"`
	Validation ValidationConfig `yaml:"validation"`
	Export     ExportConfig     `yaml:"export"`
	Notify     notify.Config    `yaml:"notify"`
}

// PresidentConfig configures the paginated HTML source.
type PresidentConfig struct {
	BaseURL string `yaml:"base_url"`
	// MaxPages caps how many listing pages one discovery pass scans. Discovery
	// usually stops earlier via the smart stop; note that identifiers older
	// than an "all already known" page are not revisited unless -full is set.
	MaxPages int `yaml:"max_pages"`
}

// CabinetConfig configures the full-snapshot JSON source.
type CabinetConfig struct {
	APIURL  string `yaml:"api_url"`
	PageURL string `yaml:"page_url"`
}

// PolitenessConfig controls the pauses between upstream requests.
type PolitenessConfig struct {
	Delay          time.Duration `yaml:"delay"`            // base pause after each record
	Jitter         time.Duration `yaml:"jitter"`           // random extra, uniform in [0, Jitter)
	LongPauseEvery int           `yaml:"long_pause_every"` // extra pause cadence, in records
	LongPause      time.Duration `yaml:"long_pause"`
}

// ValidationConfig holds the pre-flight and post-sync policy values. The
// tolerance and marker thresholds are policy, not law; tune with care.
type ValidationConfig struct {
	TopMarkers        int     `yaml:"top_markers"`         // most-signed active petitions to sample
	RandomArchived    int     `yaml:"random_archived"`     // random archived petitions to sample
	AnsweredMarkers   int     `yaml:"answered_markers"`    // answered petitions to sample
	MinPass           int     `yaml:"min_pass"`            // markers that must pass
	VoteDropTolerance float64 `yaml:"vote_drop_tolerance"` // fraction below stored votes still accepted
	MaxErrorRate      float64 `yaml:"max_error_rate"`      // soft errors ÷ checked, hard ceiling
	WarnErrorRate     float64 `yaml:"warn_error_rate"`     // warning threshold
	MinVoteDelta      int     `yaml:"min_vote_delta"`      // run delta floor (negative)
}

// ExportConfig controls the analytics JSON written for the dashboard.
type ExportConfig struct {
	Path string `yaml:"path"`
	TopN int    `yaml:"top_n"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "petitions.db"
	}
	if c.President.BaseURL == "" {
		c.President.BaseURL = "https://petition.president.gov.ua"
	}
	if c.President.MaxPages <= 0 {
		c.President.MaxPages = 5
	}
	if c.Cabinet.APIURL == "" {
		c.Cabinet.APIURL = "https://petition.kmu.gov.ua/api/petitions"
	}
	if c.Cabinet.PageURL == "" {
		c.Cabinet.PageURL = "https://petition.kmu.gov.ua/kmu/petition/"
	}
	if c.Politeness.Delay <= 0 {
		c.Politeness.Delay = 500 * time.Millisecond
	}
	if c.Politeness.Jitter <= 0 {
		c.Politeness.Jitter = 300 * time.Millisecond
	}
	if c.Politeness.LongPauseEvery <= 0 {
		c.Politeness.LongPauseEvery = 25
	}
	if c.Politeness.LongPause <= 0 {
		c.Politeness.LongPause = 5 * time.Second
	}
	if c.Validation.TopMarkers <= 0 {
		c.Validation.TopMarkers = 2
	}
	if c.Validation.RandomArchived <= 0 {
		c.Validation.RandomArchived = 2
	}
	if c.Validation.AnsweredMarkers <= 0 {
		c.Validation.AnsweredMarkers = 1
	}
	if c.Validation.MinPass <= 0 {
		c.Validation.MinPass = 3
	}
	if c.Validation.VoteDropTolerance <= 0 {
		c.Validation.VoteDropTolerance = 0.05
	}
	if c.Validation.MaxErrorRate <= 0 {
		c.Validation.MaxErrorRate = 0.40
	}
	if c.Validation.WarnErrorRate <= 0 {
		c.Validation.WarnErrorRate = 0.15
	}
	if c.Validation.MinVoteDelta >= 0 {
		c.Validation.MinVoteDelta = -10_000
	}
	if c.Export.Path == "" {
		c.Export.Path = "analytics_data.json"
	}
	if c.Export.TopN <= 0 {
		c.Export.TopN = 10
	}
}

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}
