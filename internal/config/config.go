// Package config loads runtime settings from a YAML file, environment
// variables and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pable/squad-standings/internal/model"
)

// DefaultPath is read when no config file is named explicitly. It may be
// absent.
const DefaultPath = "standings.yaml"

// ErrInvalidConfig marks configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Source kinds.
const (
	SourceDir     = "dir"
	SourceHTTP    = "http"
	SourceS3      = "s3"
	SourceArchive = "archive"
)

// Config holds every runtime setting.
type Config struct {
	RosterPath   string        `yaml:"roster_path" validate:"required"`
	Schedule     Schedule      `yaml:"schedule"`
	Source       Source        `yaml:"source"`
	ArchivePath  string        `yaml:"archive_path"`
	FetchWorkers int           `yaml:"fetch_workers" validate:"gte=1,lte=64"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	HTTPAddr     string        `yaml:"http_addr" validate:"required"`
	LogLevel     string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	OPGG         OPGG          `yaml:"opgg"`
}

// Schedule lists the competition days and where each match file lives.
type Schedule struct {
	// PathTemplate expands {round} and {match} into a source-relative key.
	PathTemplate string        `yaml:"path_template" validate:"required,contains={match}"`
	Rounds       []RoundConfig `yaml:"rounds" validate:"required,min=1,dive"`
}

// RoundConfig is one day. Matches defaults to the number of maps.
type RoundConfig struct {
	Label   string   `yaml:"label" validate:"required,excludesall=/"`
	Maps    []string `yaml:"maps"`
	Matches int      `yaml:"matches" validate:"gte=0"`
}

// Source selects where match files are read from.
type Source struct {
	Kind            string `yaml:"kind" validate:"oneof=dir http s3 archive"`
	Dir             string `yaml:"dir" validate:"required_if=Kind dir"`
	BaseURL         string `yaml:"base_url" validate:"required_if=Kind http,omitempty,url"`
	Bucket          string `yaml:"bucket" validate:"required_if=Kind s3"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// OPGG configures the player K/D lookup.
type OPGG struct {
	BaseURL  string        `yaml:"base_url" validate:"required,url"`
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
}

// Default returns the settings of the four-day, three-map competition the
// tool was built for.
func Default() Config {
	return Config{
		RosterPath: "dados/times.json",
		Schedule: Schedule{
			PathTemplate: "{round}/jogo{match}.csv",
			Rounds: []RoundConfig{
				{Label: "DIA1", Maps: []string{"Erangel", "Taego", "Miramar"}},
				{Label: "DIA2", Maps: []string{"Vikendi", "Erangel", "Deston"}},
				{Label: "DIA3", Maps: []string{"Sanhok", "Rondo", "Taego"}},
				{Label: "DIA4", Maps: []string{"Deston", "Erangel", "Miramar"}},
			},
		},
		Source:       Source{Kind: SourceDir, Dir: "csv", Region: "auto"},
		ArchivePath:  "standings.db",
		FetchWorkers: 4,
		FetchTimeout: 10 * time.Second,
		HTTPAddr:     ":8080",
		LogLevel:     "info",
		OPGG: OPGG{
			BaseURL:  "https://op.gg/pubg/user",
			Interval: time.Second,
		},
	}
}

var validate = validator.New()

// Load builds the config: defaults, then the YAML file, then STANDINGS_*
// environment variables. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "parse %s", path), ErrInvalidConfig)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, errors.Mark(errors.Wrapf(err, "read %s", path), ErrInvalidConfig)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Mark(errors.Wrap(err, "validate config"), ErrInvalidConfig)
	}
	if c.Source.Kind == SourceArchive && c.ArchivePath == "" {
		return errors.Mark(errors.New("archive source needs archive_path"), ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Schedule.Rounds))
	for _, r := range c.Schedule.Rounds {
		if r.MatchCount() == 0 {
			return errors.Mark(errors.Newf("round %s has no matches", r.Label), ErrInvalidConfig)
		}
		if seen[r.Label] {
			return errors.Mark(errors.Newf("round %s listed twice", r.Label), ErrInvalidConfig)
		}
		seen[r.Label] = true
	}
	return nil
}

func applyEnv(c *Config) error {
	str := map[string]*string{
		"STANDINGS_ROSTER_PATH":          &c.RosterPath,
		"STANDINGS_PATH_TEMPLATE":        &c.Schedule.PathTemplate,
		"STANDINGS_SOURCE_KIND":          &c.Source.Kind,
		"STANDINGS_SOURCE_DIR":           &c.Source.Dir,
		"STANDINGS_SOURCE_BASE_URL":      &c.Source.BaseURL,
		"STANDINGS_S3_BUCKET":            &c.Source.Bucket,
		"STANDINGS_S3_ENDPOINT":          &c.Source.Endpoint,
		"STANDINGS_S3_REGION":            &c.Source.Region,
		"STANDINGS_S3_ACCESS_KEY_ID":     &c.Source.AccessKeyID,
		"STANDINGS_S3_SECRET_ACCESS_KEY": &c.Source.SecretAccessKey,
		"STANDINGS_ARCHIVE_PATH":         &c.ArchivePath,
		"STANDINGS_HTTP_ADDR":            &c.HTTPAddr,
		"STANDINGS_LOG_LEVEL":            &c.LogLevel,
		"STANDINGS_OPGG_BASE_URL":        &c.OPGG.BaseURL,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("STANDINGS_FETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Mark(errors.Wrap(err, "STANDINGS_FETCH_WORKERS"), ErrInvalidConfig)
		}
		c.FetchWorkers = n
	}
	if v := os.Getenv("STANDINGS_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Mark(errors.Wrap(err, "STANDINGS_FETCH_TIMEOUT"), ErrInvalidConfig)
		}
		c.FetchTimeout = d
	}
	if v := os.Getenv("STANDINGS_ROUNDS"); v != "" {
		rounds, err := parseRounds(v)
		if err != nil {
			return err
		}
		c.Schedule.Rounds = rounds
	}
	return nil
}

// parseRounds reads "DIA1=Erangel,Taego;DIA2=Vikendi" style schedules.
func parseRounds(s string) ([]RoundConfig, error) {
	var out []RoundConfig
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, maps, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(label) == "" {
			return nil, errors.Mark(errors.Newf("STANDINGS_ROUNDS: malformed entry %q", part), ErrInvalidConfig)
		}
		rc := RoundConfig{Label: strings.TrimSpace(label)}
		for _, m := range strings.Split(maps, ",") {
			if m = strings.TrimSpace(m); m != "" {
				rc.Maps = append(rc.Maps, m)
			}
		}
		out = append(out, rc)
	}
	return out, nil
}

// MatchCount returns the number of matches played in the round.
func (r RoundConfig) MatchCount() int {
	if r.Matches > 0 {
		return r.Matches
	}
	return len(r.Maps)
}

// ModelRounds expands the schedule into model rounds with 1-based match indices.
func (s Schedule) ModelRounds() []model.Round {
	out := make([]model.Round, 0, len(s.Rounds))
	for _, rc := range s.Rounds {
		r := model.Round{Label: rc.Label}
		for i := 1; i <= rc.MatchCount(); i++ {
			m := model.Match{Key: model.MatchKey{Round: rc.Label, Index: i}}
			if i <= len(rc.Maps) {
				m.Map = rc.Maps[i-1]
			}
			r.Matches = append(r.Matches, m)
		}
		out = append(out, r)
	}
	return out
}
