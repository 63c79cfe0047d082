package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/horizons/pkg/domain"
)

// Settings is the file-backed configuration of the tool. Every field has
// a working default; a config file and HORIZONS_* environment variables
// refine it, in that order.
type Settings struct {
	// Email is the contact address used as the anonymous transfer
	// credential. The remote operators ask for a real one.
	Email string `yaml:"email"`

	HorizonsAddr   string `yaml:"horizons_addr"`
	FTPAddr        string `yaml:"ftp_addr"`
	FTPDir         string `yaml:"ftp_dir"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	// Defaults fill request fields the caller leaves empty.
	Defaults Defaults `yaml:"defaults"`

	// Overrides holds output-setting overrides by label, e.g.
	// "time_zone: +00:00". Unknown labels are rejected at load time.
	Overrides map[string]string `yaml:"overrides"`

	Serve Serve `yaml:"serve"`
}

// Defaults are request-field fallbacks applied when a fetch omits them.
type Defaults struct {
	Center     string `yaml:"center"`
	Step       string `yaml:"step"`
	Quantities string `yaml:"quantities"`
}

// Serve configures the HTTP mode.
type Serve struct {
	Listen string `yaml:"listen"`

	// RedisAddr enables the artifact cache when set.
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

func defaults() Settings {
	return Settings{
		HorizonsAddr:   "horizons.jpl.nasa.gov:6775",
		FTPAddr:        "ssd.jpl.nasa.gov:21",
		FTPDir:         "pub/ssd",
		TimeoutSeconds: 15,
		Defaults: Defaults{
			Step:       "1d",
			Quantities: "1,9,20,23,24",
		},
		Serve: Serve{
			Listen:          ":8080",
			CacheTTLMinutes: 60,
		},
	}
}

// Load reads settings from path, layering file values over the defaults
// and environment variables over both. An empty path skips the file; a
// missing file at an explicit path is an error.
func Load(path string) (Settings, error) {
	s := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config: %w", err)
		}
	}

	overlayEnv(&s)

	if _, err := s.DecodeOverrides(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func overlayEnv(s *Settings) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("HORIZONS_EMAIL", &s.Email)
	setString("HORIZONS_ADDR", &s.HorizonsAddr)
	setString("HORIZONS_FTP_ADDR", &s.FTPAddr)
	setString("HORIZONS_FTP_DIR", &s.FTPDir)
	setString("HORIZONS_LISTEN", &s.Serve.Listen)
	setString("HORIZONS_REDIS_ADDR", &s.Serve.RedisAddr)
	setString("HORIZONS_REDIS_PASSWORD", &s.Serve.RedisPassword)

	if v := os.Getenv("HORIZONS_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.TimeoutSeconds = n
		}
	}
}

// Timeout returns the per-prompt wait timeout.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// CacheTTL returns the artifact-cache expiration.
func (s Settings) CacheTTL() time.Duration {
	return time.Duration(s.Serve.CacheTTLMinutes) * time.Minute
}

// DecodeOverrides maps the label/value pairs onto the override catalog.
// A label the catalog does not know is a configuration error.
func (s Settings) DecodeOverrides() (domain.Overrides, error) {
	var ov domain.Overrides
	if len(s.Overrides) == 0 {
		return ov, nil
	}

	var meta mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &ov,
		Metadata: &meta,
	})
	if err != nil {
		return ov, fmt.Errorf("decode overrides: %w", err)
	}
	if err := dec.Decode(s.Overrides); err != nil {
		return ov, fmt.Errorf("decode overrides: %w", err)
	}
	if len(meta.Unused) > 0 {
		return ov, fmt.Errorf("unknown override label %q", meta.Unused[0])
	}
	return ov, nil
}

// ApplyDefaults fills empty request fields from the configured defaults.
func (s Settings) ApplyDefaults(req domain.Request) domain.Request {
	if req.Center == "" {
		req.Center = s.Defaults.Center
	}
	if req.Step == "" {
		req.Step = s.Defaults.Step
	}
	if req.Quantities == "" {
		req.Quantities = s.Defaults.Quantities
	}
	return req
}
