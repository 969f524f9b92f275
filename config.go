package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const minSigningSecretLength = 16

var geocoderProviders = []string{"none", "nominatim", "mapbox", "fallback"}

type Config struct {
	Addr              string `koanf:"http_addr"`
	Env               string `koanf:"app_env"`
	DatabaseURL       string `koanf:"database_url"`
	PublicBaseURL     string `koanf:"public_base_url"`
	AppSigningSecret  string `koanf:"app_signing_secret"`
	PublicWrites      bool   `koanf:"public_writes"`
	GeocoderProvider  string `koanf:"geocoder_provider"`
	MapboxAccessToken string `koanf:"mapbox_access_token"`
	NominatimBaseURL  string `koanf:"nominatim_base_url"`
	TemplatesDir      string `koanf:"templates_dir"`
}

// configEnvKeys are the environment variables read into Config.
var configEnvKeys = map[string]struct{}{
	"HTTP_ADDR":           {},
	"APP_ENV":             {},
	"DATABASE_URL":        {},
	"PUBLIC_BASE_URL":     {},
	"APP_SIGNING_SECRET":  {},
	"PUBLIC_WRITES":       {},
	"GEOCODER_PROVIDER":   {},
	"MAPBOX_ACCESS_TOKEN": {},
	"NOMINATIM_BASE_URL":  {},
	"TEMPLATES_DIR":       {},
}

// flagConfigKeys maps CLI flag names onto config keys.
var flagConfigKeys = map[string]string{
	"addr":          "http_addr",
	"env":           "app_env",
	"database-url":  "database_url",
	"public-writes": "public_writes",
	"templates-dir": "templates_dir",
}

// loadConfig merges defaults, environment variables and explicitly set flags
// (highest priority). flags may be nil.
func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"http_addr":          ":1337",
		"app_env":            "development",
		"public_base_url":    "http://localhost:1337",
		"public_writes":      false,
		"geocoder_provider":  "none",
		"nominatim_base_url": "https://nominatim.openstreetmap.org",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider("", ".", func(key string) string {
		if _, ok := configEnvKeys[key]; !ok {
			return ""
		}
		if strings.TrimSpace(os.Getenv(key)) == "" {
			return ""
		}
		return strings.ToLower(key)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagConfigKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Env = strings.TrimSpace(cfg.Env)
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	cfg.AppSigningSecret = strings.TrimSpace(cfg.AppSigningSecret)
	cfg.GeocoderProvider = strings.ToLower(strings.TrimSpace(cfg.GeocoderProvider))
	cfg.NominatimBaseURL = strings.TrimRight(strings.TrimSpace(cfg.NominatimBaseURL), "/")

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = databaseURLFromParts()
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL or PG*/POSTGRES_* variables must be configured")
	}

	if len(cfg.AppSigningSecret) < minSigningSecretLength {
		return nil, fmt.Errorf("APP_SIGNING_SECRET must be at least %d characters", minSigningSecretLength)
	}

	if !containsString(geocoderProviders, cfg.GeocoderProvider) {
		return nil, fmt.Errorf("GEOCODER_PROVIDER must be one of %s", strings.Join(geocoderProviders, ", "))
	}
	if (cfg.GeocoderProvider == "mapbox" || cfg.GeocoderProvider == "fallback") && cfg.MapboxAccessToken == "" {
		return nil, fmt.Errorf("MAPBOX_ACCESS_TOKEN is required for GEOCODER_PROVIDER=%s", cfg.GeocoderProvider)
	}

	return &cfg, nil
}

func databaseURLFromParts() string {
	host := valueFromEnvKeys("PGHOST", "POSTGRES_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := valueFromEnvKeys("PGPORT", "POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	dbname := valueFromEnvKeys("PGDATABASE", "POSTGRES_DB")
	user := valueFromEnvKeys("PGUSER", "POSTGRES_USER")
	password := valueFromEnvKeys("PGPASSWORD", "POSTGRES_PASSWORD")
	sslmode := valueFromEnvKeys("PGSSLMODE", "POSTGRES_SSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}
	if dbname == "" || user == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)
}

func loadDotEnvFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), "\"")
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	return nil
}

func valueFromEnvKeys(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
