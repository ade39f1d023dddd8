package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mapofsmiles/companion/internal/domain"
)

// placeholderPrefix marks endpoint values copied from the sample config and never filled in.
const placeholderPrefix = "YOUR_"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Submit   SubmitConfig
	Map      MapConfig
	Stories  StoriesConfig
	Geo      GeoConfig
	Notify   NotifyConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
	// AllowedOrigins are the origins the map page may be served from.
	// A single "*" inside an entry matches any run of characters.
	AllowedOrigins []string
}

// StoreConfig describes the remote story store read path.
type StoreConfig struct {
	Driver  string // "postgrest" or "postgres"
	URL     string
	AnonKey string
	Table   string
	Timeout time.Duration
}

type DatabaseConfig struct {
	URL string
}

type SubmitConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

type MapConfig struct {
	DefaultCenter domain.Position
	DefaultZoom   int
	MinZoom       int
	MaxZoom       int
}

type StoriesConfig struct {
	MaxLength     int
	MinLength     int
	DefaultRadius float64 // meters
	LoadRadius    float64 // meters
	Emotions      []domain.Emotion
}

type GeoConfig struct {
	InitialFixTimeout time.Duration
}

type NotifyConfig struct {
	FCMCredentialsFile string
	FCMDeviceToken     string
}

type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var errs []string

	storeTimeout := getDuration("HTTP_TIMEOUT", 15*time.Second)
	lat := getFloat("MAP_DEFAULT_LAT", 42.6977, &errs)
	lng := getFloat("MAP_DEFAULT_LNG", 23.3219, &errs)

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:*,http://127.0.0.1:*")),
		},
		Store: StoreConfig{
			Driver:  strings.ToLower(getEnv("STORE_DRIVER", "postgrest")),
			URL:     strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			AnonKey: getEnv("SUPABASE_ANON_KEY", ""),
			Table:   getEnv("SUPABASE_TABLE", "stories"),
			Timeout: storeTimeout,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Submit: SubmitConfig{
			WebhookURL: getEnv("SUBMIT_WEBHOOK_URL", ""),
			Timeout:    storeTimeout,
		},
		Map: MapConfig{
			DefaultCenter: domain.NewPosition(lat, lng),
			DefaultZoom:   getInt("MAP_DEFAULT_ZOOM", 13, &errs),
			MinZoom:       getInt("MAP_MIN_ZOOM", 3, &errs),
			MaxZoom:       getInt("MAP_MAX_ZOOM", 18, &errs),
		},
		Stories: StoriesConfig{
			MaxLength:     getInt("STORY_MAX_LENGTH", 500, &errs),
			MinLength:     getInt("STORY_MIN_LENGTH", 10, &errs),
			DefaultRadius: getFloat("STORY_DEFAULT_RADIUS", 5000, &errs),
			LoadRadius:    getFloat("STORY_LOAD_RADIUS", 10000, &errs),
			Emotions:      parseEmotions(getEnv("STORY_EMOTIONS", "")),
		},
		Geo: GeoConfig{
			InitialFixTimeout: getDuration("GEO_INITIAL_TIMEOUT", 10*time.Second),
		},
		Notify: NotifyConfig{
			FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
			FCMDeviceToken:     getEnv("FCM_DEVICE_TOKEN", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", ""),
		},
	}

	if cfg.Store.Driver != "postgrest" && cfg.Store.Driver != "postgres" {
		errs = append(errs, fmt.Sprintf("STORE_DRIVER: unknown driver %q", cfg.Store.Driver))
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		errs = append(errs, "ALLOWED_ORIGINS: at least one origin is required")
	}
	if cfg.Stories.MinLength > cfg.Stories.MaxLength {
		errs = append(errs, "STORY_MIN_LENGTH: must not exceed STORY_MAX_LENGTH")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// StoreConfigured reports whether the read path has usable credentials.
func (c *Config) StoreConfigured() bool {
	if c.Store.Driver == "postgres" {
		return IsSet(c.Database.URL)
	}
	return IsSet(c.Store.URL) && IsSet(c.Store.AnonKey)
}

// SubmitConfigured reports whether the submission webhook is set up.
func (c *Config) SubmitConfigured() bool {
	return IsSet(c.Submit.WebhookURL)
}

// IsSet reports whether an endpoint value is present and not a placeholder.
func IsSet(value string) bool {
	return value != "" && !strings.HasPrefix(value, placeholderPrefix)
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]string) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64, errs *[]string) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", key, err))
		return fallback
	}
	return v
}

// getDuration falls back silently on malformed values.
func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

func parseList(value string) []string {
	var result []string
	for _, s := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseEmotions parses a comma-separated tag list
func parseEmotions(value string) []domain.Emotion {
	if value == "" {
		return append([]domain.Emotion(nil), domain.DefaultEmotions...)
	}
	var result []domain.Emotion
	for _, s := range strings.Split(value, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(s))
		if trimmed != "" {
			result = append(result, domain.Emotion(trimmed))
		}
	}
	if len(result) == 0 {
		return append([]domain.Emotion(nil), domain.DefaultEmotions...)
	}
	return result
}
