package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"omitempty,url"`
	OpenMeteoBaseURL   string `validate:"omitempty,url"`
	BigDataCloudURL    string `validate:"omitempty,url"`
	GoogleAPIKey       string
	WeatherAPIKey      string
	WeatherAPIBaseURL  string `validate:"omitempty,url"`

	// Which implementation backs each role.
	WeatherProvider string `validate:"oneof=openweathermap openmeteo weatherapi"`
	ForwardGeocoder string `validate:"oneof=openweathermap google weatherapi"`
	ReverseGeocoder string `validate:"oneof=bigdatacloud openweathermap google"`

	Units string `validate:"oneof=standard metric imperial"`
	Lang  string `validate:"required"`

	// Outbound HTTP behaviour.
	HTTPTimeout     time.Duration `validate:"gt=0"`
	FetchMaxRetries int           `validate:"gte=0,lte=5"`
	RateLimit       float64       `validate:"gte=0"` // requests per second, 0 = unlimited
	RateBurst       int           `validate:"gte=1"`

	DefaultLocation weather.Location

	// How long a session dashboard may wait for the device to report a position.
	GeolocationWait time.Duration `validate:"gte=0"`

	// In-memory session retention.
	SessionMaxAge        time.Duration `validate:"gte=0"` // 0 = never expire
	SessionMaxCount      int           `validate:"gte=0"` // 0 = unlimited
	SessionSweepInterval time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.OpenMeteoBaseURL = os.Getenv("OPENMETEO_BASE_URL")
	cfg.BigDataCloudURL = os.Getenv("BIGDATACLOUD_BASE_URL")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.WeatherAPIBaseURL = os.Getenv("WEATHERAPI_BASE_URL")

	cfg.WeatherProvider = getenvDefault("WEATHER_PROVIDER", "openweathermap")
	cfg.ForwardGeocoder = getenvDefault("FORWARD_GEOCODER", "openweathermap")
	cfg.ReverseGeocoder = getenvDefault("REVERSE_GEOCODER", "bigdatacloud")

	cfg.Units = getenvDefault("WEATHER_UNITS", "metric")
	cfg.Lang = getenvDefault("WEATHER_LANG", "id")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchMaxRetries, err = getenvInt("FETCH_MAX_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getenvFloat("PROVIDER_RATE_LIMIT", 1); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = getenvInt("PROVIDER_RATE_BURST", 5); err != nil {
		return nil, err
	}

	cfg.DefaultLocation.CityName = getenvDefault("DEFAULT_LOCATION_NAME", "Polewali")
	if cfg.DefaultLocation.Latitude, err = getenvFloat("DEFAULT_LOCATION_LAT", -3.4328); err != nil {
		return nil, err
	}
	if cfg.DefaultLocation.Longitude, err = getenvFloat("DEFAULT_LOCATION_LON", 119.3435); err != nil {
		return nil, err
	}

	if cfg.GeolocationWait, err = getenvDuration("GEOLOCATION_WAIT", 0); err != nil {
		return nil, err
	}
	if cfg.SessionMaxAge, err = getenvDuration("SESSION_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionMaxCount, err = getenvInt("SESSION_MAX_COUNT", 1000); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.DefaultLocation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_LOCATION: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
