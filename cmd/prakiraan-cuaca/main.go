package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/maksum011/prakiraan-cuaca/internal/api/http"
	"github.com/maksum011/prakiraan-cuaca/internal/config"
	"github.com/maksum011/prakiraan-cuaca/internal/dashboard"
	"github.com/maksum011/prakiraan-cuaca/internal/location"
	"github.com/maksum011/prakiraan-cuaca/internal/scheduler"
	"github.com/maksum011/prakiraan-cuaca/internal/store"
	"github.com/maksum011/prakiraan-cuaca/internal/weather"
	"github.com/maksum011/prakiraan-cuaca/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider, forward, reverse, err := buildProviders(cfg, httpClient)
	if err != nil {
		log.Fatalf("failed to configure providers: %v", err)
	}

	resolver, err := location.NewResolver(forward, reverse, cfg.DefaultLocation)
	if err != nil {
		log.Fatalf("failed to configure location resolver: %v", err)
	}

	service := weather.NewService(provider)
	builder := dashboard.NewBuilder(resolver, service)

	// In-memory sessions with configured retention.
	sessions := store.NewMemoryStore(cfg.SessionMaxCount, cfg.SessionMaxAge)

	// Scheduler that periodically drops idle sessions.
	sched := scheduler.New(sessions, cfg.SessionSweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "prakiraan-cuaca",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Dashboard requests may wait for a device fix on top of provider calls.
		WriteTimeout: 2*cfg.HTTPTimeout + cfg.GeolocationWait + 5*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.NewHandler(sessions, builder, service, cfg.GeolocationWait))

	log.Printf("INFO: weather provider %s, forward geocoder %s, reverse geocoder %s",
		cfg.WeatherProvider, cfg.ForwardGeocoder, cfg.ReverseGeocoder)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// buildProviders picks the weather provider and geocoders named in cfg. All
// providers share one HTTP client; each gets its own breaker and limiter.
func buildProviders(cfg *config.AppConfig, client *http.Client) (weather.Provider, location.ForwardGeocoder, location.ReverseGeocoder, error) {
	backoff := providers.DefaultBackoff()
	backoff.MaxRetries = cfg.FetchMaxRetries

	opts := func(baseURL string) providers.Options {
		return providers.Options{
			BaseURL:   baseURL,
			Backoff:   backoff,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		}
	}

	var owm *providers.OpenWeatherProvider
	openWeather := func() *providers.OpenWeatherProvider {
		if owm == nil {
			if cfg.OpenWeatherAPIKey == "" {
				log.Printf("INFO: OPENWEATHER_API_KEY is empty; OpenWeatherMap calls will fail")
			}
			owm = providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey, cfg.Units, cfg.Lang, opts(cfg.OpenWeatherBaseURL))
		}
		return owm
	}

	var wapi *providers.WeatherAPIProvider
	weatherAPI := func() *providers.WeatherAPIProvider {
		if wapi == nil {
			if cfg.WeatherAPIKey == "" {
				log.Printf("INFO: WEATHERAPI_API_KEY is empty; WeatherAPI calls will fail")
			}
			wapi = providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey, cfg.Units, cfg.Lang, opts(cfg.WeatherAPIBaseURL))
		}
		return wapi
	}

	var google *providers.GoogleGeocoder
	googleGeocoder := func() *providers.GoogleGeocoder {
		if google == nil {
			google = providers.NewGoogleGeocoder(cfg.GoogleAPIKey)
		}
		return google
	}

	var provider weather.Provider
	switch cfg.WeatherProvider {
	case "openweathermap":
		provider = openWeather()
	case "openmeteo":
		provider = providers.NewOpenMeteoProvider(client, opts(cfg.OpenMeteoBaseURL))
	case "weatherapi":
		provider = weatherAPI()
	default:
		return nil, nil, nil, fmt.Errorf("unknown weather provider %q", cfg.WeatherProvider)
	}

	var forward location.ForwardGeocoder
	switch cfg.ForwardGeocoder {
	case "openweathermap":
		forward = openWeather()
	case "google":
		forward = googleGeocoder()
	case "weatherapi":
		forward = weatherAPI()
	default:
		return nil, nil, nil, fmt.Errorf("unknown forward geocoder %q", cfg.ForwardGeocoder)
	}

	var reverse location.ReverseGeocoder
	switch cfg.ReverseGeocoder {
	case "bigdatacloud":
		reverse = providers.NewBigDataCloudGeocoder(client, cfg.Lang, opts(cfg.BigDataCloudURL))
	case "openweathermap":
		reverse = openWeather()
	case "google":
		reverse = googleGeocoder()
	default:
		return nil, nil, nil, fmt.Errorf("unknown reverse geocoder %q", cfg.ReverseGeocoder)
	}

	return provider, forward, reverse, nil
}
