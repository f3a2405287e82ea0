package weather

import (
	"context"
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) (CurrentConditions, error)
}

// ForecastProvider is implemented by providers that also serve multi-day forecasts.
type ForecastProvider interface {
	Provider
	FetchForecast(ctx context.Context, q Query) (Forecast, error)
}
