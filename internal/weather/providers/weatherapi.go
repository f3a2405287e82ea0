package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

const (
	weatherAPIBaseURL = "https://api.weatherapi.com"
	// The free plan returns three days of hourly data.
	weatherAPIForecastDays = 3
	weatherAPIForecastStep = 3
)

// WeatherAPIProvider implements weather.ForecastProvider and forward geocoding
// for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	units   string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey, units, lang string, opts Options) *WeatherAPIProvider {
	if units == "" {
		units = "metric"
	}

	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(opts.baseURLOr(weatherAPIBaseURL), "/"),
		units:   units,
		lang:    lang,
		httpCfg: opts.httpConfig(client),
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) get(ctx context.Context, path string, values url.Values) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		v := url.Values{}
		for k, vs := range values {
			v[k] = vs
		}
		v.Set("key", p.apiKey)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, v.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
}

// queryValues encodes the location as WeatherAPI's single q parameter, which
// accepts "lat,lon" or a place name.
func (p *WeatherAPIProvider) queryValues(q weather.Query) url.Values {
	values := url.Values{}
	if q.Coordinates != nil {
		values.Set("q", strconv.FormatFloat(q.Coordinates.Latitude, 'f', -1, 64)+","+
			strconv.FormatFloat(q.Coordinates.Longitude, 'f', -1, 64))
	} else {
		values.Set("q", q.City)
	}
	if p.lang != "" {
		values.Set("lang", p.lang)
	}
	return values
}

type wapiCondition struct {
	Text string `json:"text"`
}

// wapiReading carries both unit systems; temperature converts per p.units.
type wapiReading struct {
	TempC      *float64      `json:"temp_c"`
	TempF      *float64      `json:"temp_f"`
	FeelsLikeC float64       `json:"feelslike_c"`
	FeelsLikeF float64       `json:"feelslike_f"`
	Humidity   *float64      `json:"humidity"`
	PressureMb float64       `json:"pressure_mb"`
	WindKph    float64       `json:"wind_kph"`
	WindMph    float64       `json:"wind_mph"`
	Cloud      float64       `json:"cloud"`
	Condition  wapiCondition `json:"condition"`
}

func (r wapiReading) check() error {
	switch {
	case r.TempC == nil || r.TempF == nil:
		return errors.New("temperature is missing")
	case r.Humidity == nil:
		return errors.New("humidity is missing")
	case strings.TrimSpace(r.Condition.Text) == "":
		return errors.New("condition text is missing")
	}
	return nil
}

// temperature converts to the configured units, matching OpenWeatherMap's
// standard (kelvin), metric and imperial modes.
func (p *WeatherAPIProvider) temperature(c, f float64) float64 {
	switch p.units {
	case "imperial":
		return f
	case "standard":
		return c + 273.15
	default:
		return c
	}
}

// windSpeed is m/s, or mph for imperial.
func (p *WeatherAPIProvider) windSpeed(r wapiReading) float64 {
	if p.units == "imperial" {
		return r.WindMph
	}
	return r.WindKph / 3.6
}

// Fetch returns current conditions from /v1/current.json.
func (p *WeatherAPIProvider) Fetch(ctx context.Context, q weather.Query) (weather.CurrentConditions, error) {
	resp, err := p.get(ctx, "/v1/current.json", p.queryValues(q))
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	var payload struct {
		Current *struct {
			LastUpdatedEpoch int64 `json:"last_updated_epoch"`
			wapiReading
		} `json:"current"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	if payload.Current == nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: current block is missing", weather.ErrMalformed)
	}
	cur := payload.Current.wapiReading
	if err := cur.check(); err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: current weather: %v", weather.ErrMalformed, err)
	}

	temp := p.temperature(*cur.TempC, *cur.TempF)
	return weather.CurrentConditions{
		Provider:    p.name,
		ObservedAt:  unixUTC(payload.Current.LastUpdatedEpoch),
		Temperature: temp,
		TempMin:     temp,
		TempMax:     temp,
		FeelsLike:   p.temperature(cur.FeelsLikeC, cur.FeelsLikeF),
		Humidity:    *cur.Humidity,
		Pressure:    cur.PressureMb,
		WindSpeed:   p.windSpeed(cur),
		CloudCover:  cur.Cloud,
		Description: cur.Condition.Text,
	}, nil
}

// FetchForecast samples the hourly forecast from /v1/forecast.json every
// three hours, keeping the provider's order.
func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, q weather.Query) (weather.Forecast, error) {
	values := p.queryValues(q)
	values.Set("days", strconv.Itoa(weatherAPIForecastDays))
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	resp, err := p.get(ctx, "/v1/forecast.json", values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Forecast *struct {
			Days []struct {
				Hours []struct {
					TimeEpoch int64 `json:"time_epoch"`
					wapiReading
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	if payload.Forecast == nil {
		return nil, fmt.Errorf("%w: forecast block is missing", weather.ErrMalformed)
	}

	var forecast weather.Forecast
	for d, day := range payload.Forecast.Days {
		for h := 0; h < len(day.Hours); h += weatherAPIForecastStep {
			hour := day.Hours[h]
			if err := hour.check(); err != nil {
				return nil, fmt.Errorf("%w: forecast day %d hour %d: %v", weather.ErrMalformed, d, h, err)
			}
			forecast = append(forecast, weather.ForecastPoint{
				Timestamp:   unixUTC(hour.TimeEpoch),
				Temperature: p.temperature(*hour.TempC, *hour.TempF),
				Humidity:    *hour.Humidity,
				Description: hour.Condition.Text,
			})
		}
	}

	return forecast, nil
}

// Forward resolves a city name through /v1/search.json.
func (p *WeatherAPIProvider) Forward(ctx context.Context, city string) (weather.Location, error) {
	values := url.Values{}
	values.Set("q", city)

	resp, err := p.get(ctx, "/v1/search.json", values)
	if err != nil {
		return weather.Location{}, err
	}

	var places []struct {
		Name string   `json:"name"`
		Lat  *float64 `json:"lat"`
		Lon  *float64 `json:"lon"`
	}
	if err := decodeJSON(resp, &places); err != nil {
		return weather.Location{}, err
	}
	if len(places) == 0 {
		return weather.Location{}, fmt.Errorf("%w: %q", weather.ErrNotFound, city)
	}

	pl := places[0]
	if pl.Lat == nil || pl.Lon == nil {
		return weather.Location{}, fmt.Errorf("%w: search result has no coordinates", weather.ErrMalformed)
	}

	return weather.Location{
		Coordinates: weather.Coordinates{Latitude: *pl.Lat, Longitude: *pl.Lon},
		CityName:    pl.Name,
	}, nil
}
