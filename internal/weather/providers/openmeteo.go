package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

const (
	openMeteoBaseURL = "https://api.open-meteo.com"
	// Open-Meteo reports hourly; keep every third hour to match 3-hourly forecasts.
	openMeteoForecastStep = 3
	openMeteoForecastDays = 5
)

// OpenMeteoProvider implements weather.ForecastProvider for Open-Meteo.
// It needs no API key but only accepts coordinates.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, opts Options) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: strings.TrimRight(opts.baseURLOr(openMeteoBaseURL), "/"),
		httpCfg: opts.httpConfig(client),
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) get(ctx context.Context, q weather.Query, extra url.Values) (*http.Response, error) {
	if q.Coordinates == nil {
		return nil, fmt.Errorf("%w: openmeteo requires latitude and longitude", weather.ErrInvalidInput)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		for k, vs := range extra {
			values[k] = vs
		}
		values.Set("latitude", strconv.FormatFloat(q.Coordinates.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(q.Coordinates.Longitude, 'f', -1, 64))
		values.Set("timeformat", "unixtime")
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s/v1/forecast?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, q weather.Query) (weather.CurrentConditions, error) {
	extra := url.Values{}
	extra.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,pressure_msl,wind_speed_10m,cloud_cover,weather_code")
	extra.Set("daily", "sunrise,sunset,temperature_2m_max,temperature_2m_min")
	extra.Set("forecast_days", "1")

	resp, err := p.get(ctx, q, extra)
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	var payload struct {
		Current *struct {
			Time                int64   `json:"time"`
			Temperature         *float64 `json:"temperature_2m"`
			ApparentTemperature float64  `json:"apparent_temperature"`
			RelativeHumidity    *float64 `json:"relative_humidity_2m"`
			PressureMSL         float64  `json:"pressure_msl"`
			WindSpeed           float64  `json:"wind_speed_10m"`
			CloudCover          float64  `json:"cloud_cover"`
			WeatherCode         *int     `json:"weather_code"`
		} `json:"current"`
		Daily struct {
			Sunrise []int64   `json:"sunrise"`
			Sunset  []int64   `json:"sunset"`
			TempMax []float64 `json:"temperature_2m_max"`
			TempMin []float64 `json:"temperature_2m_min"`
		} `json:"daily"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	cur := payload.Current
	switch {
	case cur == nil:
		return weather.CurrentConditions{}, fmt.Errorf("%w: current block is missing", weather.ErrMalformed)
	case cur.Temperature == nil || cur.RelativeHumidity == nil || cur.WeatherCode == nil:
		return weather.CurrentConditions{}, fmt.Errorf("%w: current block lacks temperature, humidity or weather code", weather.ErrMalformed)
	}

	cond := weather.CurrentConditions{
		Provider:    p.name,
		ObservedAt:  unixUTC(cur.Time),
		Temperature: *cur.Temperature,
		TempMin:     *cur.Temperature,
		TempMax:     *cur.Temperature,
		FeelsLike:   cur.ApparentTemperature,
		Humidity:    *cur.RelativeHumidity,
		Pressure:    cur.PressureMSL,
		WindSpeed:   cur.WindSpeed,
		CloudCover:  cur.CloudCover,
		Description: describeOpenMeteoCode(*cur.WeatherCode),
	}
	if len(payload.Daily.Sunrise) > 0 {
		cond.Sunrise = unixUTC(payload.Daily.Sunrise[0])
	}
	if len(payload.Daily.Sunset) > 0 {
		cond.Sunset = unixUTC(payload.Daily.Sunset[0])
	}
	if len(payload.Daily.TempMax) > 0 {
		cond.TempMax = payload.Daily.TempMax[0]
	}
	if len(payload.Daily.TempMin) > 0 {
		cond.TempMin = payload.Daily.TempMin[0]
	}

	return cond, nil
}

// FetchForecast samples the hourly series every three hours over five days.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, q weather.Query) (weather.Forecast, error) {
	extra := url.Values{}
	extra.Set("hourly", "temperature_2m,relative_humidity_2m,weather_code")
	extra.Set("forecast_days", strconv.Itoa(openMeteoForecastDays))

	resp, err := p.get(ctx, q, extra)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Hourly *struct {
			Time             []int64    `json:"time"`
			Temperature      []*float64 `json:"temperature_2m"`
			RelativeHumidity []*float64 `json:"relative_humidity_2m"`
			WeatherCode      []*int     `json:"weather_code"`
		} `json:"hourly"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	h := payload.Hourly
	if h == nil {
		return nil, fmt.Errorf("%w: hourly block is missing", weather.ErrMalformed)
	}
	n := len(h.Time)
	if len(h.Temperature) != n || len(h.RelativeHumidity) != n || len(h.WeatherCode) != n {
		return nil, fmt.Errorf("%w: hourly series have mismatched lengths", weather.ErrMalformed)
	}

	forecast := make(weather.Forecast, 0, n/openMeteoForecastStep+1)
	for i := 0; i < n; i += openMeteoForecastStep {
		// Open-Meteo sends null for hours it has no model output for.
		if h.Temperature[i] == nil || h.RelativeHumidity[i] == nil || h.WeatherCode[i] == nil {
			return nil, fmt.Errorf("%w: hourly values missing at index %d", weather.ErrMalformed, i)
		}
		forecast = append(forecast, weather.ForecastPoint{
			Timestamp:   unixUTC(h.Time[i]),
			Temperature: *h.Temperature[i],
			Humidity:    *h.RelativeHumidity[i],
			Description: describeOpenMeteoCode(*h.WeatherCode[i]),
		})
	}

	return forecast, nil
}

// describeOpenMeteoCode maps WMO weather codes to short descriptions.
func describeOpenMeteoCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code == 1:
		return "mainly clear"
	case code == 2:
		return "partly cloudy"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
