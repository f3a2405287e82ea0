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

const openWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider implements weather.ForecastProvider plus forward and
// reverse geocoding for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	units   string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey, units, lang string, opts Options) *OpenWeatherProvider {
	if units == "" {
		units = "metric"
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(opts.baseURLOr(openWeatherBaseURL), "/"),
		units:   units,
		lang:    lang,
		httpCfg: opts.httpConfig(client),
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) get(ctx context.Context, path string, values url.Values) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		v := url.Values{}
		for k, vs := range values {
			v[k] = vs
		}
		v.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, v.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
}

func (p *OpenWeatherProvider) weatherValues(q weather.Query) url.Values {
	values := url.Values{}
	values.Set("units", p.units)
	if p.lang != "" {
		values.Set("lang", p.lang)
	}

	if q.Coordinates != nil {
		values.Set("lat", strconv.FormatFloat(q.Coordinates.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(q.Coordinates.Longitude, 'f', -1, 64))
	} else {
		values.Set("q", q.City)
	}
	return values
}

type owmCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Temp and Humidity are pointers so that an absent reading is not taken for zero.
type owmMain struct {
	Temp      *float64 `json:"temp"`
	FeelsLike float64  `json:"feels_like"`
	TempMin   float64  `json:"temp_min"`
	TempMax   float64  `json:"temp_max"`
	Pressure  float64  `json:"pressure"`
	Humidity  *float64 `json:"humidity"`
}

// owmReadings checks that the fields every dashboard shows are present.
func owmReadings(m *owmMain, conds []owmCondition) error {
	switch {
	case m == nil:
		return errors.New("main is missing")
	case m.Temp == nil:
		return errors.New("main.temp is missing")
	case m.Humidity == nil:
		return errors.New("main.humidity is missing")
	case len(conds) == 0:
		return errors.New("weather is empty")
	case strings.TrimSpace(conds[0].Description) == "":
		return errors.New("weather description is missing")
	}
	return nil
}

// Fetch returns current conditions from /data/2.5/weather.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, q weather.Query) (weather.CurrentConditions, error) {
	resp, err := p.get(ctx, "/data/2.5/weather", p.weatherValues(q))
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	var payload struct {
		Dt   int64    `json:"dt"`
		Main *owmMain `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Clouds struct {
			All float64 `json:"all"`
		} `json:"clouds"`
		Weather []owmCondition `json:"weather"`
		Sys     struct {
			Sunrise int64 `json:"sunrise"`
			Sunset  int64 `json:"sunset"`
		} `json:"sys"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	if err := owmReadings(payload.Main, payload.Weather); err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: current weather: %v", weather.ErrMalformed, err)
	}

	return weather.CurrentConditions{
		Provider:    p.name,
		ObservedAt:  unixUTC(payload.Dt),
		Temperature: *payload.Main.Temp,
		TempMin:     payload.Main.TempMin,
		TempMax:     payload.Main.TempMax,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    *payload.Main.Humidity,
		Pressure:    payload.Main.Pressure,
		WindSpeed:   payload.Wind.Speed,
		CloudCover:  payload.Clouds.All,
		Description: payload.Weather[0].Description,
		IconID:      payload.Weather[0].Icon,
		Sunrise:     unixUTC(payload.Sys.Sunrise),
		Sunset:      unixUTC(payload.Sys.Sunset),
	}, nil
}

// FetchForecast returns the 5-day / 3-hour forecast from /data/2.5/forecast.
// Items are kept in the order the API lists them.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, q weather.Query) (weather.Forecast, error) {
	resp, err := p.get(ctx, "/data/2.5/forecast", p.weatherValues(q))
	if err != nil {
		return nil, err
	}

	var payload struct {
		List *[]struct {
			Dt      int64          `json:"dt"`
			Main    *owmMain       `json:"main"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	if payload.List == nil {
		return nil, fmt.Errorf("%w: forecast is missing list", weather.ErrMalformed)
	}

	forecast := make(weather.Forecast, 0, len(*payload.List))
	for i, item := range *payload.List {
		if err := owmReadings(item.Main, item.Weather); err != nil {
			return nil, fmt.Errorf("%w: forecast item %d: %v", weather.ErrMalformed, i, err)
		}
		if item.Dt == 0 {
			return nil, fmt.Errorf("%w: forecast item %d has no timestamp", weather.ErrMalformed, i)
		}
		forecast = append(forecast, weather.ForecastPoint{
			Timestamp:   unixUTC(item.Dt),
			Temperature: *item.Main.Temp,
			Humidity:    *item.Main.Humidity,
			Description: item.Weather[0].Description,
			IconID:      item.Weather[0].Icon,
		})
	}

	return forecast, nil
}

type owmPlace struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names"`
	Lat        *float64          `json:"lat"`
	Lon        *float64          `json:"lon"`
	Country    string            `json:"country"`
}

func (p *OpenWeatherProvider) placeName(pl owmPlace) string {
	if local := pl.LocalNames[p.lang]; local != "" {
		return local
	}
	return pl.Name
}

// Forward resolves a city name through /geo/1.0/direct.
func (p *OpenWeatherProvider) Forward(ctx context.Context, city string) (weather.Location, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")

	resp, err := p.get(ctx, "/geo/1.0/direct", values)
	if err != nil {
		return weather.Location{}, err
	}

	var places []owmPlace
	if err := decodeJSON(resp, &places); err != nil {
		return weather.Location{}, err
	}
	if len(places) == 0 {
		return weather.Location{}, fmt.Errorf("%w: %q", weather.ErrNotFound, city)
	}

	pl := places[0]
	if pl.Lat == nil || pl.Lon == nil {
		return weather.Location{}, fmt.Errorf("%w: geocoding result has no coordinates", weather.ErrMalformed)
	}

	return weather.Location{
		Coordinates: weather.Coordinates{Latitude: *pl.Lat, Longitude: *pl.Lon},
		CityName:    pl.Name,
	}, nil
}

// Reverse maps coordinates to a place name through /geo/1.0/reverse.
func (p *OpenWeatherProvider) Reverse(ctx context.Context, c weather.Coordinates) (string, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	values.Set("limit", "1")

	resp, err := p.get(ctx, "/geo/1.0/reverse", values)
	if err != nil {
		return "", err
	}

	var places []owmPlace
	if err := decodeJSON(resp, &places); err != nil {
		return "", err
	}
	if len(places) == 0 {
		return "", fmt.Errorf("%w: no place at %s", weather.ErrNotFound, c)
	}

	name := p.placeName(places[0])
	if name == "" {
		return "", fmt.Errorf("%w: place has no name", weather.ErrMalformed)
	}
	return name, nil
}
