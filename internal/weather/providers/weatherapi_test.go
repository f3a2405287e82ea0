package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

const wapiCurrentBody = `{
  "location": {"name": "Polewali", "localtime_epoch": 1700000100},
  "current": {"last_updated_epoch": 1700000000, "temp_c": 29.4, "temp_f": 84.9,
    "feelslike_c": 33.1, "feelslike_f": 91.6, "humidity": 74, "pressure_mb": 1009,
    "wind_kph": 9, "wind_mph": 5.6, "cloud": 40, "condition": {"text": "Cerah berawan"}}
}`

func newTestWeatherAPI(t *testing.T, units string, handler http.HandlerFunc) *WeatherAPIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWeatherAPIProvider(srv.Client(), "test-key", units, "id", Options{BaseURL: srv.URL})
}

func TestWeatherAPIFetch(t *testing.T) {
	p := newTestWeatherAPI(t, "metric", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/current.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("key") != "test-key" || q.Get("lang") != "id" || q.Get("q") != "-3.4328,119.3435" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(wapiCurrentBody))
	})

	cur, err := p.Fetch(context.Background(), polewaliQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Provider != "weatherapi" || cur.Temperature != 29.4 || cur.Humidity != 74 {
		t.Fatalf("unexpected conditions: %+v", cur)
	}
	if cur.WindSpeed != 2.5 || cur.Description != "Cerah berawan" || cur.ObservedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected conditions: %+v", cur)
	}
}

func TestWeatherAPIFetchUnits(t *testing.T) {
	cases := map[string]float64{
		"imperial": 84.9,
		"standard": 29.4 + 273.15,
	}
	for units, want := range cases {
		t.Run(units, func(t *testing.T) {
			p := newTestWeatherAPI(t, units, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(wapiCurrentBody))
			})
			cur, err := p.Fetch(context.Background(), weather.ByCity("Polewali"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(cur.Temperature-want) > 1e-9 {
				t.Fatalf("expected %v, got %v", want, cur.Temperature)
			}
		})
	}
}

func TestWeatherAPIFetchByCity(t *testing.T) {
	p := newTestWeatherAPI(t, "metric", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Jakarta" {
			t.Errorf("expected q=Jakarta, got %q", got)
		}
		w.Write([]byte(wapiCurrentBody))
	})

	if _, err := p.Fetch(context.Background(), weather.ByCity("Jakarta")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWeatherAPIProviderError(t *testing.T) {
	p := newTestWeatherAPI(t, "metric", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 1006, "message": "No matching location found."}}`))
	})

	_, err := p.Fetch(context.Background(), weather.ByCity("Atlantis"))
	var perr *weather.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusBadRequest || perr.Message != "No matching location found." {
		t.Fatalf("unexpected provider error: %+v", perr)
	}
}

func TestWeatherAPIFetchMalformed(t *testing.T) {
	cases := map[string]string{
		"no current block": `{"location": {}}`,
		"empty current":    `{"current": {}}`,
		"missing temp":     `{"current": {"humidity": 70, "condition": {"text": "Cerah"}}}`,
		"missing humidity": `{"current": {"temp_c": 29, "temp_f": 84, "condition": {"text": "Cerah"}}}`,
		"no condition":     `{"current": {"temp_c": 29, "temp_f": 84, "humidity": 70}}`,
		"not json":         `<html>`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestWeatherAPI(t, "metric", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			_, err := p.Fetch(context.Background(), polewaliQuery)
			if !errors.Is(err, weather.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func wapiHours(start int64, n int) string {
	hours := make([]string, n)
	for i := 0; i < n; i++ {
		hours[i] = fmt.Sprintf(`{"time_epoch": %d, "temp_c": %d, "temp_f": 80, "humidity": 80, "condition": {"text": "jam %d"}}`,
			start+int64(i)*3600, 20+i, i)
	}
	return strings.Join(hours, ",")
}

func TestWeatherAPIForecastSamplesEveryThirdHour(t *testing.T) {
	p := newTestWeatherAPI(t, "metric", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/forecast.json" || r.URL.Query().Get("days") != "3" {
			t.Errorf("unexpected request %s", r.URL)
		}
		fmt.Fprintf(w, `{"forecast": {"forecastday": [{"hour": [%s]}, {"hour": [%s]}]}}`,
			wapiHours(1700000000, 6), wapiHours(1700086400, 4))
	})

	fc, err := p.FetchForecast(context.Background(), polewaliQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Day one gives hours 0 and 3, day two gives hours 0 and 3.
	if len(fc) != 4 {
		t.Fatalf("expected 4 points, got %d", len(fc))
	}
	if fc[1].Temperature != 23 || fc[1].Description != "jam 3" {
		t.Fatalf("unexpected sampling: %+v", fc[1])
	}
	if fc[2].Timestamp.Unix() != 1700086400 {
		t.Fatalf("expected second day in order, got %+v", fc[2])
	}
}

func TestWeatherAPIForecastMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"missing forecast": `{}`,
		"missing humidity": `{"forecast": {"forecastday": [{"hour": [{"time_epoch": 1, "temp_c": 20, "temp_f": 68, "condition": {"text": "x"}}]}]}}`,
		"empty hour":       `{"forecast": {"forecastday": [{"hour": [{}]}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			p := newTestWeatherAPI(t, "metric", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			_, err := p.FetchForecast(context.Background(), polewaliQuery)
			if !errors.Is(err, weather.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestWeatherAPIForward(t *testing.T) {
	p := newTestWeatherAPI(t, "metric", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("q") {
		case "Jakarta":
			w.Write([]byte(`[{"id": 1, "name": "Jakarta", "region": "Jakarta Raya", "lat": -6.21, "lon": 106.85}]`))
		case "Nowhere":
			w.Write([]byte(`[]`))
		default:
			w.Write([]byte(`[{"name": "Broken"}]`))
		}
	})

	loc, err := p.Forward(context.Background(), "Jakarta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.CityName != "Jakarta" || loc.Latitude != -6.21 || loc.Longitude != 106.85 {
		t.Fatalf("unexpected location: %+v", loc)
	}

	if _, err := p.Forward(context.Background(), "Nowhere"); !errors.Is(err, weather.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.Forward(context.Background(), "Broken"); !errors.Is(err, weather.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestWeatherAPIRequiresKey(t *testing.T) {
	p := NewWeatherAPIProvider(http.DefaultClient, "", "metric", "id", Options{BaseURL: "http://127.0.0.1:0"})
	if _, err := p.Fetch(context.Background(), weather.ByCity("Jakarta")); err == nil {
		t.Fatal("expected error without API key")
	}
}
