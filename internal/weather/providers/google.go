package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

// The geocoder package keeps its API key in a package-level variable.
var googleKeyMu sync.Mutex

// GoogleGeocoder resolves places through the Google Geocoding API.
type GoogleGeocoder struct {
	name    string
	apiKey  string
	forward func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		name:    "google",
		apiKey:  apiKey,
		forward: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

// Forward looks up a city name. Google does not echo a canonical name for
// free-text queries, so the trimmed query is kept as the city name.
func (g *GoogleGeocoder) Forward(ctx context.Context, city string) (weather.Location, error) {
	city = strings.TrimSpace(city)

	type result struct {
		loc geocoder.Location
		err error
	}
	out := make(chan result, 1)
	go func() {
		googleKeyMu.Lock()
		defer googleKeyMu.Unlock()
		geocoder.ApiKey = g.apiKey
		loc, err := g.forward(geocoder.Address{City: city})
		out <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Location{}, fmt.Errorf("%w: %v", weather.ErrTransport, ctx.Err())
	case r := <-out:
		if r.err != nil {
			return weather.Location{}, googleError(r.err)
		}
		return weather.Location{
			Coordinates: weather.Coordinates{Latitude: r.loc.Latitude, Longitude: r.loc.Longitude},
			CityName:    city,
		}, nil
	}
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, c weather.Coordinates) (string, error) {
	type result struct {
		addrs []geocoder.Address
		err   error
	}
	out := make(chan result, 1)
	go func() {
		googleKeyMu.Lock()
		defer googleKeyMu.Unlock()
		geocoder.ApiKey = g.apiKey
		addrs, err := g.reverse(geocoder.Location{Latitude: c.Latitude, Longitude: c.Longitude})
		out <- result{addrs: addrs, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", weather.ErrTransport, ctx.Err())
	case r := <-out:
		if r.err != nil {
			return "", googleError(r.err)
		}
		for _, a := range r.addrs {
			if name := firstNonEmpty(a.City, a.County, a.District, a.State); name != "" {
				return name, nil
			}
		}
		return "", fmt.Errorf("%w: no place at %s", weather.ErrNotFound, c)
	}
}

// googleError maps a geocoder failure onto the weather error kinds. The
// package reports the API status as the error text; only ZERO_RESULTS means
// the place is unknown, the rest are key, quota or transport problems.
func googleError(err error) error {
	if strings.Contains(err.Error(), "ZERO_RESULTS") {
		return fmt.Errorf("%w: %v", weather.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", weather.ErrTransport, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
