// Package location resolves the place a dashboard should show weather for.
//
// Sources are tried in a fixed order: an explicit city search, the device's
// reported coordinates, the location the session already has, and finally a
// configured default. Resolve always returns a usable location; every source
// failure is reported as a notice instead of an error.
package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

// ErrNoFix is returned by a DeviceLocator that has no coordinates to offer.
var ErrNoFix = errors.New("device location unavailable")

// Source names where a resolved location came from.
type Source string

const (
	SourceSearch  Source = "search"
	SourceDevice  Source = "gps"
	SourceCurrent Source = "current"
	SourceDefault Source = "default"
)

const noticeSource = "location"

// DeviceLocator reports the coordinates of the user's device. Locate blocks
// until the device answers or ctx is done.
type DeviceLocator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

// DeviceLocatorFunc adapts a function to DeviceLocator.
type DeviceLocatorFunc func(ctx context.Context) (weather.Coordinates, error)

func (f DeviceLocatorFunc) Locate(ctx context.Context) (weather.Coordinates, error) {
	return f(ctx)
}

// ForwardGeocoder maps a place name to a location.
type ForwardGeocoder interface {
	Forward(ctx context.Context, city string) (weather.Location, error)
}

// ReverseGeocoder maps coordinates to a place name.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c weather.Coordinates) (string, error)
}

// Request describes one resolution cycle.
type Request struct {
	// Device may be nil when the client offers no geolocation.
	Device DeviceLocator
	// Search is nil unless the user explicitly submitted a search.
	Search *string
	// Current is the location the session already shows, if any.
	Current *weather.Location
}

// Resolution is the outcome of Resolve. Location is always valid.
type Resolution struct {
	Location weather.Location `json:"location"`
	Source   Source           `json:"source"`
	Notices  []weather.Notice `json:"notices"`
}

func (r *Resolution) notice(level weather.NoticeLevel, format string, args ...any) {
	r.Notices = append(r.Notices, weather.Notice{
		Level:   level,
		Source:  noticeSource,
		Message: fmt.Sprintf(format, args...),
	})
}

// Resolver runs the location fallback chain.
type Resolver struct {
	forward  ForwardGeocoder
	reverse  ReverseGeocoder
	fallback weather.Location
	validate *validator.Validate
}

// NewResolver creates a Resolver. Either geocoder may be nil, in which case
// that step is treated as failed.
func NewResolver(forward ForwardGeocoder, reverse ReverseGeocoder, fallback weather.Location) (*Resolver, error) {
	r := &Resolver{
		forward:  forward,
		reverse:  reverse,
		fallback: fallback,
		validate: validator.New(),
	}
	if err := r.check(fallback.Coordinates); err != nil {
		return nil, fmt.Errorf("default location: %w", err)
	}
	return r, nil
}

// Default returns the configured fallback location.
func (r *Resolver) Default() weather.Location {
	return r.fallback
}

// Resolve produces a location for the request. Each source is tried at most once.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	var res Resolution

	if req.Search != nil {
		city := strings.TrimSpace(*req.Search)
		if city == "" {
			res.notice(weather.NoticeWarning, "enter a city name first")
			if req.Current != nil && r.check(req.Current.Coordinates) == nil {
				res.Location = *req.Current
				res.Source = SourceCurrent
				return res
			}
		} else if loc, ok := r.fromSearch(ctx, city, &res); ok {
			res.Location = loc
			res.Source = SourceSearch
			return res
		}
	}

	if req.Device != nil {
		if loc, ok := r.fromDevice(ctx, req.Device, &res); ok {
			res.Location = loc
			res.Source = SourceDevice
			return res
		}
	}

	if req.Current != nil && r.check(req.Current.Coordinates) == nil {
		res.Location = *req.Current
		res.Source = SourceCurrent
		return res
	}

	res.notice(weather.NoticeInfo, "using default location: %s", r.fallback.CityName)
	res.Location = r.fallback
	res.Source = SourceDefault
	return res
}

func (r *Resolver) fromSearch(ctx context.Context, city string, res *Resolution) (weather.Location, bool) {
	if r.forward == nil {
		res.notice(weather.NoticeError, "city search is not available")
		return weather.Location{}, false
	}

	loc, err := r.forward.Forward(ctx, city)
	if err != nil {
		log.Printf("INFO: forward geocoding %q failed: %v", city, err)
		res.notice(weather.NoticeError, "failed to find city %q: %s", city, weather.Describe(err))
		return weather.Location{}, false
	}
	if err := r.check(loc.Coordinates); err != nil {
		log.Printf("INFO: forward geocoding %q returned unusable coordinates: %v", city, err)
		res.notice(weather.NoticeError, "failed to find city %q: provider returned invalid coordinates", city)
		return weather.Location{}, false
	}
	if strings.TrimSpace(loc.CityName) == "" {
		loc.CityName = city
	}
	return loc, true
}

func (r *Resolver) fromDevice(ctx context.Context, device DeviceLocator, res *Resolution) (weather.Location, bool) {
	coords, err := device.Locate(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoFix) {
			err = fmt.Errorf("%w: %v", ErrNoFix, err)
		}
		log.Printf("INFO: %v", err)
		res.notice(weather.NoticeInfo, "%v", err)
		return weather.Location{}, false
	}
	if err := r.check(coords); err != nil {
		log.Printf("INFO: rejecting device coordinates %v: %v", coords, err)
		res.notice(weather.NoticeWarning, "device reported invalid coordinates")
		return weather.Location{}, false
	}

	loc := weather.Location{Coordinates: coords, CityName: weather.UnknownCityName}

	if r.reverse == nil {
		res.notice(weather.NoticeWarning, "place name lookup is not available")
		return loc, true
	}

	name, err := r.reverse.Reverse(ctx, coords)
	if err != nil || strings.TrimSpace(name) == "" {
		log.Printf("INFO: reverse geocoding %s failed: %v", coords, err)
		res.notice(weather.NoticeWarning, "could not determine place name for your position")
		return loc, true
	}

	loc.CityName = strings.TrimSpace(name)
	return loc, true
}

// check validates coordinates through both the explicit finiteness check and
// the struct's range tags.
func (r *Resolver) check(c weather.Coordinates) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := r.validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrInvalidInput, err)
	}
	return nil
}
