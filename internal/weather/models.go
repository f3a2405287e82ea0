package weather

import (
	"fmt"
	"math"
	"time"
)

// UnknownCityName is substituted when coordinates cannot be mapped to a place name.
const UnknownCityName = "unknown location"

// Coordinates is a point on the globe in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Validate reports whether both values are finite and inside geographic ranges.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("%w: coordinates must be finite numbers", ErrInvalidInput)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidInput, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidInput, c.Longitude)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Location is a resolved place: valid coordinates plus a display name.
type Location struct {
	Coordinates
	CityName string `json:"cityName"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s (%s)", l.CityName, l.Coordinates)
}

// Query identifies what to fetch weather for. Coordinates take precedence over City.
type Query struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	City        string       `json:"city,omitempty"`
}

// ByCoordinates builds a coordinate query.
func ByCoordinates(c Coordinates) Query {
	return Query{Coordinates: &c}
}

// ByCity builds a city-name query.
func ByCity(city string) Query {
	return Query{City: city}
}

// Validate rejects empty queries and out-of-range coordinates.
func (q Query) Validate() error {
	if q.Coordinates != nil {
		return q.Coordinates.Validate()
	}
	if q.City == "" {
		return fmt.Errorf("%w: query needs coordinates or a city name", ErrInvalidInput)
	}
	return nil
}

func (q Query) String() string {
	if q.Coordinates != nil {
		return q.Coordinates.String()
	}
	return q.City
}

// CurrentConditions is a single observation snapshot.
type CurrentConditions struct {
	Provider    string    `json:"provider"`
	ObservedAt  time.Time `json:"observedAt"` // always UTC
	Temperature float64   `json:"temperature"`
	TempMin     float64   `json:"tempMin"`
	TempMax     float64   `json:"tempMax"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	WindSpeed   float64   `json:"windSpeed"`
	CloudCover  float64   `json:"cloudCover"`
	Description string    `json:"description"`
	IconID      string    `json:"iconId"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
}

// IconURL returns the OpenWeatherMap icon image for the conditions, or "" when
// the provider did not report an icon.
func (c CurrentConditions) IconURL() string {
	return iconURL(c.IconID)
}

// ForecastPoint is one timestamped prediction.
type ForecastPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Description string    `json:"description"`
	IconID      string    `json:"iconId,omitempty"`
}

// Forecast is a sequence of forecast points in provider order.
type Forecast []ForecastPoint

func iconURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://openweathermap.org/img/wn/" + id + "@2x.png"
}

// NoticeLevel grades a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a non-fatal, user-facing message produced while resolving or fetching.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Source  string      `json:"source"`
	Message string      `json:"message"`
}

// Report is the result of one fetch. Current and Forecast are independently nil
// when their call failed.
type Report struct {
	Current   *CurrentConditions `json:"current"`
	Forecast  Forecast           `json:"forecast"`
	Notices   []Notice           `json:"notices"`
	FetchedAt time.Time          `json:"fetchedAt"`
}
