// Package dashboard combines location resolution and weather fetching into the
// single view a client renders.
package dashboard

import (
	"context"
	"log"
	"time"

	"github.com/maksum011/prakiraan-cuaca/internal/location"
	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

// Resolver picks the location to show.
type Resolver interface {
	Resolve(ctx context.Context, req location.Request) location.Resolution
}

// Fetcher loads weather for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q weather.Query) weather.Report
}

// View is everything a client needs to draw the dashboard.
type View struct {
	Location    weather.Location           `json:"location"`
	Source      location.Source            `json:"source"`
	Current     *weather.CurrentConditions `json:"current"`
	Forecast    weather.Forecast           `json:"forecast"`
	Notices     []weather.Notice           `json:"notices"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

type Builder struct {
	resolver Resolver
	fetcher  Fetcher
	now      func() time.Time
}

func NewBuilder(resolver Resolver, fetcher Fetcher) *Builder {
	return &Builder{
		resolver: resolver,
		fetcher:  fetcher,
		now:      time.Now,
	}
}

// Build resolves a location and fetches weather for its coordinates. It never
// fails; problems are carried in View.Notices.
func (b *Builder) Build(ctx context.Context, req location.Request) View {
	res := b.resolver.Resolve(ctx, req)
	log.Printf("INFO: dashboard location %s from %s", res.Location, res.Source)

	// Always fetch by coordinates so the weather matches the displayed place.
	report := b.fetcher.Fetch(ctx, weather.ByCoordinates(res.Location.Coordinates))

	notices := make([]weather.Notice, 0, len(res.Notices)+len(report.Notices))
	notices = append(notices, res.Notices...)
	notices = append(notices, report.Notices...)

	return View{
		Location:    res.Location,
		Source:      res.Source,
		Current:     report.Current,
		Forecast:    report.Forecast,
		Notices:     notices,
		GeneratedAt: b.now().UTC(),
	}
}
