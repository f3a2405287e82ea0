package dashboard

import (
	"context"
	"testing"

	"github.com/maksum011/prakiraan-cuaca/internal/location"
	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

type fakeResolver struct {
	res location.Resolution
	got location.Request
}

func (f *fakeResolver) Resolve(_ context.Context, req location.Request) location.Resolution {
	f.got = req
	return f.res
}

type fakeFetcher struct {
	report  weather.Report
	queries []weather.Query
}

func (f *fakeFetcher) Fetch(_ context.Context, q weather.Query) weather.Report {
	f.queries = append(f.queries, q)
	return f.report
}

func TestBuildFetchesByResolvedCoordinates(t *testing.T) {
	jakarta := weather.Location{
		Coordinates: weather.Coordinates{Latitude: -6.2088, Longitude: 106.8456},
		CityName:    "Jakarta",
	}
	resolver := &fakeResolver{res: location.Resolution{
		Location: jakarta,
		Source:   location.SourceSearch,
	}}
	fetcher := &fakeFetcher{report: weather.Report{
		Current: &weather.CurrentConditions{Temperature: 30.5},
	}}

	search := "Jakarta"
	view := NewBuilder(resolver, fetcher).Build(context.Background(), location.Request{Search: &search})

	if len(fetcher.queries) != 1 {
		t.Fatalf("expected one fetch, got %d", len(fetcher.queries))
	}
	q := fetcher.queries[0]
	if q.Coordinates == nil || *q.Coordinates != jakarta.Coordinates || q.City != "" {
		t.Fatalf("expected fetch by Jakarta coordinates, got %+v", q)
	}
	if view.Location != jakarta || view.Source != location.SourceSearch {
		t.Fatalf("unexpected view location: %+v", view)
	}
	if view.Current == nil || view.Current.Temperature != 30.5 {
		t.Fatalf("expected current conditions in view, got %+v", view.Current)
	}
	if resolver.got.Search == nil || *resolver.got.Search != "Jakarta" {
		t.Fatal("expected request passed through to the resolver")
	}
	if view.GeneratedAt.IsZero() {
		t.Fatal("expected GeneratedAt to be set")
	}
}

func TestBuildConcatenatesNotices(t *testing.T) {
	resolver := &fakeResolver{res: location.Resolution{
		Location: weather.Location{
			Coordinates: weather.Coordinates{Latitude: -3.4328, Longitude: 119.3435},
			CityName:    "Polewali",
		},
		Source: location.SourceDefault,
		Notices: []weather.Notice{
			{Level: weather.NoticeInfo, Source: "location", Message: "using default location: Polewali"},
		},
	}}
	fetcher := &fakeFetcher{report: weather.Report{
		Forecast: weather.Forecast{{Temperature: 27}},
		Notices: []weather.Notice{
			{Level: weather.NoticeError, Source: "current", Message: "failed to load current weather: Invalid API key"},
		},
	}}

	view := NewBuilder(resolver, fetcher).Build(context.Background(), location.Request{})

	if len(view.Notices) != 2 {
		t.Fatalf("expected 2 notices, got %+v", view.Notices)
	}
	if view.Notices[0].Source != "location" || view.Notices[1].Source != "current" {
		t.Fatalf("expected resolver notices first, got %+v", view.Notices)
	}
	if view.Current != nil {
		t.Fatal("expected no current conditions")
	}
	if len(view.Forecast) != 1 {
		t.Fatalf("expected forecast to survive the current failure, got %+v", view.Forecast)
	}
}
