package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

type fakeProvider struct {
	current    CurrentConditions
	currentErr error
	forecast   Forecast
	fcErr      error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(context.Context, Query) (CurrentConditions, error) {
	return f.current, f.currentErr
}

func (f *fakeProvider) FetchForecast(context.Context, Query) (Forecast, error) {
	return f.forecast, f.fcErr
}

// currentOnly has no forecast endpoint.
type currentOnly struct{}

func (currentOnly) Name() string { return "current-only" }

func (currentOnly) Fetch(context.Context, Query) (CurrentConditions, error) {
	return CurrentConditions{Temperature: 25}, nil
}

var polewali = ByCoordinates(Coordinates{Latitude: -3.4328, Longitude: 119.3435})

func TestFetchBothSucceed(t *testing.T) {
	svc := NewService(&fakeProvider{
		current:  CurrentConditions{Temperature: 29},
		forecast: Forecast{{Temperature: 28}, {Temperature: 27}},
	})

	report := svc.Fetch(context.Background(), polewali)
	if report.Current == nil || report.Current.Temperature != 29 {
		t.Fatalf("expected current conditions, got %+v", report.Current)
	}
	if len(report.Forecast) != 2 {
		t.Fatalf("expected 2 forecast points, got %d", len(report.Forecast))
	}
	if len(report.Notices) != 0 {
		t.Fatalf("expected no notices, got %+v", report.Notices)
	}
	if report.FetchedAt.IsZero() {
		t.Fatal("expected FetchedAt to be set")
	}
}

func TestFetchCurrentFailureKeepsForecast(t *testing.T) {
	svc := NewService(&fakeProvider{
		currentErr: &ProviderError{Provider: "fake", StatusCode: 401, Message: "Invalid API key"},
		forecast:   Forecast{{Temperature: 28}},
	})

	report := svc.Fetch(context.Background(), polewali)
	if report.Current != nil {
		t.Fatal("expected no current conditions")
	}
	if len(report.Forecast) != 1 {
		t.Fatalf("expected forecast to render, got %+v", report.Forecast)
	}
	if len(report.Notices) != 1 {
		t.Fatalf("expected one notice, got %+v", report.Notices)
	}
	n := report.Notices[0]
	if n.Level != NoticeError || n.Source != "current" || !strings.Contains(n.Message, "Invalid API key") {
		t.Fatalf("unexpected notice: %+v", n)
	}
}

func TestFetchForecastFailureKeepsCurrent(t *testing.T) {
	svc := NewService(&fakeProvider{
		current: CurrentConditions{Temperature: 29},
		fcErr:   fmt.Errorf("%w: connection refused", ErrTransport),
	})

	report := svc.Fetch(context.Background(), polewali)
	if report.Current == nil {
		t.Fatal("expected current conditions")
	}
	if report.Forecast != nil {
		t.Fatalf("expected no forecast, got %+v", report.Forecast)
	}
	if len(report.Notices) != 1 || report.Notices[0].Source != "forecast" || report.Notices[0].Level != NoticeError {
		t.Fatalf("expected one forecast error notice, got %+v", report.Notices)
	}
	if !strings.Contains(report.Notices[0].Message, "remote service unreachable") {
		t.Fatalf("unexpected message %q", report.Notices[0].Message)
	}
}

func TestFetchBothFailNoticesInOrder(t *testing.T) {
	svc := NewService(&fakeProvider{
		currentErr: fmt.Errorf("%w: missing main", ErrMalformed),
		fcErr:      fmt.Errorf("%w: missing list", ErrMalformed),
	})

	report := svc.Fetch(context.Background(), polewali)
	if len(report.Notices) != 2 {
		t.Fatalf("expected two notices, got %+v", report.Notices)
	}
	if report.Notices[0].Source != "current" || report.Notices[1].Source != "forecast" {
		t.Fatalf("expected current notice first, got %+v", report.Notices)
	}
}

func TestFetchForecastUnsupported(t *testing.T) {
	svc := NewService(currentOnly{})

	report := svc.Fetch(context.Background(), polewali)
	if report.Current == nil {
		t.Fatal("expected current conditions")
	}
	if len(report.Notices) != 1 || report.Notices[0].Level != NoticeInfo {
		t.Fatalf("expected one info notice, got %+v", report.Notices)
	}

	if _, err := svc.Forecast(context.Background(), polewali); !errors.Is(err, ErrForecastUnsupported) {
		t.Fatalf("expected ErrForecastUnsupported, got %v", err)
	}
}

func TestFetchInvalidQuery(t *testing.T) {
	svc := NewService(&fakeProvider{})

	for _, q := range []Query{
		{},
		ByCoordinates(Coordinates{Latitude: 91, Longitude: 0}),
		ByCoordinates(Coordinates{Latitude: math.NaN(), Longitude: 0}),
	} {
		report := svc.Fetch(context.Background(), q)
		if report.Current != nil || report.Forecast != nil {
			t.Fatalf("expected nothing fetched for %+v", q)
		}
		if len(report.Notices) != 1 || report.Notices[0].Level != NoticeError {
			t.Fatalf("expected one error notice for %+v, got %+v", q, report.Notices)
		}
	}
}

func TestServiceWithoutProvider(t *testing.T) {
	svc := NewService(nil)
	if _, err := svc.Current(context.Background(), polewali); err == nil {
		t.Fatal("expected error without provider")
	}
	if svc.ProviderName() != "" {
		t.Fatalf("expected empty provider name, got %q", svc.ProviderName())
	}
}

func TestCoordinatesValidate(t *testing.T) {
	valid := []Coordinates{{0, 0}, {-90, -180}, {90, 180}, {-3.4328, 119.3435}}
	for _, c := range valid {
		if err := c.Validate(); err != nil {
			t.Errorf("%v: unexpected error %v", c, err)
		}
	}

	invalid := []Coordinates{
		{Latitude: 90.0001},
		{Longitude: -180.5},
		{Latitude: math.NaN()},
		{Longitude: math.Inf(1)},
	}
	for _, c := range invalid {
		if err := c.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%+v: expected ErrInvalidInput, got %v", c, err)
		}
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ProviderError{Provider: "p", StatusCode: 404, Message: "city not found"}, "city not found"},
		{&ProviderError{Provider: "p", StatusCode: 500}, "provider returned status 500"},
		{fmt.Errorf("%w: Atlantis", ErrNotFound), "city not found, try another name"},
		{fmt.Errorf("%w: eof", ErrMalformed), "provider sent an incomplete response"},
		{fmt.Errorf("%w: dial", ErrTransport), "remote service unreachable"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := Describe(tc.err); got != tc.want {
			t.Errorf("Describe(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
