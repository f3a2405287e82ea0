package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	noticeSourceCurrent  = "current"
	noticeSourceForecast = "forecast"
)

// Service fetches current conditions and forecasts from a single provider.
type Service struct {
	provider Provider
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		now:      time.Now,
	}
}

// ProviderName reports which provider backs the service.
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Fetch issues the current-conditions and forecast calls independently. A failure
// in one leaves the other untouched; each failure becomes one error notice.
func (s *Service) Fetch(ctx context.Context, q Query) Report {
	report := Report{FetchedAt: s.now().UTC()}

	if err := q.Validate(); err != nil {
		report.Notices = append(report.Notices,
			Notice{Level: NoticeError, Source: noticeSourceCurrent, Message: Describe(err)})
		return report
	}

	var (
		wg          sync.WaitGroup
		current     CurrentConditions
		currentErr  error
		forecast    Forecast
		forecastErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = s.Current(ctx, q)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = s.Forecast(ctx, q)
	}()
	wg.Wait()

	if currentErr != nil {
		log.Printf("ERROR: current conditions for %s failed: %v", q, currentErr)
		report.Notices = append(report.Notices, Notice{
			Level:   NoticeError,
			Source:  noticeSourceCurrent,
			Message: "failed to load current weather: " + Describe(currentErr),
		})
	} else {
		report.Current = &current
	}

	switch {
	case errors.Is(forecastErr, ErrForecastUnsupported):
		report.Notices = append(report.Notices, Notice{
			Level:   NoticeInfo,
			Source:  noticeSourceForecast,
			Message: fmt.Sprintf("%s does not provide forecasts", s.ProviderName()),
		})
	case forecastErr != nil:
		log.Printf("ERROR: forecast for %s failed: %v", q, forecastErr)
		report.Notices = append(report.Notices, Notice{
			Level:   NoticeError,
			Source:  noticeSourceForecast,
			Message: "failed to load forecast: " + Describe(forecastErr),
		})
	default:
		report.Forecast = forecast
	}

	return report
}

// Current fetches current conditions only.
func (s *Service) Current(ctx context.Context, q Query) (CurrentConditions, error) {
	if s.provider == nil {
		return CurrentConditions{}, fmt.Errorf("no weather provider configured")
	}
	if err := q.Validate(); err != nil {
		return CurrentConditions{}, err
	}

	log.Printf("DEBUG: fetching current conditions for %s from %s", q, s.provider.Name())
	return s.provider.Fetch(ctx, q)
}

// Forecast fetches the forecast only. Points are returned in provider order.
func (s *Service) Forecast(ctx context.Context, q Query) (Forecast, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("no weather provider configured")
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	fp, ok := s.provider.(ForecastProvider)
	if !ok {
		return nil, ErrForecastUnsupported
	}

	log.Printf("DEBUG: fetching forecast for %s from %s", q, s.provider.Name())
	return fp.FetchForecast(ctx, q)
}
