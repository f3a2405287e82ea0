package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maksum011/prakiraan-cuaca/internal/location"
	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

// Session is the state of one dashboard client: the location it shows, the
// last search text and the device's most recent position report.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	updatedAt  time.Time
	location   *weather.Location
	searchText string
	fix        *weather.Coordinates
	fixErr     string

	// fixReady is closed by the first position report.
	fixReady chan struct{}
	fixOnce  sync.Once

	now func() time.Time
}

// State is a point-in-time copy of a session, safe to serialize.
type State struct {
	ID         string               `json:"id"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
	Location   *weather.Location    `json:"location"`
	SearchText string               `json:"searchText"`
	Fix        *weather.Coordinates `json:"fix,omitempty"`
	FixError   string               `json:"fixError,omitempty"`
}

func newSession(id string, now func() time.Time) *Session {
	created := now().UTC()
	return &Session{
		ID:        id,
		CreatedAt: created,
		updatedAt: created,
		fixReady:  make(chan struct{}),
		now:       now,
	}
}

// ReportFix records coordinates from the device. Later reports replace
// earlier ones.
func (s *Session) ReportFix(c weather.Coordinates) {
	s.mu.Lock()
	s.fix = &c
	s.fixErr = ""
	s.touch()
	s.mu.Unlock()

	s.fixOnce.Do(func() { close(s.fixReady) })
}

// ReportFixError records that the device could not produce a position,
// e.g. because the user denied permission.
func (s *Session) ReportFixError(msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "unknown error"
	}

	s.mu.Lock()
	s.fix = nil
	s.fixErr = msg
	s.touch()
	s.mu.Unlock()

	s.fixOnce.Do(func() { close(s.fixReady) })
}

// Locate returns the device's last answer. If the device has not answered
// yet it waits until it does or ctx is done.
func (s *Session) Locate(ctx context.Context) (weather.Coordinates, error) {
	select {
	case <-s.fixReady:
		return s.lastFix()
	default:
	}

	select {
	case <-s.fixReady:
		return s.lastFix()
	case <-ctx.Done():
		return weather.Coordinates{}, fmt.Errorf("%w: device did not answer", location.ErrNoFix)
	}
}

func (s *Session) lastFix() (weather.Coordinates, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fix == nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %s", location.ErrNoFix, s.fixErr)
	}
	return *s.fix, nil
}

// HasFix reports whether the device has answered at all.
func (s *Session) HasFix() bool {
	select {
	case <-s.fixReady:
		return true
	default:
		return false
	}
}

// Location returns a copy of the session's current location, or nil.
func (s *Session) Location() *weather.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location == nil {
		return nil
	}
	loc := *s.location
	return &loc
}

func (s *Session) SetLocation(loc weather.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.location = &loc
	s.touch()
}

func (s *Session) SearchText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchText
}

func (s *Session) SetSearchText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchText = text
	s.touch()
}

// UpdatedAt is the time of the last write to the session.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.updatedAt,
		SearchText: s.searchText,
		FixError:   s.fixErr,
	}
	if s.location != nil {
		loc := *s.location
		st.Location = &loc
	}
	if s.fix != nil {
		fix := *s.fix
		st.Fix = &fix
	}
	return st
}

// touch must be called with mu held.
func (s *Session) touch() {
	s.updatedAt = s.now().UTC()
}
