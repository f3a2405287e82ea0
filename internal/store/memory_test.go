package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maksum011/prakiraan-cuaca/internal/location"
	"github.com/maksum011/prakiraan-cuaca/internal/weather"
)

func TestCreateAndGet(t *testing.T) {
	s := NewMemoryStore(10, time.Hour)

	sess := s.Create()
	if sess.ID == "" {
		t.Fatal("expected a session id")
	}

	got, err := s.Get(sess.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != sess {
		t.Fatal("expected the same session back")
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(2, 0)
	s.now = func() time.Time { return now }

	first := s.Create()
	now = now.Add(time.Minute)
	second := s.Create()
	now = now.Add(time.Minute)

	// Using the first session makes the second one the oldest.
	first.SetSearchText("Makassar")
	now = now.Add(time.Minute)
	third := s.Create()

	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", s.Len())
	}
	if _, err := s.Get(second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second session evicted, got %v", err)
	}
	for _, keep := range []*Session{first, third} {
		if _, err := s.Get(keep.ID); err != nil {
			t.Fatalf("session %s should survive: %v", keep.ID, err)
		}
	}
}

func TestPruneRemovesIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	idle := s.Create()
	now = now.Add(50 * time.Minute)
	active := s.Create()
	now = now.Add(20 * time.Minute)

	if n := s.Prune(); n != 1 {
		t.Fatalf("expected 1 pruned session, got %d", n)
	}
	if _, err := s.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected idle session removed, got %v", err)
	}
	if _, err := s.Get(active.ID); err != nil {
		t.Fatalf("expected active session kept: %v", err)
	}
}

func TestPruneDisabledWithoutMaxAge(t *testing.T) {
	s := NewMemoryStore(0, 0)
	s.Create()
	if n := s.Prune(); n != 0 {
		t.Fatalf("expected nothing pruned, got %d", n)
	}
}

func TestLocateReturnsReportedFix(t *testing.T) {
	sess := NewMemoryStore(0, 0).Create()
	want := weather.Coordinates{Latitude: -5.1477, Longitude: 119.4327}
	sess.ReportFix(want)

	got, err := sess.Locate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !sess.HasFix() {
		t.Fatal("expected HasFix after a report")
	}
}

func TestLocateReturnsDeviceError(t *testing.T) {
	sess := NewMemoryStore(0, 0).Create()
	sess.ReportFixError("permission denied")

	_, err := sess.Locate(context.Background())
	if !errors.Is(err, location.ErrNoFix) {
		t.Fatalf("expected ErrNoFix, got %v", err)
	}
	if st := sess.State(); st.FixError != "permission denied" || st.Fix != nil {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestLocateWaitsForFix(t *testing.T) {
	sess := NewMemoryStore(0, 0).Create()
	want := weather.Coordinates{Latitude: 1, Longitude: 2}

	go func() {
		time.Sleep(20 * time.Millisecond)
		sess.ReportFix(want)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := sess.Locate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLocateGivesUpWhenContextEnds(t *testing.T) {
	sess := NewMemoryStore(0, 0).Create()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sess.Locate(ctx)
	if !errors.Is(err, location.ErrNoFix) {
		t.Fatalf("expected ErrNoFix, got %v", err)
	}
	if sess.HasFix() {
		t.Fatal("expected no fix")
	}
}

func TestLocationIsCopied(t *testing.T) {
	sess := NewMemoryStore(0, 0).Create()
	if sess.Location() != nil {
		t.Fatal("expected no location on a new session")
	}

	sess.SetLocation(weather.Location{
		Coordinates: weather.Coordinates{Latitude: -6.2, Longitude: 106.8},
		CityName:    "Jakarta",
	})

	loc := sess.Location()
	loc.CityName = "changed"
	if got := sess.Location().CityName; got != "Jakarta" {
		t.Fatalf("expected stored location untouched, got %q", got)
	}
}
