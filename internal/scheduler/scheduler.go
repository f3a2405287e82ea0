package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Pruner drops expired entries and reports how many were removed.
type Pruner interface {
	Prune() int
}

// Scheduler periodically sweeps idle sessions out of the store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     Pruner
	interval  time.Duration
}

// New creates a new Scheduler.
func New(store Pruner, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     store,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.store == nil {
		log.Println("scheduler: no store configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	// The first run happens one interval after start.
	_, err := s.scheduler.Every(interval).WaitForSchedule().Do(func() {
		s.RunOnce()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce performs a single sweep.
func (s *Scheduler) RunOnce() int {
	removed := s.store.Prune()
	if removed > 0 {
		log.Printf("scheduler: pruned %d idle sessions", removed)
	}
	return removed
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
