package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"newsdigest/internal/ports"
)

// DailyScheduler fires a job once per day at a fixed local wall-clock
// time.
type DailyScheduler struct {
	at  string
	loc *time.Location

	mu   sync.Mutex
	stop chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler from an "HH:MM" time string and a
// location.
func NewDailyScheduler(at string, loc *time.Location) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{at: at, loc: loc}
}

// Start launches the trigger loop. Each iteration recomputes the next
// occurrence from the clock, so the loop does not drift.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	hour, minute, err := parseClock(d.at)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if d.stop != nil {
		d.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	d.stop = stop
	d.mu.Unlock()

	go func() {
		for {
			now := time.Now().In(d.loc)
			next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, d.loc)
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}

			timer := time.NewTimer(next.Sub(now))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger loop. A stopped scheduler can be started again.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}

func parseClock(value string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid digest time %q: %w", value, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
