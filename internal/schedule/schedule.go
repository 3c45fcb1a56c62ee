// Package schedule computes the fixed daily cadence of sync runs and sleeps
// between them.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxSleep bounds a single sleep so clock changes are observed within an hour.
const MaxSleep = time.Hour

// Schedule is a daily grid of run slots anchored at a start time of day.
type Schedule struct {
	Hour       int
	Minute     int
	RunsPerDay int
}

// Parse validates a "HH:MM" start time and a runs-per-day count.
func Parse(start string, runsPerDay int) (Schedule, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(start))
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid schedule start_time %q: %w", start, err)
	}
	if runsPerDay <= 0 || runsPerDay > 24*60 {
		return Schedule{}, fmt.Errorf("schedule runs_per_day must be between 1 and 1440, got %d", runsPerDay)
	}
	return Schedule{Hour: t.Hour(), Minute: t.Minute(), RunsPerDay: runsPerDay}, nil
}

// Interval is the spacing between two consecutive slots.
func (s Schedule) Interval() time.Duration {
	return 24 * time.Hour / time.Duration(s.RunsPerDay)
}

// Next returns the first slot strictly after now, counting forward from
// today's start time. Before the start time that is the start time itself.
func (s Schedule) Next(now time.Time) time.Time {
	interval := s.Interval()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}

// Upcoming lists the next n slots after now.
func (s Schedule) Upcoming(now time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		now = s.Next(now)
		out = append(out, now)
	}
	return out
}

// Clock abstracts wall time for tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock uses the system clock.
var RealClock Clock = realClock{}

// Wait sleeps until target in increments of at most MaxSleep, re-reading the
// clock after each increment.
func Wait(ctx context.Context, clock Clock, target time.Time) error {
	for {
		remaining := target.Sub(clock.Now())
		if remaining <= 0 {
			return nil
		}
		log.Info().
			Str("remaining", FormatRemaining(remaining)).
			Str("next_run", target.Format("15:04")).
			Msg("Waiting for next scheduled run")
		if err := clock.Sleep(ctx, min(remaining, MaxSleep)); err != nil {
			return err
		}
	}
}

// Loop runs fn immediately and then at every slot of s until ctx ends.
// Errors from fn are logged; they never stop the loop.
func Loop(ctx context.Context, s Schedule, clock Clock, fn func(context.Context) error) error {
	for {
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Msg("Run failed")
		}
		next := s.Next(clock.Now())
		if err := Wait(ctx, clock, next); err != nil {
			return err
		}
		log.Info().Time("slot", next).Msg("Waking up for scheduled run")
	}
}

// FormatRemaining renders a duration as "D days, H hours, M minutes, S seconds".
func FormatRemaining(d time.Duration) string {
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d days, %d hours, %d minutes, %d seconds", days, hours, minutes, seconds)
}
