// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"time"

	"github.com/pdiddy/paper-picker/pkg/types"
)

const dateLayout = "2006-01-02"

// Window is an inclusive range of UTC days. Start and End are midnights.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls on a day within the window. A zero time
// is never contained.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// ResolveWindow turns the window config into concrete days. days_back
// windows end on the UTC day of now.
func ResolveWindow(cfg types.DateWindowConfig, now time.Time) (Window, error) {
	switch cfg.Mode {
	case types.WindowDaysBack, "":
		if cfg.DaysBack <= 0 {
			return Window{}, configErr("window.days_back", "must be positive, got %d", cfg.DaysBack)
		}
		end := day(now)
		return Window{Start: end.AddDate(0, 0, -cfg.DaysBack), End: end}, nil

	case types.WindowDateRange:
		if cfg.Start == "" || cfg.End == "" {
			return Window{}, configErr("window", "date_range needs both start and end")
		}
		start, err := time.Parse(dateLayout, cfg.Start)
		if err != nil {
			return Window{}, configErr("window.start", "want YYYY-MM-DD, got %q", cfg.Start)
		}
		end, err := time.Parse(dateLayout, cfg.End)
		if err != nil {
			return Window{}, configErr("window.end", "want YYYY-MM-DD, got %q", cfg.End)
		}
		if end.Before(start) {
			return Window{}, configErr("window", "end %s is before start %s", cfg.End, cfg.Start)
		}
		return Window{Start: start, End: end}, nil

	default:
		return Window{}, configErr("window.mode", "unknown mode %q (want %s or %s)",
			cfg.Mode, types.WindowDaysBack, types.WindowDateRange)
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
