// File: internal/telemetry/summary.go
// Brief: Per-stage timings of a deployment run.

package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
)

// Summary is a snapshot of a run's timings. Phases keep the order in which
// they first finished.
type Summary struct {
	Total   time.Duration
	Phases  []Phase
	Uploads int
	Polls   int
}

type Phase struct {
	Name     string
	Duration time.Duration
}

func (s Summary) Line() string {
	var parts []string
	if s.Total > 0 {
		parts = append(parts, fmt.Sprintf("total=%s", formatDuration(s.Total)))
	}
	if len(s.Phases) > 0 {
		items := make([]string, 0, len(s.Phases))
		for _, p := range s.Phases {
			items = append(items, fmt.Sprintf("%s=%s", p.Name, formatDuration(p.Duration)))
		}
		parts = append(parts, "phases "+strings.Join(items, ", "))
	}
	if s.Uploads > 0 {
		parts = append(parts, fmt.Sprintf("%d uploads", s.Uploads))
	}
	if s.Polls > 0 {
		parts = append(parts, fmt.Sprintf("%d polls", s.Polls))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Timings: " + strings.Join(parts, " · ")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	rounded := d.Round(10 * time.Millisecond)
	if rounded <= 0 {
		rounded = d
	}
	return rounded.String()
}

// PhaseTimer attributes wall time to named stages. A nil timer is a no-op.
type PhaseTimer struct {
	clk     clock.Clock
	mu      sync.Mutex
	started time.Time
	last    time.Time
	order   []string
	phases  map[string]time.Duration
}

func NewPhaseTimer(clk clock.Clock) *PhaseTimer {
	if clk == nil {
		clk = clock.NewClock()
	}
	now := clk.Now()
	return &PhaseTimer{
		clk:     clk,
		started: now,
		last:    now,
		phases:  map[string]time.Duration{},
	}
}

// Lap charges the time since the previous lap (or since start) to name.
func (t *PhaseTimer) Lap(name string) {
	if t == nil {
		return
	}
	name = strings.TrimSpace(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	elapsed := now.Sub(t.last)
	t.last = now
	if name == "" {
		return
	}
	if _, ok := t.phases[name]; !ok {
		t.order = append(t.order, name)
	}
	t.phases[name] += elapsed
}

// Summary snapshots the phases recorded so far.
func (t *PhaseTimer) Summary() Summary {
	if t == nil {
		return Summary{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Summary{Total: t.clk.Since(t.started)}
	for _, name := range t.order {
		s.Phases = append(s.Phases, Phase{Name: name, Duration: t.phases[name]})
	}
	return s
}
