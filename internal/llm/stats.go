package llm

import (
	"slices"
	"sync"
	"time"
)

// Stage labels the pipeline step a generation call was made for.
type Stage string

const (
	StageStructure   Stage = "structure"
	StageOutline     Stage = "outline"
	StageIcon        Stage = "icon"
	StageInfographic Stage = "infographic"
	// StageOther covers requests that carry no stage.
	StageOther Stage = "other"
)

type call struct {
	at         time.Time
	stage      Stage
	durationMs int64
	failed     bool
	transport  bool
}

// Latency summarizes the calls of one stage, or of all stages together.
type Latency struct {
	Calls           int     `json:"calls"`
	Failures        int     `json:"failures"`
	TransportErrors int     `json:"transport_errors"`
	MinMs           int64   `json:"min_ms"`
	MaxMs           int64   `json:"max_ms"`
	AvgMs           float64 `json:"avg_ms"`
	P50Ms           float64 `json:"p50_ms"`
	P95Ms           float64 `json:"p95_ms"`
}

// StatsSnapshot is what /api/stats/llm reports: the totals plus one entry
// per stage that saw traffic inside the window.
type StatsSnapshot struct {
	Window  string            `json:"window"`
	Total   Latency           `json:"total"`
	ByStage map[Stage]Latency `json:"by_stage"`
}

// Stats keeps generation calls from the last window, tagged by stage.
type Stats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window, now: time.Now}
}

// Record adds one finished call. err is the call's outcome; transport
// failures are counted separately from other errors.
func (s *Stats) Record(stage Stage, d time.Duration, err error) {
	if stage == "" {
		stage = StageOther
	}
	ms := max(d.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	s.calls = append(s.calls, call{
		at:         now,
		stage:      stage,
		durationMs: ms,
		failed:     err != nil,
		transport:  IsTransport(err),
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	snap := StatsSnapshot{
		Window:  s.window.String(),
		Total:   summarize(s.calls),
		ByStage: make(map[Stage]Latency),
	}
	grouped := make(map[Stage][]call)
	for _, c := range s.calls {
		grouped[c.stage] = append(grouped[c.stage], c)
	}
	for stage, calls := range grouped {
		snap.ByStage[stage] = summarize(calls)
	}
	return snap
}

func (s *Stats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.calls = slices.DeleteFunc(s.calls, func(c call) bool {
		return c.at.Before(cutoff)
	})
}

func summarize(calls []call) Latency {
	if len(calls) == 0 {
		return Latency{}
	}
	var (
		l   Latency
		sum int64
	)
	ms := make([]int64, len(calls))
	for i, c := range calls {
		ms[i] = c.durationMs
		sum += c.durationMs
		if c.failed {
			l.Failures++
		}
		if c.transport {
			l.TransportErrors++
		}
	}
	slices.Sort(ms)
	l.Calls = len(calls)
	l.MinMs = ms[0]
	l.MaxMs = ms[len(ms)-1]
	l.AvgMs = float64(sum) / float64(len(ms))
	l.P50Ms = quantile(ms, 0.50)
	l.P95Ms = quantile(ms, 0.95)
	return l
}

// quantile interpolates linearly between the two nearest ranks of sorted.
func quantile(sorted []int64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i+1 >= len(sorted) {
		return float64(sorted[len(sorted)-1])
	}
	frac := pos - float64(i)
	return float64(sorted[i]) + frac*float64(sorted[i+1]-sorted[i])
}
