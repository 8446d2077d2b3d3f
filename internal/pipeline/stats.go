package pipeline

import (
	"sort"
	"sync"
	"time"
)

type tierSample struct {
	timestamp  time.Time
	outcome    Outcome
	durationMs int64
}

// TierSnapshot is a point-in-time aggregate of attempt latencies for one
// parse tier.
type TierSnapshot struct {
	Count    int             `json:"count"`
	Outcomes map[Outcome]int `json:"outcomes"`
	MinMs    int64           `json:"min_ms"`
	MaxMs    int64           `json:"max_ms"`
	AvgMs    float64         `json:"avg_ms"`
	P50Ms    float64         `json:"p50_ms"`
	P95Ms    float64         `json:"p95_ms"`
}

// TierStats tracks recent parse attempt outcomes per tier within a rolling
// window.
type TierStats struct {
	mu      sync.Mutex
	samples map[Tier][]tierSample
	maxAge  time.Duration
}

func NewTierStats(maxAge time.Duration) *TierStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &TierStats{
		samples: make(map[Tier][]tierSample),
		maxAge:  maxAge,
	}
}

func (s *TierStats) Record(tier Tier, outcome Outcome, elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples[tier] = append(s.samples[tier], tierSample{
		timestamp:  now,
		outcome:    outcome,
		durationMs: ms,
	})
}

func (s *TierStats) Snapshot() map[Tier]TierSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	out := make(map[Tier]TierSnapshot, len(s.samples))
	for tier, samples := range s.samples {
		if len(samples) == 0 {
			continue
		}
		values := make([]int64, 0, len(samples))
		outcomes := make(map[Outcome]int)
		var sum int64
		for _, sm := range samples {
			values = append(values, sm.durationMs)
			outcomes[sm.outcome]++
			sum += sm.durationMs
		}
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		out[tier] = TierSnapshot{
			Count:    len(values),
			Outcomes: outcomes,
			MinMs:    values[0],
			MaxMs:    values[len(values)-1],
			AvgMs:    float64(sum) / float64(len(values)),
			P50Ms:    percentile(values, 50),
			P95Ms:    percentile(values, 95),
		}
	}
	return out
}

func (s *TierStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	for tier, samples := range s.samples {
		writeIdx := 0
		for _, sm := range samples {
			if !sm.timestamp.Before(cutoff) {
				samples[writeIdx] = sm
				writeIdx++
			}
		}
		s.samples[tier] = samples[:writeIdx]
	}
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
