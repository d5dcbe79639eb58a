package perf

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	KindRequest  EntryKind = iota // inbound HTTP request
	KindQuery                     // local audit database
	KindUpstream                  // call to the registration backend
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Label      string // "GET /dashboard", "audit_event INSERT", "GET /api/registrations/"
	StatusCode int    // 0 for queries and unreachable upstreams
	DurationMs float64
	Timestamp  time.Time
}

// Failed reports whether the entry is a failed request or upstream call.
func (e Entry) Failed() bool {
	switch e.Kind {
	case KindRequest:
		return e.StatusCode >= 500
	case KindUpstream:
		return e.StatusCode == 0 || e.StatusCode >= 500
	}
	return false
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, oldest entries are overwritten. Aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   atomic.Int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// A non-positive size falls back to DefaultRingSize.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record appends an entry to the ring buffer. Safe on a nil Collector.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	c.mu.Unlock()
	c.count.Add(1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return c.count.Load()
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRecorded    int64       `json:"total_recorded"`
	RequestP50Ms     float64     `json:"request_p50_ms"`
	RequestP95Ms     float64     `json:"request_p95_ms"`
	RequestP99Ms     float64     `json:"request_p99_ms"`
	UpstreamP95Ms    float64     `json:"upstream_p95_ms"`
	UpstreamFailures int         `json:"upstream_failures"`
	SlowestPaths     []LabelStat `json:"slowest_paths"`
	SlowestQueries   []LabelStat `json:"slowest_queries"`
	SlowestUpstream  []LabelStat `json:"slowest_upstream"`
}

// LabelStat aggregates timing for one label.
type LabelStat struct {
	Label   string  `json:"label"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	Count   int     `json:"count"`
	Failed  int     `json:"failed"`
	TotalMs float64 `json:"-"`
}

// Snapshot computes aggregated stats for entries recorded at or after since.
// Sorting makes this comparatively expensive; call it on page load only.
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	buf := slices.Clone(c.entries)
	c.mu.Unlock()

	var reqDurations, upDurations []float64
	byKind := map[EntryKind]map[string]*LabelStat{
		KindRequest:  {},
		KindQuery:    {},
		KindUpstream: {},
	}
	snap := Snapshot{TotalRecorded: c.TotalRecorded()}

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		switch e.Kind {
		case KindRequest:
			reqDurations = append(reqDurations, e.DurationMs)
		case KindUpstream:
			upDurations = append(upDurations, e.DurationMs)
			if e.Failed() {
				snap.UpstreamFailures++
			}
		}
		stats := byKind[e.Kind]
		s, ok := stats[e.Label]
		if !ok {
			s = &LabelStat{Label: e.Label}
			stats[e.Label] = s
		}
		s.Count++
		s.TotalMs += e.DurationMs
		s.MaxMs = max(s.MaxMs, e.DurationMs)
		if e.Failed() {
			s.Failed++
		}
	}

	snap.SlowestPaths = topByAvg(byKind[KindRequest], topN)
	snap.SlowestQueries = topByAvg(byKind[KindQuery], topN)
	snap.SlowestUpstream = topByAvg(byKind[KindUpstream], topN)

	if len(reqDurations) > 0 {
		slices.Sort(reqDurations)
		snap.RequestP50Ms = percentile(reqDurations, 50)
		snap.RequestP95Ms = percentile(reqDurations, 95)
		snap.RequestP99Ms = percentile(reqDurations, 99)
	}
	if len(upDurations) > 0 {
		slices.Sort(upDurations)
		snap.UpstreamP95Ms = percentile(upDurations, 95)
	}
	return snap
}

// percentile returns the p-th percentile from a sorted slice, interpolating
// between neighbours.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func topByAvg(stats map[string]*LabelStat, n int) []LabelStat {
	list := make([]LabelStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	slices.SortFunc(list, func(a, b LabelStat) int {
		if c := cmp.Compare(b.AvgMs, a.AvgMs); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}
