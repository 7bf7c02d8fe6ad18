package archive

import (
	"sync"
	"time"

	"github.com/matheus3301/chatvault/internal/model"
)

// recentWindow bounds the rolling per-operation duration sample.
const recentWindow = 32

// recorder keeps rolling operation timings and counters for diagnostics.
type recorder struct {
	mu  sync.Mutex
	ops map[string]*opRecord
}

type opRecord struct {
	count    int64
	failures int64
	max      time.Duration
	recent   []time.Duration
	next     int
}

func newRecorder() *recorder {
	return &recorder{ops: make(map[string]*opRecord)}
}

// Record notes one operation's duration and outcome.
func (r *recorder) Record(op string, d time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.ops[op]
	if rec == nil {
		rec = &opRecord{recent: make([]time.Duration, 0, recentWindow)}
		r.ops[op] = rec
	}
	rec.count++
	if !ok {
		rec.failures++
	}
	if d > rec.max {
		rec.max = d
	}
	if len(rec.recent) < recentWindow {
		rec.recent = append(rec.recent, d)
	} else {
		rec.recent[rec.next] = d
		rec.next = (rec.next + 1) % recentWindow
	}
}

// Snapshot returns per-operation stats; Avg covers the rolling window.
func (r *recorder) Snapshot() map[string]model.OpStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]model.OpStats, len(r.ops))
	for op, rec := range r.ops {
		var total time.Duration
		for _, d := range rec.recent {
			total += d
		}
		avg := 0.0
		if len(rec.recent) > 0 {
			avg = float64(total.Microseconds()) / float64(len(rec.recent)) / 1000.0
		}
		out[op] = model.OpStats{
			Count:    rec.count,
			Failures: rec.failures,
			Avg:      avg,
			Max:      float64(rec.max.Microseconds()) / 1000.0,
		}
	}
	return out
}
