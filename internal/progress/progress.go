// Package progress reports long-running work to an observer. Reporting is a
// side channel: the matching pipeline behaves identically when it is absent.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Observer receives progress events from a run stage.
// Implementations must be safe for concurrent use.
type Observer interface {
	// Start announces a stage and its total number of steps.
	Start(label string, total int)
	// Advance records n completed steps.
	Advance(n int)
	// Done marks the stage complete.
	Done()
}

// Nop is an Observer that ignores every event.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) Advance(int)       {}
func (Nop) Done()             {}

// Tracker writes coarse progress lines to a writer, typically stderr.
// It reports at most once per reportEvery completed steps.
type Tracker struct {
	writer      io.Writer
	reportEvery int

	mu           sync.Mutex
	label        string
	total        int
	current      int
	lastReported int
	startTime    time.Time
}

// NewTracker creates a tracker that reports every reportEvery steps.
func NewTracker(w io.Writer, reportEvery int) *Tracker {
	if reportEvery <= 0 {
		reportEvery = 1
	}
	return &Tracker{writer: w, reportEvery: reportEvery}
}

// Start begins a new stage, resetting counters.
func (t *Tracker) Start(label string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.label = label
	t.total = total
	t.current = 0
	t.lastReported = 0
	t.startTime = time.Now()
	fmt.Fprintf(t.writer, "%s: 0/%d\n", label, total)
}

// Advance records completed steps and reports when an interval is crossed.
func (t *Tracker) Advance(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current += n
	if t.current > t.total {
		t.current = t.total
	}
	if t.current-t.lastReported >= t.reportEvery {
		t.report()
		t.lastReported = t.current
	}
}

// Done reports the final count and elapsed time.
func (t *Tracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = t.total
	fmt.Fprintf(t.writer, "%s: %d/%d done in %s\n",
		t.label, t.current, t.total, time.Since(t.startTime).Round(time.Millisecond))
}

// report writes one progress line. Callers hold the mutex.
func (t *Tracker) report() {
	elapsed := time.Since(t.startTime)
	var rate float64
	if elapsed > 0 {
		rate = float64(t.current) / elapsed.Seconds()
	}
	fmt.Fprintf(t.writer, "%s: %d/%d (%.1f/s)\n", t.label, t.current, t.total, rate)
}
