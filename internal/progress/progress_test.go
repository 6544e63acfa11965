package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_ReportsAtIntervals(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(&buf, 2)

	tr.Start("matching", 4)
	tr.Advance(1) // below interval, no report
	tr.Advance(1) // crosses 2
	tr.Advance(2) // crosses 4
	tr.Done()

	out := buf.String()
	assert.Contains(t, out, "matching: 0/4")
	assert.Contains(t, out, "matching: 2/4")
	assert.Contains(t, out, "matching: 4/4")
	assert.Contains(t, out, "done in")
}

func TestTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(&buf, 1)

	tr.Start("matching", 2)
	tr.Advance(5)
	tr.Done()

	assert.NotContains(t, buf.String(), "5/2")
	assert.Contains(t, buf.String(), "2/2")
}

func TestTracker_ConcurrentAdvance(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(&buf, 10)

	tr.Start("matching", 100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tr.Advance(1)
			}
		}()
	}
	wg.Wait()
	tr.Done()

	// The final line accounts for every step exactly once.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines[len(lines)-1], "100/100")
}

func TestNop_IsSilent(t *testing.T) {
	var n Nop
	n.Start("anything", 10)
	n.Advance(3)
	n.Done()
}
