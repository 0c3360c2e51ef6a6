package ui

import (
	"fmt"
	"time"
)

// CaptureTracker renders a single-line capture progress readout that
// rewrites itself in place.
type CaptureTracker struct {
	startTime time.Time
	lastLen   int
}

// NewCaptureTracker creates a tracker anchored at now.
func NewCaptureTracker() *CaptureTracker {
	return &CaptureTracker{startTime: time.Now()}
}

// Update redraws the progress line with the current totals.
func (ct *CaptureTracker) Update(captured, pages int, paused bool) {
	if quiet.Load() {
		return
	}

	elapsed := time.Since(ct.startTime).Round(time.Second)
	status := "capturing"
	if paused {
		status = "rate limited, waiting"
	}

	line := fmt.Sprintf("  %d users | %d pages | %s | %s", captured, pages, elapsed, status)
	// Pad with spaces so a shorter line fully overwrites the previous one
	pad := ct.lastLen - len(line)
	ct.lastLen = len(line)
	for i := 0; i < pad; i++ {
		line += " "
	}
	fmt.Printf("\r%s", Dim(line))
}

// Finish terminates the progress line so following output starts clean.
func (ct *CaptureTracker) Finish() {
	if quiet.Load() {
		return
	}
	fmt.Println()
}
