package notify

import (
	"fmt"
	"sync"
)

// FallbackTracker counts consecutive dictations whose post-processing fell
// back to the raw transcript and raises an advisory once the count reaches
// the threshold. A successful post-processing run resets the count.
type FallbackTracker struct {
	mu        sync.Mutex
	notifier  Notifier
	threshold int
	streak    int
	advised   bool
}

// NewFallbackTracker returns a tracker; threshold <= 0 disables the advisory.
func NewFallbackTracker(n Notifier, threshold int) *FallbackTracker {
	return &FallbackTracker{notifier: n, threshold: threshold}
}

// Record registers the outcome of one post-processed dictation and reports
// whether the advisory was raised by this call.
func (t *FallbackTracker) Record(usedFallback bool) bool {
	t.mu.Lock()
	if !usedFallback {
		t.streak = 0
		t.advised = false
		t.mu.Unlock()
		return false
	}

	t.streak++
	raise := t.threshold > 0 && t.streak >= t.threshold && !t.advised
	if raise {
		t.advised = true
	}
	streak := t.streak
	t.mu.Unlock()

	if raise && t.notifier != nil {
		t.notifier.Advisory(fmt.Sprintf("%d fallbacks in a row", streak))
	}
	return raise
}

func (t *FallbackTracker) Consecutive() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streak
}

func (t *FallbackTracker) SetThreshold(threshold int) {
	t.mu.Lock()
	t.threshold = threshold
	t.mu.Unlock()
}
