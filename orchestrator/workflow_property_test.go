package orchestrator

import (
	"testing"

	"pgregory.net/rapid"
)

// checkProgressInvariant asserts progress == 100 * completed / total.
func checkProgressInvariant(t *rapid.T, w *Workflow) {
	w.mu.RLock()
	completed := 0
	for _, step := range w.steps {
		if step.Status == StepCompleted {
			completed++
		}
	}
	progress := w.progress
	total := len(w.steps)
	w.mu.RUnlock()

	want := 100 * float64(completed) / float64(total)
	if progress != want {
		t.Fatalf("progress %v, want %v (completed=%d total=%d)", progress, want, completed, total)
	}
}

// TestProgressInvariant drives a workflow through random step outcomes
// and checks that progress always equals 100*completed/total and never
// decreases.
func TestProgressInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := newWorkflow("a cube", "", nil, 3)

		lastProgress := w.Progress()
		observe := func() {
			checkProgressInvariant(t, w)
			if p := w.Progress(); p < lastProgress {
				t.Fatalf("progress decreased from %v to %v", lastProgress, p)
			} else {
				lastProgress = p
			}
		}
		observe()

		for i := 0; i < w.stepCount(); i++ {
			if !w.startStep(i, map[string]any{"step": i}) {
				break
			}
			observe()

			// Fail a random number of attempts within the retry budget
			// before the step eventually completes or fails terminally.
			failures := rapid.IntRange(0, 4).Draw(t, "failures")
			terminal := false
			for attempt := 0; attempt < failures; attempt++ {
				w.markStepFailed(i, "attempt failed")
				observe()
				retryCount, maxRetries := w.stepRetryState(i)
				if retryCount >= maxRetries {
					w.fail("attempt failed")
					terminal = true
					break
				}
				w.retryStep(i)
				observe()
			}
			if terminal {
				break
			}

			w.completeStep(i, map[string]any{"ok": true})
			observe()
		}

		if !w.State().Terminal() {
			w.complete()
		}
		observe()

		// A completed workflow is exactly 100% done.
		if w.State() == StateCompleted && w.Progress() != 100 {
			t.Fatalf("completed workflow at %v%%", w.Progress())
		}
	})
}

// TestRetryCountNeverExceedsBudget checks the FAILED → RUNNING self-loop
// stays within max_retries.
func TestRetryCountNeverExceedsBudget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxRetries := rapid.IntRange(1, 6).Draw(t, "maxRetries")
		w := newWorkflow("a cube", "", nil, maxRetries)
		policy := RetryPolicy{MaxRetries: maxRetries}

		w.startStep(0, nil)
		attempts := 0
		for {
			attempts++
			w.markStepFailed(0, "boom")
			retryCount, budget := w.stepRetryState(0)
			if retryCount > budget {
				t.Fatalf("retry count %d exceeded budget %d", retryCount, budget)
			}
			if !policy.ShouldRetry(retryCount, budget) {
				break
			}
			w.retryStep(0)
		}

		if attempts != maxRetries+1 {
			t.Fatalf("made %d attempts with budget %d, want %d", attempts, maxRetries, maxRetries+1)
		}
	})
}
