// Package benchmarks provides timing estimates for provisioning phases.
package benchmarks

import (
	"time"
)

// DefaultTimings are median phase durations of RunPod community cloud runs
// with one SDXL checkpoint (seconds).
var DefaultTimings = map[string]int{
	"provider": 1,
	"create":   10,
	"wait":     120,
	"setup":    420,
}

// PhaseOrder defines the sequence of provisioning phases for ETA calculation.
var PhaseOrder = []string{
	"provider",
	"create",
	"wait",
	"setup",
}

// PhaseRecord is one phase of a run. EndedAt is nil while the phase runs.
type PhaseRecord struct {
	Phase     string
	StartedAt time.Time
	EndedAt   *time.Time
}

// EstimateRemaining calculates the estimated time remaining based on
// current phase, elapsed time, and historical phase records.
func EstimateRemaining(currentPhase string, phaseElapsed time.Duration, history []PhaseRecord) time.Duration {
	return EstimateRemainingWithScale(currentPhase, phaseElapsed, history, PerformanceScale(currentPhase, phaseElapsed, history))
}

// EstimateRemainingWithScale calculates ETA while applying a performance scale factor.
func EstimateRemainingWithScale(
	currentPhase string,
	phaseElapsed time.Duration,
	history []PhaseRecord,
	scale float64,
) time.Duration {
	var remaining time.Duration

	currentIdx := -1
	for i, p := range PhaseOrder {
		if p == currentPhase {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return 0
	}

	// For the current phase: max(0, expected - elapsed)
	if expected, ok := DefaultTimings[currentPhase]; ok {
		expectedDur := time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		if expectedDur > phaseElapsed {
			remaining += expectedDur - phaseElapsed
		}
	}

	completed := make(map[string]bool)
	for _, rec := range history {
		if rec.EndedAt != nil {
			completed[rec.Phase] = true
		}
	}

	for _, phase := range PhaseOrder[currentIdx+1:] {
		if completed[phase] {
			continue
		}
		if expected, ok := DefaultTimings[phase]; ok {
			remaining += time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		}
	}

	return remaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected durations.
// Example: expected 2m, observed 3m => scale=1.5 (future ETAs are stretched by 50%).
func PerformanceScale(currentPhase string, phaseElapsed time.Duration, history []PhaseRecord) float64 {
	var expectedTotal time.Duration
	var actualTotal time.Duration

	for _, rec := range history {
		expectedSecs, ok := DefaultTimings[rec.Phase]
		if !ok || rec.EndedAt == nil {
			continue
		}
		expectedTotal += time.Duration(expectedSecs) * time.Second
		actualTotal += rec.EndedAt.Sub(rec.StartedAt)
	}

	// If current phase is overrunning, fold it in immediately so ETA adapts quickly.
	if expectedSecs, ok := DefaultTimings[currentPhase]; ok && phaseElapsed > 0 {
		expectedCurrent := time.Duration(expectedSecs) * time.Second
		if phaseElapsed > expectedCurrent {
			expectedTotal += expectedCurrent
			actualTotal += phaseElapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// Weight returns the share of the total estimate taken by phase.
func Weight(phase string) float64 {
	total := TotalEstimate()
	secs, ok := DefaultTimings[phase]
	if !ok || total == 0 {
		return 0
	}
	return float64(time.Duration(secs)*time.Second) / float64(total)
}

// TotalEstimate returns the total estimated provisioning time.
func TotalEstimate() time.Duration {
	var total time.Duration
	for _, phase := range PhaseOrder {
		if secs, ok := DefaultTimings[phase]; ok {
			total += time.Duration(secs) * time.Second
		}
	}
	return total
}
