package domain

import "errors"

// MetricsWindowSize bounds the rolling tally to the most recent observations
// so early failures cannot permanently poison a pattern and a stale success
// spike cannot permanently certify one.
const MetricsWindowSize = 20

// ErrInvalidMetricState means the window counters would violate
// successes + failures <= injections. Always a bug, never caller input; the
// write must abort rather than clamp.
var ErrInvalidMetricState = errors.New("rolling metrics invariant violated")

type Observation string

const (
	// ObservationInjected is an injection whose outcome has not resolved yet.
	ObservationInjected Observation = "injected"
	ObservationSuccess  Observation = "success"
	ObservationFailure  Observation = "failure"
)

// failureDecayRate controls how hard a run of consecutive failures drags the
// quality score down. Quality is monotonically non-increasing in the streak
// length for a fixed success ratio.
const failureDecayRate = 0.25

// RollingMetrics is the bounded-window outcome tally for one pattern. The
// counters are derived from Window and recomputed on every observation.
type RollingMetrics struct {
	Window              []Observation `json:"window"`
	Injections          int           `json:"injections"`
	Successes           int           `json:"successes"`
	Failures            int           `json:"failures"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	QualityScore        float64       `json:"quality_score"`
}

// ObserveInjection records an injection whose outcome is still pending.
func (m *RollingMetrics) ObserveInjection() {
	m.push(ObservationInjected)
}

// ObserveOutcome records a resolved injection outcome.
func (m *RollingMetrics) ObserveOutcome(success bool) {
	if success {
		m.push(ObservationSuccess)
	} else {
		m.push(ObservationFailure)
	}
}

func (m *RollingMetrics) push(o Observation) {
	m.Window = append(m.Window, o)
	if len(m.Window) > MetricsWindowSize {
		m.Window = m.Window[len(m.Window)-MetricsWindowSize:]
	}
	m.recompute()
}

func (m *RollingMetrics) recompute() {
	succ, fail := 0, 0
	for _, o := range m.Window {
		switch o {
		case ObservationSuccess:
			succ++
		case ObservationFailure:
			fail++
		}
	}
	m.Injections = len(m.Window)
	m.Successes = succ
	m.Failures = fail

	// Trailing failure run; the most recent success resets it. Pending
	// injections neither extend nor break a streak.
	streak := 0
scan:
	for i := len(m.Window) - 1; i >= 0; i-- {
		switch m.Window[i] {
		case ObservationFailure:
			streak++
		case ObservationSuccess:
			break scan
		}
	}
	m.ConsecutiveFailures = streak
	m.QualityScore = m.computeQuality()
}

func (m *RollingMetrics) computeQuality() float64 {
	resolved := m.Successes + m.Failures
	if resolved == 0 {
		return 0
	}
	ratio := float64(m.Successes) / float64(resolved)
	score := ratio / (1 + failureDecayRate*float64(m.ConsecutiveFailures))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Validate checks the window invariants before the state is persisted.
func (m *RollingMetrics) Validate() error {
	if len(m.Window) > MetricsWindowSize {
		return ErrInvalidMetricState
	}
	if m.Successes+m.Failures > m.Injections {
		return ErrInvalidMetricState
	}
	if m.QualityScore < 0 || m.QualityScore > 1 {
		return ErrInvalidMetricState
	}
	return nil
}
