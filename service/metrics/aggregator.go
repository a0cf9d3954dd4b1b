// Package metrics maintains the engine's running counters.  The aggregator
// is an explicit shared-state object: it is created once at engine start,
// exposes only atomic increment/read operations and is never reset
// externally.  Updates are commutative and lock-free so they never block the
// orchestration hot path.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/viant/approvals/model"
)

// Aggregator accumulates workflow, decision and escalation counters.
type Aggregator struct {
	submitted         atomic.Int64
	admitted          atomic.Int64
	capacityRejected  atomic.Int64
	validationFailed  atomic.Int64
	decisionsApplied  atomic.Int64
	qualityRejected   atomic.Int64
	conflictWithheld  atomic.Int64
	warningsEarly     atomic.Int64
	warningsCritical  atomic.Int64
	warningsFinal     atomic.Int64
	escalations       atomic.Int64
	approved          atomic.Int64
	rejected          atomic.Int64
	cancelled         atomic.Int64
	expired           atomic.Int64
	decisionLatencyNs atomic.Int64
	decisionCount     atomic.Int64
}

// New returns a zeroed aggregator.
func New() *Aggregator { return &Aggregator{} }

// OnSubmit records an admission attempt.
func (a *Aggregator) OnSubmit(admitted bool) {
	a.submitted.Add(1)
	if admitted {
		a.admitted.Add(1)
	}
}

// OnCapacityRejected records an admission refused by the capacity gate.
func (a *Aggregator) OnCapacityRejected() { a.capacityRejected.Add(1) }

// OnValidationFailed records a submission refused by structural validation.
func (a *Aggregator) OnValidationFailed() { a.validationFailed.Add(1) }

// OnDecisionApplied records a committed decision together with its
// submission-to-commit latency.
func (a *Aggregator) OnDecisionApplied(latency time.Duration) {
	a.decisionsApplied.Add(1)
	a.decisionCount.Add(1)
	a.decisionLatencyNs.Add(int64(latency))
}

// OnQualityRejected records a decision refused by the quality gate.
func (a *Aggregator) OnQualityRejected() { a.qualityRejected.Add(1) }

// OnConflictWithheld records a decision withheld due to consistency
// conflicts.
func (a *Aggregator) OnConflictWithheld() { a.conflictWithheld.Add(1) }

// OnWarning records a timeout warning emission.
func (a *Aggregator) OnWarning(tier string) {
	switch tier {
	case model.WarningEarly:
		a.warningsEarly.Add(1)
	case model.WarningCritical:
		a.warningsCritical.Add(1)
	case model.WarningFinal:
		a.warningsFinal.Add(1)
	}
}

// OnEscalation records an opened escalation path.
func (a *Aggregator) OnEscalation() { a.escalations.Add(1) }

// OnTerminal records a workflow reaching a terminal status.
func (a *Aggregator) OnTerminal(status string) {
	switch status {
	case model.StatusApproved:
		a.approved.Add(1)
	case model.StatusRejected:
		a.rejected.Add(1)
	case model.StatusCancelled:
		a.cancelled.Add(1)
	case model.StatusExpired:
		a.expired.Add(1)
	}
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Submitted          int64         `json:"submitted"`
	Admitted           int64         `json:"admitted"`
	CapacityRejected   int64         `json:"capacityRejected"`
	ValidationFailed   int64         `json:"validationFailed"`
	DecisionsApplied   int64         `json:"decisionsApplied"`
	QualityRejected    int64         `json:"qualityRejected"`
	ConflictWithheld   int64         `json:"conflictWithheld"`
	WarningsEarly      int64         `json:"warningsEarly"`
	WarningsCritical   int64         `json:"warningsCritical"`
	WarningsFinal      int64         `json:"warningsFinal"`
	Escalations        int64         `json:"escalations"`
	Approved           int64         `json:"approved"`
	Rejected           int64         `json:"rejected"`
	Cancelled          int64         `json:"cancelled"`
	Expired            int64         `json:"expired"`
	AvgDecisionLatency time.Duration `json:"avgDecisionLatency"`
}

// Snapshot returns a consistent-enough copy for reporting; individual
// counters are read atomically.
func (a *Aggregator) Snapshot() Snapshot {
	ret := Snapshot{
		Submitted:        a.submitted.Load(),
		Admitted:         a.admitted.Load(),
		CapacityRejected: a.capacityRejected.Load(),
		ValidationFailed: a.validationFailed.Load(),
		DecisionsApplied: a.decisionsApplied.Load(),
		QualityRejected:  a.qualityRejected.Load(),
		ConflictWithheld: a.conflictWithheld.Load(),
		WarningsEarly:    a.warningsEarly.Load(),
		WarningsCritical: a.warningsCritical.Load(),
		WarningsFinal:    a.warningsFinal.Load(),
		Escalations:      a.escalations.Load(),
		Approved:         a.approved.Load(),
		Rejected:         a.rejected.Load(),
		Cancelled:        a.cancelled.Load(),
		Expired:          a.expired.Load(),
	}
	if count := a.decisionCount.Load(); count > 0 {
		ret.AvgDecisionLatency = time.Duration(a.decisionLatencyNs.Load() / count)
	}
	return ret
}
