package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregator(t *testing.T) {
	aggregator := New()

	aggregator.OnSubmit(true)
	aggregator.OnSubmit(false)
	aggregator.OnCapacityRejected()
	aggregator.OnValidationFailed()
	aggregator.OnDecisionApplied(100 * time.Millisecond)
	aggregator.OnDecisionApplied(300 * time.Millisecond)
	aggregator.OnQualityRejected()
	aggregator.OnConflictWithheld()
	aggregator.OnWarning("early")
	aggregator.OnWarning("critical")
	aggregator.OnWarning("final")
	aggregator.OnEscalation()
	aggregator.OnTerminal("approved")
	aggregator.OnTerminal("rejected")
	aggregator.OnTerminal("cancelled")
	aggregator.OnTerminal("expired")

	snapshot := aggregator.Snapshot()
	assert.Equal(t, int64(2), snapshot.Submitted)
	assert.Equal(t, int64(1), snapshot.Admitted)
	assert.Equal(t, int64(1), snapshot.CapacityRejected)
	assert.Equal(t, int64(2), snapshot.DecisionsApplied)
	assert.Equal(t, int64(1), snapshot.WarningsEarly)
	assert.Equal(t, int64(1), snapshot.WarningsCritical)
	assert.Equal(t, int64(1), snapshot.WarningsFinal)
	assert.Equal(t, int64(1), snapshot.Approved)
	assert.Equal(t, int64(1), snapshot.Expired)
	assert.Equal(t, 200*time.Millisecond, snapshot.AvgDecisionLatency)
}

func TestAggregator_concurrent(t *testing.T) {
	aggregator := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				aggregator.OnSubmit(true)
				aggregator.OnDecisionApplied(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	snapshot := aggregator.Snapshot()
	assert.Equal(t, int64(8000), snapshot.Submitted)
	assert.Equal(t, int64(8000), snapshot.DecisionsApplied)
	assert.Equal(t, time.Millisecond, snapshot.AvgDecisionLatency)
}
