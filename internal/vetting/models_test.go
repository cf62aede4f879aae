package vetting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUrgencyFor(t *testing.T) {
	// Above 50M naira.
	assert.Equal(t, UrgencyUrgent, UrgencyFor(50_000_001, 0))
	assert.Equal(t, UrgencyUrgent, UrgencyFor(120_000_000, 10))

	// Above 10M but not above 50M.
	assert.Equal(t, UrgencyHigh, UrgencyFor(10_000_001, 0))
	assert.Equal(t, UrgencyHigh, UrgencyFor(50_000_000, 10))

	// At or below 10M with five or more documents.
	assert.Equal(t, UrgencyMedium, UrgencyFor(10_000_000, 5))
	assert.Equal(t, UrgencyMedium, UrgencyFor(500_000, 8))

	// Everything else.
	assert.Equal(t, UrgencyLow, UrgencyFor(10_000_000, 4))
	assert.Equal(t, UrgencyLow, UrgencyFor(0, 0))
}

func TestUrgencyThresholdsAreStrict(t *testing.T) {
	// A listing priced exactly at a threshold stays in the lower tier.
	assert.Equal(t, UrgencyHigh, UrgencyFor(50_000_000, 0))
	assert.Equal(t, UrgencyLow, UrgencyFor(10_000_000, 0))
}

func TestIsHighValue(t *testing.T) {
	assert.False(t, IsHighValue(10_000_000))
	assert.True(t, IsHighValue(10_000_001))
}

func TestHasCompleteDocuments(t *testing.T) {
	assert.False(t, HasCompleteDocuments(2))
	assert.True(t, HasCompleteDocuments(3))
	assert.True(t, HasCompleteDocuments(7))
}

func TestDecisionStatus(t *testing.T) {
	assert.Equal(t, "verified", string(DecisionVerified.Status()))
	assert.Equal(t, "rejected", string(DecisionRejected.Status()))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidSortKey(SortUrgent))
	assert.False(t, ValidSortKey("price"))
	assert.True(t, ValidUrgency(UrgencyMedium))
	assert.False(t, ValidUrgency("critical"))
	assert.True(t, ValidDecision(DecisionRejected))
	assert.False(t, ValidDecision("approved"))
}
