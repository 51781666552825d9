package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidTransition(t *testing.T) {
	allowed := map[ApplicationStatus][]ApplicationStatus{
		StatusDraft:              {StatusSubmitted, StatusWithdrawn},
		StatusSubmitted:          {StatusUnderReview, StatusDocumentsRequested, StatusWithdrawn},
		StatusUnderReview:        {StatusDocumentsRequested, StatusApproved, StatusDenied},
		StatusDocumentsRequested: {StatusUnderReview, StatusWithdrawn},
	}

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			want := false
			for _, target := range allowed[from] {
				if target == to {
					want = true
				}
			}
			assert.Equal(t, want, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsValidTransitionNoSelfLoops(t *testing.T) {
	for _, status := range AllStatuses() {
		assert.False(t, IsValidTransition(status, status), "self transition on %s", status)
	}
}

func TestIsValidTransitionUnknownStatus(t *testing.T) {
	assert.False(t, IsValidTransition("PENDING", StatusSubmitted))
	assert.False(t, IsValidTransition(StatusDraft, "PENDING"))
	assert.False(t, IsValidTransition("", ""))
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	for _, status := range []ApplicationStatus{StatusApproved, StatusDenied, StatusWithdrawn} {
		assert.True(t, IsTerminal(status), "%s should be terminal", status)
		assert.Empty(t, TransitionsFrom(status))
		for _, to := range AllStatuses() {
			assert.False(t, IsValidTransition(status, to), "%s -> %s", status, to)
		}
	}

	for _, status := range []ApplicationStatus{StatusDraft, StatusSubmitted, StatusUnderReview, StatusDocumentsRequested} {
		assert.False(t, IsTerminal(status), "%s should not be terminal", status)
	}
}

func TestTransitionsFromReturnsCopy(t *testing.T) {
	first := TransitionsFrom(StatusDraft)
	require.NotEmpty(t, first)
	first[0] = "MUTATED"

	second := TransitionsFrom(StatusDraft)
	assert.Equal(t, StatusSubmitted, second[0])
}

func TestIsKnownStatus(t *testing.T) {
	for _, status := range AllStatuses() {
		assert.True(t, IsKnownStatus(status))
	}
	assert.False(t, IsKnownStatus("PENDING"))
	assert.False(t, IsKnownStatus("draft"))
	assert.False(t, IsKnownStatus(""))
}
