package betting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/radieske/league-wager-engine/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.BetStatus
		ok       bool
	}{
		{domain.StatusOpen, domain.StatusLocked, true},
		{domain.StatusOpen, domain.StatusInvalid, true},
		{domain.StatusOpen, domain.StatusProofing, false},
		{domain.StatusLocked, domain.StatusProofing, true},
		{domain.StatusProofing, domain.StatusDisputed, true},
		{domain.StatusProofing, domain.StatusResolved, true},
		{domain.StatusDisputed, domain.StatusProofing, true},
		{domain.StatusDisputed, domain.StatusResolved, false},
		{domain.StatusResolved, domain.StatusInvalid, false},
		{domain.StatusInvalid, domain.StatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}
}

func TestGuard(t *testing.T) {
	assert.NoError(t, guard(domain.Bet{Status: domain.StatusLocked}, domain.StatusLocked))
	assert.ErrorIs(t, guard(domain.Bet{Status: domain.StatusOpen}, domain.StatusLocked), domain.ErrInvalidTransition)
	assert.ErrorIs(t, guard(domain.Bet{Status: domain.StatusResolved}, domain.StatusProofing), domain.ErrInvalidTransition)
	assert.NotErrorIs(t, guard(domain.Bet{Status: domain.StatusInvalid}, domain.StatusDisputed), domain.ErrAlreadyResolved)

	b := domain.Bet{Status: domain.StatusProofing}
	assert.ErrorIs(t, move(&b, domain.StatusLocked), domain.ErrInvalidTransition)
	assert.NoError(t, move(&b, domain.StatusDisputed))
	assert.Equal(t, domain.StatusDisputed, b.Status)

	done := domain.Bet{Status: domain.StatusResolved}
	assert.ErrorIs(t, move(&done, domain.StatusLocked), domain.ErrInvalidTransition)
}
