package betting

import (
	"fmt"
	"slices"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// transitions lista os destinos permitidos a partir de cada estado não terminal
var transitions = map[domain.BetStatus][]domain.BetStatus{
	domain.StatusOpen:     {domain.StatusLocked, domain.StatusInvalid},
	domain.StatusLocked:   {domain.StatusProofing, domain.StatusInvalid},
	domain.StatusProofing: {domain.StatusDisputed, domain.StatusResolved, domain.StatusInvalid},
	domain.StatusDisputed: {domain.StatusProofing, domain.StatusInvalid},
}

// CanTransition indica se from -> to é uma aresta da máquina de estados
func CanTransition(from, to domain.BetStatus) bool {
	return slices.Contains(transitions[from], to)
}

// guard confere o estado de origem antes de qualquer escrita.
// AlreadyResolved fica reservado à liquidação repetida (close).
func guard(b domain.Bet, allowed ...domain.BetStatus) error {
	if slices.Contains(allowed, b.Status) {
		return nil
	}
	return fmt.Errorf("%w: bet %s is %s", domain.ErrInvalidTransition, b.ID, b.Status)
}

// move aplica a transição em memória; a gravação fica com quem chamou
func move(b *domain.Bet, to domain.BetStatus) error {
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	return nil
}
