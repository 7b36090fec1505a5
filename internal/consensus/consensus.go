// Package consensus decide disputas de resultado pelo voto dos apostadores da bet.
package consensus

import (
	"github.com/radieske/league-wager-engine/internal/domain"
)

type Decision string

const (
	Approve     Decision = "approve"
	Reject      Decision = "reject"
	NoConsensus Decision = "no_consensus"
)

// Result traz a decisão e a contagem usada para chegar nela
type Result struct {
	Decision  Decision `json:"decision"`
	Wagerers  int      `json:"wagerers"`
	Votes     int      `json:"votes"`
	Approvals int      `json:"approvals"`
	Rejects   int      `json:"rejects"`
}

// Err devolve domain.ErrNoConsensusReached quando não houve decisão
func (r Result) Err() error {
	if r.Decision == NoConsensus {
		return domain.ErrNoConsensusReached
	}
	return nil
}

// Decide aplica as regras de quórum (participação >= 50%) e maioria qualificada (> 66%).
// Só contam votos de quem apostou na bet; comparações em inteiros.
func Decide(votes map[string]domain.Vote, wagerers []string) Result {
	universe := make(map[string]struct{}, len(wagerers))
	for _, id := range wagerers {
		universe[id] = struct{}{}
	}

	r := Result{Wagerers: len(universe), Decision: NoConsensus}
	for member, v := range votes {
		if _, ok := universe[member]; !ok {
			continue
		}
		switch v {
		case domain.VoteApprove:
			r.Approvals++
		case domain.VoteReject:
			r.Rejects++
		default:
			continue
		}
		r.Votes++
	}

	if r.Wagerers == 0 || r.Votes == 0 || 2*r.Votes < r.Wagerers {
		return r
	}
	switch {
	case 100*r.Approvals > 66*r.Votes:
		r.Decision = Approve
	case 100*r.Rejects > 66*r.Votes:
		r.Decision = Reject
	}
	return r
}
