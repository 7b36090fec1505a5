// Package settlement calcula o resultado de cada aposta de uma bet resolvida.
//
// O cálculo é uma função pura de (bet, apostas, resultado, configurações da liga):
// não lê estado global nem o store, e só usa aritmética inteira com divisão truncada.
// Bets CHOICE dividem o pool entre quem acertou a opção (pari-mutuel). Bets MATCH
// pontuam por faixas (placar exato, diferença de gols, vencedor) multiplicadas pelo
// power-up; na liga STANDARD os pontos são emitidos, na ZERO_SUM saem dos stakes perdedores.
package settlement

import (
	"errors"
	"fmt"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// ErrNoWinningStake indica pool positivo sem stake na opção vencedora; a bet deve ir para INVALID
var ErrNoWinningStake = errors.New("no stake on winning option")

// Outcome é o resultado calculado para uma aposta
type Outcome struct {
	WagerID  string
	MemberID string
	Status   domain.WagerStatus
	// Points é o prêmio (faixa x multiplicador, ou lucro no pool); Payout é o crédito no saldo
	Points int64
	Payout int64
}

// Result agrega os outcomes na ordem das apostas recebidas
type Result struct {
	Outcomes []Outcome
	Staked   int64 // soma dos stakes
	Paid     int64 // soma dos payouts
}

// Minted é o saldo criado (positivo) ou queimado (negativo) pela liquidação
func (r Result) Minted() int64 { return r.Paid - r.Staked }

// ByWager indexa os outcomes pelo id da aposta
func (r Result) ByWager() map[string]Outcome {
	out := make(map[string]Outcome, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out[o.WagerID] = o
	}
	return out
}

// Calculate aplica o modelo de pagamento do tipo da bet
func Calculate(bet domain.Bet, wagers []domain.Wager, outcome domain.Selection, s domain.Settings) (Result, error) {
	if err := domain.ValidateSelection(bet, outcome); err != nil {
		return Result{}, fmt.Errorf("settlement: outcome: %w", err)
	}
	s = s.Normalize()

	switch o := outcome.(type) {
	case domain.ChoiceIndex:
		return choice(wagers, o, s)
	case domain.MatchScore:
		return match(wagers, o, s)
	}
	return Result{}, fmt.Errorf("settlement: %w", domain.ErrInvalidSelection)
}

func choice(wagers []domain.Wager, winner domain.ChoiceIndex, s domain.Settings) (Result, error) {
	var res Result
	var winningTotal int64
	for _, w := range wagers {
		res.Staked += w.Amount
		if picked(w, winner) {
			winningTotal += w.Amount
		}
	}
	pool := res.Staked

	if pool > 0 && winningTotal == 0 {
		return Result{}, ErrNoWinningStake
	}

	for _, w := range wagers {
		o := Outcome{WagerID: w.ID, MemberID: w.MemberID, Status: domain.WagerLost}
		if picked(w, winner) {
			o.Status = domain.WagerWon
			if pool == 0 {
				// palpite gratuito: pontos fixos emitidos
				o.Points = s.Choice
				o.Payout = s.Choice
			} else {
				o.Payout = w.Amount * pool / winningTotal
				o.Points = o.Payout - w.Amount
			}
		}
		res.Paid += o.Payout
		res.Outcomes = append(res.Outcomes, o)
	}
	return res, nil
}

func picked(w domain.Wager, winner domain.ChoiceIndex) bool {
	idx, ok := w.Selection.(domain.ChoiceIndex)
	return ok && idx == winner
}

// Tier retorna os pontos base de um palpite de placar, antes do power-up
func Tier(pred, actual domain.MatchScore, s domain.Settings) int64 {
	switch {
	case pred == actual:
		return s.Exact
	case pred.Diff() == actual.Diff() && !(actual.Diff() == 0 && s.ExcludeDrawDiff):
		return s.Diff
	case sign(pred.Diff()) == sign(actual.Diff()):
		return s.Winner
	}
	return 0
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func match(wagers []domain.Wager, actual domain.MatchScore, s domain.Settings) (Result, error) {
	points := make([]int64, len(wagers))
	for i, w := range wagers {
		pred, ok := w.Selection.(domain.MatchScore)
		if !ok {
			return Result{}, fmt.Errorf("settlement: wager %s: %w", w.ID, domain.ErrInvalidSelection)
		}
		points[i] = Tier(pred, actual, s) * w.PowerUp.Multiplier()
	}

	if s.Mode == domain.ModeZeroSum {
		return zeroSum(wagers, points), nil
	}

	var res Result
	for i, w := range wagers {
		o := Outcome{WagerID: w.ID, MemberID: w.MemberID, Status: domain.WagerLost}
		if points[i] > 0 {
			o.Status = domain.WagerWon
			o.Points = points[i]
			o.Payout = w.Amount + points[i]
		}
		res.Staked += w.Amount
		res.Paid += o.Payout
		res.Outcomes = append(res.Outcomes, o)
	}
	return res, nil
}

// zeroSum retira dos stakes perdedores o que os vencedores ganham.
// O total transferido é min(demanda, stakes perdedores); a retirada de cada perdedor é
// proporcional ao seu stake e o prêmio de cada vencedor proporcional aos seus pontos.
// Restos da divisão vão, um ponto por vez, para as primeiras apostas na ordem recebida,
// de modo que retirado == distribuído e nenhum ponto é criado ou destruído.
func zeroSum(wagers []domain.Wager, points []int64) Result {
	var demand, losing int64
	for i, w := range wagers {
		if points[i] > 0 {
			demand += points[i]
		} else {
			losing += w.Amount
		}
	}
	transfer := min(demand, losing)

	draws := make([]int64, len(wagers))
	awards := make([]int64, len(wagers))
	if transfer > 0 {
		var drawn, awarded int64
		for i, w := range wagers {
			if points[i] > 0 {
				awards[i] = points[i] * transfer / demand
				awarded += awards[i]
			} else {
				draws[i] = w.Amount * transfer / losing
				drawn += draws[i]
			}
		}
		for i, w := range wagers {
			if drawn == transfer {
				break
			}
			if points[i] <= 0 && draws[i] < w.Amount {
				draws[i]++
				drawn++
			}
		}
		for i := range wagers {
			if awarded == transfer {
				break
			}
			if points[i] > 0 && awards[i] < points[i] {
				awards[i]++
				awarded++
			}
		}
	}

	var res Result
	for i, w := range wagers {
		o := Outcome{WagerID: w.ID, MemberID: w.MemberID, Status: domain.WagerLost}
		if points[i] > 0 {
			o.Status = domain.WagerWon
			o.Points = awards[i]
			o.Payout = w.Amount + awards[i]
		} else {
			o.Payout = w.Amount - draws[i]
		}
		res.Staked += w.Amount
		res.Paid += o.Payout
		res.Outcomes = append(res.Outcomes, o)
	}
	return res
}
