package betting

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
	"github.com/radieske/league-wager-engine/internal/settlement"
)

const reasonNoWinningStake = "no stake on winning option"

// Finalize liquida a bet em PROOFING. Dono/admin/criador podem finalizar a qualquer
// momento; qualquer membro ou o sistema só depois do prazo de disputa.
// Se ninguém apostou na opção vencedora de um pool, a bet vai para INVALID com estorno.
func (e *Engine) Finalize(ctx context.Context, p domain.Principal, betID string) (domain.Bet, error) {
	return e.close(ctx, "finalize", betID, func(ctx context.Context, tx ledger.Tx, b *domain.Bet) error {
		if err := guard(*b, domain.StatusProofing); err != nil {
			return err
		}
		if !p.System {
			if authorize(ctx, tx, *b, p) == nil {
				return nil
			}
			if _, err := member(ctx, tx, b.LeagueID, p); err != nil {
				return err
			}
		}
		if !b.DeadlinePassed(tx.Now()) {
			return fmt.Errorf("%w: dispute window still open on bet %s", domain.ErrForbidden, b.ID)
		}
		return nil
	})
}

// Invalidate cancela a bet e estorna todas as apostas pendentes
func (e *Engine) Invalidate(ctx context.Context, p domain.Principal, betID, reason string) (domain.Bet, error) {
	if reason == "" {
		reason = "invalidated"
	}
	return e.close(ctx, "invalidate", betID, func(ctx context.Context, tx ledger.Tx, b *domain.Bet) error {
		if err := guard(*b, domain.StatusOpen, domain.StatusLocked, domain.StatusProofing, domain.StatusDisputed); err != nil {
			return err
		}
		if err := authorize(ctx, tx, *b, p); err != nil {
			return err
		}
		b.InvalidReason = reason
		return nil
	})
}

// close roda as transações de liquidação até a bet ficar terminal.
// check valida a primeira transação; uma liquidação em andamento (SettlementStarted)
// já foi autorizada e segue pelo caminho gravado na bet.
func (e *Engine) close(ctx context.Context, op, betID string, check func(context.Context, ledger.Tx, *domain.Bet) error) (domain.Bet, error) {
	for {
		var (
			out  domain.Bet
			done bool
		)
		err := e.run(ctx, op, func(tx ledger.Tx, em *emitter) error {
			b, err := e.loadBet(ctx, tx, betID, em)
			if err != nil {
				return err
			}
			if b.Status.Terminal() {
				return fmt.Errorf("%w: bet %s is %s", domain.ErrAlreadyResolved, b.ID, b.Status)
			}
			if b.SettlementStarted {
				if op == "invalidate" && b.InvalidReason == "" {
					return fmt.Errorf("%w: bet %s is settling", domain.ErrInvalidTransition, b.ID)
				}
			} else if err := check(ctx, tx, &b); err != nil {
				return err
			}

			done, err = e.closeChunk(ctx, tx, &b, em)
			out = b
			return err
		})
		if err != nil || done {
			return out, err
		}
		e.log.Debug("settlement chunk committed", zap.String("bet_id", betID))
	}
}

// closeChunk liquida (ou estorna) até e.chunk apostas pendentes e, na última leva,
// grava o estado terminal. Apostas terminais são puladas, então repetir é seguro.
func (e *Engine) closeChunk(ctx context.Context, tx ledger.Tx, b *domain.Bet, em *emitter) (bool, error) {
	ws, err := tx.ListWagers(ctx, b.ID)
	if err != nil {
		return false, err
	}

	var result map[string]settlement.Outcome
	if b.InvalidReason == "" {
		l, err := tx.GetLeague(ctx, b.LeagueID)
		if err != nil {
			return false, err
		}
		res, err := settlement.Calculate(*b, ws, b.ProposedOutcome, l.Settings)
		switch {
		case errors.Is(err, settlement.ErrNoWinningStake):
			b.InvalidReason = reasonNoWinningStake
		case err != nil:
			return false, err
		default:
			result = res.ByWager()
		}
	}

	var pending []domain.Wager
	for _, w := range ws {
		if !w.Status.Terminal() {
			pending = append(pending, w)
		}
	}
	batch := pending
	last := true
	if e.chunk > 0 && len(pending) > e.chunk {
		batch = pending[:e.chunk]
		last = false
	}

	for i := range batch {
		w := &batch[i]
		if b.InvalidReason != "" {
			if _, err := ledger.Refund(ctx, tx, w); err != nil {
				return false, err
			}
			em.settled = append(em.settled, settledWager{domain.WagerPush, w.Amount})
			continue
		}
		o := result[w.ID]
		if _, err := ledger.Settle(ctx, tx, w, o.Status, o.Points, o.Payout); err != nil {
			return false, err
		}
		em.settled = append(em.settled, settledWager{o.Status, o.Payout})
	}

	if !last {
		b.SettlementStarted = true
		return false, tx.UpdateBet(ctx, b)
	}

	from := b.Status
	now := tx.Now()
	b.SettlementStarted = false
	b.ResolvedAt = &now
	b.DisputeActive = false
	if b.InvalidReason != "" {
		if err := move(b, domain.StatusInvalid); err != nil {
			return false, err
		}
		if err := tx.UpdateBet(ctx, b); err != nil {
			return false, err
		}
		em.emit(domain.EventBetInvalidated, *b, "", from, map[string]string{
			"reason":   b.InvalidReason,
			"refunded": strconv.Itoa(len(ws)),
		})
		return true, nil
	}

	if err := move(b, domain.StatusResolved); err != nil {
		return false, err
	}
	b.WinningOutcome = b.ProposedOutcome
	if err := tx.UpdateBet(ctx, b); err != nil {
		return false, err
	}
	raw, _ := domain.MarshalSelection(b.WinningOutcome)
	em.emit(domain.EventBetResolved, *b, "", from, map[string]string{
		"outcome": raw,
		"wagers":  strconv.Itoa(len(ws)),
	})
	return true, nil
}
