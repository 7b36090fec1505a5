package betting

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
)

// SweepReport conta o que uma varredura de prazos aplicou
type SweepReport struct {
	Locked    int
	Finalized int
	Resumed   int
	Failed    int
}

// SweepDeadlines aplica os prazos vencidos pelas mesmas operações do engine:
// trava bets OPEN cujo fechamento passou, finaliza PROOFING com janela expirada e
// retoma liquidações interrompidas. Erros por bet são logados e não param a varredura.
func (e *Engine) SweepDeadlines(ctx context.Context) (SweepReport, error) {
	var rep SweepReport
	now := e.Now()

	bets, err := e.store.ListBets(ctx, ledger.BetFilter{Statuses: []domain.BetStatus{
		domain.StatusOpen, domain.StatusLocked, domain.StatusProofing, domain.StatusDisputed,
	}})
	if err != nil {
		return rep, err
	}

	for _, b := range bets {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		log := e.log.With(zap.String("bet_id", b.ID), zap.String("status", string(b.Status)))

		switch {
		case b.SettlementStarted:
			if _, err := e.Finalize(ctx, domain.SystemPrincipal, b.ID); err != nil {
				rep.Failed += e.sweepFailed(log, "resume settlement", err)
				continue
			}
			rep.Resumed++

		case b.Status == domain.StatusOpen && !now.Before(b.ClosesAt):
			if _, err := e.Lock(ctx, domain.SystemPrincipal, b.ID); err != nil {
				rep.Failed += e.sweepFailed(log, "lock", err)
				continue
			}
			rep.Locked++

		case b.Status == domain.StatusProofing && b.DeadlinePassed(now):
			if _, err := e.Finalize(ctx, domain.SystemPrincipal, b.ID); err != nil {
				rep.Failed += e.sweepFailed(log, "finalize", err)
				continue
			}
			rep.Finalized++
		}
	}
	return rep, nil
}

// sweepFailed loga a falha; perder a corrida para uma ação manual não conta como falha
func (e *Engine) sweepFailed(log *zap.Logger, op string, err error) int {
	if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrAlreadyResolved) || errors.Is(err, domain.ErrConcurrentModification) {
		log.Debug("sweep skipped bet", zap.String("op", op), zap.Error(err))
		return 0
	}
	log.Warn("sweep failed", zap.String("op", op), zap.Error(err))
	return 1
}
