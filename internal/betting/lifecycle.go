package betting

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/radieske/league-wager-engine/internal/consensus"
	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
)

// Lock fecha a bet para novas apostas (OPEN -> LOCKED)
func (e *Engine) Lock(ctx context.Context, p domain.Principal, betID string) (domain.Bet, error) {
	var out domain.Bet
	err := e.run(ctx, "lock", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		if err := authorize(ctx, tx, b, p); err != nil {
			return err
		}
		// o prazo pode ter travado a bet nesta mesma chamada
		if len(em.events) > 0 {
			out = b
			return nil
		}
		from := b.Status
		if err := move(&b, domain.StatusLocked); err != nil {
			return err
		}
		if err := tx.UpdateBet(ctx, &b); err != nil {
			return err
		}
		em.emit(domain.EventBetLocked, b, p.MemberID, from, nil)
		out = b
		return nil
	})
	return out, err
}

// ProposeResult grava o resultado candidato e abre a janela de disputa.
// Vale a partir de LOCKED e, como nova proposta, a partir de DISPUTED.
func (e *Engine) ProposeResult(ctx context.Context, p domain.Principal, betID string, outcome domain.Selection, v *domain.Verification) (domain.Bet, error) {
	var out domain.Bet
	err := e.run(ctx, "propose_result", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		if err := guard(b, domain.StatusLocked, domain.StatusDisputed); err != nil {
			return err
		}
		if b.SettlementStarted {
			return fmt.Errorf("%w: bet %s is settling", domain.ErrInvalidTransition, b.ID)
		}
		if err := authorize(ctx, tx, b, p); err != nil {
			return err
		}
		if err := domain.ValidateSelection(b, outcome); err != nil {
			return err
		}
		l, err := tx.GetLeague(ctx, b.LeagueID)
		if err != nil {
			return err
		}

		from := b.Status
		if err := move(&b, domain.StatusProofing); err != nil {
			return err
		}
		deadline := tx.Now().Add(l.Settings.Normalize().DisputeWindow)
		b.ProposedOutcome = outcome
		b.DisputeDeadline = &deadline
		b.DisputeActive = false
		b.Verification = v
		b.Votes = map[string]domain.Vote{}
		b.Disputers = nil
		if err := tx.ClearVotes(ctx, b.ID); err != nil {
			return err
		}
		if err := tx.ClearDisputers(ctx, b.ID); err != nil {
			return err
		}
		if err := tx.UpdateBet(ctx, &b); err != nil {
			return err
		}

		raw, _ := domain.MarshalSelection(outcome)
		detail := map[string]string{"outcome": raw, "deadline": deadline.Format(time.RFC3339)}
		if v != nil {
			detail["source"] = v.Source
		}
		em.emit(domain.EventResultProposed, b, p.MemberID, from, detail)
		out = b
		return nil
	})
	return out, err
}

// Dispute contesta o resultado proposto. Só apostadores, antes do prazo;
// repetir a disputa não tem efeito e novos disputantes se somam à disputa aberta.
func (e *Engine) Dispute(ctx context.Context, p domain.Principal, betID string) (domain.Bet, error) {
	var out domain.Bet
	err := e.run(ctx, "dispute", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		if err := guard(b, domain.StatusProofing, domain.StatusDisputed); err != nil {
			return err
		}
		if b.SettlementStarted {
			return fmt.Errorf("%w: bet %s is settling", domain.ErrInvalidTransition, b.ID)
		}
		if b.DeadlinePassed(tx.Now()) {
			return fmt.Errorf("%w: bet %s", domain.ErrDisputeWindowClosed, b.ID)
		}
		if _, err := ownWager(ctx, tx, b.ID, p.MemberID); err != nil {
			return err
		}

		added, err := tx.AddDisputer(ctx, b.ID, p.MemberID)
		if err != nil {
			return err
		}
		if !added {
			out = b
			return nil
		}
		b.Disputers = append(b.Disputers, p.MemberID)

		from := b.Status
		if b.Status == domain.StatusProofing {
			if err := move(&b, domain.StatusDisputed); err != nil {
				return err
			}
			b.DisputeActive = true
			if err := tx.UpdateBet(ctx, &b); err != nil {
				return err
			}
		} else if err := tx.TouchBet(ctx, &b); err != nil {
			return err
		}
		em.emit(domain.EventDisputeStarted, b, p.MemberID, from, map[string]string{
			"disputers": strconv.Itoa(len(b.Disputers)),
		})
		out = b
		return nil
	})
	return out, err
}

// CastVote registra o voto de um apostador numa bet em disputa (um voto por membro)
func (e *Engine) CastVote(ctx context.Context, p domain.Principal, betID string, v domain.Vote) (domain.Bet, error) {
	if !v.Valid() {
		return domain.Bet{}, fmt.Errorf("%w: vote %q", domain.ErrInvalidSelection, v)
	}

	var out domain.Bet
	err := e.run(ctx, "cast_vote", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		if err := guard(b, domain.StatusDisputed); err != nil {
			return err
		}
		if b.DeadlinePassed(tx.Now()) {
			return fmt.Errorf("%w: bet %s", domain.ErrDisputeWindowClosed, b.ID)
		}
		if _, err := ownWager(ctx, tx, b.ID, p.MemberID); err != nil {
			return err
		}

		put, err := tx.PutVote(ctx, b.ID, p.MemberID, v)
		if err != nil {
			return err
		}
		if !put {
			return fmt.Errorf("%w: %s on bet %s", domain.ErrAlreadyVoted, p.MemberID, b.ID)
		}
		if err := tx.TouchBet(ctx, &b); err != nil {
			return err
		}
		b.Votes[p.MemberID] = v
		em.emit(domain.EventVoteCast, b, p.MemberID, "", map[string]string{
			"vote":  string(v),
			"votes": strconv.Itoa(len(b.Votes)),
		})
		out = b
		return nil
	})
	return out, err
}

// ResolveDispute consulta o consenso e aplica a decisão. approve devolve a bet para
// PROOFING com a janela reiniciada; reject e no_consensus mantêm DISPUTED.
// no_consensus é uma decisão, não um erro: quem chama decide com Result.Err().
func (e *Engine) ResolveDispute(ctx context.Context, p domain.Principal, betID string) (consensus.Result, domain.Bet, error) {
	var (
		res consensus.Result
		out domain.Bet
	)
	err := e.run(ctx, "resolve_dispute", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		if err := guard(b, domain.StatusDisputed); err != nil {
			return err
		}
		if !p.System {
			if _, err := member(ctx, tx, b.LeagueID, p); err != nil {
				return err
			}
		}
		ws, err := tx.ListWagers(ctx, b.ID)
		if err != nil {
			return err
		}
		res = consensus.Decide(b.Votes, wagerers(ws))

		from := b.Status
		if res.Decision == consensus.Approve {
			l, err := tx.GetLeague(ctx, b.LeagueID)
			if err != nil {
				return err
			}
			if err := move(&b, domain.StatusProofing); err != nil {
				return err
			}
			deadline := tx.Now().Add(l.Settings.Normalize().DisputeWindow)
			b.DisputeDeadline = &deadline
			b.DisputeActive = false
			b.Votes = map[string]domain.Vote{}
			if err := tx.ClearVotes(ctx, b.ID); err != nil {
				return err
			}
			if err := tx.UpdateBet(ctx, &b); err != nil {
				return err
			}
		}
		em.emit(domain.EventDisputeDecided, b, p.MemberID, from, map[string]string{
			"decision":  string(res.Decision),
			"votes":     strconv.Itoa(res.Votes),
			"wagerers":  strconv.Itoa(res.Wagerers),
			"approvals": strconv.Itoa(res.Approvals),
			"rejects":   strconv.Itoa(res.Rejects),
		})
		out = b
		return nil
	})
	return res, out, err
}
