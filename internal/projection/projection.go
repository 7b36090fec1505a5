// Package projection calcula a classificação ao vivo da liga: simula a liquidação das
// bets MATCH em andamento com o placar atual, sem escrever nada.
package projection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
	"github.com/radieske/league-wager-engine/internal/settlement"
)

// LiveScores é a fonte rápida de placares (cache Redis do livescore-processor)
type LiveScores interface {
	Score(ctx context.Context, eventRef string) (domain.MatchScore, bool, error)
}

// Entry é a linha de um membro na classificação projetada
type Entry struct {
	MemberID      string `json:"memberId"`
	Settled       int64  `json:"settled"`
	Projected     int64  `json:"projected"`
	AtStake       int64  `json:"atStake"`
	SettledRank   int    `json:"settledRank"`
	ProjectedRank int    `json:"projectedRank"`
	IsProjected   bool   `json:"projectedFlag"`
}

// BetScore registra qual placar foi usado em cada bet simulada
type BetScore struct {
	BetID  string            `json:"betId"`
	Score  domain.MatchScore `json:"score"`
	Source string            `json:"source"` // "cache" | "snapshot"
}

type Projection struct {
	LeagueID    string     `json:"leagueId"`
	Entries     []Entry    `json:"entries"`
	Bets        []BetScore `json:"bets"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

type Projector struct {
	store  ledger.Store
	scores LiveScores
	log    *zap.Logger
}

// NewProjector aceita scores nil; aí só o snapshot gravado na bet é usado
func NewProjector(store ledger.Store, scores LiveScores, log *zap.Logger) *Projector {
	return &Projector{store: store, scores: scores, log: log}
}

// Project recalcula a classificação a cada chamada
func (p *Projector) Project(ctx context.Context, leagueID string) (Projection, error) {
	l, err := p.store.GetLeague(ctx, leagueID)
	if err != nil {
		return Projection{}, err
	}
	members, err := p.store.ListMembers(ctx, leagueID)
	if err != nil {
		return Projection{}, fmt.Errorf("projection: members: %w", err)
	}
	bets, err := p.store.ListBets(ctx, ledger.BetFilter{
		LeagueID: leagueID,
		Statuses: []domain.BetStatus{domain.StatusLocked, domain.StatusProofing},
	})
	if err != nil {
		return Projection{}, fmt.Errorf("projection: bets: %w", err)
	}

	scores := p.liveScores(ctx, bets)

	delta := map[string]int64{}
	stake := map[string]int64{}
	out := Projection{LeagueID: leagueID, GeneratedAt: p.store.Now()}
	for _, b := range bets {
		sc, ok := scores[b.ID]
		if !ok {
			continue
		}
		ws, err := p.store.ListWagers(ctx, b.ID)
		if err != nil {
			return Projection{}, fmt.Errorf("projection: wagers: %w", err)
		}
		res, err := settlement.Calculate(b, ws, sc.Score, l.Settings)
		if err != nil {
			p.log.Warn("projection skipped bet", zap.String("bet_id", b.ID), zap.Error(err))
			continue
		}
		byWager := res.ByWager()
		for _, w := range ws {
			// já liquidadas (liquidação em lotes) estão no saldo
			if w.Status.Terminal() {
				continue
			}
			delta[w.MemberID] += byWager[w.ID].Payout
			stake[w.MemberID] += w.Amount
		}
		out.Bets = append(out.Bets, sc)
	}

	for _, m := range members {
		out.Entries = append(out.Entries, Entry{
			MemberID:    m.ID,
			Settled:     m.Balance,
			Projected:   m.Balance + delta[m.ID],
			AtStake:     stake[m.ID],
			IsProjected: true,
		})
	}
	rank(out.Entries)
	return out, nil
}

// liveScores busca os placares em paralelo: cache primeiro, snapshot da bet depois.
// Erro no cache não derruba a projeção.
func (p *Projector) liveScores(ctx context.Context, bets []domain.Bet) map[string]BetScore {
	found := make([]*BetScore, len(bets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, b := range bets {
		if b.Type != domain.BetMatch {
			continue
		}
		i, b := i, b
		g.Go(func() error {
			if p.scores != nil && b.EventRef != "" {
				sc, ok, err := p.scores.Score(gctx, b.EventRef)
				if err != nil && !errors.Is(err, context.Canceled) {
					p.log.Warn("live score cache", zap.String("event_ref", b.EventRef), zap.Error(err))
				}
				if err == nil && ok {
					found[i] = &BetScore{BetID: b.ID, Score: sc, Source: "cache"}
					return nil
				}
			}
			if b.LiveScore != nil {
				found[i] = &BetScore{BetID: b.ID, Score: *b.LiveScore, Source: "snapshot"}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]BetScore, len(bets))
	for _, s := range found {
		if s != nil {
			out[s.BetID] = *s
		}
	}
	return out
}

// rank ordena por saldo projetado e preenche as posições (empates dividem a posição)
func rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Settled != entries[j].Settled {
			return entries[i].Settled > entries[j].Settled
		}
		return entries[i].MemberID < entries[j].MemberID
	})
	for i := range entries {
		if i > 0 && entries[i].Settled == entries[i-1].Settled {
			entries[i].SettledRank = entries[i-1].SettledRank
		} else {
			entries[i].SettledRank = i + 1
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Projected != entries[j].Projected {
			return entries[i].Projected > entries[j].Projected
		}
		return entries[i].MemberID < entries[j].MemberID
	})
	for i := range entries {
		if i > 0 && entries[i].Projected == entries[i-1].Projected {
			entries[i].ProjectedRank = entries[i-1].ProjectedRank
		} else {
			entries[i].ProjectedRank = i + 1
		}
	}
}
