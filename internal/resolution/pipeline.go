package resolution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
)

// Hooks de métricas do pipeline; todos opcionais
type Hooks struct {
	OnLookup   func(provider string, status VerificationStatus, err error)
	OnProposed func(source string)
}

type Pipeline struct {
	engine    *betting.Engine
	locker    Locker
	providers []Provider
	log       *zap.Logger
	hooks     Hooks

	minConfidence float64
	lockTTL       time.Duration
	concurrency   int
	batch         int
}

type Option func(*Pipeline)

// WithMinConfidence define a confiança mínima para aceitar um FOUND (padrão 0.8)
func WithMinConfidence(c float64) Option { return func(p *Pipeline) { p.minConfidence = c } }

func WithLockTTL(d time.Duration) Option { return func(p *Pipeline) { p.lockTTL = d } }

func WithConcurrency(n int) Option { return func(p *Pipeline) { p.concurrency = n } }

func WithBatchSize(n int) Option { return func(p *Pipeline) { p.batch = n } }

func WithHooks(h Hooks) Option { return func(p *Pipeline) { p.hooks = h } }

// NewPipeline monta o pipeline; providers ficam na ordem de preferência padrão
func NewPipeline(engine *betting.Engine, locker Locker, log *zap.Logger, providers []Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:        engine,
		locker:        locker,
		providers:     providers,
		log:           log,
		minConfidence: 0.8,
		lockTTL:       2 * time.Minute,
		concurrency:   4,
		batch:         200,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Report resume uma rodada
type Report struct {
	Due         int
	Proposed    int
	Unavailable int
	Skipped     int
	Failed      int
}

type outcome int

const (
	outcomeProposed outcome = iota
	outcomeUnavailable
	outcomeSkipped
	outcomeFailed
)

// RunOnce processa as bets LOCKED com auto-confirmação vencida
func (p *Pipeline) RunOnce(ctx context.Context) (Report, error) {
	var rep Report
	now := p.engine.Now()
	bets, err := p.dueBets(ctx, now)
	if err != nil {
		return rep, fmt.Errorf("list due bets: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, b := range bets {
		if !b.AutoConfirmDue(now) {
			continue
		}
		rep.Due++
		b := b
		g.Go(func() error {
			out := p.resolve(gctx, b)
			mu.Lock()
			defer mu.Unlock()
			switch out {
			case outcomeProposed:
				rep.Proposed++
			case outcomeUnavailable:
				rep.Unavailable++
			case outcomeSkipped:
				rep.Skipped++
			default:
				rep.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()
	return rep, ctx.Err()
}

// dueBets pagina todas as bets vencidas antes de processar; bets que seguem LOCKED
// (evento sem resultado) não podem esconder as mais novas atrás do limite
func (p *Pipeline) dueBets(ctx context.Context, now time.Time) ([]domain.Bet, error) {
	var out []domain.Bet
	for {
		page, err := p.engine.Store().ListBets(ctx, ledger.BetFilter{
			Statuses:  []domain.BetStatus{domain.StatusLocked},
			DueBefore: now,
			Limit:     p.batch,
			Offset:    len(out),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if p.batch <= 0 || len(page) < p.batch {
			return out, nil
		}
	}
}

func (p *Pipeline) resolve(ctx context.Context, b domain.Bet) outcome {
	log := p.log.With(zap.String("bet_id", b.ID))

	unlock, err := p.locker.Acquire(ctx, "bet-resolution:"+b.ID, p.lockTTL)
	if errors.Is(err, ErrLockHeld) {
		log.Debug("bet already being resolved")
		return outcomeSkipped
	}
	if err != nil {
		log.Warn("acquire lock", zap.Error(err))
		return outcomeFailed
	}
	defer unlock()

	// consulta externa sempre fora da transação
	res, err := p.Verify(ctx, b)
	if err != nil {
		log.Info("verification unavailable, bet stays locked", zap.Error(err))
		return outcomeUnavailable
	}

	v := &domain.Verification{
		Source:     res.Source,
		Confidence: res.Confidence,
		Detail:     res.Detail,
		CheckedAt:  p.engine.Now(),
	}
	_, err = p.engine.ProposeResult(ctx, domain.SystemPrincipal, b.ID, res.Outcome, v)
	switch {
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrConcurrentModification):
		log.Info("lost race to another proposal", zap.Error(err))
		return outcomeSkipped
	case err != nil:
		log.Error("propose result", zap.Error(err))
		return outcomeFailed
	}

	log.Info("result proposed", zap.String("source", res.Source), zap.Float64("confidence", res.Confidence))
	if p.hooks.OnProposed != nil {
		p.hooks.OnProposed(res.Source)
	}
	return outcomeProposed
}

// Verify consulta os provedores em ordem (Bet.DataSource primeiro) e devolve o
// primeiro FOUND com confiança suficiente e seleção válida para a bet.
func (p *Pipeline) Verify(ctx context.Context, b domain.Bet) (VerificationResult, error) {
	var reasons []string
	for _, prov := range p.ordered(b) {
		res, err := prov.Lookup(ctx, b)
		if p.hooks.OnLookup != nil {
			p.hooks.OnLookup(prov.Name(), res.Status, err)
		}
		switch {
		case err != nil:
			p.log.Warn("provider lookup failed", zap.String("provider", prov.Name()), zap.String("bet_id", b.ID), zap.Error(err))
			reasons = append(reasons, prov.Name()+": "+err.Error())
		case res.Status != StatusFound:
			reasons = append(reasons, prov.Name()+": "+res.Detail)
		case res.Confidence < p.minConfidence:
			reasons = append(reasons, fmt.Sprintf("%s: confidence %.2f", prov.Name(), res.Confidence))
		case domain.ValidateSelection(b, res.Outcome) != nil:
			reasons = append(reasons, prov.Name()+": outcome does not fit bet")
		default:
			if res.Source == "" {
				res.Source = prov.Name()
			}
			return res, nil
		}
	}
	return VerificationResult{}, fmt.Errorf("%w: bet %s %v", domain.ErrVerificationUnavailable, b.ID, reasons)
}

func (p *Pipeline) ordered(b domain.Bet) []Provider {
	if b.DataSource == "" {
		return p.providers
	}
	out := make([]Provider, 0, len(p.providers))
	for _, prov := range p.providers {
		if prov.Name() == b.DataSource {
			out = append(out, prov)
		}
	}
	for _, prov := range p.providers {
		if prov.Name() != b.DataSource {
			out = append(out, prov)
		}
	}
	return out
}
