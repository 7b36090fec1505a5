// Package betting é o núcleo do ciclo de vida das bets: valida cada transição da
// máquina de estados e aplica, na mesma transação do ledger, os movimentos de pontos
// e a liquidação. Eventos são publicados só depois do commit.
package betting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
)

// Publisher entrega eventos de transição para os consumidores externos
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// PublisherFunc adapta uma função a Publisher
type PublisherFunc func(ctx context.Context, ev domain.Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev domain.Event) error { return f(ctx, ev) }

// Hooks são callbacks de métricas; todos opcionais
type Hooks struct {
	OnTransition func(from, to domain.BetStatus)
	OnError      func(op string, err error)
	OnRetry      func(op string)
	OnSettled    func(status domain.WagerStatus, payout int64)
}

type Engine struct {
	store ledger.Store
	log   *zap.Logger
	pub   Publisher
	retry ledger.RetryPolicy
	hooks Hooks

	// chunk > 0 liquida no máximo chunk apostas por transação
	chunk int
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

func WithRetry(p ledger.RetryPolicy) Option { return func(e *Engine) { e.retry = p } }

func WithHooks(h Hooks) Option { return func(e *Engine) { e.hooks = h } }

// WithSettleChunkSize limita quantas apostas cada transação de liquidação toca
func WithSettleChunkSize(n int) Option { return func(e *Engine) { e.chunk = n } }

func NewEngine(store ledger.Store, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   log,
		retry: ledger.DefaultRetry,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Store expõe as leituras do ledger para a camada HTTP e a projeção
func (e *Engine) Store() ledger.Reader { return e.store }

// Now é o relógio do ledger, o mesmo usado nos prazos
func (e *Engine) Now() time.Time { return e.store.Now() }

// emitter acumula eventos de uma tentativa de transação
type emitter struct {
	events  []domain.Event
	settled []settledWager
	now     time.Time
}

type settledWager struct {
	status domain.WagerStatus
	payout int64
}

func (em *emitter) emit(typ domain.EventType, b domain.Bet, memberID string, from domain.BetStatus, detail map[string]string) {
	em.events = append(em.events, domain.Event{
		Type:     typ,
		BetID:    b.ID,
		LeagueID: b.LeagueID,
		MemberID: memberID,
		From:     from,
		To:       b.Status,
		Detail:   detail,
		At:       em.now,
	})
}

// run executa fn com retry em conflito e publica os eventos da tentativa que fez commit
func (e *Engine) run(ctx context.Context, op string, fn func(tx ledger.Tx, em *emitter) error) error {
	policy := e.retry
	policy.OnRetry = func(attempt int, err error) {
		e.log.Debug("transaction conflict, retrying", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		if e.hooks.OnRetry != nil {
			e.hooks.OnRetry(op)
		}
	}

	em := &emitter{}
	err := ledger.WithTransaction(ctx, e.store, policy, func(tx ledger.Tx) error {
		em.events = em.events[:0]
		em.settled = em.settled[:0]
		em.now = tx.Now()
		return fn(tx, em)
	})
	if err != nil {
		if e.hooks.OnError != nil {
			e.hooks.OnError(op, err)
		}
		return err
	}

	if e.hooks.OnSettled != nil {
		for _, sw := range em.settled {
			e.hooks.OnSettled(sw.status, sw.payout)
		}
	}
	for _, ev := range em.events {
		if ev.From != "" && ev.From != ev.To && e.hooks.OnTransition != nil {
			e.hooks.OnTransition(ev.From, ev.To)
		}
		if e.pub == nil {
			continue
		}
		if err := e.pub.Publish(ctx, ev); err != nil {
			// o commit já aconteceu; falha de entrega não desfaz a operação
			e.log.Warn("publish event failed", zap.String("type", string(ev.Type)), zap.String("bet_id", ev.BetID), zap.Error(err))
		}
	}
	return nil
}

// loadBet lê a bet e aplica o travamento preguiçoso quando o prazo de apostas passou
func (e *Engine) loadBet(ctx context.Context, tx ledger.Tx, id string, em *emitter) (domain.Bet, error) {
	b, err := tx.GetBet(ctx, id)
	if err != nil {
		return domain.Bet{}, err
	}
	if b.Status == domain.StatusOpen && !tx.Now().Before(b.ClosesAt) {
		from := b.Status
		if err := move(&b, domain.StatusLocked); err != nil {
			return domain.Bet{}, err
		}
		if err := tx.UpdateBet(ctx, &b); err != nil {
			return domain.Bet{}, err
		}
		em.emit(domain.EventBetLocked, b, "", from, map[string]string{"reason": "closes_at"})
	}
	return b, nil
}

// member devolve o membro da liga ou ErrForbidden
func member(ctx context.Context, tx ledger.Reader, leagueID string, p domain.Principal) (domain.Member, error) {
	if p.MemberID == "" {
		return domain.Member{}, fmt.Errorf("%w: anonymous principal", domain.ErrForbidden)
	}
	m, err := tx.GetMember(ctx, leagueID, p.MemberID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Member{}, fmt.Errorf("%w: %s is not a member of league %s", domain.ErrForbidden, p.MemberID, leagueID)
	}
	return m, err
}

// authorize aceita o sistema, o dono/admin da liga ou o criador da bet
func authorize(ctx context.Context, tx ledger.Reader, b domain.Bet, p domain.Principal) error {
	if p.System {
		return nil
	}
	m, err := member(ctx, tx, b.LeagueID, p)
	if err != nil {
		return err
	}
	if m.CanManage() || b.CreatorID == p.MemberID {
		return nil
	}
	return fmt.Errorf("%w: %s cannot manage bet %s", domain.ErrForbidden, p.MemberID, b.ID)
}

// wagerers lista os membros com aposta na bet (universo de votação)
func wagerers(ws []domain.Wager) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.MemberID)
	}
	return out
}

// ownWager lê a aposta do membro; ausência vira ErrNotWagering
func ownWager(ctx context.Context, tx ledger.Reader, betID, memberID string) (domain.Wager, error) {
	w, err := tx.GetWager(ctx, betID, memberID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Wager{}, fmt.Errorf("%w: %s on bet %s", domain.ErrNotWagering, memberID, betID)
	}
	return w, err
}
