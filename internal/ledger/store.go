// Package ledger é o armazenamento transacional de ligas, membros, bets e apostas,
// e o ledger de pontos que movimenta saldos dentro dessas transações.
package ledger

import (
	"context"
	"time"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// BetFilter restringe ListBets
type BetFilter struct {
	LeagueID string
	Statuses []domain.BetStatus
	// AutoConfirmOnly retorna só bets com auto-confirmação ligada
	AutoConfirmOnly bool
	// DueBefore, se preenchido, retorna só bets com auto-confirmação vencida até o instante
	DueBefore time.Time
	Limit     int
	Offset    int
}

// Reader são as leituras disponíveis fora e dentro de uma transação
type Reader interface {
	GetLeague(ctx context.Context, id string) (domain.League, error)
	GetMember(ctx context.Context, leagueID, memberID string) (domain.Member, error)
	ListMembers(ctx context.Context, leagueID string) ([]domain.Member, error)
	GetBet(ctx context.Context, id string) (domain.Bet, error)
	ListBets(ctx context.Context, f BetFilter) ([]domain.Bet, error)
	GetWager(ctx context.Context, betID, memberID string) (domain.Wager, error)
	ListWagers(ctx context.Context, betID string) ([]domain.Wager, error)
	ListEntries(ctx context.Context, leagueID, memberID string) ([]domain.LedgerEntry, error)
}

// Tx é uma transação atômica. Updates usam controle otimista por version:
// se outra transação alterou o documento, retorna domain.ErrConcurrentModification.
type Tx interface {
	Reader

	// Now é o relógio do servidor usado para campos de auditoria
	Now() time.Time

	InsertLeague(ctx context.Context, l *domain.League) error
	UpdateLeague(ctx context.Context, l *domain.League) error
	InsertMember(ctx context.Context, m *domain.Member) error
	UpdateMember(ctx context.Context, m *domain.Member) error

	InsertBet(ctx context.Context, b *domain.Bet) error
	// UpdateBet grava o documento da bet (sem votos, disputantes e placar ao vivo)
	UpdateBet(ctx context.Context, b *domain.Bet) error
	// TouchBet só incrementa a version, serializando escritas concorrentes na bet
	TouchBet(ctx context.Context, b *domain.Bet) error

	InsertWager(ctx context.Context, w *domain.Wager) error
	UpdateWager(ctx context.Context, w *domain.Wager) error
	DeleteWager(ctx context.Context, w *domain.Wager) error

	// AddDisputer e PutVote fazem merge por chave (uma linha por membro);
	// retornam false se a chave já existia
	AddDisputer(ctx context.Context, betID, memberID string) (bool, error)
	PutVote(ctx context.Context, betID, memberID string, v domain.Vote) (bool, error)
	ClearVotes(ctx context.Context, betID string) error
	// ClearDisputers zera os disputantes quando um novo resultado é proposto
	ClearDisputers(ctx context.Context, betID string) error

	AppendEntry(ctx context.Context, e *domain.LedgerEntry) error
}

// Store é o Ledger Store completo
type Store interface {
	Reader

	Now() time.Time

	// InTx executa fn numa única transação (uma tentativa). Qualquer erro desfaz tudo.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// UpdateLiveScore grava o snapshot de placar ao vivo das bets de um evento externo.
	// Não toca saldos, apostas nem a version da bet.
	UpdateLiveScore(ctx context.Context, eventRef string, score domain.MatchScore) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
