// Package ledgertest monta um ledger SQLite em memória com dados de apoio para testes.
package ledgertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
	"github.com/radieske/league-wager-engine/internal/shared/db"
)

// Clock é um relógio manual compartilhado entre store e engine
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Epoch é o instante inicial padrão dos testes
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewStore abre um SQLite em memória já migrado
func NewStore(t testing.TB, clock *Clock) *ledger.SQLStore {
	t.Helper()
	conn, err := db.ConnectSQLite(":memory:")
	require.NoError(t, err)

	s := ledger.NewSQLStore(conn, ledger.SQLite, ledger.WithClock(clock.Now))
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// MemberSeed descreve um membro criado por SeedLeague
type MemberSeed struct {
	ID       string
	Role     domain.Role
	Balance  int64
	PowerUps map[domain.PowerUp]int
}

// SeedLeague cria a liga e seus membros; o saldo entra como GRANT no ledger
func SeedLeague(t testing.TB, s ledger.Store, id string, settings domain.Settings, members ...MemberSeed) domain.League {
	t.Helper()
	l := domain.League{ID: id, Name: "league " + id, Settings: settings.Normalize()}
	if len(members) > 0 {
		l.OwnerID = members[0].ID
	}

	err := s.InTx(context.Background(), func(tx ledger.Tx) error {
		if err := tx.InsertLeague(context.Background(), &l); err != nil {
			return err
		}
		for _, ms := range members {
			role := ms.Role
			if role == "" {
				role = domain.RoleMember
			}
			pups := map[domain.PowerUp]int{}
			for k, v := range ms.PowerUps {
				pups[k] = v
			}
			m := domain.Member{LeagueID: id, ID: ms.ID, Role: role, PowerUps: pups}
			if err := tx.InsertMember(context.Background(), &m); err != nil {
				return err
			}
			if err := ledger.Grant(context.Background(), tx, &m, ms.Balance); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return l
}

// SeedBet grava a bet diretamente, sem passar pela máquina de estados
func SeedBet(t testing.TB, s ledger.Store, b domain.Bet) domain.Bet {
	t.Helper()
	if b.Status == "" {
		b.Status = domain.StatusOpen
	}
	if b.Type == domain.BetChoice && b.OptionTotals == nil {
		b.OptionTotals = make([]int64, len(b.Options))
	}
	err := s.InTx(context.Background(), func(tx ledger.Tx) error {
		return tx.InsertBet(context.Background(), &b)
	})
	require.NoError(t, err)
	return b
}

// MatchBet devolve uma bet MATCH aberta que fecha em uma hora
func MatchBet(id, leagueID, creator string, now time.Time) domain.Bet {
	return domain.Bet{
		ID:        id,
		LeagueID:  leagueID,
		CreatorID: creator,
		Type:      domain.BetMatch,
		Question:  "Home vs Away",
		HomeTeam:  "Home",
		AwayTeam:  "Away",
		EventRef:  "evt-" + id,
		ClosesAt:  now.Add(time.Hour),
		EventAt:   now.Add(2 * time.Hour),
	}
}

// ChoiceBet devolve uma bet CHOICE aberta que fecha em uma hora
func ChoiceBet(id, leagueID, creator string, now time.Time, options ...string) domain.Bet {
	return domain.Bet{
		ID:           id,
		LeagueID:     leagueID,
		CreatorID:    creator,
		Type:         domain.BetChoice,
		Question:     "Who wins?",
		Options:      options,
		OptionTotals: make([]int64, len(options)),
		ClosesAt:     now.Add(time.Hour),
		EventAt:      now.Add(2 * time.Hour),
	}
}

// Place coloca uma aposta numa transação própria
func Place(t testing.TB, s ledger.Store, betID string, in ledger.WagerInput) domain.Wager {
	t.Helper()
	var w domain.Wager
	err := s.InTx(context.Background(), func(tx ledger.Tx) error {
		b, err := tx.GetBet(context.Background(), betID)
		if err != nil {
			return err
		}
		w, err = ledger.PlaceWager(context.Background(), tx, &b, in)
		return err
	})
	require.NoError(t, err)
	return w
}

// Balance lê o saldo atual de um membro
func Balance(t testing.TB, s ledger.Reader, leagueID, memberID string) int64 {
	t.Helper()
	m, err := s.GetMember(context.Background(), leagueID, memberID)
	require.NoError(t, err)
	return m.Balance
}
