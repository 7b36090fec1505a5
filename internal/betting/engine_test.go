package betting_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
	"github.com/radieske/league-wager-engine/internal/ledger/ledgertest"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) count(typ domain.EventType) int {
	n := 0
	for _, t := range r.types() {
		if t == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	store  ledger.Store
	clock  *ledgertest.Clock
	engine *betting.Engine
	events *recorder
}

var members = []string{"a", "b", "c", "d", "e"}

func newFixture(t *testing.T, settings domain.Settings, opts ...betting.Option) *fixture {
	return newFixtureWith(t, settings, nil, opts...)
}

// newFixtureWith permite envolver o store (injeção de falhas)
func newFixtureWith(t *testing.T, settings domain.Settings, wrap func(ledger.Store) ledger.Store, opts ...betting.Option) *fixture {
	clock := ledgertest.NewClock(ledgertest.Epoch)
	var store ledger.Store = ledgertest.NewStore(t, clock)

	seeds := []ledgertest.MemberSeed{{ID: "owner", Role: domain.RoleOwner, Balance: 1000}}
	for _, id := range members {
		seeds = append(seeds, ledgertest.MemberSeed{ID: id, Balance: 1000})
	}
	ledgertest.SeedLeague(t, store, "L1", settings, seeds...)

	if wrap != nil {
		store = wrap(store)
	}
	rec := &recorder{}
	opts = append([]betting.Option{betting.WithPublisher(rec)}, opts...)
	return &fixture{
		store:  store,
		clock:  clock,
		engine: betting.NewEngine(store, zaptest.NewLogger(t), opts...),
		events: rec,
	}
}

func as(id string) domain.Principal { return domain.Principal{MemberID: id} }

func (f *fixture) choiceBet(t *testing.T, options ...string) domain.Bet {
	t.Helper()
	b, err := f.engine.CreateBet(context.Background(), as("owner"), betting.NewBet{
		LeagueID: "L1",
		Type:     domain.BetChoice,
		Question: "Who wins?",
		Options:  options,
		ClosesAt: f.clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) matchBet(t *testing.T) domain.Bet {
	t.Helper()
	b, err := f.engine.CreateBet(context.Background(), as("owner"), betting.NewBet{
		LeagueID: "L1",
		Type:     domain.BetMatch,
		HomeTeam: "Home",
		AwayTeam: "Away",
		EventRef: "match-1",
		ClosesAt: f.clock.Now().Add(time.Hour),
		EventAt:  f.clock.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) place(t *testing.T, member, betID string, amount int64, sel domain.Selection) domain.Wager {
	t.Helper()
	w, err := f.engine.PlaceWager(context.Background(), as(member), betID, betting.WagerRequest{Amount: amount, Selection: sel})
	require.NoError(t, err)
	return w
}

func (f *fixture) balance(t *testing.T, member string) int64 {
	t.Helper()
	return ledgertest.Balance(t, f.store, "L1", member)
}

func (f *fixture) lockAndPropose(t *testing.T, betID string, outcome domain.Selection) domain.Bet {
	t.Helper()
	ctx := context.Background()
	_, err := f.engine.Lock(ctx, as("owner"), betID)
	require.NoError(t, err)
	b, err := f.engine.ProposeResult(ctx, as("owner"), betID, outcome, nil)
	require.NoError(t, err)
	return b
}

func TestEngine_ChoiceEndToEnd(t *testing.T) {
	f := newFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	bet := f.choiceBet(t, "left", "right")
	f.place(t, "a", bet.ID, 100, domain.ChoiceIndex(0))
	f.place(t, "b", bet.ID, 50, domain.ChoiceIndex(1))

	b := f.lockAndPropose(t, bet.ID, domain.ChoiceIndex(0))
	assert.Equal(t, domain.StatusProofing, b.Status)
	require.NotNil(t, b.DisputeDeadline)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), *b.DisputeDeadline)

	b, err := f.engine.Finalize(ctx, as("owner"), bet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, b.Status)
	assert.Equal(t, domain.ChoiceIndex(0), b.WinningOutcome)
	require.NotNil(t, b.ResolvedAt)

	assert.Equal(t, int64(1050), f.balance(t, "a"))
	assert.Equal(t, int64(950), f.balance(t, "b"))

	ws, err := f.engine.ListWagers(ctx, bet.ID)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	for _, w := range ws {
		switch w.MemberID {
		case "a":
			assert.Equal(t, domain.WagerWon, w.Status)
			assert.Equal(t, int64(150), w.Payout)
		case "b":
			assert.Equal(t, domain.WagerLost, w.Status)
			assert.Zero(t, w.Payout)
		}
	}

	// segunda liquidação não paga de novo
	_, err = f.engine.Finalize(ctx, as("owner"), bet.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	assert.Equal(t, int64(1050), f.balance(t, "a"))

	assert.Equal(t, []domain.EventType{
		domain.EventBetCreated,
		domain.EventWagerPlaced,
		domain.EventWagerPlaced,
		domain.EventBetLocked,
		domain.EventResultProposed,
		domain.EventBetResolved,
	}, f.events.types())
}

func TestEngine_MatchTiersWithPowerUp(t *testing.T) {
	f := newFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	_, err := f.engine.GrantPowerUp(ctx, as("a"), "L1", "a", domain.PowerUpX3, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	m, err := f.engine.GrantPowerUp(ctx, as("owner"), "L1", "a", domain.PowerUpX3, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.PowerUps[domain.PowerUpX3])

	bet := f.matchBet(t)
	_, err = f.engine.PlaceWager(ctx, as("a"), bet.ID, betting.WagerRequest{Amount: 10, Selection: domain.MatchScore{Home: 2, Away: 1}, PowerUp: domain.PowerUpX3})
	require.NoError(t, err)
	f.place(t, "b", bet.ID, 10, domain.MatchScore{Home: 3, Away: 2})
	f.place(t, "c", bet.ID, 10, domain.MatchScore{Home: 4, Away: 0})
	f.place(t, "d", bet.ID, 10, domain.MatchScore{Home: 1, Away: 2})

	f.lockAndPropose(t, bet.ID, domain.MatchScore{Home: 2, Away: 1})
	_, err = f.engine.Finalize(ctx, as("owner"), bet.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1009), f.balance(t, "a")) // 3 x3
	assert.Equal(t, int64(1002), f.balance(t, "b"))
	assert.Equal(t, int64(1001), f.balance(t, "c"))
	assert.Equal(t, int64(990), f.balance(t, "d"))
}

func TestEngine_ZeroSumConservesLeagueBalance(t *testing.T) {
	s := domain.DefaultSettings()
	s.Mode = domain.ModeZeroSum
	f := newFixture(t, s)
	ctx := context.Background()

	total := func() int64 {
		var sum int64
		for _, id := range append([]string{"owner"}, members...) {
			sum += f.balance(t, id)
		}
		return sum
	}
	before := total()

	bet := f.matchBet(t)
	f.place(t, "a", bet.ID, 20, domain.MatchScore{Home: 2, Away: 1})
	f.place(t, "b", bet.ID, 20, domain.MatchScore{Home: 0, Away: 0})
	f.place(t, "c", bet.ID, 20, domain.MatchScore{Home: 1, Away: 2})
	f.place(t, "d", bet.ID, 20, domain.MatchScore{Home: 3, Away: 1})

	f.lockAndPropose(t, bet.ID, domain.MatchScore{Home: 2, Away: 1})
	_, err := f.engine.Finalize(ctx, as("owner"), bet.ID)
	require.NoError(t, err)

	assert.Equal(t, before, total())
	assert.Greater(t, f.balance(t, "a"), int64(1000))
	assert.Less(t, f.balance(t, "b"), int64(1000))
}

func TestEngine_ConcurrentWagersKeepPoolConsistent(t *testing.T) {
	f := newFixture(t, domain.DefaultSettings())
	bet := f.choiceBet(t, "x", "y")

	var wg sync.WaitGroup
	errs := make(chan error, len(members))
	for i, id := range members {
		wg.Add(1)
		go func(id string, opt int) {
			defer wg.Done()
			_, err := f.engine.PlaceWager(context.Background(), as(id), bet.ID, betting.WagerRequest{Amount: 10, Selection: domain.ChoiceIndex(opt)})
			errs <- err
		}(id, i%2)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	b, err := f.engine.GetBet(context.Background(), bet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), b.TotalPool)
	assert.Equal(t, []int64{30, 20}, b.OptionTotals)
}

func TestEngine_CreateBetValidation(t *testing.T) {
	f := newFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	_, err := f.engine.CreateBet(ctx, as("a"), betting.NewBet{LeagueID: "L1", Type: domain.BetChoice, Options: []string{"only"}, ClosesAt: f.clock.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, err = f.engine.CreateBet(ctx, as("a"), betting.NewBet{LeagueID: "L1", Type: domain.BetMatch, HomeTeam: "H", AwayTeam: "A", ClosesAt: f.clock.Now().Add(-time.Minute)})
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, err = f.engine.CreateBet(ctx, as("stranger"), betting.NewBet{LeagueID: "L1", Type: domain.BetMatch, HomeTeam: "H", AwayTeam: "A", ClosesAt: f.clock.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	b, err := f.engine.CreateBet(ctx, as("a"), betting.NewBet{LeagueID: "L1", Type: domain.BetMatch, HomeTeam: "H", AwayTeam: "A", ClosesAt: f.clock.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "H vs A", b.Question)
	assert.Equal(t, "a", b.CreatorID)
	assert.Equal(t, domain.StatusOpen, b.Status)
}

func TestEngine_CreateAndJoinLeague(t *testing.T) {
	f := newFixture(t, domain.DefaultSettings())
	ctx := context.Background()

	l, err := f.engine.CreateLeague(ctx, as("zoe"), betting.NewLeague{ID: "L2", Name: "Friday", StartingCapital: 500})
	require.NoError(t, err)
	assert.Equal(t, "zoe", l.OwnerID)
	assert.Equal(t, domain.DefaultSettings(), l.Settings)
	assert.Equal(t, int64(500), ledgertest.Balance(t, f.store, "L2", "zoe"))

	m, err := f.engine.JoinLeague(ctx, as("yan"), "L2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, m.Role)
	assert.Equal(t, int64(500), m.Balance)

	_, err = f.engine.JoinLeague(ctx, as("yan"), "L2")
	require.NoError(t, err)
	assert.Equal(t, int64(500), ledgertest.Balance(t, f.store, "L2", "yan"))

	exact, zeroSum := int64(5), domain.ModeZeroSum
	_, err = f.engine.UpdateSettings(ctx, as("yan"), "L2", domain.SettingsPatch{Exact: &exact})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.engine.SetRole(ctx, as("zoe"), "L2", "yan", domain.RoleAdmin)
	require.NoError(t, err)
	l, err = f.engine.UpdateSettings(ctx, as("yan"), "L2", domain.SettingsPatch{Exact: &exact, Mode: &zeroSum})
	require.NoError(t, err)
	assert.Equal(t, int64(5), l.Settings.Exact)
	assert.Equal(t, int64(2), l.Settings.Diff)
	assert.Equal(t, domain.ModeZeroSum, l.Settings.Mode)

	off := int64(0)
	l, err = f.engine.UpdateSettings(ctx, as("yan"), "L2", domain.SettingsPatch{Diff: &off})
	require.NoError(t, err)
	assert.Zero(t, l.Settings.Diff)
	assert.Equal(t, int64(5), l.Settings.Exact)

	bad := int64(-1)
	_, err = f.engine.UpdateSettings(ctx, as("yan"), "L2", domain.SettingsPatch{Winner: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidLeague)

	_, err = f.engine.JoinLeague(ctx, as("yan"), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
