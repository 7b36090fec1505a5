package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
	"github.com/radieske/league-wager-engine/internal/ledger/ledgertest"
)

func placeErr(t *testing.T, s ledger.Store, betID string, in ledger.WagerInput) error {
	t.Helper()
	return s.InTx(context.Background(), func(tx ledger.Tx) error {
		b, err := tx.GetBet(context.Background(), betID)
		if err != nil {
			return err
		}
		_, err = ledger.PlaceWager(context.Background(), tx, &b, in)
		return err
	})
}

// entriesSum confere que o ledger de lançamentos reproduz o saldo
func entriesSum(t *testing.T, s ledger.Store, memberID string) int64 {
	t.Helper()
	entries, err := s.ListEntries(context.Background(), "L1", memberID)
	require.NoError(t, err)
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	return sum
}

func TestPlaceWager_DebitsAndUpdatesPool(t *testing.T) {
	s, clock := newLeague(t)
	ledgertest.SeedBet(t, s, ledgertest.ChoiceBet("B1", "L1", "owner", clock.Now(), "a", "b"))

	w := ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "alice", Amount: 100, Selection: domain.ChoiceIndex(0)})
	assert.Equal(t, domain.WagerPending, w.Status)
	ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 50, Selection: domain.ChoiceIndex(1)})

	assert.Equal(t, int64(400), ledgertest.Balance(t, s, "L1", "alice"))
	assert.Equal(t, int64(150), ledgertest.Balance(t, s, "L1", "bob"))
	assert.Equal(t, int64(400), entriesSum(t, s, "alice"))

	b, err := s.GetBet(context.Background(), "B1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), b.TotalPool)
	assert.Equal(t, []int64{100, 50}, b.OptionTotals)
}

func TestPlaceWager_Rejections(t *testing.T) {
	s, clock := newLeague(t)
	ledgertest.SeedBet(t, s, ledgertest.MatchBet("B1", "L1", "owner", clock.Now()))
	ledgertest.SeedBet(t, s, ledgertest.ChoiceBet("B2", "L1", "owner", clock.Now(), "a", "b"))

	score := domain.MatchScore{Home: 1, Away: 0}

	err := placeErr(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 201, Selection: score})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	err = placeErr(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 10, Selection: domain.ChoiceIndex(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)

	err = placeErr(t, s, "B2", ledger.WagerInput{MemberID: "bob", Amount: 10, Selection: domain.ChoiceIndex(2)})
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)

	err = placeErr(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 10, Selection: score, PowerUp: domain.PowerUpX2})
	assert.ErrorIs(t, err, domain.ErrPowerUpUnavailable)

	err = placeErr(t, s, "B2", ledger.WagerInput{MemberID: "alice", Amount: 10, Selection: domain.ChoiceIndex(0), PowerUp: domain.PowerUpX3})
	assert.ErrorIs(t, err, domain.ErrPowerUpUnavailable)

	ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 10, Selection: score})
	err = placeErr(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 10, Selection: score})
	assert.ErrorIs(t, err, domain.ErrDuplicateWager)

	// rejeições não movem saldo
	assert.Equal(t, int64(190), ledgertest.Balance(t, s, "L1", "bob"))

	clock.Advance(2 * time.Hour)
	err = placeErr(t, s, "B2", ledger.WagerInput{MemberID: "bob", Amount: 10, Selection: domain.ChoiceIndex(0)})
	assert.ErrorIs(t, err, domain.ErrBetNotOpen)
}

func TestPlaceWager_ConsumesPowerUp(t *testing.T) {
	s, clock := newLeague(t)
	ledgertest.SeedBet(t, s, ledgertest.MatchBet("B1", "L1", "owner", clock.Now()))

	w := ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "alice", Amount: 10, Selection: domain.MatchScore{Home: 2, Away: 1}, PowerUp: domain.PowerUpX3})
	assert.Equal(t, domain.PowerUpX3, w.PowerUp)

	m, err := s.GetMember(context.Background(), "L1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, m.PowerUps[domain.PowerUpX3])
}

func TestEditWager_ReplacesStakeAndSelection(t *testing.T) {
	s, clock := newLeague(t)
	ctx := context.Background()
	ledgertest.SeedBet(t, s, ledgertest.ChoiceBet("B1", "L1", "owner", clock.Now(), "a", "b"))
	ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "alice", Amount: 100, Selection: domain.ChoiceIndex(0)})

	err := s.InTx(ctx, func(tx ledger.Tx) error {
		b, err := tx.GetBet(ctx, "B1")
		if err != nil {
			return err
		}
		w, err := tx.GetWager(ctx, "B1", "alice")
		if err != nil {
			return err
		}
		return ledger.EditWager(ctx, tx, &b, &w, ledger.WagerInput{MemberID: "alice", Amount: 30, Selection: domain.ChoiceIndex(1)})
	})
	require.NoError(t, err)

	assert.Equal(t, int64(470), ledgertest.Balance(t, s, "L1", "alice"))
	assert.Equal(t, int64(470), entriesSum(t, s, "alice"))

	b, err := s.GetBet(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 30}, b.OptionTotals)
	assert.Equal(t, int64(30), b.TotalPool)

	w, err := s.GetWager(ctx, "B1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.ChoiceIndex(1), w.Selection)
}

func TestEditWager_InsufficientBalanceKeepsOriginal(t *testing.T) {
	s, clock := newLeague(t)
	ctx := context.Background()
	ledgertest.SeedBet(t, s, ledgertest.MatchBet("B1", "L1", "owner", clock.Now()))
	ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 150, Selection: domain.MatchScore{Home: 0, Away: 0}})

	err := s.InTx(ctx, func(tx ledger.Tx) error {
		b, err := tx.GetBet(ctx, "B1")
		if err != nil {
			return err
		}
		w, err := tx.GetWager(ctx, "B1", "bob")
		if err != nil {
			return err
		}
		return ledger.EditWager(ctx, tx, &b, &w, ledger.WagerInput{MemberID: "bob", Amount: 201, Selection: domain.MatchScore{Home: 1, Away: 0}})
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, int64(50), ledgertest.Balance(t, s, "L1", "bob"))
}

func TestCancelWager_RestoresBalanceAndPowerUp(t *testing.T) {
	s, clock := newLeague(t)
	ctx := context.Background()
	ledgertest.SeedBet(t, s, ledgertest.MatchBet("B1", "L1", "owner", clock.Now()))
	ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "alice", Amount: 40, Selection: domain.MatchScore{Home: 1, Away: 1}, PowerUp: domain.PowerUpX3})

	err := s.InTx(ctx, func(tx ledger.Tx) error {
		b, err := tx.GetBet(ctx, "B1")
		if err != nil {
			return err
		}
		w, err := tx.GetWager(ctx, "B1", "alice")
		if err != nil {
			return err
		}
		return ledger.CancelWager(ctx, tx, &b, &w)
	})
	require.NoError(t, err)

	m, err := s.GetMember(ctx, "L1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(500), m.Balance)
	assert.Equal(t, 1, m.PowerUps[domain.PowerUpX3])

	_, err = s.GetWager(ctx, "B1", "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettle_IsIdempotent(t *testing.T) {
	s, clock := newLeague(t)
	ctx := context.Background()
	ledgertest.SeedBet(t, s, ledgertest.MatchBet("B1", "L1", "owner", clock.Now()))
	ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "bob", Amount: 100, Selection: domain.MatchScore{Home: 1, Away: 0}})

	settle := func() bool {
		var applied bool
		require.NoError(t, s.InTx(ctx, func(tx ledger.Tx) error {
			w, err := tx.GetWager(ctx, "B1", "bob")
			if err != nil {
				return err
			}
			applied, err = ledger.Settle(ctx, tx, &w, domain.WagerWon, 3, 103)
			return err
		}))
		return applied
	}

	assert.True(t, settle())
	assert.False(t, settle())

	assert.Equal(t, int64(203), ledgertest.Balance(t, s, "L1", "bob"))
	assert.Equal(t, int64(203), entriesSum(t, s, "bob"))

	w, err := s.GetWager(ctx, "B1", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.WagerWon, w.Status)
	assert.Equal(t, int64(3), w.Points)
	require.NotNil(t, w.SettledAt)
	assert.True(t, clock.Now().Equal(*w.SettledAt))
}

func TestRefund_IsIdempotent(t *testing.T) {
	s, clock := newLeague(t)
	ctx := context.Background()
	ledgertest.SeedBet(t, s, ledgertest.MatchBet("B1", "L1", "owner", clock.Now()))
	ledgertest.Place(t, s, "B1", ledger.WagerInput{MemberID: "alice", Amount: 60, Selection: domain.MatchScore{Home: 0, Away: 2}, PowerUp: domain.PowerUpX3})

	refund := func() bool {
		var applied bool
		require.NoError(t, s.InTx(ctx, func(tx ledger.Tx) error {
			w, err := tx.GetWager(ctx, "B1", "alice")
			if err != nil {
				return err
			}
			applied, err = ledger.Refund(ctx, tx, &w)
			return err
		}))
		return applied
	}

	assert.True(t, refund())
	assert.False(t, refund())

	m, err := s.GetMember(ctx, "L1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(500), m.Balance)
	assert.Equal(t, 1, m.PowerUps[domain.PowerUpX3])

	w, err := s.GetWager(ctx, "B1", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.WagerPush, w.Status)
}
