package settlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/settlement"
)

func matchBet() domain.Bet {
	return domain.Bet{ID: "B1", Type: domain.BetMatch}
}

func choiceBet(options ...string) domain.Bet {
	return domain.Bet{ID: "B2", Type: domain.BetChoice, Options: options}
}

func matchWager(id string, amount int64, home, away int, pu domain.PowerUp) domain.Wager {
	return domain.Wager{ID: id, MemberID: "m-" + id, Amount: amount, Selection: domain.MatchScore{Home: home, Away: away}, PowerUp: pu, Status: domain.WagerPending}
}

func choiceWager(id string, amount int64, option int) domain.Wager {
	return domain.Wager{ID: id, MemberID: "m-" + id, Amount: amount, Selection: domain.ChoiceIndex(option), Status: domain.WagerPending}
}

func TestTier_Precedence(t *testing.T) {
	s := domain.Settings{Exact: 3, Diff: 2, Winner: 1}
	actual := domain.MatchScore{Home: 2, Away: 1}

	tests := []struct {
		name string
		pred domain.MatchScore
		want int64
	}{
		{"exact", domain.MatchScore{Home: 2, Away: 1}, 3},
		{"same difference", domain.MatchScore{Home: 3, Away: 2}, 2},
		{"same winner", domain.MatchScore{Home: 4, Away: 0}, 1},
		{"wrong winner", domain.MatchScore{Home: 1, Away: 2}, 0},
		{"draw predicted", domain.MatchScore{Home: 1, Away: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, settlement.Tier(tt.pred, actual, s))
		})
	}
}

func TestTier_ExcludeDrawDiff(t *testing.T) {
	actual := domain.MatchScore{Home: 1, Away: 1}
	pred := domain.MatchScore{Home: 0, Away: 0}

	s := domain.Settings{Exact: 3, Diff: 2, Winner: 1}
	assert.Equal(t, int64(2), settlement.Tier(pred, actual, s))

	s.ExcludeDrawDiff = true
	assert.Equal(t, int64(1), settlement.Tier(pred, actual, s))
	assert.Equal(t, int64(3), settlement.Tier(actual, actual, s))
}

func TestCalculate_MatchStandardWithPowerUp(t *testing.T) {
	wagers := []domain.Wager{
		matchWager("w1", 10, 2, 1, domain.PowerUpX3),
		matchWager("w2", 10, 3, 2, domain.PowerUpNone),
		matchWager("w3", 10, 1, 2, domain.PowerUpX4),
	}

	res, err := settlement.Calculate(matchBet(), wagers, domain.MatchScore{Home: 2, Away: 1}, domain.DefaultSettings())
	require.NoError(t, err)

	out := res.ByWager()
	assert.Equal(t, int64(9), out["w1"].Points)
	assert.Equal(t, int64(19), out["w1"].Payout)
	assert.Equal(t, domain.WagerWon, out["w1"].Status)

	assert.Equal(t, int64(2), out["w2"].Points)
	assert.Equal(t, int64(12), out["w2"].Payout)

	assert.Equal(t, domain.WagerLost, out["w3"].Status)
	assert.Zero(t, out["w3"].Payout)

	assert.Equal(t, int64(30), res.Staked)
	assert.Equal(t, int64(31), res.Paid)
	assert.Equal(t, int64(1), res.Minted())
}

func TestCalculate_MatchZeroSumConserves(t *testing.T) {
	s := domain.DefaultSettings()
	s.Mode = domain.ModeZeroSum

	tests := []struct {
		name   string
		wagers []domain.Wager
	}{
		{"losers cover demand", []domain.Wager{
			matchWager("w1", 10, 2, 1, domain.PowerUpNone), // 3
			matchWager("w2", 10, 1, 0, domain.PowerUpNone), // 2
			matchWager("w3", 7, 0, 3, domain.PowerUpNone),
			matchWager("w4", 3, 0, 1, domain.PowerUpNone),
		}},
		{"losers short", []domain.Wager{
			matchWager("w1", 10, 2, 1, domain.PowerUpX4),   // 12
			matchWager("w2", 10, 5, 0, domain.PowerUpNone), // 1
			matchWager("w3", 4, 0, 0, domain.PowerUpNone),
		}},
		{"no losers", []domain.Wager{
			matchWager("w1", 10, 2, 1, domain.PowerUpNone),
			matchWager("w2", 5, 3, 0, domain.PowerUpNone),
		}},
		{"nobody right", []domain.Wager{
			matchWager("w1", 10, 0, 2, domain.PowerUpNone),
			matchWager("w2", 5, 1, 1, domain.PowerUpNone),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := settlement.Calculate(matchBet(), tt.wagers, domain.MatchScore{Home: 2, Away: 1}, s)
			require.NoError(t, err)
			assert.Zero(t, res.Minted())
			for i, o := range res.Outcomes {
				w := tt.wagers[i]
				assert.GreaterOrEqual(t, o.Payout, int64(0))
				if o.Status == domain.WagerLost {
					assert.LessOrEqual(t, o.Payout, w.Amount, "loser keeps at most its stake")
				} else {
					assert.GreaterOrEqual(t, o.Payout, w.Amount, "winner gets its stake back")
				}
			}
		})
	}
}

func TestCalculate_MatchZeroSumProportionalDraw(t *testing.T) {
	s := domain.DefaultSettings()
	s.Mode = domain.ModeZeroSum

	wagers := []domain.Wager{
		matchWager("w1", 10, 2, 1, domain.PowerUpNone), // exato: 3
		matchWager("w2", 30, 0, 2, domain.PowerUpNone),
		matchWager("w3", 10, 0, 1, domain.PowerUpNone),
	}
	res, err := settlement.Calculate(matchBet(), wagers, domain.MatchScore{Home: 2, Away: 1}, s)
	require.NoError(t, err)

	out := res.ByWager()
	assert.Equal(t, int64(3), out["w1"].Points)
	assert.Equal(t, int64(13), out["w1"].Payout)
	// 3 pontos retirados de 40 perdedores: 30 -> floor(2.25)=2 +1 de resto, 10 -> floor(0.75)=0
	assert.Equal(t, int64(27), out["w2"].Payout)
	assert.Equal(t, int64(10), out["w3"].Payout)
}

func TestCalculate_MatchZeroSumScalesWinnersDown(t *testing.T) {
	s := domain.DefaultSettings()
	s.Mode = domain.ModeZeroSum

	wagers := []domain.Wager{
		matchWager("w1", 10, 2, 1, domain.PowerUpX4),  // 12
		matchWager("w2", 0, 3, 2, domain.PowerUpNone), // 2
		matchWager("w3", 7, 0, 0, domain.PowerUpNone),
	}
	res, err := settlement.Calculate(matchBet(), wagers, domain.MatchScore{Home: 2, Away: 1}, s)
	require.NoError(t, err)

	out := res.ByWager()
	assert.Zero(t, out["w3"].Payout, "loser stake fully drawn")
	assert.Equal(t, int64(7), out["w1"].Points+out["w2"].Points)
	assert.Equal(t, int64(6), out["w1"].Points)
	assert.Equal(t, int64(1), out["w2"].Points)
}

func TestCalculate_ChoicePool(t *testing.T) {
	wagers := []domain.Wager{
		choiceWager("a", 100, 0),
		choiceWager("b", 50, 1),
	}
	res, err := settlement.Calculate(choiceBet("yes", "no"), wagers, domain.ChoiceIndex(0), domain.DefaultSettings())
	require.NoError(t, err)

	out := res.ByWager()
	assert.Equal(t, int64(150), out["a"].Payout)
	assert.Equal(t, int64(50), out["a"].Points)
	assert.Equal(t, domain.WagerWon, out["a"].Status)
	assert.Equal(t, domain.WagerLost, out["b"].Status)
	assert.Zero(t, out["b"].Payout)
	assert.Zero(t, res.Minted())
}

func TestCalculate_ChoicePoolTruncatesAndConserves(t *testing.T) {
	wagers := []domain.Wager{
		choiceWager("a", 33, 1),
		choiceWager("b", 33, 1),
		choiceWager("c", 34, 1),
		choiceWager("d", 17, 0),
		choiceWager("e", 4, 2),
	}
	res, err := settlement.Calculate(choiceBet("x", "y", "z"), wagers, domain.ChoiceIndex(1), domain.DefaultSettings())
	require.NoError(t, err)

	var paid int64
	for _, o := range res.Outcomes {
		paid += o.Payout
	}
	assert.LessOrEqual(t, paid, res.Staked)
	assert.Equal(t, int64(121), res.Staked)
	assert.Equal(t, int64(39), res.ByWager()["a"].Payout) // floor(33*121/100)
}

func TestCalculate_ChoiceNoWinningStake(t *testing.T) {
	wagers := []domain.Wager{choiceWager("a", 10, 0)}
	_, err := settlement.Calculate(choiceBet("x", "y"), wagers, domain.ChoiceIndex(1), domain.DefaultSettings())
	assert.ErrorIs(t, err, settlement.ErrNoWinningStake)
}

func TestCalculate_ChoiceFreePrediction(t *testing.T) {
	s := domain.DefaultSettings()
	s.Choice = 5
	wagers := []domain.Wager{
		choiceWager("a", 0, 0),
		choiceWager("b", 0, 1),
	}
	res, err := settlement.Calculate(choiceBet("x", "y"), wagers, domain.ChoiceIndex(1), s)
	require.NoError(t, err)

	out := res.ByWager()
	assert.Equal(t, domain.WagerLost, out["a"].Status)
	assert.Equal(t, domain.WagerWon, out["b"].Status)
	assert.Equal(t, int64(5), out["b"].Payout)

	res, err = settlement.Calculate(choiceBet("x", "y", "z"), wagers, domain.ChoiceIndex(2), s)
	require.NoError(t, err)
	for _, o := range res.Outcomes {
		assert.Equal(t, domain.WagerLost, o.Status)
	}
}

func TestCalculate_RejectsMismatchedOutcome(t *testing.T) {
	_, err := settlement.Calculate(matchBet(), nil, domain.ChoiceIndex(0), domain.DefaultSettings())
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)

	_, err = settlement.Calculate(choiceBet("x"), nil, domain.ChoiceIndex(3), domain.DefaultSettings())
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
}
