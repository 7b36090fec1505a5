package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// Movimentos de saldo. Todas as funções rodam dentro de uma Tx e gravam um
// lançamento em ledger_entries com o delta assinado aplicado ao saldo, de modo
// que a soma dos lançamentos de um membro é sempre igual ao seu saldo.

// WagerInput é o palpite enviado na colocação ou edição de uma aposta
type WagerInput struct {
	MemberID  string
	Amount    int64
	Selection domain.Selection
	PowerUp   domain.PowerUp
}

// Grant credita pontos fora de uma bet (capital inicial da liga)
func Grant(ctx context.Context, tx Tx, m *domain.Member, amount int64) error {
	if amount <= 0 {
		return nil
	}
	m.Balance += amount
	if err := tx.UpdateMember(ctx, m); err != nil {
		return fmt.Errorf("ledger: grant: %w", err)
	}
	return appendEntry(ctx, tx, m.LeagueID, m.ID, "", "", domain.EntryGrant, amount)
}

// PlaceWager debita o stake, consome o power-up e soma o stake ao pool da bet
func PlaceWager(ctx context.Context, tx Tx, bet *domain.Bet, in WagerInput) (domain.Wager, error) {
	if err := checkOpen(tx, bet); err != nil {
		return domain.Wager{}, err
	}
	if err := validateInput(bet, in); err != nil {
		return domain.Wager{}, err
	}

	if _, err := tx.GetWager(ctx, bet.ID, in.MemberID); err == nil {
		return domain.Wager{}, fmt.Errorf("%w: member %s on bet %s", domain.ErrDuplicateWager, in.MemberID, bet.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Wager{}, fmt.Errorf("ledger: place wager: %w", err)
	}

	m, err := tx.GetMember(ctx, bet.LeagueID, in.MemberID)
	if err != nil {
		return domain.Wager{}, fmt.Errorf("ledger: place wager: %w", err)
	}
	if err := debit(&m, in); err != nil {
		return domain.Wager{}, err
	}
	if err := tx.UpdateMember(ctx, &m); err != nil {
		return domain.Wager{}, fmt.Errorf("ledger: place wager: %w", err)
	}

	addStake(bet, in.Selection, in.Amount)
	if err := tx.UpdateBet(ctx, bet); err != nil {
		return domain.Wager{}, fmt.Errorf("ledger: place wager: %w", err)
	}

	w := domain.Wager{
		BetID:     bet.ID,
		LeagueID:  bet.LeagueID,
		MemberID:  in.MemberID,
		Amount:    in.Amount,
		Selection: in.Selection,
		PowerUp:   in.PowerUp,
		Status:    domain.WagerPending,
		CreatedAt: tx.Now(),
	}
	if err := tx.InsertWager(ctx, &w); err != nil {
		return domain.Wager{}, fmt.Errorf("ledger: place wager: %w", err)
	}
	if err := appendEntry(ctx, tx, bet.LeagueID, in.MemberID, bet.ID, w.ID, domain.EntryDebit, -in.Amount); err != nil {
		return domain.Wager{}, err
	}
	return w, nil
}

// EditWager desfaz o débito anterior e aplica o novo na mesma transação
func EditWager(ctx context.Context, tx Tx, bet *domain.Bet, w *domain.Wager, in WagerInput) error {
	if err := checkOpen(tx, bet); err != nil {
		return err
	}
	if err := validateInput(bet, in); err != nil {
		return err
	}

	m, err := tx.GetMember(ctx, bet.LeagueID, w.MemberID)
	if err != nil {
		return fmt.Errorf("ledger: edit wager: %w", err)
	}
	credit(&m, *w)
	addStake(bet, w.Selection, -w.Amount)

	if err := debit(&m, in); err != nil {
		return err
	}
	addStake(bet, in.Selection, in.Amount)

	if err := tx.UpdateMember(ctx, &m); err != nil {
		return fmt.Errorf("ledger: edit wager: %w", err)
	}
	if err := tx.UpdateBet(ctx, bet); err != nil {
		return fmt.Errorf("ledger: edit wager: %w", err)
	}

	old := w.Amount
	w.Amount, w.Selection, w.PowerUp = in.Amount, in.Selection, in.PowerUp
	if err := tx.UpdateWager(ctx, w); err != nil {
		return fmt.Errorf("ledger: edit wager: %w", err)
	}
	if err := appendEntry(ctx, tx, bet.LeagueID, w.MemberID, bet.ID, w.ID, domain.EntryCredit, old); err != nil {
		return err
	}
	return appendEntry(ctx, tx, bet.LeagueID, w.MemberID, bet.ID, w.ID, domain.EntryDebit, -in.Amount)
}

// CancelWager devolve o stake e remove a aposta enquanto a bet está aberta
func CancelWager(ctx context.Context, tx Tx, bet *domain.Bet, w *domain.Wager) error {
	if err := checkOpen(tx, bet); err != nil {
		return err
	}
	m, err := tx.GetMember(ctx, bet.LeagueID, w.MemberID)
	if err != nil {
		return fmt.Errorf("ledger: cancel wager: %w", err)
	}
	credit(&m, *w)
	if err := tx.UpdateMember(ctx, &m); err != nil {
		return fmt.Errorf("ledger: cancel wager: %w", err)
	}
	addStake(bet, w.Selection, -w.Amount)
	if err := tx.UpdateBet(ctx, bet); err != nil {
		return fmt.Errorf("ledger: cancel wager: %w", err)
	}
	if err := tx.DeleteWager(ctx, w); err != nil {
		return fmt.Errorf("ledger: cancel wager: %w", err)
	}
	return appendEntry(ctx, tx, bet.LeagueID, w.MemberID, bet.ID, w.ID, domain.EntryCredit, w.Amount)
}

// Settle credita o payout e fecha a aposta como WON ou LOST.
// Apostas já terminais são ignoradas (retorna false), o que torna a liquidação idempotente.
func Settle(ctx context.Context, tx Tx, w *domain.Wager, status domain.WagerStatus, points, payout int64) (bool, error) {
	if w.Status.Terminal() {
		return false, nil
	}
	if status != domain.WagerWon && status != domain.WagerLost {
		return false, fmt.Errorf("ledger: settle: unexpected status %s", status)
	}
	if payout < 0 {
		return false, fmt.Errorf("ledger: settle: negative payout %d", payout)
	}

	// relê o membro dentro da transação; o saldo pode ter mudado desde a leitura da bet
	m, err := tx.GetMember(ctx, w.LeagueID, w.MemberID)
	if err != nil {
		return false, fmt.Errorf("ledger: settle: %w", err)
	}
	m.Balance += payout
	if err := tx.UpdateMember(ctx, &m); err != nil {
		return false, fmt.Errorf("ledger: settle: %w", err)
	}

	now := tx.Now()
	w.Status, w.Points, w.Payout, w.SettledAt = status, points, payout, &now
	if err := tx.UpdateWager(ctx, w); err != nil {
		return false, fmt.Errorf("ledger: settle: %w", err)
	}
	if payout > 0 {
		if err := appendEntry(ctx, tx, w.LeagueID, w.MemberID, w.BetID, w.ID, domain.EntryPayout, payout); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Refund devolve o stake (e o power-up) e marca a aposta como PUSH
func Refund(ctx context.Context, tx Tx, w *domain.Wager) (bool, error) {
	if w.Status.Terminal() {
		return false, nil
	}
	m, err := tx.GetMember(ctx, w.LeagueID, w.MemberID)
	if err != nil {
		return false, fmt.Errorf("ledger: refund: %w", err)
	}
	credit(&m, *w)
	if err := tx.UpdateMember(ctx, &m); err != nil {
		return false, fmt.Errorf("ledger: refund: %w", err)
	}

	now := tx.Now()
	w.Status, w.Points, w.Payout, w.SettledAt = domain.WagerPush, 0, w.Amount, &now
	if err := tx.UpdateWager(ctx, w); err != nil {
		return false, fmt.Errorf("ledger: refund: %w", err)
	}
	if w.Amount > 0 {
		if err := appendEntry(ctx, tx, w.LeagueID, w.MemberID, w.BetID, w.ID, domain.EntryRefund, w.Amount); err != nil {
			return false, err
		}
	}
	return true, nil
}

func checkOpen(tx Tx, bet *domain.Bet) error {
	if bet.Status != domain.StatusOpen || !tx.Now().Before(bet.ClosesAt) {
		return fmt.Errorf("%w: bet %s is %s", domain.ErrBetNotOpen, bet.ID, bet.Status)
	}
	return nil
}

func validateInput(bet *domain.Bet, in WagerInput) error {
	if in.Amount < 0 {
		return fmt.Errorf("%w: negative amount", domain.ErrInvalidBet)
	}
	if err := domain.ValidateSelection(*bet, in.Selection); err != nil {
		return err
	}
	if !in.PowerUp.Valid() {
		return fmt.Errorf("%w: unknown power-up %q", domain.ErrPowerUpUnavailable, in.PowerUp)
	}
	if in.PowerUp != domain.PowerUpNone && bet.Type != domain.BetMatch {
		return fmt.Errorf("%w: power-ups only apply to match bets", domain.ErrPowerUpUnavailable)
	}
	return nil
}

// debit aplica stake e power-up ao membro em memória
func debit(m *domain.Member, in WagerInput) error {
	if m.Balance < in.Amount {
		return fmt.Errorf("%w: balance %d, stake %d", domain.ErrInsufficientBalance, m.Balance, in.Amount)
	}
	if in.PowerUp != domain.PowerUpNone {
		if m.PowerUps[in.PowerUp] <= 0 {
			return fmt.Errorf("%w: %s", domain.ErrPowerUpUnavailable, in.PowerUp)
		}
		m.PowerUps[in.PowerUp]--
	}
	m.Balance -= in.Amount
	return nil
}

// credit desfaz debit para a aposta informada
func credit(m *domain.Member, w domain.Wager) {
	m.Balance += w.Amount
	if w.PowerUp != domain.PowerUpNone {
		if m.PowerUps == nil {
			m.PowerUps = map[domain.PowerUp]int{}
		}
		m.PowerUps[w.PowerUp]++
	}
}

// addStake ajusta o pool e, em CHOICE, o total da opção escolhida
func addStake(bet *domain.Bet, sel domain.Selection, amount int64) {
	bet.TotalPool += amount
	if idx, ok := sel.(domain.ChoiceIndex); ok && int(idx) < len(bet.OptionTotals) {
		bet.OptionTotals[idx] += amount
	}
}

func appendEntry(ctx context.Context, tx Tx, leagueID, memberID, betID, wagerID string, kind domain.EntryKind, amount int64) error {
	e := domain.LedgerEntry{
		LeagueID: leagueID,
		MemberID: memberID,
		BetID:    betID,
		WagerID:  wagerID,
		Kind:     kind,
		Amount:   amount,
	}
	if err := tx.AppendEntry(ctx, &e); err != nil {
		return fmt.Errorf("ledger: append entry: %w", err)
	}
	return nil
}
