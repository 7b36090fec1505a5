package betting

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger"
)

// NewBet são os dados de criação de uma bet
type NewBet struct {
	ID               string
	LeagueID         string
	Type             domain.BetType
	Question         string
	HomeTeam         string
	AwayTeam         string
	EventRef         string
	Options          []string
	ClosesAt         time.Time
	EventAt          time.Time
	AutoConfirm      bool
	AutoConfirmDelay time.Duration
	DataSource       string
}

func (in NewBet) validate(now time.Time) error {
	switch in.Type {
	case domain.BetMatch:
		if strings.TrimSpace(in.HomeTeam) == "" || strings.TrimSpace(in.AwayTeam) == "" {
			return fmt.Errorf("%w: match bet needs both teams", domain.ErrInvalidBet)
		}
	case domain.BetChoice:
		if len(in.Options) < 2 {
			return fmt.Errorf("%w: choice bet needs at least two options", domain.ErrInvalidBet)
		}
		for _, o := range in.Options {
			if strings.TrimSpace(o) == "" {
				return fmt.Errorf("%w: empty option", domain.ErrInvalidBet)
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidBet, in.Type)
	}
	if !in.ClosesAt.After(now) {
		return fmt.Errorf("%w: closesAt must be in the future", domain.ErrInvalidBet)
	}
	if in.AutoConfirmDelay < 0 {
		return fmt.Errorf("%w: negative auto-confirm delay", domain.ErrInvalidBet)
	}
	return nil
}

// CreateBet abre uma bet numa liga; qualquer membro pode criar
func (e *Engine) CreateBet(ctx context.Context, p domain.Principal, in NewBet) (domain.Bet, error) {
	if err := in.validate(e.Now()); err != nil {
		return domain.Bet{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	var out domain.Bet
	err := e.run(ctx, "create_bet", func(tx ledger.Tx, em *emitter) error {
		if _, err := member(ctx, tx, in.LeagueID, p); err != nil {
			return err
		}
		b := domain.Bet{
			ID:               in.ID,
			LeagueID:         in.LeagueID,
			CreatorID:        p.MemberID,
			Type:             in.Type,
			Question:         in.Question,
			HomeTeam:         in.HomeTeam,
			AwayTeam:         in.AwayTeam,
			EventRef:         in.EventRef,
			Status:           domain.StatusOpen,
			ClosesAt:         in.ClosesAt,
			EventAt:          in.EventAt,
			AutoConfirm:      in.AutoConfirm,
			AutoConfirmDelay: in.AutoConfirmDelay,
			DataSource:       in.DataSource,
		}
		if b.EventAt.IsZero() {
			b.EventAt = b.ClosesAt
		}
		if b.Type == domain.BetChoice {
			b.Options = append([]string(nil), in.Options...)
			b.OptionTotals = make([]int64, len(in.Options))
			b.HomeTeam, b.AwayTeam = "", ""
		}
		if b.Question == "" && b.Type == domain.BetMatch {
			b.Question = b.HomeTeam + " vs " + b.AwayTeam
		}
		if err := tx.InsertBet(ctx, &b); err != nil {
			return err
		}
		em.emit(domain.EventBetCreated, b, p.MemberID, "", nil)
		out = b
		return nil
	})
	return out, err
}

// GetBet devolve a bet como está gravada
func (e *Engine) GetBet(ctx context.Context, id string) (domain.Bet, error) {
	return e.store.GetBet(ctx, id)
}

// ListBets lista as bets da liga, opcionalmente filtradas por status
func (e *Engine) ListBets(ctx context.Context, leagueID string, statuses ...domain.BetStatus) ([]domain.Bet, error) {
	return e.store.ListBets(ctx, ledger.BetFilter{LeagueID: leagueID, Statuses: statuses})
}

// ListWagers devolve as apostas da bet
func (e *Engine) ListWagers(ctx context.Context, betID string) ([]domain.Wager, error) {
	if _, err := e.store.GetBet(ctx, betID); err != nil {
		return nil, err
	}
	return e.store.ListWagers(ctx, betID)
}

// WagerRequest é o palpite do principal numa bet
type WagerRequest struct {
	Amount    int64
	Selection domain.Selection
	PowerUp   domain.PowerUp
}

func (r WagerRequest) input(p domain.Principal) ledger.WagerInput {
	return ledger.WagerInput{MemberID: p.MemberID, Amount: r.Amount, Selection: r.Selection, PowerUp: r.PowerUp}
}

// PlaceWager debita o stake do principal e registra a aposta
func (e *Engine) PlaceWager(ctx context.Context, p domain.Principal, betID string, req WagerRequest) (domain.Wager, error) {
	var out domain.Wager
	err := e.run(ctx, "place_wager", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		if _, err := member(ctx, tx, b.LeagueID, p); err != nil {
			return err
		}
		w, err := ledger.PlaceWager(ctx, tx, &b, req.input(p))
		if err != nil {
			return err
		}
		em.emit(domain.EventWagerPlaced, b, p.MemberID, "", map[string]string{
			"amount": strconv.FormatInt(w.Amount, 10),
			"pool":   strconv.FormatInt(b.TotalPool, 10),
		})
		out = w
		return nil
	})
	return out, err
}

// EditWager troca stake, palpite e power-up enquanto a bet está aberta
func (e *Engine) EditWager(ctx context.Context, p domain.Principal, betID string, req WagerRequest) (domain.Wager, error) {
	var out domain.Wager
	err := e.run(ctx, "edit_wager", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		w, err := ownWager(ctx, tx, betID, p.MemberID)
		if err != nil {
			return err
		}
		if err := ledger.EditWager(ctx, tx, &b, &w, req.input(p)); err != nil {
			return err
		}
		em.emit(domain.EventWagerEdited, b, p.MemberID, "", map[string]string{
			"amount": strconv.FormatInt(w.Amount, 10),
			"pool":   strconv.FormatInt(b.TotalPool, 10),
		})
		out = w
		return nil
	})
	return out, err
}

// CancelWager retira a aposta do principal e devolve o stake
func (e *Engine) CancelWager(ctx context.Context, p domain.Principal, betID string) error {
	return e.run(ctx, "cancel_wager", func(tx ledger.Tx, em *emitter) error {
		b, err := e.loadBet(ctx, tx, betID, em)
		if err != nil {
			return err
		}
		w, err := ownWager(ctx, tx, betID, p.MemberID)
		if err != nil {
			return err
		}
		if err := ledger.CancelWager(ctx, tx, &b, &w); err != nil {
			return err
		}
		em.emit(domain.EventWagerCancelled, b, p.MemberID, "", map[string]string{
			"pool": strconv.FormatInt(b.TotalPool, 10),
		})
		return nil
	})
}
