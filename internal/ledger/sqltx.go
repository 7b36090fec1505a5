package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// txStore implementa Tx; escritas só existem dentro de InTx
type txStore struct {
	reader
	now func() time.Time
}

func (t *txStore) Now() time.Time { return t.now() }

// checkVersion converte "nenhuma linha afetada" em conflito otimista
func checkVersion(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", domain.ErrConcurrentModification, kind, id)
	}
	return nil
}

func (t *txStore) InsertLeague(ctx context.Context, l *domain.League) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	settings, err := json.Marshal(l.Settings)
	if err != nil {
		return err
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = t.now()
	}
	_, err = t.q.ExecContext(ctx, t.d.rebind(`
		INSERT INTO leagues (id,name,owner_id,settings,starting_capital,created_at,version)
		VALUES (?,?,?,?,?,?,1)`),
		l.ID, l.Name, l.OwnerID, string(settings), l.StartingCapital, ms(l.CreatedAt))
	if err != nil {
		return t.d.translate(err)
	}
	l.Version = 1
	return nil
}

func (t *txStore) UpdateLeague(ctx context.Context, l *domain.League) error {
	settings, err := json.Marshal(l.Settings)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, t.d.rebind(`
		UPDATE leagues SET name=?, settings=?, starting_capital=?, version=version+1
		WHERE id=? AND version=?`),
		l.Name, string(settings), l.StartingCapital, l.ID, l.Version)
	if err != nil {
		return t.d.translate(err)
	}
	if err := checkVersion(res, "league", l.ID); err != nil {
		return err
	}
	l.Version++
	return nil
}

func (t *txStore) InsertMember(ctx context.Context, m *domain.Member) error {
	pups, err := json.Marshal(nonNilPowerUps(m.PowerUps))
	if err != nil {
		return err
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = t.now()
	}
	_, err = t.q.ExecContext(ctx, t.d.rebind(`
		INSERT INTO members (`+memberCols+`) VALUES (?,?,?,?,?,?,1)`),
		m.LeagueID, m.ID, string(m.Role), m.Balance, string(pups), ms(m.JoinedAt))
	if err != nil {
		return t.d.translate(err)
	}
	m.Version = 1
	return nil
}

func (t *txStore) UpdateMember(ctx context.Context, m *domain.Member) error {
	if m.Balance < 0 {
		return fmt.Errorf("%w: member %s", domain.ErrInsufficientBalance, m.ID)
	}
	pups, err := json.Marshal(nonNilPowerUps(m.PowerUps))
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, t.d.rebind(`
		UPDATE members SET role=?, balance=?, power_ups=?, version=version+1
		WHERE league_id=? AND id=? AND version=?`),
		string(m.Role), m.Balance, string(pups), m.LeagueID, m.ID, m.Version)
	if err != nil {
		return t.d.translate(err)
	}
	if err := checkVersion(res, "member", m.ID); err != nil {
		return err
	}
	m.Version++
	return nil
}

func nonNilPowerUps(p map[domain.PowerUp]int) map[domain.PowerUp]int {
	out := make(map[domain.PowerUp]int, len(p))
	for k, v := range p {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

// betDoc são os campos serializados do documento da bet
type betDoc struct {
	options, totals   string
	proposed, winning string
	verification      string
}

func encodeBet(b *domain.Bet) (betDoc, error) {
	var doc betDoc
	opts := b.Options
	if opts == nil {
		opts = []string{}
	}
	tots := b.OptionTotals
	if tots == nil {
		tots = []int64{}
	}
	ob, err := json.Marshal(opts)
	if err != nil {
		return doc, err
	}
	tb, err := json.Marshal(tots)
	if err != nil {
		return doc, err
	}
	doc.options, doc.totals = string(ob), string(tb)
	if doc.proposed, err = domain.MarshalSelection(b.ProposedOutcome); err != nil {
		return doc, err
	}
	if doc.winning, err = domain.MarshalSelection(b.WinningOutcome); err != nil {
		return doc, err
	}
	if b.Verification != nil {
		vb, err := json.Marshal(b.Verification)
		if err != nil {
			return doc, err
		}
		doc.verification = string(vb)
	}
	return doc, nil
}

func (t *txStore) InsertBet(ctx context.Context, b *domain.Bet) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = t.now()
	}
	doc, err := encodeBet(b)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx, t.d.rebind(`
		INSERT INTO bets (id,league_id,creator_id,type,question,home_team,away_team,event_ref,
			options,option_totals,total_pool,status,closes_at,event_at,proposed_outcome,winning_outcome,
			dispute_deadline,dispute_active,auto_confirm,auto_confirm_delay_ms,data_source,verification,
			settlement_started,invalid_reason,created_at,resolved_at,version)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1)`),
		b.ID, b.LeagueID, b.CreatorID, string(b.Type), b.Question, b.HomeTeam, b.AwayTeam, b.EventRef,
		doc.options, doc.totals, b.TotalPool, string(b.Status), ms(b.ClosesAt), ms(b.EventAt), doc.proposed, doc.winning,
		nullMs(b.DisputeDeadline), boolInt(b.DisputeActive), boolInt(b.AutoConfirm), b.AutoConfirmDelay.Milliseconds(),
		b.DataSource, doc.verification, boolInt(b.SettlementStarted), b.InvalidReason, ms(b.CreatedAt), nullMs(b.ResolvedAt))
	if err != nil {
		return t.d.translate(err)
	}
	b.Version = 1
	if b.Votes == nil {
		b.Votes = map[string]domain.Vote{}
	}
	return nil
}

func (t *txStore) UpdateBet(ctx context.Context, b *domain.Bet) error {
	doc, err := encodeBet(b)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, t.d.rebind(`
		UPDATE bets SET question=?, options=?, option_totals=?, total_pool=?, status=?,
			closes_at=?, event_at=?, proposed_outcome=?, winning_outcome=?,
			dispute_deadline=?, dispute_active=?, auto_confirm=?, auto_confirm_delay_ms=?,
			data_source=?, verification=?, settlement_started=?, invalid_reason=?, resolved_at=?,
			version=version+1
		WHERE id=? AND version=?`),
		b.Question, doc.options, doc.totals, b.TotalPool, string(b.Status),
		ms(b.ClosesAt), ms(b.EventAt), doc.proposed, doc.winning,
		nullMs(b.DisputeDeadline), boolInt(b.DisputeActive), boolInt(b.AutoConfirm), b.AutoConfirmDelay.Milliseconds(),
		b.DataSource, doc.verification, boolInt(b.SettlementStarted), b.InvalidReason, nullMs(b.ResolvedAt),
		b.ID, b.Version)
	if err != nil {
		return t.d.translate(err)
	}
	if err := checkVersion(res, "bet", b.ID); err != nil {
		return err
	}
	b.Version++
	return nil
}

func (t *txStore) TouchBet(ctx context.Context, b *domain.Bet) error {
	res, err := t.q.ExecContext(ctx, t.d.rebind(`UPDATE bets SET version=version+1 WHERE id=? AND version=?`), b.ID, b.Version)
	if err != nil {
		return t.d.translate(err)
	}
	if err := checkVersion(res, "bet", b.ID); err != nil {
		return err
	}
	b.Version++
	return nil
}

func (t *txStore) InsertWager(ctx context.Context, w *domain.Wager) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = t.now()
	}
	sel, err := domain.MarshalSelection(w.Selection)
	if err != nil {
		return err
	}
	_, err = t.q.ExecContext(ctx, t.d.rebind(`
		INSERT INTO wagers (`+wagerCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,1)`),
		w.ID, w.BetID, w.LeagueID, w.MemberID, w.Amount, sel, string(w.PowerUp), string(w.Status),
		w.Points, w.Payout, ms(w.CreatedAt), nullMs(w.SettledAt))
	if err != nil {
		err = t.d.translate(err)
		if errors.Is(err, errUnique) {
			return fmt.Errorf("%w: member %s on bet %s", domain.ErrDuplicateWager, w.MemberID, w.BetID)
		}
		return err
	}
	w.Version = 1
	return nil
}

func (t *txStore) UpdateWager(ctx context.Context, w *domain.Wager) error {
	sel, err := domain.MarshalSelection(w.Selection)
	if err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, t.d.rebind(`
		UPDATE wagers SET amount=?, selection=?, power_up=?, status=?, points=?, payout=?, settled_at=?,
			version=version+1
		WHERE id=? AND version=?`),
		w.Amount, sel, string(w.PowerUp), string(w.Status), w.Points, w.Payout, nullMs(w.SettledAt),
		w.ID, w.Version)
	if err != nil {
		return t.d.translate(err)
	}
	if err := checkVersion(res, "wager", w.ID); err != nil {
		return err
	}
	w.Version++
	return nil
}

func (t *txStore) DeleteWager(ctx context.Context, w *domain.Wager) error {
	res, err := t.q.ExecContext(ctx, t.d.rebind(`DELETE FROM wagers WHERE id=? AND version=?`), w.ID, w.Version)
	if err != nil {
		return t.d.translate(err)
	}
	return checkVersion(res, "wager", w.ID)
}

func (t *txStore) AddDisputer(ctx context.Context, betID, memberID string) (bool, error) {
	res, err := t.q.ExecContext(ctx, t.d.rebind(`
		INSERT INTO bet_disputes (bet_id,member_id,created_at) VALUES (?,?,?)
		ON CONFLICT (bet_id,member_id) DO NOTHING`),
		betID, memberID, ms(t.now()))
	if err != nil {
		return false, t.d.translate(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *txStore) PutVote(ctx context.Context, betID, memberID string, v domain.Vote) (bool, error) {
	res, err := t.q.ExecContext(ctx, t.d.rebind(`
		INSERT INTO bet_votes (bet_id,member_id,vote,created_at) VALUES (?,?,?,?)
		ON CONFLICT (bet_id,member_id) DO NOTHING`),
		betID, memberID, string(v), ms(t.now()))
	if err != nil {
		return false, t.d.translate(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *txStore) ClearVotes(ctx context.Context, betID string) error {
	_, err := t.q.ExecContext(ctx, t.d.rebind(`DELETE FROM bet_votes WHERE bet_id=?`), betID)
	return t.d.translate(err)
}

func (t *txStore) ClearDisputers(ctx context.Context, betID string) error {
	_, err := t.q.ExecContext(ctx, t.d.rebind(`DELETE FROM bet_disputes WHERE bet_id=?`), betID)
	return t.d.translate(err)
}

func (t *txStore) AppendEntry(ctx context.Context, e *domain.LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now()
	}
	err := t.q.QueryRowContext(ctx, t.d.rebind(`
		INSERT INTO ledger_entries (league_id,member_id,bet_id,wager_id,kind,amount,created_at)
		VALUES (?,?,?,?,?,?,?) RETURNING id`),
		e.LeagueID, e.MemberID, e.BetID, e.WagerID, string(e.Kind), e.Amount, ms(e.CreatedAt)).Scan(&e.ID)
	return t.d.translate(err)
}
