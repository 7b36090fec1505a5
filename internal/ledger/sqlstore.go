package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/radieske/league-wager-engine/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// querier é a interface comum entre *sql.DB e *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implementa Store sobre database/sql (Postgres em produção, SQLite em testes)
type SQLStore struct {
	reader
	db  *sql.DB
	now func() time.Time
}

type Option func(*SQLStore)

// WithClock substitui o relógio do servidor (testes)
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) { s.now = now }
}

// NewSQLStore retorna o store para o dialeto informado
func NewSQLStore(db *sql.DB, d Dialect, opts ...Option) *SQLStore {
	s := &SQLStore{reader: reader{q: db, d: d}, db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Migrate aplica o schema (idempotente)
func (s *SQLStore) Migrate(ctx context.Context) error {
	var clean strings.Builder
	for _, line := range strings.Split(schemaSQL, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		clean.WriteString(line)
		clean.WriteByte('\n')
	}
	ddl := strings.ReplaceAll(clean.String(), "{{serial}}", s.d.serial())
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Now() time.Time { return s.now().UTC().Truncate(time.Millisecond) }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }

// InTx abre uma transação, executa fn e faz commit; qualquer erro faz rollback
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.d.translate(err)
	}
	tx := &txStore{reader: reader{q: sqlTx, d: s.d}, now: s.Now}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return s.d.translate(err)
	}
	return nil
}

func (s *SQLStore) UpdateLiveScore(ctx context.Context, eventRef string, score domain.MatchScore) (int64, error) {
	if eventRef == "" {
		return 0, nil
	}
	res, err := s.q.ExecContext(ctx, s.d.rebind(`
		UPDATE bets SET live_home=?, live_away=?
		WHERE event_ref=? AND status NOT IN ('RESOLVED','INVALID')`),
		score.Home, score.Away, eventRef)
	if err != nil {
		return 0, s.d.translate(err)
	}
	return res.RowsAffected()
}

// ---- leituras ----

type reader struct {
	q querier
	d Dialect
}

type scanner interface {
	Scan(dest ...any) error
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func fromMs(v int64) time.Time { return time.UnixMilli(v).UTC() }

func nullMs(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func ptrMs(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMs(v.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return err
}

func (r reader) GetLeague(ctx context.Context, id string) (domain.League, error) {
	var (
		l        domain.League
		settings string
		created  int64
	)
	err := r.q.QueryRowContext(ctx, r.d.rebind(`
		SELECT id,name,owner_id,settings,starting_capital,created_at,version
		FROM leagues WHERE id=?`), id).
		Scan(&l.ID, &l.Name, &l.OwnerID, &settings, &l.StartingCapital, &created, &l.Version)
	if err != nil {
		return domain.League{}, notFound("league", id, err)
	}
	if err := json.Unmarshal([]byte(settings), &l.Settings); err != nil {
		return domain.League{}, fmt.Errorf("decode league settings: %w", err)
	}
	l.CreatedAt = fromMs(created)
	return l, nil
}

const memberCols = `league_id,id,role,balance,power_ups,joined_at,version`

func scanMember(sc scanner) (domain.Member, error) {
	var (
		m      domain.Member
		role   string
		pups   string
		joined int64
	)
	if err := sc.Scan(&m.LeagueID, &m.ID, &role, &m.Balance, &pups, &joined, &m.Version); err != nil {
		return domain.Member{}, err
	}
	m.Role = domain.Role(role)
	m.JoinedAt = fromMs(joined)
	m.PowerUps = map[domain.PowerUp]int{}
	if pups != "" {
		if err := json.Unmarshal([]byte(pups), &m.PowerUps); err != nil {
			return domain.Member{}, fmt.Errorf("decode power-ups: %w", err)
		}
	}
	return m, nil
}

func (r reader) GetMember(ctx context.Context, leagueID, memberID string) (domain.Member, error) {
	row := r.q.QueryRowContext(ctx, r.d.rebind(`SELECT `+memberCols+` FROM members WHERE league_id=? AND id=?`), leagueID, memberID)
	m, err := scanMember(row)
	if err != nil {
		return domain.Member{}, notFound("member", memberID, err)
	}
	return m, nil
}

func (r reader) ListMembers(ctx context.Context, leagueID string) ([]domain.Member, error) {
	rows, err := r.q.QueryContext(ctx, r.d.rebind(`SELECT `+memberCols+` FROM members WHERE league_id=? ORDER BY joined_at, id`), leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const betCols = `id,league_id,creator_id,type,question,home_team,away_team,event_ref,
	options,option_totals,total_pool,status,closes_at,event_at,proposed_outcome,winning_outcome,
	dispute_deadline,dispute_active,auto_confirm,auto_confirm_delay_ms,data_source,verification,
	live_home,live_away,settlement_started,invalid_reason,created_at,resolved_at,version`

func scanBet(sc scanner) (domain.Bet, error) {
	var (
		b                      domain.Bet
		typ, status            string
		options, totals        string
		proposed, winning      string
		closes, event, created int64
		deadline, resolved     sql.NullInt64
		active, auto, started  int
		delayMs                int64
		verification           string
		liveHome, liveAway     sql.NullInt64
	)
	err := sc.Scan(&b.ID, &b.LeagueID, &b.CreatorID, &typ, &b.Question, &b.HomeTeam, &b.AwayTeam, &b.EventRef,
		&options, &totals, &b.TotalPool, &status, &closes, &event, &proposed, &winning,
		&deadline, &active, &auto, &delayMs, &b.DataSource, &verification,
		&liveHome, &liveAway, &started, &b.InvalidReason, &created, &resolved, &b.Version)
	if err != nil {
		return domain.Bet{}, err
	}

	b.Type = domain.BetType(typ)
	b.Status = domain.BetStatus(status)
	b.ClosesAt = fromMs(closes)
	b.EventAt = fromMs(event)
	b.CreatedAt = fromMs(created)
	b.DisputeDeadline = ptrMs(deadline)
	b.ResolvedAt = ptrMs(resolved)
	b.DisputeActive = active != 0
	b.AutoConfirm = auto != 0
	b.SettlementStarted = started != 0
	b.AutoConfirmDelay = time.Duration(delayMs) * time.Millisecond

	if err := json.Unmarshal([]byte(options), &b.Options); err != nil {
		return domain.Bet{}, fmt.Errorf("decode options: %w", err)
	}
	if err := json.Unmarshal([]byte(totals), &b.OptionTotals); err != nil {
		return domain.Bet{}, fmt.Errorf("decode option totals: %w", err)
	}
	if b.ProposedOutcome, err = domain.ParseSelection(b.Type, proposed); err != nil {
		return domain.Bet{}, err
	}
	if b.WinningOutcome, err = domain.ParseSelection(b.Type, winning); err != nil {
		return domain.Bet{}, err
	}
	if verification != "" {
		var v domain.Verification
		if err := json.Unmarshal([]byte(verification), &v); err != nil {
			return domain.Bet{}, fmt.Errorf("decode verification: %w", err)
		}
		b.Verification = &v
	}
	if liveHome.Valid && liveAway.Valid {
		b.LiveScore = &domain.MatchScore{Home: int(liveHome.Int64), Away: int(liveAway.Int64)}
	}
	b.Votes = map[string]domain.Vote{}
	return b, nil
}

// loadParticipation completa disputantes e votos; chamado depois de fechar o cursor das bets
func (r reader) loadParticipation(ctx context.Context, b *domain.Bet) error {
	rows, err := r.q.QueryContext(ctx, r.d.rebind(`SELECT member_id FROM bet_disputes WHERE bet_id=? ORDER BY created_at, member_id`), b.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		b.Disputers = append(b.Disputers, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.q.QueryContext(ctx, r.d.rebind(`SELECT member_id, vote FROM bet_votes WHERE bet_id=?`), b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, v string
		if err := rows.Scan(&id, &v); err != nil {
			return err
		}
		b.Votes[id] = domain.Vote(v)
	}
	return rows.Err()
}

func (r reader) GetBet(ctx context.Context, id string) (domain.Bet, error) {
	row := r.q.QueryRowContext(ctx, r.d.rebind(`SELECT `+betCols+` FROM bets WHERE id=?`), id)
	b, err := scanBet(row)
	if err != nil {
		return domain.Bet{}, notFound("bet", id, err)
	}
	if err := r.loadParticipation(ctx, &b); err != nil {
		return domain.Bet{}, err
	}
	return b, nil
}

func (r reader) ListBets(ctx context.Context, f BetFilter) ([]domain.Bet, error) {
	var (
		where []string
		args  []any
	)
	if f.LeagueID != "" {
		where = append(where, "league_id=?")
		args = append(args, f.LeagueID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ",")+")")
	}
	if f.AutoConfirmOnly {
		where = append(where, "auto_confirm=1")
	}
	if !f.DueBefore.IsZero() {
		where = append(where, "auto_confirm=1 AND event_at + auto_confirm_delay_ms <= ?")
		args = append(args, ms(f.DueBefore))
	}

	q := `SELECT ` + betCols + ` FROM bets`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
		if f.Offset > 0 {
			q += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}

	rows, err := r.q.QueryContext(ctx, r.d.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	var out []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.loadParticipation(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const wagerCols = `id,bet_id,league_id,member_id,amount,selection,power_up,status,points,payout,created_at,settled_at,version`

// wagerRow é lido antes de conhecermos o tipo da bet; a seleção fica crua até decodeWager
type wagerRow struct {
	w   domain.Wager
	sel string
}

func scanWager(sc scanner) (wagerRow, error) {
	var (
		wr      wagerRow
		pu, st  string
		created int64
		settled sql.NullInt64
	)
	err := sc.Scan(&wr.w.ID, &wr.w.BetID, &wr.w.LeagueID, &wr.w.MemberID, &wr.w.Amount, &wr.sel,
		&pu, &st, &wr.w.Points, &wr.w.Payout, &created, &settled, &wr.w.Version)
	if err != nil {
		return wagerRow{}, err
	}
	wr.w.PowerUp = domain.PowerUp(pu)
	wr.w.Status = domain.WagerStatus(st)
	wr.w.CreatedAt = fromMs(created)
	wr.w.SettledAt = ptrMs(settled)
	return wr, nil
}

// decodeSelection tenta MATCH e depois CHOICE pelo formato do JSON gravado
func decodeSelection(raw string) (domain.Selection, error) {
	if strings.Contains(raw, `"option"`) {
		return domain.ParseSelection(domain.BetChoice, raw)
	}
	return domain.ParseSelection(domain.BetMatch, raw)
}

func (r reader) GetWager(ctx context.Context, betID, memberID string) (domain.Wager, error) {
	row := r.q.QueryRowContext(ctx, r.d.rebind(`SELECT `+wagerCols+` FROM wagers WHERE bet_id=? AND member_id=?`), betID, memberID)
	wr, err := scanWager(row)
	if err != nil {
		return domain.Wager{}, notFound("wager", betID+"/"+memberID, err)
	}
	if wr.w.Selection, err = decodeSelection(wr.sel); err != nil {
		return domain.Wager{}, err
	}
	return wr.w, nil
}

func (r reader) ListWagers(ctx context.Context, betID string) ([]domain.Wager, error) {
	rows, err := r.q.QueryContext(ctx, r.d.rebind(`SELECT `+wagerCols+` FROM wagers WHERE bet_id=? ORDER BY created_at, id`), betID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Wager
	for rows.Next() {
		wr, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		if wr.w.Selection, err = decodeSelection(wr.sel); err != nil {
			return nil, err
		}
		out = append(out, wr.w)
	}
	return out, rows.Err()
}

func (r reader) ListEntries(ctx context.Context, leagueID, memberID string) ([]domain.LedgerEntry, error) {
	q := `SELECT id,league_id,member_id,bet_id,wager_id,kind,amount,created_at FROM ledger_entries WHERE league_id=?`
	args := []any{leagueID}
	if memberID != "" {
		q += " AND member_id=?"
		args = append(args, memberID)
	}
	q += " ORDER BY id"

	rows, err := r.q.QueryContext(ctx, r.d.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e       domain.LedgerEntry
			kind    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.LeagueID, &e.MemberID, &e.BetID, &e.WagerID, &kind, &e.Amount, &created); err != nil {
			return nil, err
		}
		e.Kind = domain.EntryKind(kind)
		e.CreatedAt = fromMs(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
