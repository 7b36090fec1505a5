package domain

import "time"

type WagerStatus string

const (
	WagerPending WagerStatus = "PENDING"
	WagerWon     WagerStatus = "WON"
	WagerLost    WagerStatus = "LOST"
	WagerPush    WagerStatus = "PUSH"
)

// Terminal indica que a aposta já foi liquidada ou estornada
func (s WagerStatus) Terminal() bool { return s != WagerPending }

// Wager é a aposta de um membro numa bet (no máximo uma por membro por bet)
type Wager struct {
	ID        string
	BetID     string
	LeagueID  string
	MemberID  string
	Amount    int64
	Selection Selection
	PowerUp   PowerUp
	Status    WagerStatus
	Points    int64
	Payout    int64
	CreatedAt time.Time
	SettledAt *time.Time
	Version   int64
}

// EntryKind classifica uma movimentação no ledger de pontos
type EntryKind string

const (
	EntryDebit  EntryKind = "DEBIT"
	EntryCredit EntryKind = "CREDIT"
	EntryRefund EntryKind = "REFUND"
	EntryPayout EntryKind = "PAYOUT"
	EntryGrant  EntryKind = "GRANT"
)

// LedgerEntry é o registro de auditoria de cada movimentação de saldo
type LedgerEntry struct {
	ID        int64
	LeagueID  string
	MemberID  string
	BetID     string
	WagerID   string
	Kind      EntryKind
	Amount    int64
	CreatedAt time.Time
}
