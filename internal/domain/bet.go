package domain

import (
	"slices"
	"time"
)

type BetType string

const (
	BetMatch  BetType = "MATCH"
	BetChoice BetType = "CHOICE"
)

// BetStatus segue OPEN -> LOCKED -> PROOFING -> {DISPUTED <-> PROOFING} -> RESOLVED,
// com saída lateral para INVALID
type BetStatus string

const (
	StatusOpen     BetStatus = "OPEN"
	StatusLocked   BetStatus = "LOCKED"
	StatusProofing BetStatus = "PROOFING"
	StatusDisputed BetStatus = "DISPUTED"
	StatusResolved BetStatus = "RESOLVED"
	StatusInvalid  BetStatus = "INVALID"
)

// Terminal indica RESOLVED ou INVALID
func (s BetStatus) Terminal() bool {
	return s == StatusResolved || s == StatusInvalid
}

// Vote é o voto de um apostador sobre um resultado disputado
type Vote string

const (
	VoteApprove Vote = "approve"
	VoteReject  Vote = "reject"
)

func (v Vote) Valid() bool { return v == VoteApprove || v == VoteReject }

// Verification registra de onde veio um resultado proposto automaticamente
type Verification struct {
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence"`
	Detail     string    `json:"detail,omitempty"`
	CheckedAt  time.Time `json:"checkedAt"`
}

type Bet struct {
	ID        string
	LeagueID  string
	CreatorID string
	Type      BetType
	Question  string

	// MATCH
	HomeTeam string
	AwayTeam string
	EventRef string // id da partida no provedor externo

	// CHOICE
	Options      []string
	OptionTotals []int64

	TotalPool int64
	Status    BetStatus
	ClosesAt  time.Time
	EventAt   time.Time

	ProposedOutcome Selection
	WinningOutcome  Selection

	DisputeDeadline *time.Time
	DisputeActive   bool
	Disputers       []string
	Votes           map[string]Vote

	AutoConfirm      bool
	AutoConfirmDelay time.Duration
	DataSource       string
	Verification     *Verification
	LiveScore        *MatchScore

	SettlementStarted bool
	InvalidReason     string

	CreatedAt  time.Time
	ResolvedAt *time.Time
	Version    int64
}

// HasDisputer indica se o membro já abriu disputa neste resultado
func (b Bet) HasDisputer(memberID string) bool {
	return slices.Contains(b.Disputers, memberID)
}

// DeadlinePassed avalia preguiçosamente a janela de disputa
func (b Bet) DeadlinePassed(now time.Time) bool {
	return b.DisputeDeadline != nil && now.After(*b.DisputeDeadline)
}

// AutoConfirmDue indica se o evento + atraso configurado já passou
func (b Bet) AutoConfirmDue(now time.Time) bool {
	return b.AutoConfirm && !now.Before(b.EventAt.Add(b.AutoConfirmDelay))
}
