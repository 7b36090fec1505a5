package dto

import (
	"encoding/json"
	"time"

	"github.com/radieske/league-wager-engine/internal/consensus"
	"github.com/radieske/league-wager-engine/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SettingsResponse struct {
	Exact                int64  `json:"exact"`
	Diff                 int64  `json:"diff"`
	Winner               int64  `json:"winner"`
	Choice               int64  `json:"choice"`
	ExcludeDrawDiff      bool   `json:"excludeDrawDiff"`
	DisputeWindowMinutes int64  `json:"disputeWindowMinutes"`
	Mode                 string `json:"mode"`
}

type LeagueResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	OwnerID         string           `json:"ownerId"`
	StartingCapital int64            `json:"startingCapital"`
	Settings        SettingsResponse `json:"settings"`
}

func FromLeague(l domain.League) LeagueResponse {
	s := l.Settings
	return LeagueResponse{
		ID:              l.ID,
		Name:            l.Name,
		OwnerID:         l.OwnerID,
		StartingCapital: l.StartingCapital,
		Settings: SettingsResponse{
			Exact:                s.Exact,
			Diff:                 s.Diff,
			Winner:               s.Winner,
			Choice:               s.Choice,
			ExcludeDrawDiff:      s.ExcludeDrawDiff,
			DisputeWindowMinutes: int64(s.DisputeWindow / time.Minute),
			Mode:                 string(s.Mode),
		},
	}
}

type MemberResponse struct {
	LeagueID string         `json:"leagueId"`
	ID       string         `json:"id"`
	Role     string         `json:"role"`
	Balance  int64          `json:"balance"`
	PowerUps map[string]int `json:"powerUps"`
}

func FromMember(m domain.Member) MemberResponse {
	pups := make(map[string]int, len(m.PowerUps))
	for k, v := range m.PowerUps {
		if v > 0 {
			pups[string(k)] = v
		}
	}
	return MemberResponse{LeagueID: m.LeagueID, ID: m.ID, Role: string(m.Role), Balance: m.Balance, PowerUps: pups}
}

type BetResponse struct {
	ID                string               `json:"id"`
	LeagueID          string               `json:"leagueId"`
	CreatorID         string               `json:"creatorId"`
	Type              string               `json:"type"`
	Question          string               `json:"question"`
	HomeTeam          string               `json:"homeTeam,omitempty"`
	AwayTeam          string               `json:"awayTeam,omitempty"`
	EventRef          string               `json:"eventRef,omitempty"`
	Options           []string             `json:"options,omitempty"`
	OptionTotals      []int64              `json:"optionTotals,omitempty"`
	TotalPool         int64                `json:"totalPool"`
	Status            string               `json:"status"`
	ClosesAt          time.Time            `json:"closesAt"`
	EventAt           time.Time            `json:"eventAt"`
	ProposedOutcome   json.RawMessage      `json:"proposedOutcome,omitempty"`
	WinningOutcome    json.RawMessage      `json:"winningOutcome,omitempty"`
	DisputeDeadline   *time.Time           `json:"disputeDeadline,omitempty"`
	DisputeActive     bool                 `json:"disputeActive"`
	Disputers         []string             `json:"disputers,omitempty"`
	Votes             map[string]string    `json:"votes,omitempty"`
	AutoConfirm       bool                 `json:"autoConfirm"`
	DataSource        string               `json:"dataSource,omitempty"`
	Verification      *domain.Verification `json:"verification,omitempty"`
	LiveScore         *domain.MatchScore   `json:"liveScore,omitempty"`
	SettlementStarted bool                 `json:"settlementStarted,omitempty"`
	InvalidReason     string               `json:"invalidReason,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	ResolvedAt        *time.Time           `json:"resolvedAt,omitempty"`
}

func FromBet(b domain.Bet) BetResponse {
	votes := make(map[string]string, len(b.Votes))
	for k, v := range b.Votes {
		votes[k] = string(v)
	}
	return BetResponse{
		ID:                b.ID,
		LeagueID:          b.LeagueID,
		CreatorID:         b.CreatorID,
		Type:              string(b.Type),
		Question:          b.Question,
		HomeTeam:          b.HomeTeam,
		AwayTeam:          b.AwayTeam,
		EventRef:          b.EventRef,
		Options:           b.Options,
		OptionTotals:      b.OptionTotals,
		TotalPool:         b.TotalPool,
		Status:            string(b.Status),
		ClosesAt:          b.ClosesAt,
		EventAt:           b.EventAt,
		ProposedOutcome:   rawSelection(b.ProposedOutcome),
		WinningOutcome:    rawSelection(b.WinningOutcome),
		DisputeDeadline:   b.DisputeDeadline,
		DisputeActive:     b.DisputeActive,
		Disputers:         b.Disputers,
		Votes:             votes,
		AutoConfirm:       b.AutoConfirm,
		DataSource:        b.DataSource,
		Verification:      b.Verification,
		LiveScore:         b.LiveScore,
		SettlementStarted: b.SettlementStarted,
		InvalidReason:     b.InvalidReason,
		CreatedAt:         b.CreatedAt,
		ResolvedAt:        b.ResolvedAt,
	}
}

type WagerResponse struct {
	ID        string          `json:"id"`
	BetID     string          `json:"betId"`
	MemberID  string          `json:"memberId"`
	Amount    int64           `json:"amount"`
	Selection json.RawMessage `json:"selection"`
	PowerUp   string          `json:"powerUp,omitempty"`
	Status    string          `json:"status"`
	Points    int64           `json:"points"`
	Payout    int64           `json:"payout"`
	CreatedAt time.Time       `json:"createdAt"`
	SettledAt *time.Time      `json:"settledAt,omitempty"`
}

func FromWager(w domain.Wager) WagerResponse {
	return WagerResponse{
		ID:        w.ID,
		BetID:     w.BetID,
		MemberID:  w.MemberID,
		Amount:    w.Amount,
		Selection: rawSelection(w.Selection),
		PowerUp:   string(w.PowerUp),
		Status:    string(w.Status),
		Points:    w.Points,
		Payout:    w.Payout,
		CreatedAt: w.CreatedAt,
		SettledAt: w.SettledAt,
	}
}

type EntryResponse struct {
	ID        int64     `json:"id"`
	BetID     string    `json:"betId,omitempty"`
	WagerID   string    `json:"wagerId,omitempty"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromEntry(e domain.LedgerEntry) EntryResponse {
	return EntryResponse{ID: e.ID, BetID: e.BetID, WagerID: e.WagerID, Kind: string(e.Kind), Amount: e.Amount, CreatedAt: e.CreatedAt}
}

type DisputeDecisionResponse struct {
	Decision  string      `json:"decision"`
	Wagerers  int         `json:"wagerers"`
	Votes     int         `json:"votes"`
	Approvals int         `json:"approvals"`
	Rejects   int         `json:"rejects"`
	Bet       BetResponse `json:"bet"`
}

func FromDecision(r consensus.Result, b domain.Bet) DisputeDecisionResponse {
	return DisputeDecisionResponse{
		Decision:  string(r.Decision),
		Wagerers:  r.Wagerers,
		Votes:     r.Votes,
		Approvals: r.Approvals,
		Rejects:   r.Rejects,
		Bet:       FromBet(b),
	}
}

func rawSelection(sel domain.Selection) json.RawMessage {
	s, err := domain.MarshalSelection(sel)
	if err != nil || s == "" {
		return nil
	}
	return json.RawMessage(s)
}
