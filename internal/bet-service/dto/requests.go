package dto

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/radieske/league-wager-engine/internal/domain"
)

var validate = validator.New()

// Validate aplica as tags `validate` de qualquer request
func Validate(v any) error {
	return validate.Struct(v)
}

// SettingsRequest só altera os campos enviados; 0 explícito desliga o tier
type SettingsRequest struct {
	Exact                *int64  `json:"exact" validate:"omitempty,gte=0"`
	Diff                 *int64  `json:"diff" validate:"omitempty,gte=0"`
	Winner               *int64  `json:"winner" validate:"omitempty,gte=0"`
	Choice               *int64  `json:"choice" validate:"omitempty,gte=0"`
	ExcludeDrawDiff      *bool   `json:"excludeDrawDiff"`
	DisputeWindowMinutes *int64  `json:"disputeWindowMinutes" validate:"omitempty,gt=0"`
	Mode                 *string `json:"mode" validate:"omitempty,oneof=STANDARD ZERO_SUM"`
}

func (s SettingsRequest) Patch() domain.SettingsPatch {
	p := domain.SettingsPatch{
		Exact:           s.Exact,
		Diff:            s.Diff,
		Winner:          s.Winner,
		Choice:          s.Choice,
		ExcludeDrawDiff: s.ExcludeDrawDiff,
	}
	if s.DisputeWindowMinutes != nil {
		w := time.Duration(*s.DisputeWindowMinutes) * time.Minute
		p.DisputeWindow = &w
	}
	if s.Mode != nil {
		m := domain.LeagueMode(*s.Mode)
		p.Mode = &m
	}
	return p
}

type CreateLeagueRequest struct {
	ID              string           `json:"id,omitempty" validate:"omitempty,max=64"`
	Name            string           `json:"name" validate:"required,max=80"`
	StartingCapital *int64           `json:"startingCapital,omitempty" validate:"omitempty,gte=0"`
	Settings        *SettingsRequest `json:"settings,omitempty"`
}

type CreateBetRequest struct {
	ID                      string    `json:"id,omitempty" validate:"omitempty,max=64"`
	Type                    string    `json:"type" validate:"required,oneof=MATCH CHOICE"`
	Question                string    `json:"question" validate:"max=280"`
	HomeTeam                string    `json:"homeTeam" validate:"required_if=Type MATCH,max=80"`
	AwayTeam                string    `json:"awayTeam" validate:"required_if=Type MATCH,max=80"`
	EventRef                string    `json:"eventRef" validate:"max=128"`
	Options                 []string  `json:"options" validate:"required_if=Type CHOICE,omitempty,min=2,dive,required,max=120"`
	ClosesAt                time.Time `json:"closesAt" validate:"required"`
	EventAt                 time.Time `json:"eventAt"`
	AutoConfirm             bool      `json:"autoConfirm"`
	AutoConfirmDelayMinutes int64     `json:"autoConfirmDelayMinutes" validate:"gte=0"`
	DataSource              string    `json:"dataSource" validate:"omitempty,oneof=sportsapi grounded"`
}

type WagerRequest struct {
	Amount    int64           `json:"amount" validate:"gte=0"`
	Selection json.RawMessage `json:"selection" validate:"required"`
	PowerUp   string          `json:"powerUp" validate:"omitempty,oneof=x2 x3 x4"`
}

type ProposeResultRequest struct {
	Outcome json.RawMessage `json:"outcome" validate:"required"`
}

type VoteRequest struct {
	Vote string `json:"vote" validate:"required,oneof=approve reject"`
}

type InvalidateRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type GrantPowerUpRequest struct {
	PowerUp string `json:"powerUp" validate:"required,oneof=x2 x3 x4"`
	Count   int    `json:"count" validate:"required,gt=0,lte=100"`
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN MEMBER"`
}
