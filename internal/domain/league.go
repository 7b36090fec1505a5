package domain

import (
	"fmt"
	"time"
)

// LeagueMode define como os pontos de apostas MATCH circulam na liga
type LeagueMode string

const (
	ModeStandard LeagueMode = "STANDARD"
	ModeZeroSum  LeagueMode = "ZERO_SUM"
)

// Role é o papel de um membro dentro da liga
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Settings reúne a configuração de pontuação lida pelo calculador de liquidação.
// É sempre passada explicitamente, nunca lida de estado global.
type Settings struct {
	Exact           int64         `json:"exact" yaml:"exact"`
	Diff            int64         `json:"diff" yaml:"diff"`
	Winner          int64         `json:"winner" yaml:"winner"`
	Choice          int64         `json:"choice" yaml:"choice"`
	ExcludeDrawDiff bool          `json:"excludeDrawDiff" yaml:"exclude_draw_diff"`
	DisputeWindow   time.Duration `json:"disputeWindow" yaml:"dispute_window"`
	Mode            LeagueMode    `json:"mode" yaml:"mode"`
}

// DefaultSettings retorna os valores padrão de uma liga nova
func DefaultSettings() Settings {
	return Settings{
		Exact:         3,
		Diff:          2,
		Winner:        1,
		Choice:        1,
		DisputeWindow: 24 * time.Hour,
		Mode:          ModeStandard,
	}
}

// Normalize completa só a janela de disputa e o modo. Tier zerado é válido e
// desliga aquele tier (ex.: diff 0 não pontua diferença de gols).
func (s Settings) Normalize() Settings {
	if s.DisputeWindow <= 0 {
		s.DisputeWindow = DefaultSettings().DisputeWindow
	}
	if s.Mode == "" {
		s.Mode = ModeStandard
	}
	return s
}

// Validate rejeita pontuação negativa, janela negativa e modo desconhecido
func (s Settings) Validate() error {
	for name, v := range map[string]int64{"exact": s.Exact, "diff": s.Diff, "winner": s.Winner, "choice": s.Choice} {
		if v < 0 {
			return fmt.Errorf("%w: negative %s points", ErrInvalidLeague, name)
		}
	}
	if s.DisputeWindow < 0 {
		return fmt.Errorf("%w: negative dispute window", ErrInvalidLeague)
	}
	switch s.Mode {
	case "", ModeStandard, ModeZeroSum:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidLeague, s.Mode)
	}
	return nil
}

// SettingsPatch altera só os campos informados; nil mantém o valor atual
type SettingsPatch struct {
	Exact           *int64
	Diff            *int64
	Winner          *int64
	Choice          *int64
	ExcludeDrawDiff *bool
	DisputeWindow   *time.Duration
	Mode            *LeagueMode
}

// Apply devolve s com os campos do patch aplicados
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Exact != nil {
		s.Exact = *p.Exact
	}
	if p.Diff != nil {
		s.Diff = *p.Diff
	}
	if p.Winner != nil {
		s.Winner = *p.Winner
	}
	if p.Choice != nil {
		s.Choice = *p.Choice
	}
	if p.ExcludeDrawDiff != nil {
		s.ExcludeDrawDiff = *p.ExcludeDrawDiff
	}
	if p.DisputeWindow != nil {
		s.DisputeWindow = *p.DisputeWindow
	}
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	return s
}

type League struct {
	ID              string
	Name            string
	OwnerID         string
	Settings        Settings
	StartingCapital int64
	CreatedAt       time.Time
	Version         int64
}

// Member é um participante de exatamente uma liga.
// Balance já desconta as apostas pendentes (o débito acontece na colocação).
type Member struct {
	LeagueID string
	ID       string
	Role     Role
	Balance  int64
	PowerUps map[PowerUp]int
	JoinedAt time.Time
	Version  int64
}

// CanManage indica se o membro pode operar apostas da liga (travar, propor, finalizar, invalidar)
func (m Member) CanManage() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// PowerUp é um token consumível que multiplica os pontos de uma aposta MATCH
type PowerUp string

const (
	PowerUpNone PowerUp = ""
	PowerUpX2   PowerUp = "x2"
	PowerUpX3   PowerUp = "x3"
	PowerUpX4   PowerUp = "x4"
)

// Multiplier retorna o fator aplicado aos pontos do tier
func (p PowerUp) Multiplier() int64 {
	switch p {
	case PowerUpX2:
		return 2
	case PowerUpX3:
		return 3
	case PowerUpX4:
		return 4
	default:
		return 1
	}
}

// Valid aceita ausência de power-up ou um dos três tokens conhecidos
func (p PowerUp) Valid() bool {
	switch p {
	case PowerUpNone, PowerUpX2, PowerUpX3, PowerUpX4:
		return true
	}
	return false
}
