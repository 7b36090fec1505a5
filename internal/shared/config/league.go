package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// LeagueDefaults é o que uma liga nova recebe quando o pedido não traz configuração
type LeagueDefaults struct {
	StartingCapital int64          `yaml:"starting_capital"`
	Scoring         ScoringDefault `yaml:"scoring"`
}

type ScoringDefault struct {
	Exact           int64  `yaml:"exact"`
	Diff            int64  `yaml:"diff"`
	Winner          int64  `yaml:"winner"`
	Choice          int64  `yaml:"choice"`
	ExcludeDrawDiff bool   `yaml:"exclude_draw_diff"`
	DisputeWindow   string `yaml:"dispute_window"` // ex: "24h"
	Mode            string `yaml:"mode"`
}

// DefaultLeague espelha domain.DefaultSettings com capital inicial de 1000 pontos
func DefaultLeague() LeagueDefaults {
	s := domain.DefaultSettings()
	return LeagueDefaults{
		StartingCapital: 1000,
		Scoring: ScoringDefault{
			Exact:         s.Exact,
			Diff:          s.Diff,
			Winner:        s.Winner,
			Choice:        s.Choice,
			DisputeWindow: s.DisputeWindow.String(),
			Mode:          string(s.Mode),
		},
	}
}

// LoadLeagueDefaults lê o YAML; campos ausentes ficam com os defaults do domínio
func LoadLeagueDefaults(path string) (LeagueDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LeagueDefaults{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	d := DefaultLeague()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return LeagueDefaults{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if d.StartingCapital < 0 {
		return LeagueDefaults{}, fmt.Errorf("config: %q: negative starting_capital", path)
	}
	if _, err := d.Settings(); err != nil {
		return LeagueDefaults{}, fmt.Errorf("config: %q: %w", path, err)
	}
	return d, nil
}

// Settings converte para domain.Settings já normalizado
func (d LeagueDefaults) Settings() (domain.Settings, error) {
	s := domain.Settings{
		Exact:           d.Scoring.Exact,
		Diff:            d.Scoring.Diff,
		Winner:          d.Scoring.Winner,
		Choice:          d.Scoring.Choice,
		ExcludeDrawDiff: d.Scoring.ExcludeDrawDiff,
		Mode:            domain.LeagueMode(d.Scoring.Mode),
	}
	if d.Scoring.DisputeWindow != "" {
		w, err := time.ParseDuration(d.Scoring.DisputeWindow)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("dispute_window: %w", err)
		}
		s.DisputeWindow = w
	}
	if err := s.Validate(); err != nil {
		return domain.Settings{}, err
	}
	return s.Normalize(), nil
}
