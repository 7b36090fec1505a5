package domain

import (
	"encoding/json"
	"fmt"
)

// Selection é o palpite de uma aposta (ou o resultado de uma bet).
// Variantes: MatchScore para MATCH e ChoiceIndex para CHOICE.
type Selection interface {
	isSelection()
}

// MatchScore é um placar casa x fora
type MatchScore struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

func (MatchScore) isSelection() {}

// Diff retorna a diferença de gols (casa - fora)
func (s MatchScore) Diff() int { return s.Home - s.Away }

// ChoiceIndex é o índice de uma opção de uma bet CHOICE
type ChoiceIndex int

func (ChoiceIndex) isSelection() {}

type selectionJSON struct {
	Home   *int `json:"home,omitempty"`
	Away   *int `json:"away,omitempty"`
	Option *int `json:"option,omitempty"`
}

// MarshalSelection serializa a seleção para persistência
func MarshalSelection(sel Selection) (string, error) {
	var raw selectionJSON
	switch s := sel.(type) {
	case MatchScore:
		h, a := s.Home, s.Away
		raw.Home, raw.Away = &h, &a
	case ChoiceIndex:
		o := int(s)
		raw.Option = &o
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%w: unknown selection %T", ErrInvalidSelection, sel)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseSelection reconstrói a variante correta a partir do tipo da bet
func ParseSelection(t BetType, s string) (Selection, error) {
	if s == "" {
		return nil, nil
	}
	var raw selectionJSON
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	switch t {
	case BetMatch:
		if raw.Home == nil || raw.Away == nil {
			return nil, fmt.Errorf("%w: match selection needs home and away", ErrInvalidSelection)
		}
		return MatchScore{Home: *raw.Home, Away: *raw.Away}, nil
	case BetChoice:
		if raw.Option == nil {
			return nil, fmt.Errorf("%w: choice selection needs option", ErrInvalidSelection)
		}
		return ChoiceIndex(*raw.Option), nil
	}
	return nil, fmt.Errorf("%w: unknown bet type %q", ErrInvalidSelection, t)
}

// ValidateSelection confere se a seleção combina com o tipo e as opções da bet
func ValidateSelection(b Bet, sel Selection) error {
	switch s := sel.(type) {
	case MatchScore:
		if b.Type != BetMatch {
			return fmt.Errorf("%w: score on %s bet", ErrInvalidSelection, b.Type)
		}
		if s.Home < 0 || s.Away < 0 {
			return fmt.Errorf("%w: negative score", ErrInvalidSelection)
		}
	case ChoiceIndex:
		if b.Type != BetChoice {
			return fmt.Errorf("%w: option on %s bet", ErrInvalidSelection, b.Type)
		}
		if int(s) < 0 || int(s) >= len(b.Options) {
			return fmt.Errorf("%w: option %d out of range", ErrInvalidSelection, int(s))
		}
	default:
		return fmt.Errorf("%w: missing selection", ErrInvalidSelection)
	}
	return nil
}
