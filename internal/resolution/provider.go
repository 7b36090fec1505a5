// Package resolution confirma resultados de bets com auto-confirmação consultando
// fontes externas e propõe o resultado pelo engine, sem nunca pular a máquina de estados.
package resolution

import (
	"context"

	"github.com/radieske/league-wager-engine/internal/domain"
)

type VerificationStatus string

const (
	StatusFound   VerificationStatus = "FOUND"
	StatusUnknown VerificationStatus = "UNKNOWN"
)

// VerificationResult é a resposta uniforme de qualquer provedor
type VerificationResult struct {
	Status     VerificationStatus
	Outcome    domain.Selection
	Confidence float64
	Source     string
	Detail     string
}

// Provider consulta uma fonte externa sobre o resultado de uma bet.
// Erro significa falha de consulta; "não sei" é StatusUnknown sem erro.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, b domain.Bet) (VerificationResult, error)
}

// ProviderFunc adapta uma função a Provider (útil em testes e provedores fixos)
type ProviderFunc struct {
	ID string
	Fn func(ctx context.Context, b domain.Bet) (VerificationResult, error)
}

func (p ProviderFunc) Name() string { return p.ID }

func (p ProviderFunc) Lookup(ctx context.Context, b domain.Bet) (VerificationResult, error) {
	return p.Fn(ctx, b)
}

func unknown(source, detail string) VerificationResult {
	return VerificationResult{Status: StatusUnknown, Source: source, Detail: detail}
}
