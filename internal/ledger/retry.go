package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// RetryPolicy controla as novas tentativas em conflito otimista
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	OnRetry   func(attempt int, err error) // métricas
}

var DefaultRetry = RetryPolicy{Attempts: 3, BaseDelay: 20 * time.Millisecond}

// WithTransaction executa fn em uma transação, repetindo com backoff exponencial
// enquanto o erro for domain.ErrConcurrentModification. Erros de validação voltam na hora.
func WithTransaction(ctx context.Context, s Store, p RetryPolicy, fn func(tx Tx) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = s.InTx(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		wait := p.BaseDelay << attempt
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
