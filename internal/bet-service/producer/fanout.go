package producer

import (
	"context"
	"errors"

	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
)

// Fanout entrega o evento para todos os destinos; um destino com falha não impede os outros
type Fanout []betting.Publisher

func (f Fanout) Publish(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
