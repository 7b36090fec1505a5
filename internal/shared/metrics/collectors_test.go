package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/resolution"
)

// value lê o valor atual de um counter
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetCounter().GetValue()
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "insufficient_balance", ErrorKind(fmt.Errorf("place: %w", domain.ErrInsufficientBalance)))
	assert.Equal(t, "concurrent_modification", ErrorKind(domain.ErrConcurrentModification))
	assert.Equal(t, "internal", ErrorKind(errors.New("boom")))
}

func TestEngineHooks(t *testing.T) {
	m := NewEngine(prometheus.NewRegistry())
	h := m.Hooks()

	h.OnTransition(domain.StatusOpen, domain.StatusLocked)
	h.OnTransition(domain.StatusOpen, domain.StatusLocked)
	h.OnError("place_wager", domain.ErrBetNotOpen)
	h.OnRetry("finalize")
	h.OnSettled(domain.WagerWon, 150)
	h.OnSettled(domain.WagerLost, 0)

	assert.Equal(t, 2.0, value(t, m.Transitions.WithLabelValues("OPEN", "LOCKED")))
	assert.Equal(t, 1.0, value(t, m.Errors.WithLabelValues("place_wager", "bet_not_open")))
	assert.Equal(t, 1.0, value(t, m.Retries.WithLabelValues("finalize")))
	assert.Equal(t, 150.0, value(t, m.PointsPaid))
	assert.Equal(t, 1.0, value(t, m.Settled.WithLabelValues(string(domain.WagerLost))))
}

func TestResolutionAndSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewResolution(reg)
	s := NewSweep(reg)

	h := r.Hooks()
	h.OnLookup("sportsapi", resolution.StatusFound, nil)
	h.OnLookup("grounded", resolution.StatusUnknown, errors.New("timeout"))
	h.OnProposed("sportsapi")
	r.Observe(resolution.Report{Proposed: 2, Skipped: 1})
	s.Observe(betting.SweepReport{Locked: 3, Resumed: 1})

	assert.Equal(t, 1.0, value(t, r.Lookups.WithLabelValues("sportsapi", "FOUND")))
	assert.Equal(t, 1.0, value(t, r.Lookups.WithLabelValues("grounded", "error")))
	assert.Equal(t, 2.0, value(t, r.Runs.WithLabelValues("proposed")))
	assert.Equal(t, 3.0, value(t, s.Applied.WithLabelValues("locked")))
}

func TestLiveScoreAndHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	ls := NewLiveScore(reg)
	ht := NewHTTP(reg)

	ls.OnConsumed()
	ls.OnPersist(4)
	ls.OnError("decode")
	ht.Observe("GET /v1/bets/{betID}", 200, 20*time.Millisecond)

	assert.Equal(t, 1.0, value(t, ls.Consumed))
	assert.Equal(t, 4.0, value(t, ls.Bets))
	assert.Equal(t, 1.0, value(t, ls.Errors.WithLabelValues("decode")))
	assert.Equal(t, 1.0, value(t, ht.Requests.WithLabelValues("GET /v1/bets/{betID}", "200")))
}

func TestIngest(t *testing.T) {
	m := NewIngest(prometheus.NewRegistry())
	m.OnReceived()
	m.OnReceived()
	m.OnPublished()
	m.OnError("decode")
	m.OnConnected(true)

	assert.Equal(t, 2.0, value(t, m.Received))
	assert.Equal(t, 1.0, value(t, m.Published))
	assert.Equal(t, 1.0, value(t, m.Errors.WithLabelValues("decode")))

	var out dto.Metric
	require.NoError(t, m.Connected.Write(&out))
	assert.Equal(t, 1.0, out.GetGauge().GetValue())
}
