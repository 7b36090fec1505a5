package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/resolution"
)

// Engine agrupa os contadores do ciclo de vida das bets
type Engine struct {
	Transitions *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	Retries     *prometheus.CounterVec
	Settled     *prometheus.CounterVec
	PointsPaid  prometheus.Counter
}

func NewEngine(reg prometheus.Registerer) *Engine {
	m := &Engine{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_transitions_total", Help: "transições de estado aplicadas"}, []string{"from", "to"}),
		Errors:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_operation_errors_total", Help: "operações do engine que falharam"}, []string{"op", "kind"}),
		Retries:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ledger_tx_retries_total", Help: "transações repetidas por conflito de version"}, []string{"op"}),
		Settled:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "wagers_settled_total", Help: "apostas liquidadas ou estornadas"}, []string{"status"}),
		PointsPaid:  prometheus.NewCounter(prometheus.CounterOpts{Name: "points_paid_total", Help: "pontos creditados em liquidações e estornos"}),
	}
	reg.MustRegister(m.Transitions, m.Errors, m.Retries, m.Settled, m.PointsPaid)
	return m
}

// Hooks liga os contadores ao betting.Engine
func (m *Engine) Hooks() betting.Hooks {
	return betting.Hooks{
		OnTransition: func(from, to domain.BetStatus) {
			m.Transitions.WithLabelValues(string(from), string(to)).Inc()
		},
		OnError: func(op string, err error) {
			m.Errors.WithLabelValues(op, ErrorKind(err)).Inc()
		},
		OnRetry: func(op string) {
			m.Retries.WithLabelValues(op).Inc()
		},
		OnSettled: func(status domain.WagerStatus, payout int64) {
			m.Settled.WithLabelValues(string(status)).Inc()
			if payout > 0 {
				m.PointsPaid.Add(float64(payout))
			}
		},
	}
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{domain.ErrInvalidTransition, "invalid_transition"},
	{domain.ErrBetNotOpen, "bet_not_open"},
	{domain.ErrInsufficientBalance, "insufficient_balance"},
	{domain.ErrDuplicateWager, "duplicate_wager"},
	{domain.ErrDisputeWindowClosed, "dispute_window_closed"},
	{domain.ErrAlreadyResolved, "already_resolved"},
	{domain.ErrConcurrentModification, "concurrent_modification"},
	{domain.ErrNoConsensusReached, "no_consensus"},
	{domain.ErrVerificationUnavailable, "verification_unavailable"},
	{domain.ErrNotFound, "not_found"},
	{domain.ErrForbidden, "forbidden"},
	{domain.ErrInvalidSelection, "invalid_selection"},
	{domain.ErrInvalidBet, "invalid_bet"},
	{domain.ErrInvalidLeague, "invalid_league"},
	{domain.ErrPowerUpUnavailable, "power_up_unavailable"},
	{domain.ErrNotWagering, "not_wagering"},
	{domain.ErrAlreadyVoted, "already_voted"},
}

// ErrorKind reduz o erro a um label de cardinalidade fixa
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// Resolution conta consultas aos provedores e propostas automáticas
type Resolution struct {
	Lookups  *prometheus.CounterVec
	Proposed *prometheus.CounterVec
	Runs     *prometheus.CounterVec
}

func NewResolution(reg prometheus.Registerer) *Resolution {
	m := &Resolution{
		Lookups:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "verification_lookups_total", Help: "consultas aos provedores de resultado"}, []string{"provider", "status"}),
		Proposed: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "auto_proposals_total", Help: "resultados propostos pelo pipeline"}, []string{"source"}),
		Runs:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "resolution_bets_total", Help: "bets avaliadas por rodada do pipeline"}, []string{"outcome"}),
	}
	reg.MustRegister(m.Lookups, m.Proposed, m.Runs)
	return m
}

func (m *Resolution) Hooks() resolution.Hooks {
	return resolution.Hooks{
		OnLookup: func(provider string, status resolution.VerificationStatus, err error) {
			label := string(status)
			if err != nil {
				label = "error"
			}
			m.Lookups.WithLabelValues(provider, label).Inc()
		},
		OnProposed: func(source string) {
			m.Proposed.WithLabelValues(source).Inc()
		},
	}
}

// Observe soma o relatório de uma rodada do pipeline
func (m *Resolution) Observe(rep resolution.Report) {
	m.Runs.WithLabelValues("proposed").Add(float64(rep.Proposed))
	m.Runs.WithLabelValues("unavailable").Add(float64(rep.Unavailable))
	m.Runs.WithLabelValues("skipped").Add(float64(rep.Skipped))
	m.Runs.WithLabelValues("failed").Add(float64(rep.Failed))
}

// Sweep conta o que a varredura de prazos aplicou
type Sweep struct {
	Applied *prometheus.CounterVec
}

func NewSweep(reg prometheus.Registerer) *Sweep {
	m := &Sweep{
		Applied: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "deadline_sweep_total", Help: "ações aplicadas pela varredura de prazos"}, []string{"action"}),
	}
	reg.MustRegister(m.Applied)
	return m
}

func (m *Sweep) Observe(rep betting.SweepReport) {
	m.Applied.WithLabelValues("locked").Add(float64(rep.Locked))
	m.Applied.WithLabelValues("finalized").Add(float64(rep.Finalized))
	m.Applied.WithLabelValues("resumed").Add(float64(rep.Resumed))
	m.Applied.WithLabelValues("failed").Add(float64(rep.Failed))
}

// LiveScore segue os estágios do livescore-processor
type LiveScore struct {
	Consumed prometheus.Counter
	Cached   prometheus.Counter
	Persist  prometheus.Counter
	Bets     prometheus.Counter
	Errors   *prometheus.CounterVec
}

func NewLiveScore(reg prometheus.Registerer) *LiveScore {
	m := &LiveScore{
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{Name: "livescore_messages_consumed_total", Help: "mensagens consumidas"}),
		Cached:   prometheus.NewCounter(prometheus.CounterOpts{Name: "livescore_cache_sets_total", Help: "sets no cache"}),
		Persist:  prometheus.NewCounter(prometheus.CounterOpts{Name: "livescore_db_writes_total", Help: "escritas de snapshot no ledger"}),
		Bets:     prometheus.NewCounter(prometheus.CounterOpts{Name: "livescore_bets_updated_total", Help: "bets com snapshot atualizado"}),
		Errors:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "livescore_errors_total", Help: "erros por fase"}, []string{"stage"}),
	}
	reg.MustRegister(m.Consumed, m.Cached, m.Persist, m.Bets, m.Errors)
	return m
}

func (m *LiveScore) OnConsumed()          { m.Consumed.Inc() }
func (m *LiveScore) OnCached()            { m.Cached.Inc() }
func (m *LiveScore) OnError(stage string) { m.Errors.WithLabelValues(stage).Inc() }

func (m *LiveScore) OnPersist(bets int64) {
	m.Persist.Inc()
	m.Bets.Add(float64(bets))
}

// Ingest segue o cliente do feed de placares
type Ingest struct {
	Received  prometheus.Counter
	Published prometheus.Counter
	Connected prometheus.Gauge
	Errors    *prometheus.CounterVec
}

func NewIngest(reg prometheus.Registerer) *Ingest {
	m := &Ingest{
		Received:  prometheus.NewCounter(prometheus.CounterOpts{Name: "livescore_feed_messages_total", Help: "mensagens recebidas do fornecedor"}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{Name: "livescore_feed_published_total", Help: "placares publicados no Kafka"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{Name: "livescore_feed_connected", Help: "1 enquanto conectado ao fornecedor"}),
		Errors:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "livescore_feed_errors_total", Help: "erros por fase"}, []string{"stage"}),
	}
	reg.MustRegister(m.Received, m.Published, m.Connected, m.Errors)
	return m
}

func (m *Ingest) OnReceived()          { m.Received.Inc() }
func (m *Ingest) OnPublished()         { m.Published.Inc() }
func (m *Ingest) OnError(stage string) { m.Errors.WithLabelValues(stage).Inc() }

func (m *Ingest) OnConnected(up bool) {
	if up {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// HTTP mede as requisições da API por rota
type HTTP struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "http_requests_total", Help: "requisições por rota e status"}, []string{"route", "status"}),
		Latency:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "latência por rota", Buckets: prometheus.DefBuckets}, []string{"route"}),
	}
	reg.MustRegister(m.Requests, m.Latency)
	return m
}

func (m *HTTP) Observe(route string, status int, d time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.Latency.WithLabelValues(route).Observe(d.Seconds())
}
