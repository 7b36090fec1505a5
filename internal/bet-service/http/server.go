package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/bet-service/dto"
	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/projection"
)

// MemberHeader identifica o membro que faz a chamada. A autenticação fica no gateway.
const MemberHeader = "X-Member-ID"

// API expõe o ciclo de vida das bets, ligas e classificação via REST
type API struct {
	Log       *zap.Logger
	Engine    *betting.Engine
	Projector *projection.Projector
	WS        http.HandlerFunc // opcional: hub de WebSocket

	// aplicados quando a criação de liga não traz settings/capital
	LeagueDefaults  domain.Settings
	StartingCapital int64

	AllowedOrigins []string
	Ping           func(ctx context.Context) error
	OnRequest      func(route string, status int, d time.Duration)
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: a.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", MemberHeader},
	}).Handler)
	r.Use(a.observe)

	r.Get("/healthz", a.health)
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}

	r.Route("/v1/leagues", func(r chi.Router) {
		r.Post("/", a.createLeague)
		r.Route("/{leagueID}", func(r chi.Router) {
			r.Get("/", a.getLeague)
			r.Post("/join", a.joinLeague)
			r.Put("/settings", a.updateSettings)
			r.Get("/members", a.listMembers)
			r.Post("/members/{memberID}/power-ups", a.grantPowerUp)
			r.Put("/members/{memberID}/role", a.setRole)
			r.Get("/members/{memberID}/ledger", a.listEntries)
			r.Get("/bets", a.listBets)
			r.Post("/bets", a.createBet)
			r.Get("/standings", a.standings)
		})
	})

	r.Route("/v1/bets/{betID}", func(r chi.Router) {
		r.Get("/", a.getBet)
		r.Get("/wagers", a.listWagers)
		r.Post("/wagers", a.placeWager)
		r.Put("/wagers", a.editWager)
		r.Delete("/wagers", a.cancelWager)
		r.Post("/lock", a.lockBet)
		r.Post("/result", a.proposeResult)
		r.Post("/dispute", a.dispute)
		r.Post("/votes", a.castVote)
		r.Post("/dispute/resolve", a.resolveDispute)
		r.Post("/finalize", a.finalize)
		r.Post("/invalidate", a.invalidate)
	})
	return r
}

// observe loga a requisição e alimenta as métricas com o padrão da rota
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		if a.OnRequest != nil {
			a.OnRequest(r.Method+" "+route, ww.Status(), time.Since(start))
		}
		if ww.Status() >= http.StatusInternalServerError {
			a.Log.Warn("request failed",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", ww.Status()),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}
	})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if a.Ping != nil {
		if err := a.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "unavailable", Message: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// principal lê o membro do header; o sistema nunca entra pela API
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	id := strings.TrimSpace(r.Header.Get(MemberHeader))
	if id == "" || id == domain.SystemPrincipal.MemberID {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthenticated", Message: MemberHeader + " header required"})
		return domain.Principal{}, false
	}
	return domain.Principal{MemberID: id}, true
}

// decode lê o corpo JSON e aplica as validações do DTO
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad_json", Message: err.Error()})
		return false
	}
	if err := dto.Validate(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_payload", Message: validationMessage(err)})
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorTable = []errorMapping{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrNotWagering, http.StatusForbidden, "not_wagering"},
	{domain.ErrInvalidSelection, http.StatusBadRequest, "invalid_selection"},
	{domain.ErrInvalidBet, http.StatusBadRequest, "invalid_bet"},
	{domain.ErrInvalidLeague, http.StatusBadRequest, "invalid_league"},
	{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{domain.ErrPowerUpUnavailable, http.StatusUnprocessableEntity, "power_up_unavailable"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrBetNotOpen, http.StatusConflict, "bet_not_open"},
	{domain.ErrDuplicateWager, http.StatusConflict, "duplicate_wager"},
	{domain.ErrDisputeWindowClosed, http.StatusConflict, "dispute_window_closed"},
	{domain.ErrAlreadyResolved, http.StatusConflict, "already_resolved"},
	{domain.ErrAlreadyVoted, http.StatusConflict, "already_voted"},
	{domain.ErrNoConsensusReached, http.StatusConflict, "no_consensus"},
	{domain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
	{domain.ErrVerificationUnavailable, http.StatusServiceUnavailable, "verification_unavailable"},
}

// writeError traduz os erros de domínio em status HTTP
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			writeJSON(w, m.status, dto.ErrorResponse{Error: m.code, Message: err.Error()})
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	a.Log.Error("unexpected error", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal"})
}

// requireMember restringe leituras da liga aos seus membros
func (a *API) requireMember(ctx context.Context, leagueID string, p domain.Principal) error {
	_, err := a.Engine.Store().GetMember(ctx, leagueID, p.MemberID)
	if errors.Is(err, domain.ErrNotFound) {
		if _, lerr := a.Engine.Store().GetLeague(ctx, leagueID); lerr != nil {
			return lerr
		}
		return domain.ErrForbidden
	}
	return err
}
