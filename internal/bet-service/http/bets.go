package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/league-wager-engine/internal/bet-service/dto"
	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
)

func (a *API) createBet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.CreateBetRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := a.Engine.CreateBet(r.Context(), p, betting.NewBet{
		ID:               req.ID,
		LeagueID:         chi.URLParam(r, "leagueID"),
		Type:             domain.BetType(req.Type),
		Question:         req.Question,
		HomeTeam:         req.HomeTeam,
		AwayTeam:         req.AwayTeam,
		EventRef:         req.EventRef,
		Options:          req.Options,
		ClosesAt:         req.ClosesAt,
		EventAt:          req.EventAt,
		AutoConfirm:      req.AutoConfirm,
		AutoConfirmDelay: time.Duration(req.AutoConfirmDelayMinutes) * time.Minute,
		DataSource:       req.DataSource,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromBet(b))
}

// listBets aceita ?status=OPEN&status=LOCKED
func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "leagueID")
	if err := a.requireMember(r.Context(), id, p); err != nil {
		a.writeError(w, r, err)
		return
	}
	var statuses []domain.BetStatus
	for _, s := range r.URL.Query()["status"] {
		statuses = append(statuses, domain.BetStatus(s))
	}
	bs, err := a.Engine.ListBets(r.Context(), id, statuses...)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, dto.FromBet(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// memberBet lê a bet e confere que o principal pertence à liga dela
func (a *API) memberBet(w http.ResponseWriter, r *http.Request) (domain.Principal, domain.Bet, bool) {
	p, ok := principal(w, r)
	if !ok {
		return p, domain.Bet{}, false
	}
	b, err := a.Engine.GetBet(r.Context(), chi.URLParam(r, "betID"))
	if err == nil {
		err = a.requireMember(r.Context(), b.LeagueID, p)
	}
	if err != nil {
		a.writeError(w, r, err)
		return p, domain.Bet{}, false
	}
	return p, b, true
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	_, b, ok := a.memberBet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(b))
}

func (a *API) listWagers(w http.ResponseWriter, r *http.Request) {
	_, b, ok := a.memberBet(w, r)
	if !ok {
		return
	}
	ws, err := a.Engine.ListWagers(r.Context(), b.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]dto.WagerResponse, 0, len(ws))
	for _, wg := range ws {
		out = append(out, dto.FromWager(wg))
	}
	writeJSON(w, http.StatusOK, out)
}

// wagerRequest converte o corpo usando o tipo da bet para interpretar o palpite
func (a *API) wagerRequest(w http.ResponseWriter, r *http.Request) (domain.Principal, string, betting.WagerRequest, bool) {
	p, b, ok := a.memberBet(w, r)
	if !ok {
		return p, "", betting.WagerRequest{}, false
	}
	var req dto.WagerRequest
	if !decode(w, r, &req) {
		return p, "", betting.WagerRequest{}, false
	}
	sel, err := domain.ParseSelection(b.Type, string(req.Selection))
	if err != nil {
		a.writeError(w, r, err)
		return p, "", betting.WagerRequest{}, false
	}
	return p, b.ID, betting.WagerRequest{Amount: req.Amount, Selection: sel, PowerUp: domain.PowerUp(req.PowerUp)}, true
}

func (a *API) placeWager(w http.ResponseWriter, r *http.Request) {
	p, betID, in, ok := a.wagerRequest(w, r)
	if !ok {
		return
	}
	wg, err := a.Engine.PlaceWager(r.Context(), p, betID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromWager(wg))
}

func (a *API) editWager(w http.ResponseWriter, r *http.Request) {
	p, betID, in, ok := a.wagerRequest(w, r)
	if !ok {
		return
	}
	wg, err := a.Engine.EditWager(r.Context(), p, betID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromWager(wg))
}

func (a *API) cancelWager(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := a.Engine.CancelWager(r.Context(), p, chi.URLParam(r, "betID")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// betAction roda uma transição que devolve a bet atualizada
func (a *API) betAction(fn func(r *http.Request, p domain.Principal, betID string) (domain.Bet, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		b, err := fn(r, p, chi.URLParam(r, "betID"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.FromBet(b))
	}
}

func (a *API) lockBet(w http.ResponseWriter, r *http.Request) {
	a.betAction(func(r *http.Request, p domain.Principal, id string) (domain.Bet, error) {
		return a.Engine.Lock(r.Context(), p, id)
	})(w, r)
}

func (a *API) dispute(w http.ResponseWriter, r *http.Request) {
	a.betAction(func(r *http.Request, p domain.Principal, id string) (domain.Bet, error) {
		return a.Engine.Dispute(r.Context(), p, id)
	})(w, r)
}

func (a *API) finalize(w http.ResponseWriter, r *http.Request) {
	a.betAction(func(r *http.Request, p domain.Principal, id string) (domain.Bet, error) {
		return a.Engine.Finalize(r.Context(), p, id)
	})(w, r)
}

func (a *API) proposeResult(w http.ResponseWriter, r *http.Request) {
	p, b, ok := a.memberBet(w, r)
	if !ok {
		return
	}
	var req dto.ProposeResultRequest
	if !decode(w, r, &req) {
		return
	}
	outcome, err := domain.ParseSelection(b.Type, string(req.Outcome))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out, err := a.Engine.ProposeResult(r.Context(), p, b.ID, outcome, nil)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(out))
}

func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.VoteRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := a.Engine.CastVote(r.Context(), p, chi.URLParam(r, "betID"), domain.Vote(req.Vote))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(b))
}

// resolveDispute devolve a decisão; no_consensus é 200 com a bet ainda em disputa
func (a *API) resolveDispute(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	res, b, err := a.Engine.ResolveDispute(r.Context(), p, chi.URLParam(r, "betID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromDecision(res, b))
}

func (a *API) invalidate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.InvalidateRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	b, err := a.Engine.Invalidate(r.Context(), p, chi.URLParam(r, "betID"), req.Reason)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(b))
}
