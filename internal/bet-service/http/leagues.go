package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/league-wager-engine/internal/bet-service/dto"
	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
)

func (a *API) createLeague(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.CreateLeagueRequest
	if !decode(w, r, &req) {
		return
	}
	in := betting.NewLeague{ID: req.ID, Name: req.Name, Settings: a.LeagueDefaults, StartingCapital: a.StartingCapital}
	if req.StartingCapital != nil {
		in.StartingCapital = *req.StartingCapital
	}
	if req.Settings != nil {
		in.Settings = req.Settings.Patch().Apply(a.LeagueDefaults)
	}
	l, err := a.Engine.CreateLeague(r.Context(), p, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromLeague(l))
}

func (a *API) getLeague(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "leagueID")
	if err := a.requireMember(r.Context(), id, p); err != nil {
		a.writeError(w, r, err)
		return
	}
	l, err := a.Engine.Store().GetLeague(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromLeague(l))
}

func (a *API) joinLeague(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	m, err := a.Engine.JoinLeague(r.Context(), p, chi.URLParam(r, "leagueID"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMember(m))
}

func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.SettingsRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := a.Engine.UpdateSettings(r.Context(), p, chi.URLParam(r, "leagueID"), req.Patch())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromLeague(l))
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "leagueID")
	if err := a.requireMember(r.Context(), id, p); err != nil {
		a.writeError(w, r, err)
		return
	}
	ms, err := a.Engine.Store().ListMembers(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]dto.MemberResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, dto.FromMember(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) grantPowerUp(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.GrantPowerUpRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.Engine.GrantPowerUp(r.Context(), p, chi.URLParam(r, "leagueID"), chi.URLParam(r, "memberID"), domain.PowerUp(req.PowerUp), req.Count)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMember(m))
}

func (a *API) setRole(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.SetRoleRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := a.Engine.SetRole(r.Context(), p, chi.URLParam(r, "leagueID"), chi.URLParam(r, "memberID"), domain.Role(req.Role))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromMember(m))
}

// listEntries devolve o extrato do membro; só o próprio membro ou um gestor da liga
func (a *API) listEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	leagueID, memberID := chi.URLParam(r, "leagueID"), chi.URLParam(r, "memberID")
	if p.MemberID != memberID {
		caller, err := a.Engine.Store().GetMember(r.Context(), leagueID, p.MemberID)
		if err != nil || !caller.CanManage() {
			a.writeError(w, r, domain.ErrForbidden)
			return
		}
	}
	if err := a.requireMember(r.Context(), leagueID, domain.Principal{MemberID: memberID}); err != nil {
		a.writeError(w, r, err)
		return
	}
	es, err := a.Engine.Store().ListEntries(r.Context(), leagueID, memberID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]dto.EntryResponse, 0, len(es))
	for _, e := range es {
		out = append(out, dto.FromEntry(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// standings devolve a classificação liquidada e a projetada com placares ao vivo
func (a *API) standings(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "leagueID")
	if err := a.requireMember(r.Context(), id, p); err != nil {
		a.writeError(w, r, err)
		return
	}
	proj, err := a.Projector.Project(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}
