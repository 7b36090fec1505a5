package resolution

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// SportsAPI consulta uma API estruturada de resultados pelo EventRef da bet
type SportsAPI struct {
	c      *httpClient
	base   string
	header http.Header
}

func NewSportsAPI(cfg HTTPConfig) *SportsAPI {
	h := http.Header{}
	if cfg.APIKey != "" {
		h.Set("X-API-Key", cfg.APIKey)
	}
	return &SportsAPI{c: newHTTPClient(cfg), base: strings.TrimRight(cfg.BaseURL, "/"), header: h}
}

func (p *SportsAPI) Name() string { return "sportsapi" }

type eventResult struct {
	Status    string `json:"status"`
	HomeScore *int   `json:"homeScore"`
	AwayScore *int   `json:"awayScore"`
}

// finished são os status que a API usa para partida encerrada
var finished = map[string]bool{"FINAL": true, "FT": true, "FINISHED": true, "AET": true, "PEN": true}

func (p *SportsAPI) Lookup(ctx context.Context, b domain.Bet) (VerificationResult, error) {
	if b.Type != domain.BetMatch || b.EventRef == "" {
		return unknown(p.Name(), "no event reference"), nil
	}

	var res eventResult
	err := p.c.getJSON(ctx, p.base+"/v1/events/"+url.PathEscape(b.EventRef)+"/result", p.header, &res)
	if isStatus(err, http.StatusNotFound) {
		return unknown(p.Name(), "event not found"), nil
	}
	if err != nil {
		return VerificationResult{}, err
	}

	status := strings.ToUpper(res.Status)
	if !finished[status] || res.HomeScore == nil || res.AwayScore == nil {
		return unknown(p.Name(), "event status "+status), nil
	}
	return VerificationResult{
		Status:     StatusFound,
		Outcome:    domain.MatchScore{Home: *res.HomeScore, Away: *res.AwayScore},
		Confidence: 1,
		Source:     p.Name(),
		Detail:     "event " + b.EventRef + " " + status,
	}, nil
}
