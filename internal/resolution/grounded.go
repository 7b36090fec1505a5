package resolution

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// Grounded pergunta a um serviço de busca com IA (respostas com fontes citadas).
// Serve tanto MATCH quanto CHOICE; a resposta em texto é convertida para Selection.
type Grounded struct {
	c      *httpClient
	base   string
	header http.Header
}

func NewGrounded(cfg HTTPConfig) *Grounded {
	h := http.Header{}
	if cfg.APIKey != "" {
		h.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	return &Grounded{c: newHTTPClient(cfg), base: strings.TrimRight(cfg.BaseURL, "/"), header: h}
}

func (p *Grounded) Name() string { return "grounded" }

type groundedRequest struct {
	Question string    `json:"question"`
	Type     string    `json:"type"`
	HomeTeam string    `json:"homeTeam,omitempty"`
	AwayTeam string    `json:"awayTeam,omitempty"`
	Options  []string  `json:"options,omitempty"`
	EventAt  time.Time `json:"eventAt"`
}

type groundedResponse struct {
	Found      bool     `json:"found"`
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Citations  []string `json:"citations"`
}

func (p *Grounded) Lookup(ctx context.Context, b domain.Bet) (VerificationResult, error) {
	req := groundedRequest{
		Question: b.Question,
		Type:     string(b.Type),
		HomeTeam: b.HomeTeam,
		AwayTeam: b.AwayTeam,
		Options:  b.Options,
		EventAt:  b.EventAt,
	}
	var res groundedResponse
	if err := p.c.postJSON(ctx, p.base+"/v1/verify", p.header, req, &res); err != nil {
		return VerificationResult{}, err
	}
	if !res.Found {
		return unknown(p.Name(), "no grounded answer"), nil
	}

	sel, ok := parseAnswer(b, res.Answer)
	if !ok {
		return unknown(p.Name(), "unparseable answer "+strconv.Quote(res.Answer)), nil
	}
	detail := res.Answer
	if len(res.Citations) > 0 {
		detail += " (" + strings.Join(res.Citations, ", ") + ")"
	}
	return VerificationResult{
		Status:     StatusFound,
		Outcome:    sel,
		Confidence: res.Confidence,
		Source:     p.Name(),
		Detail:     detail,
	}, nil
}

var scoreRe = regexp.MustCompile(`^\s*(\d+)\s*[-:x]\s*(\d+)\s*$`)

// parseAnswer aceita "2-1"/"2:1" para MATCH e o texto ou índice da opção para CHOICE
func parseAnswer(b domain.Bet, answer string) (domain.Selection, bool) {
	switch b.Type {
	case domain.BetMatch:
		m := scoreRe.FindStringSubmatch(answer)
		if m == nil {
			return nil, false
		}
		home, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, false
		}
		away, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, false
		}
		return domain.MatchScore{Home: home, Away: away}, true
	case domain.BetChoice:
		a := strings.TrimSpace(answer)
		for i, o := range b.Options {
			if strings.EqualFold(strings.TrimSpace(o), a) {
				return domain.ChoiceIndex(i), true
			}
		}
		if i, err := strconv.Atoi(a); err == nil && i >= 0 && i < len(b.Options) {
			return domain.ChoiceIndex(i), true
		}
	}
	return nil, false
}
