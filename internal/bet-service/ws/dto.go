package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// BetID ou LeagueID: alvo da assinatura
type ClientMsg struct {
	Type     string `json:"type"`
	BetID    string `json:"betId,omitempty"`
	LeagueID string `json:"leagueId,omitempty"`
}

func (m ClientMsg) topic() string {
	switch {
	case m.BetID != "":
		return "bet:" + m.BetID
	case m.LeagueID != "":
		return "league:" + m.LeagueID
	}
	return ""
}
