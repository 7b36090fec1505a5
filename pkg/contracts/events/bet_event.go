package events

import "time"

// Evento publicado no tópico "bet_events" e no canal Redis de broadcast a cada
// transição do ciclo de vida de uma bet (após o commit).
type BetEvent struct {
	Type     string            `json:"type"`
	BetID    string            `json:"bet_id"`
	LeagueID string            `json:"league_id"`
	MemberID string            `json:"member_id,omitempty"`
	From     string            `json:"from,omitempty"`
	To       string            `json:"to,omitempty"`
	Detail   map[string]string `json:"detail,omitempty"`
	Ts       time.Time         `json:"ts"`
}
