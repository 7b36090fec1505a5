package events

import "time"

// Evento publicado no tópico "live_scores" pelo feed de placares
type LiveScoreUpdate struct {
	EventID   string    `json:"event_id"`
	HomeScore int       `json:"home_score"`
	AwayScore int       `json:"away_score"`
	Minute    int       `json:"minute,omitempty"`
	Status    string    `json:"status"` // "LIVE" | "HT" | "FT"
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}
