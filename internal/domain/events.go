package domain

import "time"

// EventType identifica uma transição ou ação observável do ciclo de vida da bet
type EventType string

const (
	EventBetCreated     EventType = "bet_created"
	EventWagerPlaced    EventType = "wager_placed"
	EventWagerEdited    EventType = "wager_edited"
	EventWagerCancelled EventType = "wager_cancelled"
	EventBetLocked      EventType = "bet_locked"
	EventResultProposed EventType = "result_proposed"
	EventDisputeStarted EventType = "dispute_started"
	EventVoteCast       EventType = "vote_cast"
	EventDisputeDecided EventType = "dispute_decided"
	EventBetResolved    EventType = "bet_resolved"
	EventBetInvalidated EventType = "bet_invalidated"
)

// Event é emitido depois do commit de cada operação bem sucedida.
// Consumidores (notificação, chat, UI) assinam via Kafka, Redis ou WebSocket.
type Event struct {
	Type     EventType         `json:"type"`
	BetID    string            `json:"betId"`
	LeagueID string            `json:"leagueId"`
	MemberID string            `json:"memberId,omitempty"`
	From     BetStatus         `json:"from,omitempty"`
	To       BetStatus         `json:"to,omitempty"`
	Detail   map[string]string `json:"detail,omitempty"`
	At       time.Time         `json:"at"`
}

// Principal é a identidade autenticada fornecida externamente
type Principal struct {
	MemberID string
	System   bool // pipeline de auto-resolução e varredura de prazos
}

// SystemPrincipal é usado pelos processos em lote
var SystemPrincipal = Principal{MemberID: "system", System: true}
