package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

// client serializa as escritas numa conexão (gorilla não aceita escritores concorrentes)
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por bet ou por liga
// subs: mapeia "bet:<id>" / "league:<id>" para o conjunto de clientes inscritos
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe em bets e ligas e responde a pings
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if t := msg.topic(); t != "" {
				h.mu.Lock()
				if _, ok := h.subs[t]; !ok {
					h.subs[t] = make(map[*client]struct{})
				}
				h.subs[t][c] = struct{}{}
				h.mu.Unlock()
			}
		case "unsubscribe":
			h.remove(msg.topic(), c)
		case "ping":
			b, _ := json.Marshal(map[string]string{"type": "pong"})
			_ = c.write(b)
		}
	}

	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for t, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, t)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(topic string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[topic]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Broadcast envia o evento a quem assina a bet ou a liga (uma vez por conexão)
func (h *Hub) Broadcast(ev events.BetEvent) {
	h.mu.RLock()
	targets := map[*client]struct{}{}
	for _, t := range []string{"bet:" + ev.BetID, "league:" + ev.LeagueID} {
		for c := range h.subs[t] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, _ := json.Marshal(ev)
	for c := range targets {
		_ = c.write(b)
	}
}
