// Package feed consome o WebSocket de placares ao vivo do fornecedor.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

// Publisher recebe cada placar válido do feed
type Publisher interface {
	Publish(ctx context.Context, e events.LiveScoreUpdate) error
}

// WSClient mantém a conexão com o fornecedor e repassa os placares ao Publisher
type WSClient struct {
	URL       string
	Source    string // gravado no placar quando o fornecedor não informa
	Log       *zap.Logger
	Publisher Publisher

	MinBackoff time.Duration // padrão 1s
	MaxBackoff time.Duration // padrão 30s
	Now        func() time.Time

	OnReceived  func()       // métricas
	OnPublished func()       // métricas
	OnError     func(string) // métricas por fase
	OnConnected func(bool)   // métricas: conectado/desconectado
}

// Start conecta e reconecta com backoff exponencial até o contexto acabar
func (c *WSClient) Start(ctx context.Context) {
	backoff := c.minBackoff()
	for {
		connected, err := c.connectAndListen(ctx)
		if ctx.Err() != nil {
			c.Log.Info("context canceled, stopping feed client")
			return
		}
		if connected {
			backoff = c.minBackoff()
		}
		if err != nil {
			c.Log.Warn("feed connection closed", zap.Error(err), zap.Duration("retry_in", backoff))
			c.hit(c.OnError, "connect")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if limit := c.maxBackoff(); backoff > limit {
			backoff = limit
		}
	}
}

func (c *WSClient) minBackoff() time.Duration {
	if c.MinBackoff > 0 {
		return c.MinBackoff
	}
	return time.Second
}

func (c *WSClient) maxBackoff() time.Duration {
	if c.MaxBackoff > 0 {
		return c.MaxBackoff
	}
	return 30 * time.Second
}

// connectAndListen devolve connected=true se a conexão chegou a abrir
func (c *WSClient) connectAndListen(ctx context.Context) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	c.Log.Info("connected to live score feed", zap.String("url", c.URL))
	if c.OnConnected != nil {
		c.OnConnected(true)
		defer c.OnConnected(false)
	}

	// ReadMessage não recebe contexto; fechar a conexão destrava a leitura
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return true, nil
			}
			return true, err
		}
		c.hit0(c.OnReceived)

		update, err := c.decode(message)
		if err != nil {
			c.Log.Warn("invalid feed message", zap.Error(err))
			c.hit(c.OnError, "decode")
			continue
		}

		if err := c.Publisher.Publish(ctx, update); err != nil {
			c.Log.Error("failed to publish live score", zap.String("event_id", update.EventID), zap.Error(err))
			c.hit(c.OnError, "publish")
			continue
		}
		c.hit0(c.OnPublished)
	}
}

// decode valida a mensagem e completa os campos opcionais
func (c *WSClient) decode(message []byte) (events.LiveScoreUpdate, error) {
	var u events.LiveScoreUpdate
	if err := json.Unmarshal(message, &u); err != nil {
		return u, err
	}
	u.EventID = strings.TrimSpace(u.EventID)
	if u.EventID == "" {
		return u, errors.New("missing event_id")
	}
	if u.HomeScore < 0 || u.AwayScore < 0 {
		return u, fmt.Errorf("negative score for %s", u.EventID)
	}
	if u.Source == "" {
		u.Source = c.Source
	}
	if u.UpdatedAt.IsZero() {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		u.UpdatedAt = now().UTC()
	}
	return u, nil
}

func (c *WSClient) hit(fn func(string), stage string) {
	if fn != nil {
		fn(stage)
	}
}

func (c *WSClient) hit0(fn func()) {
	if fn != nil {
		fn()
	}
}
