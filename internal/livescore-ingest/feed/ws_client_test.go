package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

type collector struct {
	mu      sync.Mutex
	updates []events.LiveScoreUpdate
}

func (c *collector) Publish(_ context.Context, e events.LiveScoreUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, e)
	return nil
}

func (c *collector) snapshot() []events.LiveScoreUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.LiveScoreUpdate(nil), c.updates...)
}

// supplier envia as mensagens a cada conexão e fecha normalmente
func supplier(t *testing.T, messages ...string) *httptest.Server {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(m))
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWSClient_PublishesValidUpdates(t *testing.T) {
	srv := supplier(t,
		`{"event_id":"match-1","home_score":1,"away_score":0,"status":"LIVE","source":"opta"}`,
		`not json`,
		`{"event_id":"","home_score":1,"away_score":0}`,
		`{"event_id":"match-2","home_score":-1,"away_score":0}`,
		`{"event_id":"match-2","home_score":2,"away_score":2,"status":"HT"}`,
	)

	var (
		mu     sync.Mutex
		stages []string
	)
	pub := &collector{}
	fixed := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	c := &WSClient{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		Source:     "supplier",
		Log:        zaptest.NewLogger(t),
		Publisher:  pub,
		MinBackoff: 10 * time.Millisecond,
		Now:        func() time.Time { return fixed },
		OnError: func(stage string) {
			mu.Lock()
			stages = append(stages, stage)
			mu.Unlock()
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(pub.snapshot()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	got := pub.snapshot()
	assert.Equal(t, "match-1", got[0].EventID)
	assert.Equal(t, "opta", got[0].Source)
	assert.Equal(t, "match-2", got[1].EventID)
	assert.Equal(t, "supplier", got[1].Source)
	assert.Equal(t, fixed, got[1].UpdatedAt)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, len(stages), 3)
	assert.Equal(t, []string{"decode", "decode", "decode"}, stages[:3])
}

func TestWSClient_Reconnects(t *testing.T) {
	srv := supplier(t, `{"event_id":"match-1","home_score":0,"away_score":0}`)
	pub := &collector{}
	c := &WSClient{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		Log:        zaptest.NewLogger(t),
		Publisher:  pub,
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(pub.snapshot()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "match-1", pub.snapshot()[2].EventID)
}

func TestWSClient_StopsWhenCanceled(t *testing.T) {
	c := &WSClient{
		URL:        "ws://127.0.0.1:1/unreachable",
		Log:        zaptest.NewLogger(t),
		Publisher:  &collector{},
		MinBackoff: time.Hour,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("client did not stop")
	}
}
