package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/model"
)

// testServer creates an httptest server that upgrades to WebSocket and
// records received envelopes until the client closes.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{closed: make(chan struct{})}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()
		defer close(ml.closed)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []Envelope
	secret   string
	closed   chan struct{}
}

func (m *messageLog) add(env Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-m.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the connection close")
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamEpisode(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s3cret"}, zerolog.Nop())
	require.NoError(t, b.Init())

	const id = "5a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"
	require.NoError(t, b.StartEpisode(&model.Episode{ID: id, Vehicle: "lander"}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, b.RecordStep(&model.Step{EpisodeID: id, Step: i}))
	}
	require.NoError(t, b.EndEpisode(&model.Summary{EpisodeID: id, Reason: "touchdown", Reward: 42}))
	require.NoError(t, b.Close())
	ml.waitClosed(t)

	msgs := ml.all()
	require.Len(t, msgs, 5)
	assert.Equal(t, TypeStartEpisode, msgs[0].Type)
	assert.Equal(t, TypeStep, msgs[1].Type)
	assert.Equal(t, TypeEndEpisode, msgs[4].Type)

	var ep model.Episode
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &ep))
	assert.Equal(t, "lander", ep.Vehicle)

	var step model.Step
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &step))
	assert.Equal(t, 3, step.Step)

	var sum model.Summary
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &sum))
	assert.Equal(t, "touchdown", sum.Reason)
	assert.Equal(t, 42.0, sum.Reward)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secret)
	ml.mu.Unlock()
}

func TestSendAfterClose(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, zerolog.Nop())
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	ml.waitClosed(t)

	assert.Error(t, b.RecordStep(&model.Step{}))
	assert.NoError(t, b.Close(), "second close is a no-op")
}

func TestDialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/ws"}, zerolog.Nop())
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket dial failed")
	assert.Error(t, b.StartEpisode(&model.Episode{}))
	assert.NoError(t, b.Close())
}

func TestEncode(t *testing.T) {
	data, err := encode(TypeStep, map[string]int{"step": 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"step","payload":{"step":4}}`, string(data))

	_, err = encode(TypeStep, make(chan int))
	assert.Error(t, err)
}
