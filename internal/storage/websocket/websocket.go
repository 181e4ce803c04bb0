package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smentu/AI-guided-rockets/internal/model"
)

// Message types carried in an Envelope.
const (
	TypeStartEpisode = "start_episode"
	TypeStep         = "step"
	TypeEndEpisode   = "end_episode"
)

// Envelope wraps every message sent to the telemetry server.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Config locates the telemetry server.
type Config struct {
	URL    string
	Secret string // sent as the "secret" query parameter
}

// Backend streams episode lifecycle messages to a live telemetry server.
// Messages are queued and written by one goroutine, so a slow server never
// stalls the fleet.
type Backend struct {
	conn *connection
	cfg  Config
}

func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{
		conn: newConnection(log),
		cfg:  cfg,
	}
}

func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close waits for queued messages and hangs up.
func (b *Backend) Close() error {
	return b.conn.close()
}

func (b *Backend) StartEpisode(e *model.Episode) error {
	return b.publish(TypeStartEpisode, e)
}

func (b *Backend) RecordStep(s *model.Step) error {
	return b.publish(TypeStep, s)
}

func (b *Backend) EndEpisode(s *model.Summary) error {
	return b.publish(TypeEndEpisode, s)
}

func (b *Backend) publish(kind string, payload any) error {
	data, err := encode(kind, payload)
	if err != nil {
		return err
	}
	return b.conn.send(data)
}

// encode wraps payload in an Envelope of the given kind.
func encode(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}
