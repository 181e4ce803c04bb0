package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/config"
	"github.com/smentu/AI-guided-rockets/internal/model"
)

func unreachable(backup string) config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "rocketsim",
		Bucket:     "episodes",
		BackupPath: backup,
	}
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	return string(data)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.Error(t, m.WritePoint(StepPoint("lander", &model.Step{}, time.Now())))
	assert.NoError(t, m.Close())
}

func TestBackupWhenUnreachable(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx.lp.gz")
	m := NewManager(zerolog.Nop(), unreachable(backup))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	at := time.Unix(1700000000, 0)
	step := &model.Step{
		EpisodeID: "ep-1",
		Step:      12,
		Position:  model.Vec3{X: 1, Y: 250, Z: -3},
		Velocity:  model.Vec3{Y: -4},
		Reward:    0.5,
	}
	require.NoError(t, m.WriteStep("lander", step, at))
	require.NoError(t, m.WriteSummary("lander", &model.Summary{EpisodeID: "ep-1", Steps: 12, Reward: 3, Reason: "touchdown", EndedAt: at}))
	require.NoError(t, m.Close())

	out := readBackup(t, backup)
	assert.Contains(t, out, MeasurementStep+",")
	assert.Contains(t, out, "episode=ep-1")
	assert.Contains(t, out, "vehicle=lander")
	assert.Contains(t, out, "step=12i")
	assert.Contains(t, out, "pos_y=250")
	assert.Contains(t, out, "speed=4")
	assert.Contains(t, out, "1700000000000000000")
	assert.Contains(t, out, MeasurementEpisode+",")
	assert.Contains(t, out, "reason=touchdown")
	assert.Contains(t, out, `episode="ep-1"`)
}

func TestSummaryPointOpenEpisode(t *testing.T) {
	p := SummaryPoint("hover", &model.Summary{EpisodeID: "x"})
	var reason string
	for _, tag := range p.TagList() {
		if tag.Key == "reason" {
			reason = tag.Value
		}
	}
	assert.Equal(t, "open", reason)
}
