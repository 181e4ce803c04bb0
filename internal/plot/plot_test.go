package plot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/sim"
)

func TestTraceFollowsFirstEpisode(t *testing.T) {
	cfg := sim.MissileConfig()
	cfg.Reward.MaxSteps = 4
	var eps []*sim.Episode
	for i := 0; i < 2; i++ {
		ep, err := sim.NewEpisode(cfg, sim.NewMissileArena(uint64(i+1)))
		require.NoError(t, err)
		eps = append(eps, ep)
	}
	f := sim.NewFleet(eps, nil)

	tr := NewTrace(1)
	for i := 0; i < 10; i++ {
		res, err := f.Update(context.Background(), 0.02)
		require.NoError(t, err)
		tr.Observe(res)
	}

	assert.Len(t, tr.T, 4, "only the first episode of the slot is traced")
	assert.InDelta(t, 0.08, tr.T[3], 1e-9)
	assert.Len(t, tr.Altitude, 4)
	// episodes end at steps 4 and 8 in both slots
	assert.Len(t, tr.Rewards, 4)
}

func TestTraceSave(t *testing.T) {
	tr := NewTrace(0)
	tr.T = []float64{0, 1, 2}
	tr.X = []float64{0, 1, 1}
	tr.Z = []float64{0, 0, 2}
	tr.Altitude = []float64{100, 90, 70}
	tr.Speed = []float64{0, 10, 20}
	tr.Tilt = []float64{0, 1, 2}
	tr.Throttle = []float64{1, 1, 0.5}
	tr.Cumulative = []float64{0, 0.2, 0.5}
	tr.Rewards = []float64{1, -20, 3}

	dir := filepath.Join(t.TempDir(), "plots")
	files, err := tr.Save(dir)
	require.NoError(t, err)
	require.Len(t, files, 7)
	for _, f := range files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	raw, err := os.ReadFile(filepath.Join(dir, "altitude.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), raw[:4])
}

func TestTraceSaveEmpty(t *testing.T) {
	_, err := NewTrace(0).Save(t.TempDir())
	assert.Error(t, err)
}

func TestLimitedTicker(t *testing.T) {
	ticks := limitedTicker(5, "%.1f").Ticks(0, 4)
	require.Len(t, ticks, 5)
	assert.Equal(t, "2.0", ticks[2].Label)
	assert.Len(t, limitedTicker(5, "%.1f").Ticks(3, 3), 1)
}
