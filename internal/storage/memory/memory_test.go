package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smentu/AI-guided-rockets/internal/config"
	"github.com/smentu/AI-guided-rockets/internal/model"
)

const testID = "0b5f0d3c-8a43-4c55-9a1b-3f1d2e4c5a6b"

func testEpisode() *model.Episode {
	return &model.Episode{
		ID:        testID,
		Vehicle:   "lander",
		Arena:     "lander",
		StartedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Spawn:     model.Vec3{X: 10, Y: 400, Z: -5},
		Target:    model.Vec3{Y: 13},
	}
}

func TestEpisodeLifecycle(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartEpisode(testEpisode()))
	require.NoError(t, b.RecordStep(&model.Step{EpisodeID: testID, Step: 1, Reward: 0.5}))
	require.NoError(t, b.RecordStep(&model.Step{EpisodeID: testID, Step: 5, Reward: 0.25}))

	rec, ok := b.Episode(testID)
	require.True(t, ok)
	assert.Len(t, rec.Steps, 2)

	ended := time.Date(2024, 5, 6, 7, 9, 0, 0, time.UTC)
	require.NoError(t, b.EndEpisode(&model.Summary{EpisodeID: testID, EndedAt: ended, Steps: 5, Reward: 0.75, Reason: "touchdown"}))

	_, ok = b.Episode(testID)
	assert.False(t, ok, "ended episodes leave memory")

	files := b.ExportedFiles()
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "lander_20240506_070809_0b5f0d3c.json"), files[0])

	export, err := ReadExport(files[0])
	require.NoError(t, err)
	assert.Equal(t, "touchdown", export.Episode.Reason)
	assert.Equal(t, 0.75, export.Episode.Reward)
	assert.Equal(t, 400.0, export.Episode.Spawn.Y)
	require.NotNil(t, export.Episode.EndedAt)
	assert.True(t, ended.Equal(*export.Episode.EndedAt))
	require.Len(t, export.Steps, 2)
	assert.Equal(t, 5, export.Steps[1].Step)

	require.NoError(t, b.Close())
}

func TestCompressedExport(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	require.NoError(t, b.StartEpisode(testEpisode()))
	require.NoError(t, b.EndEpisode(&model.Summary{EpisodeID: testID, Reason: "tilted"}))

	files := b.ExportedFiles()
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], ".json.gz"))

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2])

	export, err := ReadExport(files[0])
	require.NoError(t, err)
	assert.Equal(t, "tilted", export.Episode.Reason)
	assert.Empty(t, export.Steps)
}

func TestCloseExportsOpenEpisodes(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})

	require.NoError(t, b.StartEpisode(testEpisode()))
	require.NoError(t, b.RecordStep(&model.Step{EpisodeID: testID, Step: 1}))
	require.NoError(t, b.Close())

	files := b.ExportedFiles()
	require.Len(t, files, 1)
	export, err := ReadExport(files[0])
	require.NoError(t, err)
	assert.Nil(t, export.Episode.EndedAt)
	assert.Len(t, export.Steps, 1)
}

func TestUnknownEpisode(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	assert.Error(t, b.RecordStep(&model.Step{EpisodeID: "missing"}))
	assert.Error(t, b.EndEpisode(&model.Summary{EpisodeID: "missing"}))

	require.NoError(t, b.StartEpisode(testEpisode()))
	assert.Error(t, b.StartEpisode(testEpisode()))
}
