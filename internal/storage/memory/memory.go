// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/smentu/AI-guided-rockets/internal/config"
	"github.com/smentu/AI-guided-rockets/internal/model"
)

// EpisodeRecord groups an episode with its sampled steps
type EpisodeRecord struct {
	Episode model.Episode
	Steps   []model.Step
}

// Backend keeps open episodes in memory and exports each one to JSON when it ends
type Backend struct {
	cfg      config.MemoryConfig
	episodes map[string]*EpisodeRecord // keyed by episode ID
	exported []string

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		episodes: make(map[string]*EpisodeRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources. Episodes that never ended are exported as they are.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, rec := range b.episodes {
		if err := b.exportJSON(rec); err != nil {
			return err
		}
		delete(b.episodes, id)
	}
	return nil
}

// StartEpisode begins recording a new episode
func (b *Backend) StartEpisode(e *model.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.episodes[e.ID]; ok {
		return fmt.Errorf("episode %s already started", e.ID)
	}
	b.episodes[e.ID] = &EpisodeRecord{Episode: *e}
	return nil
}

// RecordStep appends a step to its episode
func (b *Backend) RecordStep(s *model.Step) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.episodes[s.EpisodeID]
	if !ok {
		return fmt.Errorf("step for unknown episode %s", s.EpisodeID)
	}
	rec.Steps = append(rec.Steps, *s)
	return nil
}

// EndEpisode finalizes and exports the episode, then drops it from memory
func (b *Backend) EndEpisode(s *model.Summary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.episodes[s.EpisodeID]
	if !ok {
		return fmt.Errorf("summary for unknown episode %s", s.EpisodeID)
	}
	rec.Episode.Apply(s)
	if err := b.exportJSON(rec); err != nil {
		return err
	}
	delete(b.episodes, s.EpisodeID)
	return nil
}

// Episode returns a copy of an open episode's record.
func (b *Backend) Episode(id string) (EpisodeRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.episodes[id]
	if !ok {
		return EpisodeRecord{}, false
	}
	cp := *rec
	cp.Steps = append([]model.Step(nil), rec.Steps...)
	return cp, true
}

// ExportedFiles lists the files written so far, in order.
func (b *Backend) ExportedFiles() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.exported...)
}
