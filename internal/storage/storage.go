// internal/storage/storage.go
package storage

import "github.com/smentu/AI-guided-rockets/internal/model"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Episode management
	StartEpisode(e *model.Episode) error
	EndEpisode(s *model.Summary) error

	// State recording
	RecordStep(s *model.Step) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Init() error                       { return nil }
func (Nop) Close() error                      { return nil }
func (Nop) StartEpisode(*model.Episode) error { return nil }
func (Nop) EndEpisode(*model.Summary) error   { return nil }
func (Nop) RecordStep(*model.Step) error      { return nil }
