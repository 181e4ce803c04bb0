// Package sqlitestorage keeps episodes in a SQLite database, in memory unless
// a path is given, and snapshots it to disk with VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	gormstorage "github.com/smentu/AI-guided-rockets/internal/storage/gorm"
)

type Config struct {
	Path         string        // database file, empty for in-memory
	DumpInterval time.Duration // 0 dumps only on Close
	DumpPath     string        // snapshot file
}

// Backend is the gorm backend plus the snapshot loop.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log zerolog.Logger

	started bool
	stop    chan struct{}
	stopped chan struct{}
}

func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := gormstorage.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	if cfg.Path == "" {
		log.Info().Str("snapshot", cfg.DumpPath).Msg("Using in-memory SQLite DB")
	} else {
		log.Info().Str("path", cfg.Path).Msg("Using SQLite DB file")
	}

	return &Backend{
		Backend: gormstorage.New(db, log),
		db:      db,
		cfg:     cfg,
		log:     log,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts the snapshot loop when an interval is set.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.started = true
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.stopped)
	}
	return nil
}

// Close stops the loop, writes one last snapshot and closes the database.
func (b *Backend) Close() error {
	if b.started {
		close(b.stop)
		<-b.stopped
		b.started = false
	}

	if err := b.Flush(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" {
		if err := b.Dump(); err != nil {
			return err
		}
	}
	return b.Backend.Close()
}

// Dump replaces DumpPath with a consistent copy of the database.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return fmt.Errorf("sqlite dump path not set")
	}
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(b.cfg.DumpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing old snapshot: %w", err)
	}
	if err := b.db.Exec("VACUUM INTO ?", b.cfg.DumpPath).Error; err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	return nil
}

func (b *Backend) dumpLoop() {
	defer close(b.stopped)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.log.Error().Err(err).Msg("Error flushing steps before snapshot")
				continue
			}
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error writing snapshot")
				continue
			}
			b.log.Debug().Dur("duration", time.Since(start)).Msg("Snapshot written")
		}
	}
}
