// Package gormstorage implements storage.Backend on top of GORM. Steps are
// buffered and written in batches; episodes are written immediately.
package gormstorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smentu/AI-guided-rockets/internal/model"
)

// DefaultBatchSize is the number of buffered steps that triggers a write.
const DefaultBatchSize = 2000

// OpenPostgres connects to Postgres.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a SQLite database. If path is empty, it opens a private
// in-memory database shared only by this handle's connection pool.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = memoryDSN()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        DefaultBatchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// memoryDSN names a fresh in-memory database. The name keeps it apart from
// other in-memory databases in the process.
func memoryDSN() string {
	return "file:rocketsim-" + uuid.NewString() + "?mode=memory&cache=shared"
}

// Backend writes episodes and steps through a *gorm.DB.
type Backend struct {
	db        *gorm.DB
	log       zerolog.Logger
	BatchSize int

	mu      sync.Mutex
	pending []model.Step
}

// New wraps an open database.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log, BatchSize: DefaultBatchSize}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.db }

// Init migrates the schema.
func (b *Backend) Init() error {
	b.log.Info().Str("dialect", b.db.Dialector.Name()).Msg("Migrating schema")
	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close writes buffered steps and closes the connection.
func (b *Backend) Close() error {
	if err := b.Flush(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// StartEpisode inserts the episode row.
func (b *Backend) StartEpisode(e *model.Episode) error {
	if err := b.db.Create(e).Error; err != nil {
		return fmt.Errorf("failed to insert episode: %w", err)
	}
	return nil
}

// RecordStep buffers a step, writing the buffer once it holds BatchSize steps.
func (b *Backend) RecordStep(s *model.Step) error {
	b.mu.Lock()
	b.pending = append(b.pending, *s)
	full := len(b.pending) >= b.BatchSize
	b.mu.Unlock()

	if full {
		return b.Flush()
	}
	return nil
}

// EndEpisode writes buffered steps and the summary columns of the episode.
func (b *Backend) EndEpisode(s *model.Summary) error {
	if err := b.Flush(); err != nil {
		return err
	}
	res := b.db.Model(&model.Episode{}).Where("id = ?", s.EpisodeID).Updates(map[string]any{
		"ended_at": s.EndedAt,
		"steps":    s.Steps,
		"time":     s.Time,
		"reward":   s.Reward,
		"reason":   s.Reason,
		"fuel":     s.Fuel,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update episode: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("summary for unknown episode %s", s.EpisodeID)
	}
	return nil
}

// Flush writes every buffered step.
func (b *Backend) Flush() error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	if err := b.db.CreateInBatches(batch, b.BatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert steps: %w", err)
	}
	b.log.Trace().Int("steps", len(batch)).Dur("duration", time.Since(start)).Msg("steps written")
	return nil
}

// Pending is the number of buffered steps.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
