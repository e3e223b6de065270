package diag

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DivergenceRecord is the persisted form of a Divergence.
type DivergenceRecord struct {
	ID          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"index"`
	CharacterID uint32    `gorm:"index"`
	Kind        string    `gorm:"size:16"`
	Timestamp   float64
	Magnitude   float32
	Replayed    int
	Digest      string `gorm:"size:16;index"` // Hex state digest; equal digests mean the same reconciled state
	Source      string `gorm:"size:16"`
}

// Store persists divergences to SQLite. It implements Recorder.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// OpenStore opens or creates the database at path. An empty path keeps the
// database in memory for the life of the process.
func OpenStore(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open diagnostics db: %w", err)
	}
	if err := db.AutoMigrate(&DivergenceRecord{}); err != nil {
		return nil, fmt.Errorf("migrate diagnostics db: %w", err)
	}
	if path != "" {
		log.Info().Str("path", path).Msg("Using SQLite diagnostics store")
	}
	return &Store{db: db, log: log}, nil
}

// Save inserts one divergence.
func (s *Store) Save(d Divergence) error {
	rec := DivergenceRecord{
		CreatedAt:   d.At,
		CharacterID: d.Character,
		Kind:        string(d.Kind),
		Timestamp:   d.Timestamp,
		Magnitude:   d.Magnitude,
		Replayed:    d.Replayed,
		Digest:      d.DigestHex(),
		Source:      d.Source,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("insert divergence: %w", err)
	}
	return nil
}

// RecordDivergence saves d and logs failures instead of returning them.
func (s *Store) RecordDivergence(d Divergence) {
	if err := s.Save(d); err != nil {
		s.log.Error().Err(err).Uint32("character", d.Character).Msg("failed to store divergence")
	}
}

// Recent returns up to limit records for character, newest first.
func (s *Store) Recent(character uint32, limit int) ([]DivergenceRecord, error) {
	var out []DivergenceRecord
	err := s.db.Where("character_id = ?", character).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query divergences: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records of kind, or of every kind
// when kind is empty.
func (s *Store) Count(kind Kind) (int64, error) {
	q := s.db.Model(&DivergenceRecord{})
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count divergences: %w", err)
	}
	return n, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
