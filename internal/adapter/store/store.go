// Package store persists incidents in a relational database through gorm.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

// appendBatchSize bounds the rows per INSERT statement inside one append.
const appendBatchSize = 500

// Store is the append-only incident table.
type Store struct {
	db *gorm.DB
}

// Open connects to the database named by driver ("sqlite" or "postgres") and dsn.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, &domain.StoreError{Op: "open", Err: fmt.Errorf("unsupported driver %q", driver)}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "open", Err: err}
	}
	if driver == "sqlite" {
		// One connection: sqlite has a single writer and ":memory:" is per-connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, &domain.StoreError{Op: "open", Err: err}
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db), nil
}

// New wraps an existing gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the incidents table and its indexes if absent.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&domain.Incident{}); err != nil {
		return &domain.StoreError{Op: "migrate", Err: err}
	}
	return nil
}

// All returns every stored incident in insertion order.
func (s *Store) All(ctx context.Context) ([]domain.Incident, error) {
	var incidents []domain.Incident
	if err := s.db.WithContext(ctx).Order("id").Find(&incidents).Error; err != nil {
		return nil, &domain.StoreError{Op: "read history", Err: err}
	}
	return incidents, nil
}

// Append inserts incidents in a single transaction and returns the number
// written. Either every row is committed or none is. IDs are assigned in place.
func (s *Store) Append(ctx context.Context, incidents []domain.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&incidents, appendBatchSize).Error
	})
	if err != nil {
		return 0, &domain.StoreError{Op: "append", Err: err}
	}
	return len(incidents), nil
}

// LatestBatch returns the incidents carrying the greatest accessed_at, ordered
// by occurrence time then id. An empty store yields an empty Batch.
func (s *Store) LatestBatch(ctx context.Context) (domain.Batch, error) {
	var latest sql.NullString
	row := s.db.WithContext(ctx).Model(&domain.Incident{}).Select("MAX(accessed_at)").Row()
	if err := row.Scan(&latest); err != nil {
		return domain.Batch{}, &domain.StoreError{Op: "latest batch", Err: err}
	}
	if !latest.Valid {
		return domain.Batch{}, nil
	}

	var incidents []domain.Incident
	err := s.db.WithContext(ctx).
		Where("accessed_at = ?", latest.String).
		Order("datetime").
		Order("id").
		Find(&incidents).Error
	if err != nil {
		return domain.Batch{}, &domain.StoreError{Op: "latest batch", Err: err}
	}
	return domain.Batch{AccessedAt: latest.String, Incidents: incidents}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
