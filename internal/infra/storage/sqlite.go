package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"backtest_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists finished backtest runs so strategy revisions can be
// compared across time.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at path.
func NewStorage(path string) (*Storage, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.BacktestRun{}, &domain.HistoryPoint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Run Operations
// ======================================================================================

// SaveRun stores a run summary and its history rows in one transaction.
func (s *Storage) SaveRun(run *domain.BacktestRun, points []domain.HistoryPoint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for i := range points {
			points[i].RunID = run.ID
		}
		if len(points) == 0 {
			return nil
		}
		return tx.CreateInBatches(points, 500).Error
	})
}

// GetRun retrieves a run summary by ID
func (s *Storage) GetRun(id uint) (*domain.BacktestRun, error) {
	var run domain.BacktestRun
	err := s.db.First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &run, err
}

// ListRuns retrieves all run summaries, newest first
func (s *Storage) ListRuns() ([]domain.BacktestRun, error) {
	var runs []domain.BacktestRun
	err := s.db.Order("id desc").Find(&runs).Error
	return runs, err
}

// PointsForRun retrieves a run's history rows in tick order
func (s *Storage) PointsForRun(runID uint) ([]domain.HistoryPoint, error) {
	var points []domain.HistoryPoint
	err := s.db.Where("run_id = ?", runID).
		Order("timestamp asc, product asc").
		Find(&points).Error
	return points, err
}

// DeleteRun deletes a run and its history rows
func (s *Storage) DeleteRun(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&domain.HistoryPoint{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.BacktestRun{}, id).Error
	})
}
