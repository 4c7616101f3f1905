package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Brownie44l1/ecosnap-api/internal/model"
)

type PredictionRecord struct {
	ID         uint      `gorm:"primaryKey"`
	Label      string    `gorm:"size:32;index"`
	Confidence float64
	Suggestion string
	ImageURL   string
	Timestamp  time.Time `gorm:"autoCreateTime;index"`
}

func (PredictionRecord) TableName() string {
	return "predictions"
}

type SQLiteStore struct {
	gorm *gorm.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&PredictionRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	return &SQLiteStore{gorm: db}, nil
}

func (s *SQLiteStore) SavePrediction(ctx context.Context, result model.PredictionResult) error {
	rec := PredictionRecord{
		Label:      result.Label,
		Confidence: result.Confidence,
		Suggestion: result.Suggestion,
		ImageURL:   result.ImageURL,
	}
	if err := s.gorm.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]PredictionRecord, error) {
	var out []PredictionRecord
	err := s.gorm.WithContext(ctx).Order("timestamp desc, id desc").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
