package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/shinglebench/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const errStoreNil = "sqlite store is nil"

// trialBatchSize bounds the rows per INSERT when writing trials.
const trialBatchSize = 500

// SQLiteStore mirrors the results log in two tables. Seq preserves append
// order.
type SQLiteStore struct {
	DB *gorm.DB
	db *sql.DB
}

type Experiment struct {
	Seq               uint   `gorm:"primaryKey;autoIncrement"`
	ID                string `gorm:"type:varchar(36);index:idx_experiment_id"`
	Encoding          string `gorm:"index:idx_experiment_encoding"`
	MethodDescription string
	MethodSource      string
	SampleSize        int
	Seed              int64
	Created           time.Time      `gorm:"column:created_at"`
	Summary           models.Summary `gorm:"type:text;serializer:json"`
	Trials            []Trial        `gorm:"foreignKey:ExperimentSeq;constraint:OnDelete:CASCADE"`
}

func (Experiment) TableName() string { return "experiments" }

type Trial struct {
	ID            uint `gorm:"primaryKey;autoIncrement"`
	ExperimentSeq uint `gorm:"index:idx_trial_experiment"`
	Position      int
	Query         models.Query        `gorm:"type:text;serializer:json"`
	RankedScores  []models.ScoreEntry `gorm:"type:text;serializer:json"`
	TopFound      bool
	FractionInTop float64
	AveDist       float64
	ElapsedTime   float64
	Matches       int
}

func (Trial) TableName() string { return "trials" }

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// single writer; sqlite serialises anyway
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Experiment{}, &Trial{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteStore{DB: db, db: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load() ([]models.ExperimentResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errStoreNil)
	}

	var rows []Experiment
	err := s.DB.
		Preload("Trials", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading experiments: %w", err)
	}

	results := make([]models.ExperimentResult, len(rows))
	for i, row := range rows {
		results[i] = row.toModel()
	}
	return results, nil
}

func (s *SQLiteStore) Append(result models.ExperimentResult) error {
	if s == nil || s.DB == nil {
		return errors.New(errStoreNil)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return insertExperiment(tx, result)
	})
}

// Save replaces the stored log with results.
func (s *SQLiteStore) Save(results []models.ExperimentResult) error {
	if s == nil || s.DB == nil {
		return errors.New(errStoreNil)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Trial{}).Error; err != nil {
			return fmt.Errorf("clearing trials: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&Experiment{}).Error; err != nil {
			return fmt.Errorf("clearing experiments: %w", err)
		}
		for _, r := range results {
			if err := insertExperiment(tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertExperiment(tx *gorm.DB, result models.ExperimentResult) error {
	row := Experiment{
		ID:                result.ID,
		Encoding:          result.Encoding,
		MethodDescription: result.MethodDescription,
		MethodSource:      result.MethodSource,
		SampleSize:        result.SampleSize,
		Seed:              result.Seed,
		Created:           result.CreatedAt,
		Summary:           result.Summary,
	}
	if err := tx.Omit("Trials").Create(&row).Error; err != nil {
		return fmt.Errorf("creating experiment %s: %w", result.ID, err)
	}
	if len(result.Results) == 0 {
		return nil
	}

	trials := make([]Trial, len(result.Results))
	for i, tr := range result.Results {
		trials[i] = Trial{
			ExperimentSeq: row.Seq,
			Position:      i,
			Query:         tr.Query,
			RankedScores:  tr.RankedScores,
			TopFound:      tr.TopFound,
			FractionInTop: tr.FractionInTop,
			AveDist:       tr.AveDist,
			ElapsedTime:   tr.ElapsedTime,
			Matches:       tr.Matches,
		}
	}
	if err := tx.CreateInBatches(trials, trialBatchSize).Error; err != nil {
		return fmt.Errorf("storing trials of %s: %w", result.ID, err)
	}
	return nil
}

func (e Experiment) toModel() models.ExperimentResult {
	trials := make([]models.Trial, len(e.Trials))
	for i, t := range e.Trials {
		trials[i] = models.Trial{
			Query:         t.Query,
			RankedScores:  t.RankedScores,
			TopFound:      t.TopFound,
			FractionInTop: t.FractionInTop,
			AveDist:       t.AveDist,
			ElapsedTime:   t.ElapsedTime,
			Matches:       t.Matches,
		}
	}
	return models.ExperimentResult{
		ID:                e.ID,
		Encoding:          e.Encoding,
		MethodDescription: e.MethodDescription,
		MethodSource:      e.MethodSource,
		SampleSize:        e.SampleSize,
		Seed:              e.Seed,
		CreatedAt:         e.Created,
		Results:           trials,
		Summary:           e.Summary,
	}
}
