package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"housing/ml"
)

// Store records training runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(1)

	s := &Store{db: database}
	if err := s.migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50) NOT NULL,
        mse REAL NOT NULL,
        train_rows INTEGER NOT NULL,
        test_rows INTEGER NOT NULL,
        dropped_rows INTEGER NOT NULL DEFAULT 0,
        dataset_source TEXT NOT NULL,
        artifact_path TEXT NOT NULL,
        artifact_size INTEGER NOT NULL DEFAULT 0,
        trained_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_log_trained_at ON training_log (trained_at);
    `)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TrainingLog is one row of the training_log table.
type TrainingLog struct {
	ID            int64     `json:"id"`
	ModelName     string    `json:"model_name"`
	MSE           float64   `json:"mse"`
	TrainRows     int       `json:"train_rows"`
	TestRows      int       `json:"test_rows"`
	DroppedRows   int       `json:"dropped_rows"`
	DatasetSource string    `json:"dataset_source"`
	ArtifactPath  string    `json:"artifact_path"`
	ArtifactSize  int64     `json:"artifact_size"`
	TrainedAt     time.Time `json:"trained_at"`
}

// SaveTrainingLog inserts entry and returns its id.
func (s *Store) SaveTrainingLog(ctx context.Context, entry TrainingLog) (int64, error) {
	if s.db == nil {
		return 0, errors.New("database not initialized")
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (
            model_name, mse, train_rows, test_rows, dropped_rows,
            dataset_source, artifact_path, artifact_size, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ModelName,
		entry.MSE,
		entry.TrainRows,
		entry.TestRows,
		entry.DroppedRows,
		entry.DatasetSource,
		entry.ArtifactPath,
		entry.ArtifactSize,
		entry.TrainedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordTrainingRun lets a Store serve as the trainer's ml.RunRecorder.
func (s *Store) RecordTrainingRun(ctx context.Context, report *ml.TrainingReport) error {
	_, err := s.SaveTrainingLog(ctx, TrainingLog{
		ModelName:     report.ModelType,
		MSE:           report.MSE,
		TrainRows:     report.TrainRows,
		TestRows:      report.TestRows,
		DroppedRows:   report.Dropped,
		DatasetSource: report.DatasetSource,
		ArtifactPath:  report.ArtifactPath,
		ArtifactSize:  report.ArtifactSize,
		TrainedAt:     report.TrainedAt,
	})
	return err
}

// LoadTrainingLog returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) LoadTrainingLog(ctx context.Context, limit int) ([]TrainingLog, error) {
	if s.db == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, model_name, mse, train_rows, test_rows, dropped_rows,
               dataset_source, artifact_path, artifact_size, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ID, &log.ModelName, &log.MSE, &log.TrainRows, &log.TestRows, &log.DroppedRows,
			&log.DatasetSource, &log.ArtifactPath, &log.ArtifactSize, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
