package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"schemameta/model"
)

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

const pingTimeout = 2 * time.Second

// Ping checks that the history database answers. Commands call it right after
// opening the store so a broken file fails before any work starts.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("history store is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("history store: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history store: %w", err)
	}
	return nil
}

// StartRun inserts run; its RunID must be unique.
func (s *SQLStore) StartRun(run *model.Run) error {
	if run.Status == "" {
		run.Status = model.RunRunning
	}
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("start run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run started with StartRun.
func (s *SQLStore) FinishRun(run *model.Run) error {
	res := s.db.Model(&model.Run{}).
		Where("run_id = ?", run.RunID).
		Updates(map[string]any{
			"prompt_bytes":    run.PromptBytes,
			"response_bytes":  run.ResponseBytes,
			"records_written": run.RecordsWritten,
			"records_skipped": run.RecordsSkipped,
			"status":          run.Status,
			"error":           run.Error,
			"finished_at":     run.FinishedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("finish run %s: %w", run.RunID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finish run %s: %w", run.RunID, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all of them.
func (s *SQLStore) ListRuns(limit int) ([]model.Run, error) {
	var runs []model.Run
	q := s.db.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *SQLStore) GetRun(runID string) (*model.Run, error) {
	var run model.Run
	err := s.db.Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListAuditLogs returns the events of one run in the order they were logged.
func (s *SQLStore) ListAuditLogs(runID string) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	if err := s.db.Where("run_id = ?", runID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// LogAuditEvent stores event. Failures are logged, never returned, so history
// problems do not fail a generation run.
func (s *SQLStore) LogAuditEvent(logger *zap.SugaredLogger, event model.AuditLog) {
	if event.Message == "" {
		event.Message = event.Action
	}

	err := s.db.WithContext(context.Background()).Create(&event).Error
	if err != nil {
		logger.Errorf("failed to write %v audit log: %v", event, err)
	}
}
