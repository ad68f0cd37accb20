package db

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"schemameta/model"
)

var ErrRunNotFound = errors.New("run not found")

// Store is the run history kept next to the generated metadata.
type Store interface {
	Ping(ctx context.Context) error
	StartRun(run *model.Run) error
	FinishRun(run *model.Run) error
	LogAuditEvent(logger *zap.SugaredLogger, event model.AuditLog)
	ListRuns(limit int) ([]model.Run, error)
	GetRun(runID string) (*model.Run, error)
	ListAuditLogs(runID string) ([]model.AuditLog, error)
}
