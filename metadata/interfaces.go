package metadata

import (
	"context"

	"go.uber.org/zap"

	"schemameta/model"
)

// ModelInvoker defines the model call the generator depends on
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// RunRecorder defines the run history operations used by the generator
type RunRecorder interface {
	StartRun(run *model.Run) error
	FinishRun(run *model.Run) error
	LogAuditEvent(logger *zap.SugaredLogger, event model.AuditLog)
}
