// Package metadata turns a schema DDL into per-table metadata files by way of
// a single model call.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"schemameta/config"
	"schemameta/model"
)

// Result summarises one run. Written holds output paths in response order,
// including repeated paths when a later record replaced an earlier one.
type Result struct {
	RunID   string
	Written []string
	Skipped []*ParseError
}

// Generator runs load → prompt → invoke → split/write once per Run call.
type Generator struct {
	Config  config.Config
	FS      afero.Fs
	Invoker ModelInvoker
	// History is optional; nil disables run history.
	History RunRecorder
	Logger  *zap.SugaredLogger
	// Out receives the user-facing progress lines.
	Out io.Writer
}

func (g *Generator) Run(ctx context.Context) (*Result, error) {
	cfg := g.Config
	if g.Logger == nil {
		g.Logger = zap.NewNop().Sugar()
	}
	if g.Out == nil {
		g.Out = io.Discard
	}
	logger := g.Logger.With("db", cfg.DatabaseName, "channel", cfg.Channel)
	res := &Result{RunID: uuid.NewString()}
	run := &model.Run{
		RunID:        res.RunID,
		DatabaseName: cfg.DatabaseName,
		Channel:      cfg.Channel,
		DDLPath:      cfg.DDLPath,
		Provider:     cfg.Provider,
		ModelID:      cfg.ModelID,
		OutputDir:    cfg.OutputDir,
		Status:       model.RunRunning,
	}
	g.startRun(logger, run)

	fail := func(err error) (*Result, error) {
		run.Status = model.RunFailed
		run.Error = err.Error()
		g.audit(logger, model.AuditLog{RunID: res.RunID, Action: model.ActionRunFailed, Message: err.Error()})
		g.finishRun(logger, run, res)
		return res, err
	}

	ddl, err := LoadDDL(g.FS, cfg, logger)
	if err != nil {
		return fail(err)
	}
	prompt, err := BuildPrompt(ddl, cfg.DatabaseName, cfg.Channel)
	if err != nil {
		return fail(err)
	}
	run.PromptBytes = len(prompt)
	g.audit(logger, model.AuditLog{
		RunID:   res.RunID,
		Action:  model.ActionPromptBuilt,
		Message: fmt.Sprintf("prompt of %d bytes from %d bytes of DDL", len(prompt), len(ddl)),
	})

	fmt.Fprintln(g.Out, "Generating metadata, please wait...")
	logger.Debugw("invoking model", "provider", cfg.Provider, "model", cfg.ModelID, "prompt_bytes", len(prompt))

	callCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	started := time.Now()
	response, err := g.Invoker.Invoke(callCtx, prompt)
	if err != nil {
		return fail(fmt.Errorf("invoke model: %w", err))
	}
	run.ResponseBytes = len(response)
	g.audit(logger, model.AuditLog{
		RunID:    res.RunID,
		Action:   model.ActionModelInvoked,
		Message:  fmt.Sprintf("response of %d bytes", len(response)),
		Metadata: auditJSON(map[string]any{"provider": cfg.Provider, "model": cfg.ModelID, "elapsed_ms": time.Since(started).Milliseconds()}),
	})

	if err := g.writeRecords(logger, response, res); err != nil {
		return fail(err)
	}

	run.Status = model.RunSucceeded
	g.finishRun(logger, run, res)
	if len(res.Skipped) > 0 {
		logger.Warnw("some records were skipped", "skipped", len(res.Skipped), "written", len(res.Written))
	}
	fmt.Fprintln(g.Out, "Done.")
	return res, nil
}

func (g *Generator) writeRecords(logger *zap.SugaredLogger, response string, res *Result) error {
	w := NewWriter(g.FS, g.Config.OutputDir)
	if err := w.EnsureDir(); err != nil {
		return err
	}

	for i, text := range SplitRecords(response) {
		rec, err := ParseRecord(i, text)
		if err != nil {
			var perr *ParseError
			if g.Config.OnParseError != config.ParsePolicySkip || !errors.As(err, &perr) {
				return err
			}
			logger.Warnw("skipping malformed record", "index", i, "attribute", perr.Attribute, "reason", perr.Reason)
			g.audit(logger, model.AuditLog{
				RunID:   res.RunID,
				Action:  model.ActionRecordSkipped,
				Message: perr.Error(),
			})
			res.Skipped = append(res.Skipped, perr)
			continue
		}

		path, err := w.Write(rec)
		if err != nil {
			return err
		}
		logger.Debugw("record written", "table", rec.Table, "path", path)
		g.audit(logger, model.AuditLog{
			RunID:     res.RunID,
			Action:    model.ActionRecordWritten,
			TableName: rec.Table,
			Path:      path,
		})
		res.Written = append(res.Written, path)
	}
	return nil
}

func (g *Generator) startRun(logger *zap.SugaredLogger, run *model.Run) {
	if g.History == nil {
		return
	}
	if err := g.History.StartRun(run); err != nil {
		logger.Warnw("failed to record run start", "run_id", run.RunID, "error", err)
	}
}

func (g *Generator) finishRun(logger *zap.SugaredLogger, run *model.Run, res *Result) {
	if g.History == nil {
		return
	}
	now := time.Now()
	run.FinishedAt = &now
	run.RecordsWritten = len(res.Written)
	run.RecordsSkipped = len(res.Skipped)
	if err := g.History.FinishRun(run); err != nil {
		logger.Warnw("failed to record run result", "run_id", run.RunID, "error", err)
	}
}

func (g *Generator) audit(logger *zap.SugaredLogger, event model.AuditLog) {
	if g.History == nil {
		return
	}
	g.History.LogAuditEvent(logger, event)
}

func auditJSON(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
