package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"schemameta/config"
	"schemameta/db"
	"schemameta/model"
)

const testDDL = "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);\n"

type invokerFunc func(ctx context.Context, prompt string) (string, error)

func (f invokerFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// fakeHistory keeps run history in memory
type fakeHistory struct {
	mu       sync.Mutex
	started  []model.Run
	finished []model.Run
	events   []model.AuditLog
}

func (h *fakeHistory) StartRun(run *model.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, *run)
	return nil
}

func (h *fakeHistory) FinishRun(run *model.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, *run)
	return nil
}

func (h *fakeHistory) LogAuditEvent(_ *zap.SugaredLogger, event model.AuditLog) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *fakeHistory) actions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		out = append(out, e.Action)
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		DatabaseName:  "TestDB",
		DDLPath:       "ddl.txt",
		Channel:       config.DefaultChannel,
		OutputDir:     config.DefaultOutputDir,
		Provider:      config.ProviderBedrock,
		ModelID:       config.DefaultBedrockModelID,
		MaxTokens:     config.DefaultMaxTokens,
		MaxDDLBytes:   config.DefaultMaxDDLBytes,
		DDLSizePolicy: config.SizePolicyReject,
		OnParseError:  config.ParsePolicyAbort,
	}
}

func newTestGenerator(t *testing.T, invoker ModelInvoker) (*Generator, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "ddl.txt", []byte(testDDL), 0o644))
	out := &bytes.Buffer{}
	return &Generator{
		Config:  testConfig(),
		FS:      fsys,
		Invoker: invoker,
		Logger:  zap.NewNop().Sugar(),
		Out:     out,
	}, fsys, out
}

func readOutput(t *testing.T, fsys afero.Fs, name string) string {
	t.Helper()
	b, err := afero.ReadFile(fsys, filepath.Join("output", name))
	require.NoError(t, err)
	return string(b)
}

func TestGeneratorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("single record", func(t *testing.T) {
		response := "<METADATA CHANNEL=\"sqlite\" DATABASE=\"TestDB\" TABLE=\"t\">\n- Description: x\n</METADATA>"
		mock := NewMockInvoker(response)
		g, fsys, out := newTestGenerator(t, mock)

		res, err := g.Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{filepath.Join("output", "TestDB_t.txt")}, res.Written)
		assert.Empty(t, res.Skipped)
		assert.NotEmpty(t, res.RunID)
		assert.Equal(t, response, readOutput(t, fsys, "TestDB_t.txt"))
		assert.Equal(t, "Generating metadata, please wait...\nDone.\n", out.String())

		prompts := mock.GetPrompts()
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "<DDL>\n"+testDDL+"\n</DDL>")
		assert.Contains(t, prompts[0], "<DATABASE_NAME>TestDB</DATABASE_NAME>")
		assert.Contains(t, prompts[0], "<CHANNEL>sqlite</CHANNEL>")
	})

	t.Run("one file per record", func(t *testing.T) {
		response := "<METADATA DATABASE=\"TestDB\" TABLE=\"customer\">\n- Description: a\n</METADATA>\n\n" +
			"<METADATA DATABASE=\"TestDB\" TABLE=\"address\">\n- Description: b\n</METADATA>\n\n\n" +
			"<METADATA DATABASE=\"TestDB\" TABLE=\"product\">\n- Description: c\n</METADATA>\n"
		g, fsys, _ := newTestGenerator(t, NewMockInvoker(response))

		res, err := g.Run(ctx)
		require.NoError(t, err)
		assert.Len(t, res.Written, 3)

		files, err := afero.ReadDir(fsys, "output")
		require.NoError(t, err)
		assert.Len(t, files, 3)
		assert.Equal(t, "<METADATA DATABASE=\"TestDB\" TABLE=\"address\">\n- Description: b\n</METADATA>",
			readOutput(t, fsys, "TestDB_address.txt"))
	})

	t.Run("database attribute names the file, not the flag", func(t *testing.T) {
		response := `<METADATA DATABASE="Other" TABLE="t">x</METADATA>`
		g, fsys, _ := newTestGenerator(t, NewMockInvoker(response))

		_, err := g.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, response, readOutput(t, fsys, "Other_t.txt"))
	})

	t.Run("repeated table keeps the last record", func(t *testing.T) {
		response := "<METADATA DATABASE=\"TestDB\" TABLE=\"t\">first</METADATA>\n\n" +
			"<METADATA DATABASE=\"TestDB\" TABLE=\"t\">second</METADATA>"
		g, fsys, _ := newTestGenerator(t, NewMockInvoker(response))

		res, err := g.Run(ctx)
		require.NoError(t, err)
		assert.Len(t, res.Written, 2)
		assert.Equal(t, `<METADATA DATABASE="TestDB" TABLE="t">second</METADATA>`, readOutput(t, fsys, "TestDB_t.txt"))
	})

	t.Run("empty response writes nothing", func(t *testing.T) {
		g, fsys, out := newTestGenerator(t, NewMockInvoker("\n\n  \n"))

		res, err := g.Run(ctx)
		require.NoError(t, err)
		assert.Empty(t, res.Written)

		exists, err := afero.DirExists(fsys, "output")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Contains(t, out.String(), "Done.")
	})
}

func TestGeneratorParsePolicy(t *testing.T) {
	ctx := context.Background()
	response := "<METADATA DATABASE=\"TestDB\" TABLE=\"a\">a</METADATA>\n\n" +
		"<METADATA CHANNEL=\"sqlite\" DATABASE=\"TestDB\">no table</METADATA>\n\n" +
		"<METADATA DATABASE=\"TestDB\" TABLE=\"c\">c</METADATA>"

	t.Run("abort stops at the malformed record", func(t *testing.T) {
		history := &fakeHistory{}
		g, fsys, out := newTestGenerator(t, NewMockInvoker(response))
		g.History = history

		res, err := g.Run(ctx)
		require.Error(t, err)

		var perr *ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, 1, perr.Index)
		assert.Equal(t, AttrTable, perr.Attribute)

		assert.Len(t, res.Written, 1)
		exists, err := afero.Exists(fsys, filepath.Join("output", "TestDB_a.txt"))
		require.NoError(t, err)
		assert.True(t, exists, "records before the failure stay written")
		exists, err = afero.Exists(fsys, filepath.Join("output", "TestDB_c.txt"))
		require.NoError(t, err)
		assert.False(t, exists)

		assert.NotContains(t, out.String(), "Done.")
		require.Len(t, history.finished, 1)
		assert.Equal(t, model.RunFailed, history.finished[0].Status)
		assert.Equal(t, 1, history.finished[0].RecordsWritten)
		assert.Contains(t, history.actions(), model.ActionRunFailed)
	})

	t.Run("skip writes the rest", func(t *testing.T) {
		history := &fakeHistory{}
		g, fsys, out := newTestGenerator(t, NewMockInvoker(response))
		g.Config.OnParseError = config.ParsePolicySkip
		g.History = history

		res, err := g.Run(ctx)
		require.NoError(t, err)

		assert.Len(t, res.Written, 2)
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, 1, res.Skipped[0].Index)
		assert.Equal(t, `<METADATA DATABASE="TestDB" TABLE="c">c</METADATA>`, readOutput(t, fsys, "TestDB_c.txt"))
		assert.Contains(t, out.String(), "Done.")

		require.Len(t, history.finished, 1)
		assert.Equal(t, model.RunSucceeded, history.finished[0].Status)
		assert.Equal(t, 2, history.finished[0].RecordsWritten)
		assert.Equal(t, 1, history.finished[0].RecordsSkipped)
		assert.Contains(t, history.actions(), model.ActionRecordSkipped)
	})
}

func TestGeneratorFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("model error fails the run without output", func(t *testing.T) {
		mock := NewMockInvoker("")
		mock.SetError(errors.New("throttled"))
		history := &fakeHistory{}
		g, fsys, out := newTestGenerator(t, mock)
		g.History = history

		_, err := g.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invoke model")
		assert.Contains(t, err.Error(), "throttled")

		exists, err := afero.DirExists(fsys, "output")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Equal(t, "Generating metadata, please wait...\n", out.String())

		require.Len(t, history.started, 1)
		assert.Equal(t, model.RunRunning, history.started[0].Status)
		require.Len(t, history.finished, 1)
		assert.Equal(t, model.RunFailed, history.finished[0].Status)
		assert.Contains(t, history.finished[0].Error, "throttled")
		assert.NotNil(t, history.finished[0].FinishedAt)
	})

	t.Run("missing ddl never calls the model", func(t *testing.T) {
		mock := NewMockInvoker("unused")
		g, _, out := newTestGenerator(t, mock)
		g.Config.DDLPath = "missing.sql"

		_, err := g.Run(ctx)
		require.Error(t, err)
		assert.Empty(t, mock.GetPrompts())
		assert.Empty(t, out.String())
	})

	t.Run("whitespace-only ddl still reaches the model", func(t *testing.T) {
		mock := NewMockInvoker(`<METADATA DATABASE="TestDB" TABLE="t">x</METADATA>`)
		g, fsys, _ := newTestGenerator(t, mock)
		require.NoError(t, afero.WriteFile(fsys, "ddl.txt", []byte("  \n"), 0o644))

		_, err := g.Run(ctx)
		require.NoError(t, err)
		prompts := mock.GetPrompts()
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "<DDL>\n  \n\n</DDL>")
	})

	t.Run("oversized ddl is rejected before the call", func(t *testing.T) {
		mock := NewMockInvoker("unused")
		g, _, _ := newTestGenerator(t, mock)
		g.Config.MaxDDLBytes = 10

		_, err := g.Run(ctx)
		assert.ErrorIs(t, err, ErrDDLTooLarge)
		assert.Empty(t, mock.GetPrompts())
	})

	t.Run("timeout bounds the model call", func(t *testing.T) {
		blocking := invokerFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		g, _, _ := newTestGenerator(t, blocking)
		g.Config.Timeout = 20 * time.Millisecond

		_, err := g.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		g, _, _ := newTestGenerator(t, NewMockInvoker("unused"))

		_, err := g.Run(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGeneratorHistoryStore(t *testing.T) {
	gdb, err := db.BootstrapSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	store := db.NewSQLStore(gdb)

	response := "<METADATA DATABASE=\"TestDB\" TABLE=\"customer\">a</METADATA>\n\n" +
		"<METADATA DATABASE=\"TestDB\" TABLE=\"address\">b</METADATA>"
	g, _, _ := newTestGenerator(t, NewMockInvoker(response))
	g.History = store

	res, err := g.Run(context.Background())
	require.NoError(t, err)

	run, err := store.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunSucceeded, run.Status)
	assert.Equal(t, "TestDB", run.DatabaseName)
	assert.Equal(t, config.ProviderBedrock, run.Provider)
	assert.Equal(t, 2, run.RecordsWritten)
	assert.Equal(t, len(response), run.ResponseBytes)
	assert.Positive(t, run.PromptBytes)
	require.NotNil(t, run.FinishedAt)

	logs, err := store.ListAuditLogs(res.RunID)
	require.NoError(t, err)
	var actions []string
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{
		model.ActionPromptBuilt,
		model.ActionModelInvoked,
		model.ActionRecordWritten,
		model.ActionRecordWritten,
	}, actions)
	assert.Equal(t, "customer", logs[2].TableName)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(logs[1].Metadata), &meta))
	assert.Equal(t, "bedrock", meta["provider"])
	assert.Equal(t, config.DefaultBedrockModelID, meta["model"])
	assert.Contains(t, meta, "elapsed_ms")
}
