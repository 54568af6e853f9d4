package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prepop/internal/fixture"
	"github.com/roach88/prepop/internal/store"
)

const testKinds = "testdata/kinds.cue"

var testModules = []string{"testdata/teams.yaml", "testdata/users.jsonc"}

// execute runs the root command with args and returns what it wrote.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// testOptions returns options with fixed batch and record ids.
func testOptions() *RootOptions {
	return &RootOptions{
		batchIDs:  store.NewFixedGenerator("batch-1", "batch-2", "batch-3"),
		recordIDs: store.NewFixedGenerator("rec-1", "rec-2", "rec-3", "rec-4"),
	}
}

func dbPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "prepop.db")
}

func batchArgs(action, db string, extra ...string) []string {
	args := []string{action, "--db", db, "--kinds", testKinds}
	args = append(args, extra...)
	return append(args, testModules...)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// decodeResponse decodes a JSON envelope, leaving data undecoded.
func decodeResponse(t *testing.T, out string) (Response, json.RawMessage) {
	t.Helper()

	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *ErrorInfo      `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "stdout: %s", out)
	return Response{Status: raw.Status, Error: raw.Error}, raw.Data
}

func TestLoadListUnloadGolden(t *testing.T) {
	opts := testOptions()
	db := dbPath(t)
	g := newGoldie(t)

	out, _, err := execute(t, opts, batchArgs("load", db)...)
	require.NoError(t, err)
	g.Assert(t, "load", []byte(out))

	out, _, err = execute(t, opts, batchArgs("load", db)...)
	require.NoError(t, err)
	g.Assert(t, "load_again", []byte(out))

	out, _, err = execute(t, opts, "list", "--db", db)
	require.NoError(t, err)
	g.Assert(t, "list", []byte(out))

	out, _, err = execute(t, opts, batchArgs("unload", db)...)
	require.NoError(t, err)
	g.Assert(t, "unload", []byte(out))

	out, _, err = execute(t, opts, "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No records found.\n", out)
}

func TestLoadUnresolvedGolden(t *testing.T) {
	db := dbPath(t)

	out, errOut, err := execute(t, testOptions(),
		"load", "--db", db, "--kinds", testKinds, "testdata/orphan.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "E010: user(username=carol) requires team(late)", err.Error())
	newGoldie(t).Assert(t, "load_unresolved", []byte(out))

	assert.Contains(t, errOut, `msg="failed to resolve fixture"`)
	assert.Contains(t, errOut, `msg="batch rolled back"`)

	// Nothing was written.
	out, _, err = execute(t, testOptions(), "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No records found.\n", out)
}

func TestCheckGolden(t *testing.T) {
	args := append([]string{"check", "--kinds", testKinds}, testModules...)
	out, _, err := execute(t, &RootOptions{}, args...)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "check", []byte(out))
}

func TestCheckKindsDirectory(t *testing.T) {
	args := append([]string{"check", "--kinds", "testdata/kinds_dir"}, testModules...)
	out, _, err := execute(t, &RootOptions{}, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Checked 2 kind(s), 4 fixture(s) in 2 module(s)")
}

func TestCheckDoesNotResolve(t *testing.T) {
	// carol depends on a team declared later; that only matters at load.
	out, _, err := execute(t, &RootOptions{}, "check", "--kinds", testKinds, "testdata/orphan.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "  user(username=carol)\n  team(late)\n")
}

func TestLoadJSON(t *testing.T) {
	out, errOut, err := execute(t, testOptions(), batchArgs("load", dbPath(t), "--format", "json")...)
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	var res BatchResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, "load", res.Action)
	assert.True(t, res.OK)
	assert.False(t, res.RolledBack)
	assert.Nil(t, res.Failure)
	require.Len(t, res.Fixtures, 4)
	assert.Equal(t, "team(core)", res.Fixtures[0].Fixture)
	assert.Equal(t, fixture.OutcomeCreated, res.Fixtures[0].Outcome)
	assert.Contains(t, out, `"outcome":"created"`)

	// Logs stay off stdout.
	assert.Contains(t, errOut, `msg="batch committed"`)
}

func TestLoadUnresolvedJSON(t *testing.T) {
	out, _, err := execute(t, testOptions(),
		"load", "--db", dbPath(t), "--kinds", testKinds, "--format", "json", "testdata/orphan.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, _ := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnresolved, resp.Error.Code)
	assert.Equal(t, "failed to resolve user(username=carol)", resp.Error.Message)
	assert.Contains(t, out, `"failure":{"fixture":"user(username=carol)","dependency":"team(late)"}`)
	assert.Contains(t, out, `"rolled_back":true`)
}

func TestListJSON(t *testing.T) {
	opts := testOptions()
	db := dbPath(t)

	_, _, err := execute(t, opts, batchArgs("load", db)...)
	require.NoError(t, err)

	out, _, err := execute(t, opts, "list", "--db", db, "--kind", "team", "--format", "json")
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	var records []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
		Seq  int64  `json:"seq"`
	}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "team", records[0].Kind)
	assert.Equal(t, int64(2), records[1].Seq)
}

func TestVerboseLogsSkippedFixtures(t *testing.T) {
	opts := testOptions()
	db := dbPath(t)

	_, _, err := execute(t, opts, batchArgs("load", db)...)
	require.NoError(t, err)

	_, quiet, err := execute(t, opts, batchArgs("load", db)...)
	require.NoError(t, err)
	assert.NotContains(t, quiet, "level=DEBUG")

	_, verbose, err := execute(t, opts, batchArgs("load", db, "-v")...)
	require.NoError(t, err)
	assert.Contains(t, verbose, `level=DEBUG msg="fixture already exists, nothing to load"`)
	assert.Contains(t, verbose, "fixture=team(core)")
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{
			name:     "kinds not found",
			args:     []string{"load", "--db", "DB", "--kinds", "testdata/missing.cue", "testdata/teams.yaml"},
			wantCode: ErrCodeNotFound,
			wantExit: ExitCommandError,
		},
		{
			name:     "unknown kind",
			args:     []string{"load", "--db", "DB", "--kinds", testKinds, "testdata/unknown_kind.yaml"},
			wantCode: ErrCodeDeclaration,
			wantExit: ExitCommandError,
		},
		{
			name:     "missing module",
			args:     []string{"check", "--kinds", testKinds, "testdata/missing.yaml"},
			wantCode: ErrCodeDeclaration,
			wantExit: ExitCommandError,
		},
		{
			name:     "reference cycle",
			args:     []string{"check", "--kinds", testKinds, "testdata/cycle.yaml"},
			wantCode: ErrCodeCycle,
			wantExit: ExitCommandError,
		},
		{
			name:     "float field",
			args:     []string{"load", "--db", "DB", "--kinds", "testdata/bad_kinds.cue", "testdata/teams.yaml"},
			wantCode: ErrCodeInvalidType,
			wantExit: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := make([]string, len(tt.args))
			for i, a := range tt.args {
				if a == "DB" {
					a = dbPath(t)
				}
				args[i] = a
			}
			args = append(args, "--format", "json")

			out, _, err := execute(t, testOptions(), args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp, _ := decodeResponse(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code, "message: %s", resp.Error.Message)
		})
	}
}

func TestCycleErrorText(t *testing.T) {
	out, _, err := execute(t, &RootOptions{}, "check", "--kinds", testKinds, "testdata/cycle.yaml")
	require.Error(t, err)
	assert.Equal(t, "Error [E008]: reference cycle: a -> b -> a\n", out)
	assert.Equal(t, "loading failed with 1 error(s)", err.Error())
}

func TestCheckCollectsAllKindErrors(t *testing.T) {
	out, _, err := execute(t, &RootOptions{}, "check", "--kinds", "testdata/bad_kinds.cue", "testdata/teams.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "loading failed with 2 error(s)", err.Error())

	assert.Contains(t, out, "Error [E104]: kind.team: ")
	assert.Contains(t, out, "Error [E101]: kind.user: ")
	assert.True(t, strings.Index(out, "E104") < strings.Index(out, "E101"), "errors in declaration order")
}

func TestLoadFailFastOnKindErrors(t *testing.T) {
	_, _, err := execute(t, testOptions(),
		"load", "--db", dbPath(t), "--kinds", "testdata/bad_kinds.cue", "testdata/teams.yaml")
	require.Error(t, err)
	assert.Equal(t, "loading failed with 1 error(s)", err.Error())
}
