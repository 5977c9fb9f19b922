package command

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

// testEnv is a badger-backed store in a temp dir plus the config file
// pointing at it.
type testEnv struct {
	t          *testing.T
	configPath string
	dataDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("NODESTORE_CONFIG", "")

	dir := t.TempDir()
	configPath := filepath.Join(dir, "nodestore.yaml")
	dataDir := filepath.Join(dir, "data")
	content := fmt.Sprintf(`store:
  backend: badger
badger:
  dir: %s
  gc_interval: 0
redis:
  password: hunter2
log:
  level: error
`, dataDir)
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &testEnv{t: t, configPath: configPath, dataDir: dataDir}
}

type runResult struct {
	stdout string
	stderr string
	err    error
}

// exitCode returns the exit code carried by the error, 0 for nil and 1
// for plain errors.
func (r runResult) exitCode() int {
	if r.err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(r.err, &ec) {
		return ec.ExitCode()
	}
	return 1
}

func (e *testEnv) run(args ...string) runResult {
	return e.runWithInput("", args...)
}

func (e *testEnv) runWithInput(stdin string, args ...string) runResult {
	e.t.Helper()

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"nodestore-cli", "--config", e.configPath}, args...)
	err := app.Run(argv)
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// mustRun fails the test when the command errors.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	res := e.run(args...)
	if res.err != nil {
		e.t.Fatalf("%v: %v (stderr: %s)", args, res.err, res.stderr)
	}
	return res.stdout
}
