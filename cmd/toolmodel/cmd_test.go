// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/toolmodel/toolmodel/internal/config"
	"github.com/toolmodel/toolmodel/internal/issue"
	"github.com/toolmodel/toolmodel/internal/modelenc"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
)

const testBuild = `
kotlin_dsl: {
	script_templates_classpath: ["templates.jar"]
	implicit_imports: ["org.example.dsl.*"]
	kotlin_dsl_classpath: ["dsl.jar"]
}
projects: {
	":": {classpath: ["root.jar"]}
	":app": {
		classpath: ["app.jar"]
		source_path: ["app/src"]
	}
	":wip": {state: "pending"}
}
`

// staticProvider serves a fixed configuration.
type staticProvider struct {
	cfg *config.Config
	err error
}

func (p staticProvider) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return p.cfg, p.err
}

// testConfig returns defaults pointing at a build description with content.
func testConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Build.Descriptor = path
	return cfg
}

func runCLI(t *testing.T, provider config.Provider, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(Dependencies{Config: provider, Stdout: &out, Stderr: &errOut})
	root := newRootCommand(app)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return ExitGeneric
	}
	return ExitOK
}

func TestQuery_BaseScriptModel(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, testBuild)
	stdout, _, err := runCLI(t, staticProvider{cfg: cfg}, "query", "kotlin-dsl.base-script-model")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}

	var got map[string][]string
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(got["kotlin_dsl_classpath"]) != 1 || got["kotlin_dsl_classpath"][0] != "dsl.jar" {
		t.Errorf("kotlin_dsl_classpath = %v", got["kotlin_dsl_classpath"])
	}
}

func TestQuery_ProjectModelFormats(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, testBuild)
	for _, format := range modelenc.Formats() {
		stdout, _, err := runCLI(t, staticProvider{cfg: cfg},
			"query", "kotlin-dsl.project-script-model", "--project", ":app", "-o", format.String())
		if err != nil {
			t.Errorf("query -o %s error = %v", format, err)
			continue
		}
		for _, want := range []string{"app.jar", "dsl.jar", "app/src", ":app"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("query -o %s output missing %q:\n%s", format, want, stdout)
			}
		}
	}
}

func TestQuery_ExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		args    []string
		want    int
	}{
		{"project model outside a project", testBuild, []string{"query", "kotlin-dsl.project-script-model"}, ExitUnknown},
		{"unknown model type", testBuild, []string{"query", "kotlin-dsl.other", "--project", ":app"}, ExitUnknown},
		{"pending project", testBuild, []string{"query", "kotlin-dsl.project-script-model", "-p", ":wip"}, ExitUnavailable},
		{"project not in build", testBuild, []string{"query", "kotlin-dsl.project-script-model", "-p", ":lib"}, ExitUnavailable},
		{"invalid build description", `projects: {"app": {}}`, []string{"query", "kotlin-dsl.base-script-model"}, ExitComputation},
		{"invalid model type", testBuild, []string{"query", "bad type"}, ExitGeneric},
		{"invalid output format", testBuild, []string{"query", "kotlin-dsl.base-script-model", "-o", "xml"}, ExitGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig(t, tt.content)
			_, stderr, err := runCLI(t, staticProvider{cfg: cfg}, tt.args...)
			if got := exitCode(err); got != tt.want {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.want, err)
			}
			if !strings.Contains(stderr, "Error: ") {
				t.Errorf("stderr should carry the error, got %q", stderr)
			}
		})
	}
}

func TestQuery_DeprecatedModelWarns(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, testBuild)
	stdout, stderr, err := runCLI(t, staticProvider{cfg: cfg}, "query", "kotlin-dsl.build-script-template-model")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if !strings.Contains(stdout, "templates.jar") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "deprecated") || !strings.Contains(stderr, "kotlin-dsl.base-script-model") {
		t.Errorf("stderr should carry the deprecation warning, got %q", stderr)
	}
}

func TestQuery_MissingDescriptor(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Build.Descriptor = filepath.Join(t.TempDir(), "missing.cue")
	_, stderr, err := runCLI(t, staticProvider{cfg: cfg}, "query", "kotlin-dsl.base-script-model", "--verbose")

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.BuildDescriptionInvalidId {
		t.Fatalf("error = %v, want actionable error for the build description", err)
	}
	if !strings.Contains(stderr, "missing.cue") || !strings.Contains(stderr, "Error chain:") {
		t.Errorf("verbose stderr = %q", stderr)
	}
}

func TestQuery_ConfigError(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad config")
	_, stderr, err := runCLI(t, staticProvider{err: cause}, "query", "kotlin-dsl.base-script-model")
	if !errors.Is(err, cause) || exitCode(err) != ExitGeneric {
		t.Errorf("error = %v, want config error with generic exit", err)
	}
	if !strings.Contains(stderr, "bad config") {
		t.Errorf("stderr = %q", stderr)
	}
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(buf.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q, output so far:\n%s", want, buf.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestQuery_WatchServesAgainOnChange(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, testBuild)
	var stdout, stderr syncBuffer
	app := NewApp(Dependencies{Config: staticProvider{cfg: cfg}, Stdout: &stdout, Stderr: &stderr})
	root := newRootCommand(app)
	root.SetArgs([]string{"query", "kotlin-dsl.base-script-model", "--watch"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	waitFor(t, &stdout, "dsl.jar")
	// The watcher starts after the first model is written; give it time to
	// register the directory before editing the file.
	time.Sleep(300 * time.Millisecond)
	updated := strings.Replace(testBuild, `kotlin_dsl_classpath: ["dsl.jar"]`, `kotlin_dsl_classpath: ["dsl-2.jar"]`, 1)
	if err := os.WriteFile(cfg.Build.Descriptor, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, &stdout, "dsl-2.jar")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("query --watch error = %v", err)
	}
	if !strings.Contains(stderr.String(), "build description changed") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestBuilders_ResolutionOrder(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, testBuild)

	stdout, _, err := runCLI(t, staticProvider{cfg: cfg}, "builders")
	if err != nil {
		t.Fatalf("builders error = %v", err)
	}
	base := strings.Index(stdout, "kotlin-dsl-base-script-model")
	template := strings.Index(stdout, "kotlin-build-script-template-model")
	if base < 0 || template < 0 || base > template {
		t.Errorf("build scope should list the base builder before the template builder:\n%s", stdout)
	}
	if !strings.Contains(stdout, "deprecated") {
		t.Errorf("template builder should be marked deprecated:\n%s", stdout)
	}
	if !strings.Contains(stdout, "kotlin-dsl.project-script-model -> (unsupported)") {
		t.Errorf("project model should be unsupported in the build scope:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, staticProvider{cfg: cfg}, "builders", "--project", ":app")
	if err != nil {
		t.Fatalf("builders --project error = %v", err)
	}
	project := strings.Index(stdout, "kotlin-dsl-project-script-model")
	base = strings.Index(stdout, "kotlin-dsl-base-script-model")
	if project < 0 || base < 0 || project > base {
		t.Errorf("project scope should list its own builder first:\n%s", stdout)
	}
}

func TestModules(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, staticProvider{cfg: config.DefaultConfig()}, "modules")
	if err != nil {
		t.Fatalf("modules error = %v", err)
	}
	for _, want := range []string{"kotlin-dsl-scripting", "build:", "project:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("modules output missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigShowAndDump(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Requests.WaitForReady = true

	stdout, _, err := runCLI(t, staticProvider{cfg: cfg}, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(stdout, "requests.wait_for_ready") || !strings.Contains(stdout, "true") {
		t.Errorf("config show output:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, staticProvider{cfg: cfg}, "config", "dump")
	if err != nil {
		t.Fatalf("config dump error = %v", err)
	}
	if !strings.Contains(stdout, "wait_for_ready: true") {
		t.Errorf("config dump output:\n%s", stdout)
	}
}

func TestIssues(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, staticProvider{cfg: config.DefaultConfig()}, "issues", "1", "--style", "notty")
	if err != nil {
		t.Fatalf("issues error = %v", err)
	}
	if !strings.Contains(stdout, "configuration") {
		t.Errorf("issues 1 output:\n%s", stdout)
	}

	if _, _, err := runCLI(t, staticProvider{cfg: config.DefaultConfig()}, "issues", "99"); exitCode(err) != ExitGeneric {
		t.Errorf("unknown issue error = %v", err)
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("other"), ExitGeneric},
		{&toolmodel.UnknownModelTypeError{ModelType: "x.y"}, ExitUnknown},
		{toolmodel.Unavailable("x.y", "later"), ExitUnavailable},
		{toolmodel.ComputationFailed("x.y", "b", errors.New("boom")), ExitComputation},
		{issue.FromModelError(&toolmodel.ScopeTornDownError{ScopeID: "s"}, "x.y", ""), ExitTornDown},
	}
	for _, tt := range tests {
		if got := exitCodeFor(tt.err); got != tt.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version, Commit, BuildDate = "v1.2.3", "abc1234", "2026-06-15T10:00:00Z"
		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}
