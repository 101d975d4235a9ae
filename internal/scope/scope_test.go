// SPDX-License-Identifier: MPL-2.0

package scope

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/toolmodel/toolmodel/internal/services"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

const (
	typeA modeltype.ModelType = "test.a"
	typeB modeltype.ModelType = "test.b"
)

// deprecatedBuilder serves a type that has a canonical replacement.
type deprecatedBuilder struct {
	toolmodel.Builder
}

func (deprecatedBuilder) DeprecatedBy() modeltype.ModelType { return typeA }

func constBuilder(name string, model toolmodel.Model, types ...modeltype.ModelType) toolmodel.Builder {
	return toolmodel.NewBuilder(name, func(context.Context, toolmodel.ScopeContext, modeltype.ModelType) (toolmodel.Model, error) {
		return model, nil
	}, types...)
}

func register(builders ...toolmodel.Builder) []services.ScopedAction {
	actions := make([]services.ScopedAction, 0, len(builders))
	for _, b := range builders {
		actions = append(actions, services.ScopedAction{
			Module: "test",
			Action: services.NewAction("register "+toolmodel.BuilderName(b), func(r services.Registrar) error {
				return r.Register(b)
			}),
		})
	}
	return actions
}

func readyScope(t *testing.T, opts Options, builders ...toolmodel.Builder) *Scope {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Initialize(context.Background(), register(builders...)); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return s
}

func TestScope_Lifecycle(t *testing.T) {
	t.Parallel()

	s, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.State() != StateUnregistered || s.Kind() != toolmodel.ScopeKindBuild {
		t.Fatalf("new scope = %s/%s, want unregistered build scope", s.State(), s.Kind())
	}
	if s.ID() == "" {
		t.Error("scope ID should be assigned")
	}

	if _, err := s.RequestModel(context.Background(), typeA); !errors.Is(err, toolmodel.ErrScopeNotReady) {
		t.Errorf("RequestModel() before Ready error = %v, want ErrScopeNotReady", err)
	}

	if err := s.Initialize(context.Background(), register(constBuilder("a", "model-a", typeA))); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !s.IsReady() || !s.Registry().IsSealed() {
		t.Fatalf("after Initialize state = %s, sealed = %v", s.State(), s.Registry().IsSealed())
	}

	got, err := s.RequestModel(context.Background(), typeA)
	if err != nil || got != "model-a" {
		t.Fatalf("RequestModel() = %v, %v; want model-a", got, err)
	}
	if _, err := s.RequestModel(context.Background(), typeB); !errors.Is(err, toolmodel.ErrUnknownModelType) {
		t.Errorf("RequestModel(unknown) error = %v, want ErrUnknownModelType", err)
	}

	if err := s.Initialize(context.Background(), nil); err == nil {
		t.Error("second Initialize() should fail")
	}

	if err := s.TearDown(); err != nil {
		t.Fatalf("TearDown() error = %v", err)
	}
	if s.State() != StateTornDown || s.Registry() != nil {
		t.Errorf("after TearDown state = %s, registry = %v", s.State(), s.Registry())
	}

	_, err = s.RequestModel(context.Background(), typeA)
	var tornDown *toolmodel.ScopeTornDownError
	if !errors.As(err, &tornDown) || tornDown.ScopeID != s.ID() {
		t.Errorf("RequestModel() after TearDown error = %v, want ScopeTornDownError for %s", err, s.ID())
	}

	if err := s.TearDown(); err != nil {
		t.Errorf("second TearDown() error = %v", err)
	}
}

func TestScope_RegistrationFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("no settings file")
	actions := append(register(constBuilder("a", nil, typeA)), services.ScopedAction{
		Module: "scripts",
		Action: services.NewAction("load settings", func(services.Registrar) error { return cause }),
	})
	ran := false
	actions = append(actions, services.ScopedAction{
		Module: "scripts",
		Action: services.NewAction("never", func(services.Registrar) error { ran = true; return nil }),
	})

	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Initialize(context.Background(), actions)

	var regErr *toolmodel.RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("Initialize() error = %v, want RegistrationError", err)
	}
	if regErr.Action != "scripts/load settings" {
		t.Errorf("RegistrationError.Action = %q", regErr.Action)
	}
	if !errors.Is(err, toolmodel.ErrRegistrationFailed) || !errors.Is(err, cause) {
		t.Errorf("error chain should carry ErrRegistrationFailed and the cause: %v", err)
	}
	if ran {
		t.Error("actions after the failing one must not run")
	}
	if s.State() != StateFailed || !errors.Is(s.LastError(), cause) {
		t.Errorf("state = %s, LastError = %v", s.State(), s.LastError())
	}

	if _, err := s.RequestModel(context.Background(), typeA); !errors.Is(err, toolmodel.ErrScopeNotReady) {
		t.Errorf("RequestModel() on failed scope error = %v, want ErrScopeNotReady", err)
	}
	if err := s.WaitForReady(context.Background()); !errors.Is(err, cause) {
		t.Errorf("WaitForReady() on failed scope error = %v, want cause", err)
	}
}

func TestScope_InitializeCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(ctx, register(constBuilder("a", nil, typeA))); !errors.Is(err, context.Canceled) {
		t.Errorf("Initialize() error = %v, want context.Canceled", err)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestScope_WaitForReady(t *testing.T) {
	t.Parallel()

	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.WaitForReady(ctx); !errors.Is(err, toolmodel.ErrScopeNotReady) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForReady() timeout error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.WaitForReady(context.Background()) }()

	if err := s.Initialize(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitForReady() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForReady() did not return after Initialize")
	}
}

func TestScope_TearDownDuringRequest(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	blocking := toolmodel.NewBuilder("blocking", func(ctx context.Context, _ toolmodel.ScopeContext, _ modeltype.ModelType) (toolmodel.Model, error) {
		close(started)
		<-ctx.Done()
		return "stale", nil
	}, typeA)
	s := readyScope(t, Options{}, blocking)

	result := make(chan error, 1)
	go func() {
		_, err := s.RequestModel(context.Background(), typeA)
		result <- err
	}()

	<-started
	if err := s.TearDown(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, toolmodel.ErrScopeTornDown) {
			t.Errorf("in-flight RequestModel() error = %v, want ErrScopeTornDown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not observe teardown")
	}
}

func TestScope_BuilderErrorsPassThrough(t *testing.T) {
	t.Parallel()

	cause := errors.New("compiler crashed")
	failing := toolmodel.NewBuilder("failing", func(_ context.Context, _ toolmodel.ScopeContext, mt modeltype.ModelType) (toolmodel.Model, error) {
		return nil, toolmodel.ComputationFailed(mt, "failing", cause)
	}, typeA)
	s := readyScope(t, Options{}, failing)

	_, err := s.RequestModel(context.Background(), typeA)
	var compErr *toolmodel.ModelComputationError
	if !errors.As(err, &compErr) || !errors.Is(err, cause) {
		t.Fatalf("RequestModel() error = %v, want ModelComputationError carrying the cause", err)
	}
	if s.State() != StateReady {
		t.Errorf("builder failure must not change scope state, got %s", s.State())
	}
}

func TestScope_ChildScopes(t *testing.T) {
	t.Parallel()

	build := readyScope(t, Options{Configuration: nil}, constBuilder("build-a", "build-a", typeA))

	child, err := build.NewChild(":app")
	if err != nil {
		t.Fatalf("NewChild() error = %v", err)
	}
	if child.Kind() != toolmodel.ScopeKindProject || child.ProjectPath() != ":app" || child.Parent() != build {
		t.Fatalf("child = %s %s", child.Kind(), child.ProjectPath())
	}
	if err := child.Initialize(context.Background(), register(
		constBuilder("project-a", "project-a", typeA),
		constBuilder("project-b", "project-b", typeB),
	)); err != nil {
		t.Fatal(err)
	}

	if got, err := child.RequestModel(context.Background(), typeA); err != nil || got != "project-a" {
		t.Errorf("child RequestModel(a) = %v, %v; project scope should shadow build scope", got, err)
	}
	if got, err := build.RequestModel(context.Background(), typeB); !errors.Is(err, toolmodel.ErrUnknownModelType) {
		t.Errorf("build RequestModel(b) = %v, %v; project builders must not leak upward", got, err)
	}
	if got := child.Context(); got.Kind != toolmodel.ScopeKindProject || got.ProjectPath != ":app" {
		t.Errorf("child Context() = %+v", got)
	}

	if err := build.TearDown(); err != nil {
		t.Fatal(err)
	}
	if child.State() != StateTornDown {
		t.Errorf("child state after parent TearDown = %s", child.State())
	}
	if _, err := child.RequestModel(context.Background(), typeA); !errors.Is(err, toolmodel.ErrScopeTornDown) {
		t.Errorf("child RequestModel() after parent TearDown error = %v", err)
	}
	if _, err := build.NewChild(":lib"); !errors.Is(err, toolmodel.ErrScopeTornDown) {
		t.Errorf("NewChild() on torn down scope error = %v", err)
	}
}

func TestScope_NewChildBeforeReady(t *testing.T) {
	t.Parallel()

	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.NewChild(":app"); !errors.Is(err, toolmodel.ErrScopeNotReady) {
		t.Errorf("NewChild() before Ready error = %v, want ErrScopeNotReady", err)
	}
}

func TestScope_NewChildOnFailedScope(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	s, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Initialize(context.Background(), []services.ScopedAction{{
		Action: services.NewAction("fail", func(services.Registrar) error { return cause }),
	}})

	result := make(chan error, 1)
	go func() {
		_, err := s.NewChild(":app")
		result <- err
	}()

	select {
	case err := <-result:
		if !errors.Is(err, toolmodel.ErrScopeNotReady) || !errors.Is(err, cause) {
			t.Errorf("NewChild() on failed scope error = %v, want ErrScopeNotReady carrying the cause", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("NewChild() on failed scope did not return")
	}
}

func TestScope_InitializeTwiceKeepsReadyScope(t *testing.T) {
	t.Parallel()

	s := readyScope(t, Options{}, constBuilder("a", "model-a", typeA))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Initialize(ctx, nil); err == nil {
		t.Error("second Initialize() should fail")
	}
	if s.State() != StateReady {
		t.Fatalf("state after second Initialize = %s, want ready", s.State())
	}
	if got, err := s.RequestModel(context.Background(), typeA); err != nil || got != "model-a" {
		t.Errorf("RequestModel() = %v, %v; want model-a", got, err)
	}
}

func TestScope_InitializeAfterTearDown(t *testing.T) {
	t.Parallel()

	build := readyScope(t, Options{})
	child, err := build.NewChild(":app")
	if err != nil {
		t.Fatal(err)
	}
	if err := build.TearDown(); err != nil {
		t.Fatal(err)
	}

	err = child.Initialize(context.Background(), nil)
	var tornDown *toolmodel.ScopeTornDownError
	if !errors.As(err, &tornDown) || tornDown.ScopeID != child.ID() {
		t.Errorf("Initialize() after TearDown error = %v, want ScopeTornDownError for the child", err)
	}
}

func TestScope_FallbackBuilderRunsInOwningScope(t *testing.T) {
	t.Parallel()

	describe := toolmodel.NewBuilder("describe", func(_ context.Context, sc toolmodel.ScopeContext, _ modeltype.ModelType) (toolmodel.Model, error) {
		return string(sc.Kind) + ":" + string(sc.ProjectPath), nil
	}, typeA)
	build := readyScope(t, Options{}, describe)
	defer func() { _ = build.TearDown() }()

	child, err := build.NewChild(":app")
	if err != nil {
		t.Fatal(err)
	}
	if err := child.Initialize(context.Background(), register(
		toolmodel.NewBuilder("describe-b", func(_ context.Context, sc toolmodel.ScopeContext, _ modeltype.ModelType) (toolmodel.Model, error) {
			return string(sc.Kind) + ":" + string(sc.ProjectPath), nil
		}, typeB),
	)); err != nil {
		t.Fatal(err)
	}

	want := string(toolmodel.ScopeKindBuild) + ":"
	if got, err := child.RequestModel(context.Background(), typeA); err != nil || got != want {
		t.Errorf("RequestModel(a) = %v, %v; want %q from the build scope", got, err, want)
	}
	want = string(toolmodel.ScopeKindProject) + "::app"
	if got, err := child.RequestModel(context.Background(), typeB); err != nil || got != want {
		t.Errorf("RequestModel(b) = %v, %v; want %q from the project scope", got, err, want)
	}
}

func TestScope_TearDownHooks(t *testing.T) {
	t.Parallel()

	s := readyScope(t, Options{})

	var order []string
	errClose := errors.New("close failed")
	for _, name := range []string{"first", "second", "third"} {
		if err := s.OnTearDown(func() error {
			order = append(order, name)
			if name == "second" {
				return errClose
			}
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.TearDown(); !errors.Is(err, errClose) {
		t.Errorf("TearDown() error = %v, want hook error", err)
	}
	if want := []string{"third", "second", "first"}; !reflect.DeepEqual(order, want) {
		t.Errorf("hook order = %v, want %v", order, want)
	}

	late := false
	if err := s.OnTearDown(func() error { late = true; return nil }); err != nil || !late {
		t.Errorf("OnTearDown() after TearDown should run immediately: ran=%v err=%v", late, err)
	}
}

func TestScope_DeprecatedBuilderLogsWarning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.WarnLevel})

	legacy := deprecatedBuilder{constBuilder("template", "legacy", typeB)}
	s := readyScope(t, Options{Logger: logger}, legacy)

	if got, err := s.RequestModel(context.Background(), typeB); err != nil || got != "legacy" {
		t.Fatalf("RequestModel() = %v, %v", got, err)
	}
	out := buf.String()
	if !strings.Contains(out, "deprecated builder") || !strings.Contains(out, string(typeA)) {
		t.Errorf("expected deprecation warning naming the replacement, got %q", out)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{"unknown kind", Options{Kind: "settings"}},
		{"project without path", Options{Kind: toolmodel.ScopeKindProject}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.opts); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestState_Validate(t *testing.T) {
	t.Parallel()

	for _, s := range []State{StateUnregistered, StateRegistering, StateReady, StateTornDown, StateFailed} {
		if err := s.Validate(); err != nil {
			t.Errorf("%s.Validate() error = %v", s, err)
		}
	}
	if err := State(42).Validate(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("State(42).Validate() error = %v, want ErrInvalidState", err)
	}
	if State(42).String() != "unknown" {
		t.Errorf("State(42).String() = %q", State(42).String())
	}
	if !StateFailed.IsTerminal() || StateReady.IsTerminal() {
		t.Error("IsTerminal() mismatch")
	}
}
