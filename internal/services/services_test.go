// SPDX-License-Identifier: MPL-2.0

package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/modeltype"
)

type (
	// recordingRegistrar records builder names in registration order.
	recordingRegistrar struct {
		names []string
	}

	testModule struct {
		BaseModule
		name    string
		build   []string
		project []string
		calls   map[toolmodel.ScopeKind]int
	}

	buildOnlyModule struct {
		name string
	}
)

func (r *recordingRegistrar) Register(b toolmodel.Builder) error {
	r.names = append(r.names, toolmodel.BuilderName(b))
	return nil
}

func newTestModule(name string, build, project []string) *testModule {
	return &testModule{name: name, build: build, project: project, calls: make(map[toolmodel.ScopeKind]int)}
}

func (m *testModule) Name() string { return m.name }

func (m *testModule) RegisterBuildServices(reg *ServiceRegistration) {
	m.calls[reg.Kind()]++
	for _, b := range m.build {
		reg.AddProvider(registerAction(b))
	}
}

func (m *testModule) RegisterProjectServices(reg *ServiceRegistration) {
	m.calls[reg.Kind()]++
	for _, b := range m.project {
		reg.AddProvider(registerAction(b))
	}
}

func (m buildOnlyModule) Name() string { return m.name }

func (m buildOnlyModule) RegisterBuildServices(reg *ServiceRegistration) {
	reg.AddProvider(registerAction(m.name + "-builder"))
	reg.AddProvider(nil)
}

func registerAction(builder string) RegistrationAction {
	return NewAction("register "+builder, func(r Registrar) error {
		return r.Register(toolmodel.NewBuilder(builder, func(context.Context, toolmodel.ScopeContext, modeltype.ModelType) (toolmodel.Model, error) {
			return nil, nil
		}))
	})
}

func runActions(t *testing.T, actions []ScopedAction) []string {
	t.Helper()
	reg := &recordingRegistrar{}
	for _, a := range actions {
		if err := a.Action.Execute(reg); err != nil {
			t.Fatalf("action %s error = %v", a.Action.Name(), err)
		}
	}
	return reg.names
}

func TestComposer_ActionsFollowDeclarationOrder(t *testing.T) {
	t.Parallel()

	scripts := newTestModule("scripts", []string{"base", "template"}, []string{"project-script"})
	ide := newTestModule("ide", []string{"idea"}, nil)
	native := buildOnlyModule{name: "native"}

	c, err := NewComposer(scripts, ide, native)
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}

	buildActions, err := c.Actions(toolmodel.ScopeKindBuild)
	if err != nil {
		t.Fatalf("Actions(build) error = %v", err)
	}
	if got, want := runActions(t, buildActions), []string{"base", "template", "idea", "native-builder"}; !reflect.DeepEqual(got, want) {
		t.Errorf("build registration order = %v, want %v", got, want)
	}
	if buildActions[0].Module != "scripts" || buildActions[3].Module != "native" {
		t.Errorf("actions should be tagged with their module, got %+v", buildActions)
	}

	projectActions, err := c.Actions(toolmodel.ScopeKindProject)
	if err != nil {
		t.Fatalf("Actions(project) error = %v", err)
	}
	if got, want := runActions(t, projectActions), []string{"project-script"}; !reflect.DeepEqual(got, want) {
		t.Errorf("project registration order = %v, want %v", got, want)
	}
}

func TestComposer_HooksRunOncePerScope(t *testing.T) {
	t.Parallel()

	m := newTestModule("scripts", []string{"base"}, []string{"project-script"})
	c, err := NewComposer(m)
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}

	for range 3 {
		if _, err := c.Actions(toolmodel.ScopeKindBuild); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Actions(toolmodel.ScopeKindProject); err != nil {
		t.Fatal(err)
	}

	if m.calls[toolmodel.ScopeKindBuild] != 3 || m.calls[toolmodel.ScopeKindProject] != 1 {
		t.Errorf("hook calls = %v, want build:3 project:1", m.calls)
	}
}

func TestNewComposer_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modules []Module
		want    error
	}{
		{"duplicate names", []Module{buildOnlyModule{name: "a"}, buildOnlyModule{name: "a"}}, ErrDuplicateModule},
		{"empty name", []Module{buildOnlyModule{name: " "}}, ErrInvalidModule},
		{"nil module", []Module{nil}, ErrInvalidModule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewComposer(tt.modules...); !errors.Is(err, tt.want) {
				t.Errorf("NewComposer() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestComposer_InvalidKind(t *testing.T) {
	t.Parallel()

	c, err := NewComposer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Actions("settings"); !errors.Is(err, toolmodel.ErrInvalidScopeKind) {
		t.Errorf("Actions(settings) error = %v, want ErrInvalidScopeKind", err)
	}
}

func TestComposer_Describe(t *testing.T) {
	t.Parallel()

	c, err := NewComposer(
		newTestModule("scripts", []string{"base"}, []string{"project-script"}),
		buildOnlyModule{name: "native"},
	)
	if err != nil {
		t.Fatal(err)
	}

	desc, err := c.Describe()
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if len(desc) != 2 || desc[0].Name != "scripts" || desc[1].Name != "native" {
		t.Fatalf("Describe() = %+v", desc)
	}
	if got := desc[0].Kinds(); !reflect.DeepEqual(got, []toolmodel.ScopeKind{toolmodel.ScopeKindBuild, toolmodel.ScopeKindProject}) {
		t.Errorf("scripts kinds = %v", got)
	}
	if got := desc[1].Actions[toolmodel.ScopeKindBuild]; !reflect.DeepEqual(got, []string{"register native-builder"}) {
		t.Errorf("native build actions = %v", got)
	}
}

func TestNewAction_NilFunc(t *testing.T) {
	t.Parallel()

	if err := NewAction("empty", nil).Execute(&recordingRegistrar{}); !errors.Is(err, ErrNilAction) {
		t.Errorf("Execute() error = %v, want ErrNilAction", err)
	}
}
