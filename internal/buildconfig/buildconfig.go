// SPDX-License-Identifier: MPL-2.0

// Package buildconfig is the build-configuration collaborator model builders
// delegate to. A build is described in CUE, validated against an embedded
// schema, and evaluated lazily on first use.
package buildconfig

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/toolmodel/toolmodel/internal/logging"
	"github.com/toolmodel/toolmodel/internal/toolmodel"
	"github.com/toolmodel/toolmodel/pkg/cueutil"
)

const (
	// DefaultFileName is the conventional build description file name.
	DefaultFileName = "build.cue"

	// ProjectConfigured marks a project whose configuration has completed.
	ProjectConfigured ProjectState = "configured"
	// ProjectPending marks a project that is still being configured.
	ProjectPending ProjectState = "pending"
)

//go:embed build_schema.cue
var buildSchema []byte

var (
	// ErrSourceClosed is returned by a source used after Close.
	ErrSourceClosed = errors.New("configuration source closed")
	// ErrInvalidProjectState is the sentinel error wrapped by InvalidProjectStateError.
	ErrInvalidProjectState = errors.New("invalid project state")
)

type (
	// Source is a configuration source that can hand out the evaluated build.
	Source interface {
		toolmodel.ConfigurationSource
		// Build evaluates the source if needed and returns the build description.
		Build(ctx context.Context) (*Build, error)
	}

	// Build is an evaluated build description.
	Build struct {
		KotlinDSL KotlinDSL          `json:"kotlin_dsl"`
		Projects  map[string]Project `json:"projects"`
	}

	// KotlinDSL holds the build-wide script compilation settings.
	KotlinDSL struct {
		ScriptTemplatesClasspath []string `json:"script_templates_classpath"`
		ImplicitImports          []string `json:"implicit_imports"`
		KotlinDSLClasspath       []string `json:"kotlin_dsl_classpath"`
	}

	// Project holds the script settings of one project.
	Project struct {
		Classpath  []string     `json:"classpath"`
		SourcePath []string     `json:"source_path"`
		State      ProjectState `json:"state"`
	}

	// ProjectState is the configuration state of a project.
	ProjectState string

	// InvalidProjectStateError is returned when a ProjectState value is not recognized.
	InvalidProjectStateError struct {
		Value ProjectState
	}

	// FileSource evaluates a build.cue file once, on first use. It is safe for
	// concurrent use; later calls return the cached result.
	FileSource struct {
		path        string
		maxFileSize int64
		logger      *log.Logger

		mu        sync.Mutex
		evaluated bool
		closed    bool
		build     *Build
		err       error
	}

	// StaticSource serves an in-memory build description.
	StaticSource struct {
		mu     sync.Mutex
		build  *Build
		err    error
		closed bool
	}
)

// Error implements the error interface.
func (e *InvalidProjectStateError) Error() string {
	return fmt.Sprintf("invalid project state %q (valid: configured, pending)", e.Value)
}

// Unwrap returns ErrInvalidProjectState for errors.Is() compatibility.
func (e *InvalidProjectStateError) Unwrap() error { return ErrInvalidProjectState }

// Validate returns nil if the state is configured or pending.
func (s ProjectState) Validate() error {
	switch s {
	case ProjectConfigured, ProjectPending:
		return nil
	default:
		return &InvalidProjectStateError{Value: s}
	}
}

// String returns the string representation of the ProjectState.
func (s ProjectState) String() string { return string(s) }

// Project looks up the project at path.
func (b *Build) Project(path toolmodel.ProjectPath) (Project, bool) {
	p, ok := b.Projects[string(path)]
	return p, ok
}

// Parse validates data against the build schema and decodes it.
func Parse(data []byte, filename string) (*Build, error) {
	result, err := cueutil.ParseAndDecode[Build](buildSchema, data, "#Build", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// Load reads and parses the build description at path.
func Load(path string, maxFileSize int64) (*Build, error) {
	data, err := cueutil.ReadFile(path, maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("read build description: %w", err)
	}
	return Parse(data, path)
}

// NewFileSource returns a source for the build description at path.
// Nothing is read until the first Evaluate or Build call.
func NewFileSource(path string, logger *log.Logger) *FileSource {
	return &FileSource{
		path:        path,
		maxFileSize: cueutil.DefaultMaxFileSize,
		logger:      logging.Component(logger, "buildconfig"),
	}
}

// Path returns the build description path.
func (s *FileSource) Path() string { return s.path }

// Evaluate implements toolmodel.ConfigurationSource.
func (s *FileSource) Evaluate(ctx context.Context) error {
	_, err := s.Build(ctx)
	return err
}

// Build parses the file on the first call and returns the cached result,
// including a cached parse error, on every later call. A cancelled context is
// reported without being cached.
func (s *FileSource) Build(ctx context.Context) (*Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.evaluated {
		return s.build, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", s.path, err)
	}

	s.build, s.err = Load(s.path, s.maxFileSize)
	s.evaluated = true
	if s.err != nil {
		s.logger.Warn("build description evaluation failed", "path", s.path, "error", s.err)
	} else {
		s.logger.Debug("build description evaluated", "path", s.path, "projects", len(s.build.Projects))
	}
	return s.build, s.err
}

// Close implements toolmodel.ConfigurationSource. It drops the cached build.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.build = nil
	return nil
}

// NewStaticSource returns a source serving b.
func NewStaticSource(b *Build) *StaticSource {
	return &StaticSource{build: b}
}

// NewFailingSource returns a source whose evaluation always fails with err.
func NewFailingSource(err error) *StaticSource {
	return &StaticSource{err: err}
}

// Evaluate implements toolmodel.ConfigurationSource.
func (s *StaticSource) Evaluate(ctx context.Context) error {
	_, err := s.Build(ctx)
	return err
}

// Build returns the in-memory build description.
func (s *StaticSource) Build(ctx context.Context) (*Build, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	return s.build, s.err
}

// Close implements toolmodel.ConfigurationSource.
func (s *StaticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *StaticSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
