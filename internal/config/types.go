// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toolmodel/toolmodel/internal/logging"
	"github.com/toolmodel/toolmodel/internal/modelenc"
	"github.com/toolmodel/toolmodel/internal/registry"
)

const (
	// LogLevelDebug logs everything, including registration and resolution steps.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs lifecycle milestones.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs deprecations and duplicate registrations.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is the sentinel error wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidReadyTimeout is returned for a non-positive ready timeout.
	ErrInvalidReadyTimeout = errors.New("invalid ready timeout")
	// ErrInvalidDescriptorPath is returned for a whitespace-only build descriptor path.
	ErrInvalidDescriptorPath = errors.New("invalid build descriptor path")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// LogLevel is the minimum level logged to stderr.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// LogFormat selects the log formatter: text, json or logfmt.
		LogFormat string `json:"log_format" mapstructure:"log_format"`
		// Registry configures builder registries.
		Registry RegistryConfig `json:"registry" mapstructure:"registry"`
		// Requests configures inbound model requests.
		Requests RequestsConfig `json:"requests" mapstructure:"requests"`
		// Build locates the build description.
		Build BuildConfig `json:"build" mapstructure:"build"`
		// Output configures how models are printed.
		Output OutputConfig `json:"output" mapstructure:"output"`
	}

	// RegistryConfig configures builder registries.
	RegistryConfig struct {
		DuplicatePolicy registry.DuplicatePolicy `json:"duplicate_policy" mapstructure:"duplicate_policy"`
	}

	// RequestsConfig configures how requests treat scopes that are not ready.
	RequestsConfig struct {
		WaitForReady bool          `json:"wait_for_ready" mapstructure:"wait_for_ready"`
		ReadyTimeout time.Duration `json:"ready_timeout" mapstructure:"ready_timeout"`
	}

	// BuildConfig locates the build description.
	BuildConfig struct {
		Descriptor string `json:"descriptor" mapstructure:"descriptor"`
	}

	// OutputConfig configures model output.
	OutputConfig struct {
		Format modelenc.Format `json:"format" mapstructure:"format"`
	}
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: logging.FormatText,
		Registry: RegistryConfig{
			DuplicatePolicy: registry.DuplicateWarn,
		},
		Requests: RequestsConfig{
			WaitForReady: false,
			ReadyTimeout: 10 * time.Second,
		},
		Build: BuildConfig{
			Descriptor: "build.cue",
		},
		Output: OutputConfig{
			Format: modelenc.FormatJSON,
		},
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Validate returns nil if the LogLevel is one of the recognized levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate checks every field and returns an *InvalidConfigError listing all
// problems, or nil.
func (c Config) Validate() error {
	var errs []error
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormatter(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if err := c.Registry.DuplicatePolicy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Requests.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be positive", ErrInvalidReadyTimeout, c.Requests.ReadyTimeout))
	}
	if strings.TrimSpace(c.Build.Descriptor) == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidDescriptorPath, c.Build.Descriptor))
	}
	if err := c.Output.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and every field error, so errors.Is matches
// the section sentinels too.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
