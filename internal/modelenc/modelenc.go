// SPDX-License-Identifier: MPL-2.0

// Package modelenc encodes resolved models for output.
package modelenc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/pelletier/go-toml/v2"
	"go.yaml.in/yaml/v3"
)

const (
	// FormatJSON encodes models as indented JSON.
	FormatJSON Format = "json"
	// FormatYAML encodes models as YAML.
	FormatYAML Format = "yaml"
	// FormatTOML encodes models as TOML. Non-table models are wrapped under "value".
	FormatTOML Format = "toml"
)

// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid output format")

type (
	// Format names an output encoding.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	InvalidFormatError struct {
		Value Format
	}
)

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatTOML}
}

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: json, yaml, toml)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// Validate returns nil if the format is supported.
func (f Format) Validate() error {
	switch f {
	case FormatJSON, FormatYAML, FormatTOML:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// Encode writes model to w in format f.
func Encode(w io.Writer, f Format, model any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(model); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(asTable(model))
	default:
		return &InvalidFormatError{Value: f}
	}
}

// asTable wraps values TOML cannot encode at the document root.
func asTable(model any) any {
	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return map[string]any{}
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct, reflect.Map:
		return model
	default:
		return map[string]any{"value": model}
	}
}
