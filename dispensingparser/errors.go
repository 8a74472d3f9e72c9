package dispensingparser

import (
	"fmt"
	"strings"
)

// ReadError is returned when no configured encoding could decode a file.
type ReadError struct {
	Path      string
	Attempted []string
	Err       error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s with encodings [%s]: %v", e.Path, strings.Join(e.Attempted, ", "), e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ConfigError marks a load that cannot proceed: missing folder, no source
// files, or an unreadable file. It halts the view that needed the load.
type ConfigError struct {
	Kind string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s load failed for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
