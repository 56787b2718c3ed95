package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	oerrors "github.com/saby/builder-sub003/internal/errors"
)

//go:embed schema.cue
var schemaSource []byte

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		fmt.Fprintf(&sb, "  %s: %s\n", err.Field, err.Message)
	}
	return sb.String()
}

// Unwrap ties every validation failure to the shared sentinel.
func (e ValidationErrors) Unwrap() error {
	return oerrors.ErrValidation
}

// Validator validates configuration against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator creates a new configuration validator.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return nil, fmt.Errorf("schema has no #Config definition")
	}

	return &Validator{
		ctx:    ctx,
		schema: def,
	}, nil
}

// Validate validates the given configuration.
func (v *Validator) Validate(cfg *Config) error {
	var errs ValidationErrors

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	value := v.ctx.CompileBytes(data)
	if value.Err() != nil {
		return fmt.Errorf("compiling config: %w", value.Err())
	}

	if err := v.schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			path := e.Path()
			if len(path) > 0 && strings.HasPrefix(path[0], "#") {
				path = path[1:]
			}
			field := strings.Join(path, ".")
			if field == "" {
				field = "config"
			}
			format, args := e.Msg()
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf(format, args...),
			})
		}
	}

	seen := make(map[string]bool, len(cfg.Modules))
	for i, m := range cfg.Modules {
		if m.Name == "" {
			continue
		}
		if seen[m.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("modules.%d.name", i),
				Message: fmt.Sprintf("duplicate module %q", m.Name),
			})
		}
		seen[m.Name] = true
	}

	if cfg.CacheDir != "" && strings.TrimSpace(cfg.CacheDir) == "" {
		errs = append(errs, ValidationError{
			Field:   "cacheDir",
			Message: "must not be empty or whitespace only",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ValidateFile validates a configuration file at the given path.
func (v *Validator) ValidateFile(path string) error {
	loader := NewLoader()
	cfg, err := loader.Load(path)
	if err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}

	return v.Validate(cfg)
}
