package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/graphcfg/internal/compiler"
	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/subgraph"
)

// Error codes for command-level failures.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeCompile      = "E002" // Source compile error
	ErrCodeNoGraphs     = "E003" // No graph entries found
	ErrCodeRegister     = "E004" // Template or contract registration failed
	ErrCodeNotFound     = "E005" // Path or graph not found
	ErrCodeStore        = "E006" // Catalog error
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeInvalidGraph = "E008" // Graph rejected by validation
)

// LoadError represents an error that occurred while loading sources.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loaded is a compiled source tree plus the registries it populated.
type Loaded struct {
	Bundle    *compiler.Bundle
	Templates *subgraph.Registry
	Contracts *contract.Registry
}

// LoadSources compiles every source under path and registers its
// templates and contracts in fresh registries. The contract registry
// starts out holding the builtins.
func LoadSources(path string) (*Loaded, error) {
	bundle, err := CompileSources(path)
	if err != nil {
		return nil, err
	}
	return RegisterBundle(bundle)
}

// CompileSources compiles every source under path without registering
// anything.
func CompileSources(path string) (*compiler.Bundle, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("sources not found: %s", path), Err: err}
	}
	bundle, err := compiler.LoadDir(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCompile, Message: err.Error(), Err: err}
	}
	return bundle, nil
}

// RegisterBundle registers bundle's templates and contracts in fresh
// registries.
func RegisterBundle(bundle *compiler.Bundle) (*Loaded, error) {
	l := &Loaded{
		Bundle:    bundle,
		Templates: subgraph.NewRegistry(),
		Contracts: contract.NewBuiltinRegistry(),
	}
	if err := bundle.Register(l.Templates, l.Contracts); err != nil {
		return nil, &LoadError{Code: ErrCodeRegister, Message: err.Error(), Err: err}
	}
	return l, nil
}

// NewValidated returns an uninitialized validated config reading from the
// loaded registries.
func (l *Loaded) NewValidated(logger *slog.Logger) *graph.ValidatedConfig {
	return graph.New(
		graph.WithTemplates(l.Templates),
		graph.WithContracts(l.Contracts),
		graph.WithLogger(logger),
	)
}

// Initialize builds a validated config for the named graph entry.
func (l *Loaded) Initialize(name string, logger *slog.Logger) (*graph.ValidatedConfig, error) {
	cfg, ok := l.Bundle.Graph(name)
	if !ok {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph %q is not declared", name)}
	}
	v := l.NewValidated(logger)
	if err := v.Initialize(cfg); err != nil {
		return nil, err
	}
	return v, nil
}

// loadErrorCode extracts the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
