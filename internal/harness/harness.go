package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/graphcfg/internal/compiler"
	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
	"github.com/roach88/graphcfg/internal/store"
	"github.com/roach88/graphcfg/internal/subgraph"
	"github.com/roach88/graphcfg/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against fresh registries and a fresh catalog.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	ids    *testutil.FixedIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
// Logs are discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a test scenario, logging to logger.
//
// Each scenario runs with its own template and contract registries and an
// in-memory catalog, so scenarios never observe each other.
//
// Execution flow:
//  1. Load and compile the scenario sources
//  2. Register their templates and contracts
//  3. Initialize the named graph or template type
//  4. Record the graph and the validation run in the catalog
//  5. Evaluate assertions
//
// The returned error covers harness failures only (unreadable sources, a
// missing graph entry). A graph that fails to initialize is an ordinary
// outcome checked by the status assertion.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	bundle, err := loadSources(scenario.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	templates := subgraph.NewRegistry()
	contracts := contract.NewBuiltinRegistry()
	if err := bundle.Register(templates, contracts); err != nil {
		return nil, fmt.Errorf("failed to register sources: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		ids:    testutil.NewFixedIDGenerator(),
		logger: logger,
	}

	v := graph.New(
		graph.WithTemplates(templates),
		graph.WithContracts(contracts),
		graph.WithLogger(logger),
	)
	defer v.Dispose()

	var initErr error
	label := scenario.Graph
	if scenario.Graph != "" {
		cfg, ok := bundle.Graph(scenario.Graph)
		if !ok {
			return nil, fmt.Errorf("graph %q is not declared in the scenario sources", scenario.Graph)
		}
		initErr = v.Initialize(cfg)
	} else {
		label = scenario.Type
		initErr = v.InitializeType(scenario.Type)
	}

	result := NewResult()
	result.Code = status.CodeOf(initErr)

	ctx := context.Background()
	if err := h.record(ctx, label, v, initErr, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Config:  v,
		InitErr: initErr,
		Packets: scenario.SidePackets,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"code", string(result.Code),
		"pass", result.Pass)
	return result, nil
}

// record writes the validated graph and the validation run, then reads the
// graph back so the result carries the stored canonical form.
func (h *Harness) record(ctx context.Context, name string, v *graph.ValidatedConfig, initErr error, result *Result) error {
	var hash string
	if initErr == nil {
		var err error
		hash, err = h.store.WriteGraph(ctx, name, v)
		if err != nil {
			return fmt.Errorf("failed to store graph: %w", err)
		}
		stored, err := h.store.ReadGraph(ctx, hash)
		if err != nil {
			return fmt.Errorf("failed to read stored graph: %w", err)
		}
		result.Hash = stored.Hash
		result.Canonical = []byte(stored.Canonical)
	}

	run := store.NewValidationRun(h.ids.Generate(), name, hash, h.clock.Next(), ir.ToolVersion, initErr)
	if err := h.store.WriteValidationRun(ctx, run); err != nil {
		return fmt.Errorf("failed to store validation run: %w", err)
	}
	h.logger.Debug("validation run recorded", "id", run.ID, "graph", name, "code", string(run.Code))
	return nil
}

func loadSources(sources []string) (*compiler.Bundle, error) {
	bundle := &compiler.Bundle{}
	for _, src := range sources {
		b, err := compiler.LoadDir(src)
		if err != nil {
			return nil, err
		}
		if err := bundle.Merge(b); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}
