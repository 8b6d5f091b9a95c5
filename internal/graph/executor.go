package graph

import (
	"strings"

	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
)

// IsReservedExecutorName reports whether name is reserved for executors
// the runtime creates itself: "default", "gpu", and anything starting
// with "__".
func IsReservedExecutorName(name string) bool {
	return name == "default" || name == "gpu" || strings.HasPrefix(name, "__")
}

// checkExecutors rejects reserved or duplicate executor names and node
// assignments to undeclared executors.
func checkExecutors(cfg ir.GraphConfig) error {
	declared := make(map[string]bool, len(cfg.Executors))
	for i, e := range cfg.Executors {
		if IsReservedExecutorName(e.Name) {
			return status.Internalf("executor %d: name %q is reserved", i, e.Name)
		}
		if declared[e.Name] {
			return status.Internalf("executor %d: name %q declared more than once", i, e.Name)
		}
		declared[e.Name] = true
	}

	for i, n := range cfg.Nodes {
		if n.Executor != "" && !declared[n.Executor] {
			return status.Internalf("node %d (%s): executor %q is not declared", i, n.Calculator, n.Executor)
		}
	}
	return nil
}
