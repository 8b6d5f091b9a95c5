package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/testutil"
)

func tmpl(typ string, calculators ...string) ir.GraphConfig {
	cfg := ir.GraphConfig{Type: typ}
	for _, c := range calculators {
		cfg.Nodes = append(cfg.Nodes, ir.Node{Calculator: c})
	}
	return cfg
}

// TestAnalyzeTemplateCycles_Empty tests that no templates produce no cycles.
func TestAnalyzeTemplateCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeTemplateCycles(nil))
}

// TestAnalyzeTemplateCycles_Fixtures tests the shipped fixtures are acyclic.
func TestAnalyzeTemplateCycles_Fixtures(t *testing.T) {
	assert.Empty(t, AnalyzeTemplateCycles(testutil.Templates()))
}

// TestAnalyzeTemplateCycles_DAG tests nesting without recursion.
func TestAnalyzeTemplateCycles_DAG(t *testing.T) {
	templates := []ir.GraphConfig{
		tmpl("Outer", "Middle", "PassThroughCalculator"),
		tmpl("Middle", "Inner", "Inner"),
		tmpl("Inner", "PassThroughCalculator"),
	}
	assert.Empty(t, AnalyzeTemplateCycles(templates))
}

func TestAnalyzeTemplateCycles_SelfInclusion(t *testing.T) {
	cycles := AnalyzeTemplateCycles([]ir.GraphConfig{tmpl("Loop", "PassThroughCalculator", "Loop")})

	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"Loop", "Loop"}, cycles[0].Path)
	assert.Equal(t, "template Loop includes itself", cycles[0].Message)
}

func TestAnalyzeTemplateCycles_TwoTemplates(t *testing.T) {
	cycles := AnalyzeTemplateCycles([]ir.GraphConfig{
		tmpl("B", "A"),
		tmpl("A", "B"),
	})

	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "A"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Message, "A → B → A")
}

func TestAnalyzeTemplateCycles_ThreeTemplates(t *testing.T) {
	cycles := AnalyzeTemplateCycles([]ir.GraphConfig{
		tmpl("A", "B"),
		tmpl("B", "C"),
		tmpl("C", "A"),
		tmpl("Standalone", "A"),
	})

	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycles[0].Path)
}

// TestAnalyzeTemplateCycles_Independent tests that separate cycles are
// each reported, in sorted order.
func TestAnalyzeTemplateCycles_Independent(t *testing.T) {
	cycles := AnalyzeTemplateCycles([]ir.GraphConfig{
		tmpl("Y", "X"),
		tmpl("X", "Y"),
		tmpl("Self", "Self"),
	})

	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"Self", "Self"}, cycles[0].Path)
	assert.Equal(t, []string{"X", "Y", "X"}, cycles[1].Path)
}

// TestAnalyzeTemplateCycles_UnknownCalculators tests that calculators that
// are not templates never form edges.
func TestAnalyzeTemplateCycles_UnknownCalculators(t *testing.T) {
	cycles := AnalyzeTemplateCycles([]ir.GraphConfig{
		tmpl("A", "NotATemplate"),
	})
	assert.Empty(t, cycles)
}
