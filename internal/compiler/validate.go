package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/graph"
	"github.com/roach88/graphcfg/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value passed to Validate

	// GraphConfig errors (E101-E109)
	ErrEmptyCalculator     = "E101" // node has no calculator
	ErrMalformedEdge       = "E102" // edge string does not parse
	ErrDuplicateNodeName   = "E103" // two nodes share a name
	ErrReservedExecutor    = "E104" // executor uses a reserved name
	ErrDuplicateExecutor   = "E105" // executor declared twice
	ErrUndeclaredExecutor  = "E106" // node names an undeclared executor
	ErrMalformedStreamInfo = "E107" // input_stream_info tag_index does not parse
	ErrMissingTemplateType = "E108" // template has no type
	ErrTemplateCycle       = "E109" // templates instantiate each other

	// Contract errors (E110-E119)
	ErrContractName  = "E110" // empty or duplicate contract name
	ErrDuplicateTag  = "E111" // tag declared twice within a port kind
	ErrInvalidTag    = "E112" // tag is neither "*" nor a valid tag
	ErrDuplicateType = "E113" // template type declared twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a raw graph or contract against the schema rules that
// do not need registries. All errors are returned, not just the first.
func Validate(v any) []ValidationError {
	switch val := v.(type) {
	case *ir.GraphConfig:
		return validateGraph(val)
	case ir.GraphConfig:
		return validateGraph(&val)
	case *contract.Contract:
		return validateContract(val)
	case contract.Contract:
		return validateContract(&val)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported value type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

// ValidateBundle validates every entry of b, prefixing fields with the
// entry they belong to.
func ValidateBundle(b *Bundle) []ValidationError {
	var errs []ValidationError
	prefixed := func(prefix string, in []ValidationError) {
		for _, e := range in {
			e.Field = prefix + "." + e.Field
			errs = append(errs, e)
		}
	}

	for _, g := range b.Graphs {
		prefixed("graph."+g.Name, validateGraph(&g.Config))
	}

	types := make(map[string]bool)
	for i, t := range b.Templates {
		prefix := fmt.Sprintf("template[%d]", i)
		if t.Type == "" {
			errs = append(errs, ValidationError{Field: prefix + ".type", Message: "template type is required", Code: ErrMissingTemplateType})
		} else {
			if types[t.Type] {
				errs = append(errs, ValidationError{
					Field:   prefix + ".type",
					Message: fmt.Sprintf("template type %q declared more than once", t.Type),
					Code:    ErrDuplicateType,
				})
			}
			types[t.Type] = true
			prefix = "template." + t.Type
		}
		prefixed(prefix, validateGraph(&t))
	}

	names := make(map[string]bool)
	for i, c := range b.Contracts {
		if names[c.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("contract[%d].name", i),
				Message: fmt.Sprintf("contract %q declared more than once", c.Name),
				Code:    ErrContractName,
			})
		}
		names[c.Name] = true
		prefixed("contract."+c.Name, validateContract(&c))
	}
	return errs
}

func validateGraph(cfg *ir.GraphConfig) []ValidationError {
	var errs []ValidationError

	graphLists := map[string][]string{
		"input_stream":       cfg.InputStreams,
		"output_stream":      cfg.OutputStreams,
		"input_side_packet":  cfg.InputSidePackets,
		"output_side_packet": cfg.OutputSidePackets,
	}
	for _, field := range listFields {
		errs = append(errs, validateEdges(field, graphLists[field])...)
	}

	declared := make(map[string]bool)
	for i, e := range cfg.Executors {
		field := fmt.Sprintf("executor[%d].name", i)
		if graph.IsReservedExecutorName(e.Name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("executor name %q is reserved", e.Name),
				Code:    ErrReservedExecutor,
			})
		}
		if declared[e.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("executor %q declared more than once", e.Name),
				Code:    ErrDuplicateExecutor,
			})
		}
		declared[e.Name] = true
	}

	nodeNames := make(map[string]int)
	for i, n := range cfg.Nodes {
		prefix := fmt.Sprintf("node[%d]", i)

		if strings.TrimSpace(n.Calculator) == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".calculator",
				Message: "calculator is required",
				Code:    ErrEmptyCalculator,
			})
		}

		if n.Name != "" {
			if prev, dup := nodeNames[n.Name]; dup {
				errs = append(errs, ValidationError{
					Field:   prefix + ".name",
					Message: fmt.Sprintf("node name %q already used by node[%d]", n.Name, prev),
					Code:    ErrDuplicateNodeName,
				})
			} else {
				nodeNames[n.Name] = i
			}
		}

		if n.Executor != "" && !declared[n.Executor] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".executor",
				Message: fmt.Sprintf("executor %q is not declared", n.Executor),
				Code:    ErrUndeclaredExecutor,
			})
		}

		nodeLists := map[string][]string{
			"input_stream":       n.InputStreams,
			"output_stream":      n.OutputStreams,
			"input_side_packet":  n.InputSidePackets,
			"output_side_packet": n.OutputSidePackets,
		}
		for _, field := range listFields {
			errs = append(errs, validateEdges(prefix+"."+field, nodeLists[field])...)
		}

		for j, info := range n.InputStreamInfo {
			if _, err := ir.ParseTagIndex(info.TagIndex); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.input_stream_info[%d].tag_index", prefix, j),
					Message: err.Error(),
					Code:    ErrMalformedStreamInfo,
				})
			}
		}
	}

	return errs
}

var listFields = []string{"input_stream", "output_stream", "input_side_packet", "output_side_packet"}

// validateEdges reports every malformed entry and, when all entries parse,
// the list-level problems (duplicate ports, index gaps).
func validateEdges(field string, items []string) []ValidationError {
	var errs []ValidationError
	for i, item := range items {
		if _, _, err := ir.ParseEdgeRef(item); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: err.Error(),
				Code:    ErrMalformedEdge,
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	if _, err := ir.ParseEdgeList(items); err != nil {
		errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: ErrMalformedEdge})
	}
	return errs
}

func validateContract(c *contract.Contract) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "contract name is required",
			Code:    ErrContractName,
		})
	}

	kinds := []struct {
		field string
		ports []contract.Port
	}{
		{"input_stream", c.Inputs},
		{"output_stream", c.Outputs},
		{"input_side_packet", c.InputSidePackets},
		{"output_side_packet", c.OutputSidePackets},
	}
	for _, k := range kinds {
		seen := make(map[string]bool)
		for i, p := range k.ports {
			field := fmt.Sprintf("%s[%d].tag", k.field, i)
			if seen[p.Tag] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("tag %q declared more than once", p.Tag),
					Code:    ErrDuplicateTag,
				})
			}
			seen[p.Tag] = true

			if p.Tag == "" || p.Tag == contract.AnyTag {
				continue
			}
			if _, err := ir.ParseTagIndex(p.Tag); err != nil || strings.Contains(p.Tag, ":") {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("tag %q must be \"*\" or match [A-Z_][A-Z0-9_]*", p.Tag),
					Code:    ErrInvalidTag,
				})
			}
		}
	}

	return errs
}
