package compiler

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
)

// CompileCUE compiles a CUE source holding top-level graph, template and
// contract structs, each keyed by name:
//
//	graph: PassThrough: {
//		input_stream: ["in"]
//		node: [{calculator: "PassThroughCalculator", input_stream: ["in"], output_stream: ["out"]}]
//	}
//	template: SwitchContainer: { ... }
//	contract: MyCalculator: { input_stream: [{tag: "IMAGE", type: "ImageFrame"}] }
func CompileCUE(ctx *cue.Context, src []byte, filename string) (*Bundle, error) {
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	b := &Bundle{}
	if err := eachField(v, "graph", func(name string, fv cue.Value) error {
		cfg, err := CompileGraph(fv)
		if err != nil {
			return err
		}
		b.Graphs = append(b.Graphs, NamedGraph{Name: name, Source: filename, Config: *cfg})
		return nil
	}); err != nil {
		return nil, err
	}
	if err := eachField(v, "template", func(_ string, fv cue.Value) error {
		cfg, err := CompileTemplate(fv)
		if err != nil {
			return err
		}
		b.Templates = append(b.Templates, *cfg)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := eachField(v, "contract", func(_ string, fv cue.Value) error {
		c, err := CompileContract(fv)
		if err != nil {
			return err
		}
		b.Contracts = append(b.Contracts, *c)
		return nil
	}); err != nil {
		return nil, err
	}
	return b, nil
}

func eachField(v cue.Value, field string, fn func(string, cue.Value) error) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// CompileGraph parses a CUE struct into a GraphConfig.
func CompileGraph(v cue.Value) (*ir.GraphConfig, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &ir.GraphConfig{}
	var err error
	if cfg.Package, err = optionalString(v, "package"); err != nil {
		return nil, err
	}
	if cfg.Type, err = optionalString(v, "type"); err != nil {
		return nil, err
	}
	if cfg.InputStreams, err = stringList(v, "input_stream"); err != nil {
		return nil, err
	}
	if cfg.OutputStreams, err = stringList(v, "output_stream"); err != nil {
		return nil, err
	}
	if cfg.InputSidePackets, err = stringList(v, "input_side_packet"); err != nil {
		return nil, err
	}
	if cfg.OutputSidePackets, err = stringList(v, "output_side_packet"); err != nil {
		return nil, err
	}
	if cfg.NumThreads, err = optionalInt(v, "num_threads"); err != nil {
		return nil, err
	}
	if cfg.MaxQueueSize, err = optionalInt(v, "max_queue_size"); err != nil {
		return nil, err
	}

	if err := eachElem(v, "executor", func(ev cue.Value) error {
		e, err := parseExecutor(ev)
		if err != nil {
			return err
		}
		cfg.Executors = append(cfg.Executors, e)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := eachElem(v, "node", func(nv cue.Value) error {
		n, err := parseNode(nv)
		if err != nil {
			return err
		}
		cfg.Nodes = append(cfg.Nodes, n)
		return nil
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CompileTemplate parses a graph that is registered as a subgraph type.
// When the struct has no type field the struct label is used.
func CompileTemplate(v cue.Value) (*ir.GraphConfig, error) {
	cfg, err := CompileGraph(v)
	if err != nil {
		return nil, err
	}
	if cfg.Type == "" {
		cfg.Type = label(v)
	}
	if cfg.Type == "" {
		return nil, cueError(v, "type", "template type is required")
	}
	return cfg, nil
}

// CompileContract parses a calculator contract. The name is taken from the
// struct label unless a name field is present.
func CompileContract(v cue.Value) (*contract.Contract, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name, err := optionalString(v, "name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = label(v)
	}
	c := &contract.Contract{Name: name}

	lists := []struct {
		field string
		dst   *[]contract.Port
	}{
		{"input_stream", &c.Inputs},
		{"output_stream", &c.Outputs},
		{"input_side_packet", &c.InputSidePackets},
		{"output_side_packet", &c.OutputSidePackets},
	}
	for _, l := range lists {
		if err := eachElem(v, l.field, func(pv cue.Value) error {
			p, err := parsePort(pv)
			if err != nil {
				return err
			}
			*l.dst = append(*l.dst, p)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, cueError(v, "contract", err.Error())
	}
	return c, nil
}

func parseNode(v cue.Value) (ir.Node, error) {
	var (
		n   ir.Node
		err error
	)
	calc := v.LookupPath(cue.ParsePath("calculator"))
	if !calc.Exists() {
		return n, cueError(v, "calculator", "calculator is required")
	}
	if n.Calculator, err = calc.String(); err != nil {
		return n, formatCUEError(err)
	}
	if n.Name, err = optionalString(v, "name"); err != nil {
		return n, err
	}
	if n.Executor, err = optionalString(v, "executor"); err != nil {
		return n, err
	}
	if n.InputStreams, err = stringList(v, "input_stream"); err != nil {
		return n, err
	}
	if n.OutputStreams, err = stringList(v, "output_stream"); err != nil {
		return n, err
	}
	if n.InputSidePackets, err = stringList(v, "input_side_packet"); err != nil {
		return n, err
	}
	if n.OutputSidePackets, err = stringList(v, "output_side_packet"); err != nil {
		return n, err
	}
	if n.Options, err = stringMap(v, "options"); err != nil {
		return n, err
	}

	err = eachElem(v, "input_stream_info", func(iv cue.Value) error {
		ti := iv.LookupPath(cue.ParsePath("tag_index"))
		if !ti.Exists() {
			return cueError(iv, "input_stream_info.tag_index", "tag_index is required")
		}
		s, err := ti.String()
		if err != nil {
			return formatCUEError(err)
		}
		back, err := optionalBool(iv, "back_edge")
		if err != nil {
			return err
		}
		n.InputStreamInfo = append(n.InputStreamInfo, ir.InputStreamInfo{TagIndex: s, BackEdge: back})
		return nil
	})
	return n, err
}

func parseExecutor(v cue.Value) (ir.Executor, error) {
	var (
		e   ir.Executor
		err error
	)
	if e.Name, err = optionalString(v, "name"); err != nil {
		return e, err
	}
	if e.Type, err = optionalString(v, "type"); err != nil {
		return e, err
	}
	e.Options, err = stringMap(v, "options")
	return e, err
}

func parsePort(v cue.Value) (contract.Port, error) {
	var (
		p   contract.Port
		err error
	)
	if p.Tag, err = optionalString(v, "tag"); err != nil {
		return p, err
	}
	if p.Type, err = optionalString(v, "type"); err != nil {
		return p, err
	}
	if p.Optional, err = optionalBool(v, "optional"); err != nil {
		return p, err
	}
	if p.Variadic, err = optionalBool(v, "variadic"); err != nil {
		return p, err
	}
	p.BackEdge, err = optionalBool(v, "back_edge")
	return p, err
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	var out []string
	err := eachElem(v, field, func(ev cue.Value) error {
		s, err := ev.String()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func stringMap(v cue.Value, field string) (map[string]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]string)
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out[iter.Label()] = s
	}
	return out, nil
}

func eachElem(v cue.Value, field string, fn func(cue.Value) error) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	iter, err := fv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func cueError(v cue.Value, field, msg string) error {
	return positioned(v.Pos(), field, msg)
}

func positioned(pos token.Pos, field, msg string) *CompileError {
	e := &CompileError{Field: field, Message: msg}
	if pos.IsValid() {
		e.File = pos.Filename()
		e.Line = pos.Line()
		e.Column = pos.Column()
	}
	return e
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return positioned(positions[0], "cue", first.Error())
	}
	return err
}
