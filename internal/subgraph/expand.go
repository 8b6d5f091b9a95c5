package subgraph

import (
	"strconv"
	"strings"

	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/status"
)

// Expand returns a copy of cfg in which every template reference has been
// replaced by the template's nodes, recursively. Nodes that do not name a
// template are kept as-is, in order. Each replaced calling node is recorded
// in Subgraphs with the prefix its instance received, so expansion only
// ever adds to the config.
//
// A template that includes itself, directly or through other templates,
// is an Internal error. Lookup failures other than NotFound propagate.
func Expand(cfg ir.GraphConfig, src Source) (ir.GraphConfig, error) {
	out := cfg.Clone()
	e := &expander{src: src}
	if cfg.Type != "" {
		e.path = append(e.path, cfg.Type)
	}
	nodes, instances, err := e.expandNodes(out)
	if err != nil {
		return ir.GraphConfig{}, err
	}
	out.Nodes = nodes
	out.Subgraphs = append(out.Subgraphs, instances...)
	return out, nil
}

type expander struct {
	src  Source
	path []string
}

func (e *expander) active(name string) bool {
	for _, p := range e.path {
		if p == name {
			return true
		}
	}
	return false
}

// expandNodes expands the node list of scope. Instance ids are chosen so
// that no prefixed name can collide with a name scope already declares.
func (e *expander) expandNodes(scope ir.GraphConfig) ([]ir.Node, []ir.SubgraphInstance, error) {
	out := make([]ir.Node, 0, len(scope.Nodes))
	var instances []ir.SubgraphInstance
	ids := newIDAllocator(scope)

	for i, node := range scope.Nodes {
		tmpl, err := e.src.Lookup(node.Calculator)
		if status.IsNotFound(err) {
			out = append(out, node)
			continue
		}
		if err != nil {
			return nil, nil, status.Wrapf(err, "node %d: looking up %q", i, node.Calculator)
		}

		if e.active(node.Calculator) {
			cycle := append(append([]string{}, e.path...), node.Calculator)
			return nil, nil, status.Internalf("subgraph %q includes itself: %s", node.Calculator, strings.Join(cycle, " → "))
		}

		e.path = append(e.path, node.Calculator)
		body, nested, err := e.expandNodes(tmpl)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return nil, nil, err
		}

		id := ids.next(node)
		inlined, err := instantiate(tmpl, body, node, id)
		if err != nil {
			return nil, nil, status.Wrapf(err, "node %d: expanding %q", i, node.Calculator)
		}
		out = append(out, inlined...)

		instances = append(instances, ir.SubgraphInstance{Prefix: id, Node: node.Clone()})
		for _, sg := range nested {
			sg.Prefix = id + "__" + sg.Prefix
			instances = append(instances, sg)
		}
	}
	return out, instances, nil
}

// idAllocator hands out per-instance prefixes within one node list.
type idAllocator struct {
	// claimed holds the base id of every node in the list, so a node
	// literally named "det_1" keeps that id even when an earlier "det"
	// needs a suffix.
	claimed map[string]bool
	issued  map[string]bool
	names   []string
}

func newIDAllocator(scope ir.GraphConfig) *idAllocator {
	a := &idAllocator{
		claimed: make(map[string]bool),
		issued:  make(map[string]bool),
		names:   declaredNames(scope),
	}
	for _, n := range scope.Nodes {
		a.claimed[baseID(n)] = true
	}
	return a
}

// next derives the prefix from the calling node's name, or from the
// template type, and suffixes it until it is unused.
func (a *idAllocator) next(caller ir.Node) string {
	base := baseID(caller)
	if !a.issued[base] && !a.shadows(base) {
		a.issued[base] = true
		return base
	}
	for n := 1; ; n++ {
		id := base + "_" + strconv.Itoa(n)
		if a.issued[id] || a.claimed[id] || a.shadows(id) {
			continue
		}
		a.issued[id] = true
		return id
	}
}

// shadows reports whether a name prefixed with id already exists.
func (a *idAllocator) shadows(id string) bool {
	prefix := id + "__"
	for _, name := range a.names {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func baseID(caller ir.Node) string {
	base := caller.Name
	if base == "" {
		base = caller.Calculator
	}
	return sanitize(base)
}

// declaredNames lists the node, stream and side packet names written in
// scope. Malformed edges are skipped here and reported by instantiate.
func declaredNames(scope ir.GraphConfig) []string {
	var names []string
	addEdges := func(items []string) {
		for _, item := range items {
			if ref, _, err := ir.ParseEdgeRef(item); err == nil {
				names = append(names, ref.Name)
			}
		}
	}
	addEdges(scope.InputStreams)
	addEdges(scope.OutputStreams)
	addEdges(scope.InputSidePackets)
	addEdges(scope.OutputSidePackets)
	for _, n := range scope.Nodes {
		if n.Name != "" {
			names = append(names, n.Name)
		}
		addEdges(n.InputStreams)
		addEdges(n.OutputStreams)
		addEdges(n.InputSidePackets)
		addEdges(n.OutputSidePackets)
	}
	return names
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 || (s[0] >= '0' && s[0] <= '9') {
		return "_" + b.String()
	}
	return b.String()
}

// boundary maps template-side names to caller-side names for one
// namespace (streams or side packets).
type boundary map[string]string

// bind matches the template's declared port list against the caller's
// bindings by (tag, index). A caller binding with no template port fails.
func (b boundary) bind(kind string, declared, bound []string) error {
	tmplRefs, err := ir.ParseEdgeList(declared)
	if err != nil {
		return status.Internalf("template %s: %v", kind, err)
	}
	callerRefs, err := ir.ParseEdgeList(bound)
	if err != nil {
		return status.Internalf("caller %s: %v", kind, err)
	}

	byPort := make(map[ir.TagIndex]string, len(tmplRefs))
	for _, ref := range tmplRefs {
		byPort[ref.TagIndex()] = ref.Name
	}
	for _, ref := range callerRefs {
		inner, ok := byPort[ref.TagIndex()]
		if !ok {
			return status.Internalf("template declares no %s port %s", kind, ref.TagIndex())
		}
		b[inner] = ref.Name
	}
	return nil
}

func (b boundary) rename(prefix, name string) string {
	if outer, ok := b[name]; ok {
		return outer
	}
	return prefix + name
}

// instantiate rewrites an already-expanded template body for one instance.
func instantiate(tmpl ir.GraphConfig, body []ir.Node, caller ir.Node, id string) ([]ir.Node, error) {
	prefix := id + "__"
	streams := boundary{}
	packets := boundary{}

	if err := streams.bind("input_stream", tmpl.InputStreams, caller.InputStreams); err != nil {
		return nil, err
	}
	if err := streams.bind("output_stream", tmpl.OutputStreams, caller.OutputStreams); err != nil {
		return nil, err
	}
	if err := packets.bind("input_side_packet", tmpl.InputSidePackets, caller.InputSidePackets); err != nil {
		return nil, err
	}
	if err := packets.bind("output_side_packet", tmpl.OutputSidePackets, caller.OutputSidePackets); err != nil {
		return nil, err
	}

	backEdges, err := callerBackEdges(tmpl, caller)
	if err != nil {
		return nil, err
	}

	out := make([]ir.Node, len(body))
	for i, n := range body {
		inner := n.Clone()
		if inner.Name != "" {
			inner.Name = prefix + inner.Name
		}
		if err := markBackEdges(&inner, backEdges); err != nil {
			return nil, err
		}
		for _, list := range []*[]string{&inner.InputStreams, &inner.OutputStreams} {
			if err := renameAll(*list, func(name string) string { return streams.rename(prefix, name) }); err != nil {
				return nil, err
			}
		}
		for _, list := range []*[]string{&inner.InputSidePackets, &inner.OutputSidePackets} {
			if err := renameAll(*list, func(name string) string { return packets.rename(prefix, name) }); err != nil {
				return nil, err
			}
		}
		out[i] = inner
	}
	return out, nil
}

// callerBackEdges returns the template-side stream names the caller marked
// as back edges.
func callerBackEdges(tmpl ir.GraphConfig, caller ir.Node) (map[string]bool, error) {
	if len(caller.InputStreamInfo) == 0 {
		return nil, nil
	}
	refs, err := ir.ParseEdgeList(tmpl.InputStreams)
	if err != nil {
		return nil, status.Internalf("template input_stream: %v", err)
	}
	names := make(map[string]bool)
	for _, info := range caller.InputStreamInfo {
		if !info.BackEdge {
			continue
		}
		ti, err := ir.ParseTagIndex(info.TagIndex)
		if err != nil {
			return nil, status.Internalf("input_stream_info: %v", err)
		}
		for _, ref := range refs {
			if ref.TagIndex() == ti {
				names[ref.Name] = true
			}
		}
	}
	return names, nil
}

// markBackEdges carries a caller's back-edge annotation onto every inner
// input port that consumes the annotated stream.
func markBackEdges(n *ir.Node, names map[string]bool) error {
	if len(names) == 0 {
		return nil
	}
	refs, err := ir.ParseEdgeList(n.InputStreams)
	if err != nil {
		return status.Internalf("node input_stream: %v", err)
	}
	for _, ref := range refs {
		if names[ref.Name] {
			n.InputStreamInfo = append(n.InputStreamInfo, ir.InputStreamInfo{
				TagIndex: ref.TagIndex().String(),
				BackEdge: true,
			})
		}
	}
	return nil
}

// renameAll rewrites the name part of each edge string in place, keeping
// the tag and index text as written.
func renameAll(items []string, fn func(string) string) error {
	for i, item := range items {
		ref, explicit, err := ir.ParseEdgeRef(item)
		if err != nil {
			return status.Internalf("%v", err)
		}
		name := fn(ref.Name)
		switch {
		case ref.Tag == "":
			items[i] = name
		case explicit:
			items[i] = ref.Tag + ":" + strconv.Itoa(ref.Index) + ":" + name
		default:
			items[i] = ref.Tag + ":" + name
		}
	}
	return nil
}
