package graph

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/packet"
	"github.com/roach88/graphcfg/internal/status"
	"github.com/roach88/graphcfg/internal/subgraph"
)

// ValidatedConfig is a graph config that has been expanded, canonicalized
// and indexed.
//
// The zero value is an uninitialized instance that uses the process-wide
// template and contract registries. Before Initialize succeeds, after it
// fails, and after Dispose, every query returns its empty result: nil
// slices, -1 indices, false, or an InvalidArgument error for type lookups.
//
// Initialize must not be called concurrently with itself. Once it has
// succeeded, all queries may be called from any number of goroutines.
type ValidatedConfig struct {
	templates subgraph.Source
	contracts contract.Provider
	logger    *slog.Logger

	snap     atomic.Pointer[snapshot]
	disposed atomic.Bool
}

// snapshot is everything Initialize derives. It is never mutated after
// being published.
type snapshot struct {
	config       ir.GraphConfig
	hash         string
	nodes        []NodeInfo
	index        *edgeIndex
	streamTypes  edgeTypes
	packetTypes  edgeTypes
	requirements []SidePacketRequirement
}

// Option configures a ValidatedConfig.
type Option func(*ValidatedConfig)

// WithTemplates sets the subgraph template source.
func WithTemplates(src subgraph.Source) Option {
	return func(v *ValidatedConfig) {
		v.templates = src
	}
}

// WithContracts sets the calculator contract provider.
func WithContracts(p contract.Provider) Option {
	return func(v *ValidatedConfig) {
		v.contracts = p
	}
}

// WithLogger sets the logger used to report initialization outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(v *ValidatedConfig) {
		v.logger = logger
	}
}

// New creates an uninitialized ValidatedConfig.
func New(opts ...Option) *ValidatedConfig {
	v := &ValidatedConfig{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *ValidatedConfig) templateSource() subgraph.Source {
	if v.templates == nil {
		return subgraph.Default
	}
	return v.templates
}

func (v *ValidatedConfig) contractProvider() contract.Provider {
	if v.contracts == nil {
		return contract.Default
	}
	return v.contracts
}

func (v *ValidatedConfig) log() *slog.Logger {
	if v.logger == nil {
		return slog.Default()
	}
	return v.logger
}

// load returns the published snapshot, or nil when the instance is not
// usable.
func (v *ValidatedConfig) load() *snapshot {
	if v.disposed.Load() {
		return nil
	}
	return v.snap.Load()
}

// Initialize expands, canonicalizes and indexes cfg.
//
// Errors: NotFound when a node names neither a template nor a calculator;
// Internal for structural problems (template recursion, bad port bindings,
// duplicate producers, dangling streams, disallowed back edges, type
// conflicts, reserved executor names), and when the instance is already
// initialized or has been disposed. On error nothing is published.
func (v *ValidatedConfig) Initialize(cfg ir.GraphConfig) error {
	if v.disposed.Load() {
		return status.Internalf("validated config has been disposed")
	}
	if v.snap.Load() != nil {
		return status.Internalf("validated config is already initialized")
	}

	snap, err := build(cfg, v.templateSource(), v.contractProvider())
	if err != nil {
		v.log().Warn("graph config rejected",
			"type", cfg.Type,
			"code", string(status.CodeOf(err)),
			"error", err)
		return err
	}

	if !v.snap.CompareAndSwap(nil, snap) {
		return status.Internalf("validated config was initialized concurrently")
	}

	v.log().Debug("graph config validated",
		"type", cfg.Type,
		"hash", snap.hash,
		"nodes", len(snap.nodes),
		"output_streams", len(snap.index.outputStreams),
		"input_side_packets", len(snap.index.inputSidePackets))
	return nil
}

// InitializeType looks up a registered template by type name and
// initializes from it. An unknown name is a NotFound error.
func (v *ValidatedConfig) InitializeType(typeName string) error {
	cfg, err := v.templateSource().Lookup(typeName)
	if err != nil {
		v.log().Warn("graph type lookup failed", "type", typeName, "error", err)
		return err
	}
	return v.Initialize(cfg)
}

func build(cfg ir.GraphConfig, templates subgraph.Source, contracts contract.Provider) (*snapshot, error) {
	flat, err := subgraph.Expand(cfg, templates)
	if err != nil {
		return nil, err
	}
	canon, err := canonicalize(flat, contracts)
	if err != nil {
		return nil, err
	}
	idx, err := buildIndex(canon)
	if err != nil {
		return nil, err
	}
	streams, packets, err := resolveTypes(canon, idx)
	if err != nil {
		return nil, err
	}
	hash, err := ir.ConfigHash(canon.config)
	if err != nil {
		return nil, status.Internalf("%v", err)
	}
	return &snapshot{
		config:       canon.config,
		hash:         hash,
		nodes:        canon.nodes,
		index:        idx,
		streamTypes:  streams,
		packetTypes:  packets,
		requirements: deriveRequirements(canon, idx, packets),
	}, nil
}

// Initialized reports whether a snapshot is published.
func (v *ValidatedConfig) Initialized() bool {
	return v.load() != nil
}

// Dispose releases the snapshot. The instance behaves as uninitialized
// from then on and cannot be initialized again.
func (v *ValidatedConfig) Dispose() {
	v.disposed.Store(true)
	v.snap.Store(nil)
}

// Config returns a copy of the canonical (expanded) config, or the zero
// config when uninitialized.
func (v *ValidatedConfig) Config() ir.GraphConfig {
	s := v.load()
	if s == nil {
		return ir.GraphConfig{}
	}
	return s.config.Clone()
}

// Hash returns the content hash of the canonical config, or "".
func (v *ValidatedConfig) Hash() string {
	s := v.load()
	if s == nil {
		return ""
	}
	return s.hash
}

// Nodes returns the canonical node table.
func (v *ValidatedConfig) Nodes() []NodeInfo {
	s := v.load()
	if s == nil {
		return nil
	}
	return slices.Clone(s.nodes)
}

// InputStreamInfos returns one entry per calculator input stream binding.
func (v *ValidatedConfig) InputStreamInfos() []EdgeInfo {
	return v.edges(func(idx *edgeIndex) []EdgeInfo { return idx.inputStreams })
}

// OutputStreamInfos returns one entry per produced stream, in global index
// order.
func (v *ValidatedConfig) OutputStreamInfos() []EdgeInfo {
	return v.edges(func(idx *edgeIndex) []EdgeInfo { return idx.outputStreams })
}

// InputSidePacketInfos returns one entry per calculator input side packet
// binding.
func (v *ValidatedConfig) InputSidePacketInfos() []EdgeInfo {
	return v.edges(func(idx *edgeIndex) []EdgeInfo { return idx.inputSidePackets })
}

// OutputSidePacketInfos returns one entry per produced side packet.
func (v *ValidatedConfig) OutputSidePacketInfos() []EdgeInfo {
	return v.edges(func(idx *edgeIndex) []EdgeInfo { return idx.outputSidePackets })
}

func (v *ValidatedConfig) edges(table func(*edgeIndex) []EdgeInfo) []EdgeInfo {
	s := v.load()
	if s == nil {
		return nil
	}
	return slices.Clone(table(s.index))
}

// OutputStreamIndex returns the global index of the named output stream,
// or -1.
func (v *ValidatedConfig) OutputStreamIndex(name string) int {
	s := v.load()
	if s == nil {
		return -1
	}
	if i, ok := s.index.streamByName[name]; ok {
		return i
	}
	return -1
}

// OutputSidePacketIndex returns the global index of the named output side
// packet, or -1.
func (v *ValidatedConfig) OutputSidePacketIndex(name string) int {
	s := v.load()
	if s == nil {
		return -1
	}
	if i, ok := s.index.packetByName[name]; ok {
		return i
	}
	return -1
}

// OutputStreamToNode returns the node index of the named stream's
// producer, or -1.
func (v *ValidatedConfig) OutputStreamToNode(name string) int {
	s := v.load()
	if s == nil {
		return -1
	}
	if i, ok := s.index.streamByName[name]; ok {
		return s.index.outputStreams[i].ParentNode.Index
	}
	return -1
}

// RegisteredStreamTypeName resolves a stream's registered type.
// InvalidArgument: no such stream (always, when uninitialized).
// Unknown: the stream exists but no contract fixes its type.
func (v *ValidatedConfig) RegisteredStreamTypeName(name string) (string, error) {
	s := v.load()
	if s == nil {
		return "", status.InvalidArgumentf("stream %q: graph config is not initialized", name)
	}
	return s.streamTypes.lookup("stream", name)
}

// RegisteredSidePacketTypeName resolves a side packet's registered type,
// with the same outcomes as RegisteredStreamTypeName.
func (v *ValidatedConfig) RegisteredSidePacketTypeName(name string) (string, error) {
	s := v.load()
	if s == nil {
		return "", status.InvalidArgumentf("side packet %q: graph config is not initialized", name)
	}
	return s.packetTypes.lookup("side packet", name)
}

// Package returns the graph's namespace, and false when none is set.
func (v *ValidatedConfig) Package() (string, bool) {
	s := v.load()
	if s == nil || s.config.Package == "" {
		return "", false
	}
	return s.config.Package, true
}

// IsExternalSidePacket reports whether no node of the graph produces
// name. It is false when uninitialized.
func (v *ValidatedConfig) IsExternalSidePacket(name string) bool {
	s := v.load()
	if s == nil {
		return false
	}
	_, produced := s.index.packetByName[name]
	return !produced
}

// RequiredSidePackets returns the derived side packet requirements in
// input side packet table order.
func (v *ValidatedConfig) RequiredSidePackets() []SidePacketRequirement {
	s := v.load()
	if s == nil {
		return nil
	}
	return slices.Clone(s.requirements)
}

// ValidateRequiredSidePackets checks that every non-optional external side
// packet is supplied, and that supplied packets with a known expected type
// match it. Violations are InvalidArgument errors. An uninitialized
// instance accepts anything.
func (v *ValidatedConfig) ValidateRequiredSidePackets(packets packet.SidePackets) error {
	s := v.load()
	if s == nil {
		return nil
	}
	if err := validateSidePackets(s.requirements, packets); err != nil {
		v.log().Debug("side packets rejected", "hash", s.hash, "supplied", packets, "error", err)
		return err
	}
	return nil
}
