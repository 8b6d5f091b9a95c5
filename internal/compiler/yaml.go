package compiler

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphcfg/internal/contract"
	"github.com/roach88/graphcfg/internal/ir"
	"github.com/roach88/graphcfg/internal/packet"
)

var (
	graphKeys = keySet("package", "type", "node", "input_stream", "output_stream",
		"input_side_packet", "output_side_packet", "executor", "num_threads", "max_queue_size")
	nodeKeys = keySet("name", "calculator", "input_stream", "output_stream",
		"input_side_packet", "output_side_packet", "input_stream_info", "executor", "options")
	contractKeys = keySet("name", "input_stream", "output_stream", "input_side_packet", "output_side_packet")
)

// CompileYAML compiles a YAML document with the same layout as the CUE
// form: top-level graph, template and contract mappings keyed by name.
// Unknown keys are rejected with their line and column.
func CompileYAML(src []byte, filename string) (*Bundle, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, &CompileError{File: filename, Field: "yaml", Message: err.Error()}
	}
	b := &Bundle{}
	if len(doc.Content) == 0 {
		return b, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, yamlError(filename, root, "yaml", "top level must be a mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, section := root.Content[i], root.Content[i+1]
		if section.Kind != yaml.MappingNode {
			return nil, yamlError(filename, section, key.Value, "must be a mapping keyed by name")
		}
		for j := 0; j+1 < len(section.Content); j += 2 {
			name, body := section.Content[j].Value, section.Content[j+1]
			field := key.Value + "." + name
			switch key.Value {
			case "graph":
				cfg, err := decodeGraph(filename, field, body)
				if err != nil {
					return nil, err
				}
				if _, dup := b.Graph(name); dup {
					return nil, yamlError(filename, section.Content[j], field, "declared twice")
				}
				b.Graphs = append(b.Graphs, NamedGraph{Name: name, Source: filename, Config: cfg})
			case "template":
				cfg, err := decodeGraph(filename, field, body)
				if err != nil {
					return nil, err
				}
				if cfg.Type == "" {
					cfg.Type = name
				}
				b.Templates = append(b.Templates, cfg)
			case "contract":
				c, err := decodeContract(filename, field, body)
				if err != nil {
					return nil, err
				}
				if c.Name == "" {
					c.Name = name
				}
				if err := c.Validate(); err != nil {
					return nil, yamlError(filename, body, field, err.Error())
				}
				b.Contracts = append(b.Contracts, c)
			default:
				return nil, yamlError(filename, key, key.Value, "unknown section, expected graph, template or contract")
			}
		}
	}
	return b, nil
}

func decodeGraph(filename, field string, body *yaml.Node) (ir.GraphConfig, error) {
	var cfg ir.GraphConfig
	if err := checkKeys(filename, field, body, graphKeys); err != nil {
		return cfg, err
	}
	if nodes := mappingValue(body, "node"); nodes != nil && nodes.Kind == yaml.SequenceNode {
		for i, n := range nodes.Content {
			if err := checkKeys(filename, fmt.Sprintf("%s.node[%d]", field, i), n, nodeKeys); err != nil {
				return cfg, err
			}
		}
	}
	if err := body.Decode(&cfg); err != nil {
		return cfg, yamlError(filename, body, field, err.Error())
	}
	return cfg, nil
}

func decodeContract(filename, field string, body *yaml.Node) (contract.Contract, error) {
	var c contract.Contract
	if err := checkKeys(filename, field, body, contractKeys); err != nil {
		return c, err
	}
	if err := body.Decode(&c); err != nil {
		return c, yamlError(filename, body, field, err.Error())
	}
	return c, nil
}

func checkKeys(filename, field string, n *yaml.Node, allowed map[string]bool) error {
	if n.Kind != yaml.MappingNode {
		return yamlError(filename, n, field, "must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; !allowed[k.Value] {
			return yamlError(filename, k, field, fmt.Sprintf("unknown field %q", k.Value))
		}
	}
	return nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func yamlError(filename string, n *yaml.Node, field, msg string) *CompileError {
	return &CompileError{File: filename, Line: n.Line, Column: n.Column, Field: field, Message: msg}
}

// ParseYAMLSidePackets reads a flat mapping of side packet names to
// values. Integers, floats, booleans, strings and string lists are
// supported.
func ParseYAMLSidePackets(src []byte) (packet.SidePackets, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("parse side packets: %w", err)
	}
	return packet.FromGoMap(raw)
}
