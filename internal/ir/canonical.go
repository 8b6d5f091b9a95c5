package ir

import (
	"bytes"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// This is the ONLY serialization used for config hashing and Size.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping, and U+2028/U+2029 are emitted literally
//  3. Strings are NFC normalized
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case String:
		writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only the quote, the backslash and control
// characters below U+0020, as RFC 8785 requires.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[r>>4])
				buf.WriteByte(hex[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// Object converts the config into a canonical value tree. Empty fields are
// omitted, mirroring the omitempty JSON tags.
func (c GraphConfig) Object() Object {
	obj := Object{}
	putString(obj, "package", c.Package)
	putString(obj, "type", c.Type)
	putStrings(obj, "input_stream", c.InputStreams)
	putStrings(obj, "output_stream", c.OutputStreams)
	putStrings(obj, "input_side_packet", c.InputSidePackets)
	putStrings(obj, "output_side_packet", c.OutputSidePackets)
	putInt(obj, "num_threads", c.NumThreads)
	putInt(obj, "max_queue_size", c.MaxQueueSize)
	if len(c.Nodes) > 0 {
		nodes := make(Array, len(c.Nodes))
		for i, n := range c.Nodes {
			nodes[i] = n.Object()
		}
		obj["node"] = nodes
	}
	if len(c.Executors) > 0 {
		execs := make(Array, len(c.Executors))
		for i, e := range c.Executors {
			eobj := Object{}
			putString(eobj, "name", e.Name)
			putString(eobj, "type", e.Type)
			if len(e.Options) > 0 {
				eobj["options"] = stringMap(e.Options)
			}
			execs[i] = eobj
		}
		obj["executor"] = execs
	}
	if len(c.Subgraphs) > 0 {
		instances := make(Array, len(c.Subgraphs))
		for i, sg := range c.Subgraphs {
			instances[i] = Object{"prefix": String(sg.Prefix), "node": sg.Node.Object()}
		}
		obj["subgraph_instance"] = instances
	}
	return obj
}

// Object converts the node into a canonical value tree.
func (n Node) Object() Object {
	obj := Object{"calculator": String(n.Calculator)}
	putString(obj, "name", n.Name)
	putString(obj, "executor", n.Executor)
	putStrings(obj, "input_stream", n.InputStreams)
	putStrings(obj, "output_stream", n.OutputStreams)
	putStrings(obj, "input_side_packet", n.InputSidePackets)
	putStrings(obj, "output_side_packet", n.OutputSidePackets)
	if len(n.InputStreamInfo) > 0 {
		infos := make(Array, len(n.InputStreamInfo))
		for i, info := range n.InputStreamInfo {
			iobj := Object{"tag_index": String(info.TagIndex)}
			if info.BackEdge {
				iobj["back_edge"] = Bool(true)
			}
			infos[i] = iobj
		}
		obj["input_stream_info"] = infos
	}
	if len(n.Options) > 0 {
		obj["options"] = stringMap(n.Options)
	}
	return obj
}

func putString(obj Object, key, v string) {
	if v != "" {
		obj[key] = String(v)
	}
}

func putStrings(obj Object, key string, v []string) {
	if len(v) > 0 {
		obj[key] = stringArray(v)
	}
}

func putInt(obj Object, key string, v int) {
	if v != 0 {
		obj[key] = Int(v)
	}
}
