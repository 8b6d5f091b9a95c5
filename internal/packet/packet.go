// Package packet defines the runtime side-packet values a caller hands to a
// validated graph before execution.
//
// Only the registered type name of a packet matters to validation; the
// payload is carried for the runtime and never inspected here.
package packet

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Registered type names for the builtin packet kinds.
const (
	TypeInt        = "int"
	TypeFloat      = "float"
	TypeBool       = "bool"
	TypeString     = "string"
	TypeStringList = "string_list"
)

// Packet is a runtime value with a registered type name.
type Packet interface {
	TypeName() string
}

// Int is an integer packet.
type Int int64

// Float is a floating-point packet.
type Float float64

// Bool is a boolean packet.
type Bool bool

// String is a string packet.
type String string

// StringList is a list-of-strings packet.
type StringList []string

// Opaque is a packet of an application-defined type.
type Opaque struct {
	Type  string
	Value any
}

func (Int) TypeName() string        { return TypeInt }
func (Float) TypeName() string      { return TypeFloat }
func (Bool) TypeName() string       { return TypeBool }
func (String) TypeName() string     { return TypeString }
func (StringList) TypeName() string { return TypeStringList }
func (o Opaque) TypeName() string   { return o.Type }

// SidePackets maps side-packet names to the values supplied for them.
type SidePackets map[string]Packet

// Names returns the supplied names in sorted order.
func (s SidePackets) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// String renders "name:type" pairs in name order, for logs. A nil entry
// renders as "name:<nil>".
func (s SidePackets) String() string {
	parts := make([]string, 0, len(s))
	for _, name := range s.Names() {
		typ := "<nil>"
		if p := s[name]; p != nil {
			typ = p.TypeName()
		}
		parts = append(parts, name+":"+typ)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// LogValue defers rendering until a handler actually emits the record.
func (s SidePackets) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// FromGo converts a decoded YAML or JSON value into a packet.
// Whole-number floats stay floats; YAML already decodes "3" as an int.
func FromGo(v any) (Packet, error) {
	switch val := v.(type) {
	case Packet:
		return val, nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case []string:
		return StringList(slices.Clone(val)), nil
	case []any:
		list := make(StringList, 0, len(val))
		for i, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("list element %d: only string lists are supported, got %T", i, elem)
			}
			list = append(list, s)
		}
		return list, nil
	case nil:
		return nil, fmt.Errorf("null side packet value")
	default:
		return nil, fmt.Errorf("unsupported side packet value of type %T", v)
	}
}

// FromGoMap converts every entry of m with FromGo.
func FromGoMap(m map[string]any) (SidePackets, error) {
	out := make(SidePackets, len(m))
	for name, v := range m {
		p, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("side packet %q: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}
