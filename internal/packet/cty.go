package packet

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// FromCty converts an evaluated HCL attribute value into a packet.
// Whole numbers become Int, other numbers Float.
func FromCty(v cty.Value) (Packet, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("side packet value must be known and non-null")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return String(v.AsString()), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			var n int64
			if err := gocty.FromCtyValue(v, &n); err != nil {
				return nil, fmt.Errorf("integer out of range: %w", err)
			}
			return Int(n), nil
		}
		f, _ := bf.Float64()
		return Float(f), nil

	case ty == cty.Bool:
		return Bool(v.True()), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list := make(StringList, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.Type() != cty.String || elem.IsNull() {
				return nil, fmt.Errorf("only string lists are supported, got element of type %s", elem.Type().FriendlyName())
			}
			list = append(list, elem.AsString())
		}
		return list, nil

	default:
		return nil, fmt.Errorf("unsupported side packet type %s", ty.FriendlyName())
	}
}
