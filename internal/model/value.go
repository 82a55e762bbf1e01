package model

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// ctyToNative converts an HCL attribute value into the Go shapes the rule
// model uses: string, int, float64, bool, []any, map[string]any.
func ctyToNative(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	typ := val.Type()
	switch {
	case typ == cty.String:
		return val.AsString(), nil
	case typ == cty.Number:
		bf := val.AsBigFloat()
		if n, acc := bf.Int64(); acc == big.Exact {
			return int(n), nil
		}
		f, _ := bf.Float64()
		return f, nil
	case typ == cty.Bool:
		return val.True(), nil
	case typ.IsTupleType() || typ.IsListType() || typ.IsSetType():
		var list []any
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, native)
		}
		return list, nil
	case typ.IsObjectType() || typ.IsMapType():
		m := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			m[key.AsString()] = native
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", typ.FriendlyName())
}

// translateArgs shapes an HCL attribute value into an argument tuple.
// Strings and numbers become a single positional entry; list elements are
// appended in order, except object elements whose keys become named values.
// A bare object contributes named values only.
func translateArgs(val cty.Value) (*ArgsTuple, error) {
	if val.IsNull() {
		return nil, nil
	}
	tuple := &ArgsTuple{}
	typ := val.Type()
	switch {
	case typ.IsTupleType() || typ.IsListType():
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.Type().IsObjectType() || elem.Type().IsMapType() {
				if err := appendNamed(tuple, elem); err != nil {
					return nil, err
				}
				continue
			}
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			tuple.Pos = append(tuple.Pos, native)
		}
	case typ.IsObjectType() || typ.IsMapType():
		if err := appendNamed(tuple, val); err != nil {
			return nil, err
		}
	default:
		native, err := ctyToNative(val)
		if err != nil {
			return nil, err
		}
		tuple.Pos = append(tuple.Pos, native)
	}
	return tuple, nil
}

func appendNamed(tuple *ArgsTuple, val cty.Value) error {
	for it := val.ElementIterator(); it.Next(); {
		key, elem := it.Element()
		native, err := ctyToNative(elem)
		if err != nil {
			return err
		}
		tuple.Named = append(tuple.Named, NamedArg{Name: key.AsString(), Value: native})
	}
	return nil
}
