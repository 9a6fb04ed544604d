// Package jsonval decodes JSON documents into plain Go values
// (map[string]any, []any, string, int64, float64, bool, nil) using a pooled
// fastjson parser. Integral numbers decode as int64 so that wire literals
// such as 50 survive a decode/encode cycle unchanged.
package jsonval

import (
	"fmt"

	"github.com/valyala/fastjson"
)

var parsers fastjson.ParserPool

// Decode parses data and converts it into plain Go values.
func Decode(data []byte) (any, error) {
	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("jsonval: %w", err)
	}
	return convert(v)
}

// DecodeObject parses data and requires the top-level value to be an object.
func DecodeObject(data []byte) (map[string]any, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("jsonval: expected object, got %T", v)
	}
	return m, nil
}

// convert copies out of the parser's buffers; values must not alias them
// once the parser goes back to the pool.
func convert(v *fastjson.Value) (any, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return nil, nil
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	case fastjson.TypeString:
		return string(v.GetStringBytes()), nil
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = convert(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case fastjson.TypeObject:
		obj, err := v.Object()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, obj.Len())
		var firstErr error
		obj.Visit(func(key []byte, val *fastjson.Value) {
			if firstErr != nil {
				return
			}
			converted, err := convert(val)
			if err != nil {
				firstErr = err
				return
			}
			out[string(key)] = converted
		})
		return out, firstErr
	default:
		return nil, fmt.Errorf("jsonval: unsupported JSON type %s", v.Type())
	}
}
