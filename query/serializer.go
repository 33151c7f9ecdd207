package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// valueFormatter turns filter values into their canonical string form.
// It handles pointers, slices, arrays, maps and structs recursively and falls
// back to JSON for anything else so that equal filter values always render
// the same text regardless of how they were built.
type valueFormatter struct{}

var formatter valueFormatter

// FormatValue renders v the way it appears in a query key and in the
// request query string.
func FormatValue(v any) string {
	return formatter.format(v)
}

// isEmpty reports whether v carries no filter information. Empty values are
// dropped from keys, the same way an unset search box never reaches the
// query string.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isEmpty(rv.Elem().Interface())
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

func (f valueFormatter) format(v any) string {
	if v == nil {
		return ""
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	if s, ok := v.(fmt.Stringer); ok && rt.Kind() != reflect.Ptr {
		return s.String()
	}

	switch rt.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
		return f.format(rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return f.format(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return f.formatList(rv)
	case reflect.Map:
		return f.formatMap(rv)
	case reflect.Struct:
		return f.jsonFallback(v)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// not meaningful as a filter, keep the type so the key stays stable
		return "unsupported:" + rt.String()
	}

	if f.isBasicType(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return f.jsonFallback(v)
}

// formatList joins elements with commas, preserving element order since
// multi-value filters such as brand lists are order sensitive on the server.
func (f valueFormatter) formatList(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts[i] = f.format(rv.Index(i).Interface())
	}
	return strings.Join(parts, ",")
}

// formatMap renders sorted key:value pairs for deterministic output.
func (f valueFormatter) formatMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, f.format(iter.Key().Interface())+":"+f.format(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (f valueFormatter) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (f valueFormatter) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return string(data)
}
