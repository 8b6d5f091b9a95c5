package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the value kinds canonical JSON allows.
// There is no float and no null: configurations never need them and both
// break byte-stable encoding.
type Value interface {
	canonicalValue()
}

// String is a string value.
type String string

// Int is an integer value.
type Int int64

// Bool is a boolean value.
type Bool bool

// Array is an ordered list of values.
type Array []Value

// Object is a string-keyed map of values. Use SortedKeys for iteration.
type Object map[string]Value

func (String) canonicalValue() {}
func (Int) canonicalValue()    {}
func (Bool) canonicalValue()   {}
func (Array) canonicalValue()  {}
func (Object) canonicalValue() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go's native string order compares UTF-8 bytes, which differs for
// characters outside the Basic Multilingual Plane.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

func stringArray(items []string) Array {
	arr := make(Array, len(items))
	for i, s := range items {
		arr[i] = String(s)
	}
	return arr
}

func stringMap(m map[string]string) Object {
	obj := make(Object, len(m))
	for k, v := range m {
		obj[k] = String(v)
	}
	return obj
}
