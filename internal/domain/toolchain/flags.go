package toolchain

import (
	"sort"
	"strings"
)

// Flags maps toolchain variables (CC, CFLAGS, LDFLAGS, PKG_CONFIG_PATH, ...)
// to their values. A Flags value is never shared: every method that
// changes it works on a copy.
type Flags map[string]string

// Clone returns an independent copy.
func (f Flags) Clone() Flags {
	out := make(Flags, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// With returns a copy with key set to value.
func (f Flags) With(key, value string) Flags {
	out := f.Clone()
	out[key] = value
	return out
}

// Append returns a copy with value appended to key, joined by sep.
// An empty or missing key is simply set.
func (f Flags) Append(key, value, sep string) Flags {
	out := f.Clone()
	if cur := out[key]; cur != "" {
		out[key] = cur + sep + value
	} else {
		out[key] = value
	}
	return out
}

// Merge returns a copy with every entry of other applied on top.
func (f Flags) Merge(other Flags) Flags {
	out := f.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the variable names in sorted order.
func (f Flags) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Assignments renders KEY=value pairs in sorted key order, the form
// configure scripts and make accept on their command line.
func (f Flags) Assignments() []string {
	out := make([]string, 0, len(f))
	for _, k := range f.Keys() {
		out = append(out, k+"="+f[k])
	}
	return out
}

// Only returns a copy restricted to the given keys.
func (f Flags) Only(keys ...string) Flags {
	out := make(Flags, len(keys))
	for _, k := range keys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out
}

// String renders the flags on one line, for logs.
func (f Flags) String() string {
	return strings.Join(f.Assignments(), " ")
}
