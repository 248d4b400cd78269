package configdb

import (
	"fmt"
	"reflect"
	"sort"
)

// Document maps profile names to their data. It is the in-memory form of a
// configuration file.
type Document map[string]Profile

// Profile maps keys to values for one named configuration variant. A nil
// value is the unset placeholder written into generated templates.
type Profile map[string]any

// Names returns the profile names of d, sorted.
func (d Document) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template builds the bootstrap document: a single "default" profile with
// every required key unset.
func Template(required []string) Document {
	p := make(Profile, len(required))
	for _, k := range required {
		p[k] = nil
	}
	return Document{DefaultProfile: p}
}

// IsUnset reports whether v is the unset placeholder.
func IsUnset(v any) bool {
	return v == nil
}

// Lookup returns the string form of the value stored under key. The second
// result is false when the key is absent or unset.
func (p Profile) Lookup(key string) (string, bool) {
	v, ok := p[key]
	if !ok || IsUnset(v) {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// String returns the string form of key, or "" when absent or unset.
func (p Profile) String(key string) string {
	s, _ := p.Lookup(key)
	return s
}

// Missing returns the keys of required that are absent from p or unset, in
// the order given and without duplicates.
func (p Profile) Missing(required []string) []string {
	var missing []string
	seen := make(map[string]struct{}, len(required))
	for _, k := range required {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if v, ok := p[k]; !ok || IsUnset(v) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Equal reports whether p and o hold the same keys and values. Nested
// mappings are compared by content.
func (p Profile) Equal(o Profile) bool {
	if len(p) != len(o) {
		return false
	}
	if len(p) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]any(p), map[string]any(o))
}
