package sanitize

import (
	"strings"

	"github.com/agentx-labs/confshare/internal/jsontree"
)

// Placeholder returns the token substituted for a sensitive field.
func Placeholder(name string) string {
	return "${" + name + "}"
}

// placeholderName extracts NAME from a string of the exact form ${NAME}.
func placeholderName(s string) (string, bool) {
	if !IsPlaceholder(s) {
		return "", false
	}
	return s[2 : len(s)-1], true
}

// IsPlaceholder reports whether s has the form ${...}.
func IsPlaceholder(s string) bool {
	return len(s) >= 3 && strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}

// Sanitize returns a copy of the tree in which every sensitive string value
// is replaced by its placeholder. The input is not modified.
func Sanitize(v *jsontree.Value) *jsontree.Value {
	out := v.Clone()
	redact(out)
	return out
}

func redact(v *jsontree.Value) {
	switch v.Kind() {
	case jsontree.Object:
		for _, m := range v.Members() {
			if _, ok := m.Value.Str(); ok && IsSensitiveKey(m.Key) {
				v.Set(m.Key, jsontree.NewString(Placeholder(m.Key)))
				continue
			}
			redact(m.Value)
		}
	case jsontree.Array:
		for _, item := range v.Items() {
			redact(item)
		}
	}
}

// Restore returns a copy of the tree in which every string leaf of the form
// ${NAME} is replaced by values[NAME]. Unbound placeholders are left as they
// are, so Restore never fails.
func Restore(v *jsontree.Value, values map[string]string) *jsontree.Value {
	out := v.Clone()
	restore(out, values)
	return out
}

func restore(v *jsontree.Value, values map[string]string) {
	switch v.Kind() {
	case jsontree.Object:
		for _, m := range v.Members() {
			if replaced, ok := substitute(m.Value, values); ok {
				v.Set(m.Key, replaced)
				continue
			}
			restore(m.Value, values)
		}
	case jsontree.Array:
		items := v.Items()
		for i, item := range items {
			if replaced, ok := substitute(item, values); ok {
				items[i] = replaced
				continue
			}
			restore(item, values)
		}
	}
}

func substitute(v *jsontree.Value, values map[string]string) (*jsontree.Value, bool) {
	s, ok := v.Str()
	if !ok {
		return nil, false
	}
	name, ok := placeholderName(s)
	if !ok {
		return nil, false
	}
	val, ok := values[name]
	if !ok {
		return nil, false
	}
	return jsontree.NewString(val), true
}

// CountPlaceholders counts string leaves of the form ${...}.
func CountPlaceholders(v *jsontree.Value) int {
	switch v.Kind() {
	case jsontree.String:
		s, _ := v.Str()
		if IsPlaceholder(s) {
			return 1
		}
	case jsontree.Object:
		n := 0
		for _, m := range v.Members() {
			n += CountPlaceholders(m.Value)
		}
		return n
	case jsontree.Array:
		n := 0
		for _, item := range v.Items() {
			n += CountPlaceholders(item)
		}
		return n
	}
	return 0
}

// Placeholders returns the distinct placeholder names used in the tree, in
// the order they first appear.
func Placeholders(v *jsontree.Value) []string {
	var names []string
	seen := map[string]bool{}
	var walk func(*jsontree.Value)
	walk = func(v *jsontree.Value) {
		switch v.Kind() {
		case jsontree.String:
			s, _ := v.Str()
			if name, ok := placeholderName(s); ok && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		case jsontree.Object:
			for _, m := range v.Members() {
				walk(m.Value)
			}
		case jsontree.Array:
			for _, item := range v.Items() {
				walk(item)
			}
		}
	}
	walk(v)
	return names
}
