package hooks

import (
	"github.com/agentx-labs/confshare/internal/jsontree"
)

const (
	TypeToolUse          = "tool_use"
	TypeUserPromptSubmit = "user_prompt_submit"
)

// wrapperKey is the member some hook files nest their event map under.
const wrapperKey = "hooks"

// Merge folds incoming hook definitions into existing ones and returns the
// result. Neither argument is modified.
//
// Events missing from existing are copied verbatim. For shared events each
// incoming definition is appended unless a definition with the same identity
// is already present, in which case the existing one wins. Existing
// definitions are never removed, reordered or rewritten, so merging the same
// input twice yields the same document.
func Merge(existing, incoming *jsontree.Value) *jsontree.Value {
	if existing == nil || existing.Kind() != jsontree.Object {
		existing = jsontree.NewObject()
	}
	merged := existing.Clone()
	if incoming == nil || incoming.Kind() != jsontree.Object {
		return merged
	}

	dst, src := merged, incoming
	if inner, ok := wrapped(merged); ok {
		if in, ok := wrapped(incoming); ok {
			dst, src = inner, in
		}
	}

	for _, ev := range src.Members() {
		current, ok := dst.Get(ev.Key)
		if !ok {
			dst.Set(ev.Key, ev.Value.Clone())
			continue
		}
		if current.Kind() != jsontree.Array {
			continue
		}
		for _, def := range ev.Value.Items() {
			if !containsHook(current, def) {
				current.Append(def.Clone())
			}
		}
	}
	return merged
}

// Subtract returns existing without the definitions incoming contributes
// and reports how many were taken out. Only structurally identical
// definitions are removed, so a user definition kept in place of a bundle
// one by Merge survives. Events left empty by the removal are dropped.
// Neither argument is modified.
func Subtract(existing, incoming *jsontree.Value) (*jsontree.Value, int) {
	if existing == nil || existing.Kind() != jsontree.Object {
		return jsontree.NewObject(), 0
	}
	out := existing.Clone()
	if incoming == nil || incoming.Kind() != jsontree.Object {
		return out, 0
	}

	dst, src := out, incoming
	if inner, ok := wrapped(out); ok {
		if in, ok := wrapped(incoming); ok {
			dst, src = inner, in
		}
	}

	removed := 0
	for _, ev := range src.Members() {
		current, ok := dst.Get(ev.Key)
		if !ok || current.Kind() != jsontree.Array {
			continue
		}
		kept := jsontree.NewArray()
		for _, def := range current.Items() {
			if containsExact(ev.Value, def) {
				removed++
				continue
			}
			kept.Append(def)
		}
		if kept.Len() == current.Len() {
			continue
		}
		if kept.Len() == 0 {
			dst.Delete(ev.Key)
		} else {
			dst.Set(ev.Key, kept)
		}
	}
	return out, removed
}

// Empty reports whether a hooks document defines no events.
func Empty(doc *jsontree.Value) bool {
	if doc == nil || doc.Len() == 0 {
		return true
	}
	if inner, ok := wrapped(doc); ok {
		return inner.Len() == 0
	}
	return false
}

func containsExact(list, def *jsontree.Value) bool {
	for _, item := range list.Items() {
		if item.Equal(def) {
			return true
		}
	}
	return false
}

func wrapped(doc *jsontree.Value) (*jsontree.Value, bool) {
	if doc.Len() != 1 {
		return nil, false
	}
	inner, ok := doc.Get(wrapperKey)
	if !ok || inner.Kind() != jsontree.Object {
		return nil, false
	}
	return inner, true
}

func containsHook(list, def *jsontree.Value) bool {
	for _, existing := range list.Items() {
		if Equal(existing, def) {
			return true
		}
	}
	return false
}

// Equal reports whether two hook definitions have the same identity.
//
// tool_use hooks are identified by tool_name and when, user_prompt_submit
// hooks by pattern; the action payload is ignored for both. Any other type
// (or a definition without a type) only matches a structurally identical
// definition; sharing a type alone is not enough, so two different
// unknown-type hooks are both kept.
func Equal(a, b *jsontree.Value) bool {
	if a.Kind() != jsontree.Object || b.Kind() != jsontree.Object {
		return a.Equal(b)
	}
	typeA, _ := a.Get("type")
	typeB, _ := b.Get("type")
	if !typeA.Equal(typeB) {
		return false
	}

	kind, _ := typeA.Str()
	switch kind {
	case TypeToolUse:
		return sameField(a, b, "tool_name") && sameField(a, b, "when")
	case TypeUserPromptSubmit:
		return sameField(a, b, "pattern")
	}
	return a.Equal(b)
}

// sameField compares one member, treating absent as null.
func sameField(a, b *jsontree.Value, key string) bool {
	va, _ := a.Get(key)
	vb, _ := b.Get(key)
	return va.Equal(vb)
}
