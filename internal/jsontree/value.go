package jsontree

import (
	"encoding/json"
	"strconv"
)

// Kind identifies which JSON variant a Value holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

// Member is one key/value pair of an object, kept in document order.
type Member struct {
	Key   string
	Value *Value
}

// Value is a node of a JSON document. Objects remember the order their
// members were inserted in, and numbers keep their literal text.
type Value struct {
	kind    Kind
	b       bool
	n       json.Number
	s       string
	items   []*Value
	members []Member
}

// NewNull returns a JSON null.
func NewNull() *Value { return &Value{kind: Null} }

// NewBool returns a JSON boolean.
func NewBool(b bool) *Value { return &Value{kind: Bool, b: b} }

// NewNumber returns a JSON number carrying the given literal.
func NewNumber(n json.Number) *Value { return &Value{kind: Number, n: n} }

// NewInt returns a JSON number for an integer.
func NewInt(i int) *Value { return NewNumber(json.Number(strconv.Itoa(i))) }

// NewString returns a JSON string.
func NewString(s string) *Value { return &Value{kind: String, s: s} }

// NewArray returns a JSON array holding items.
func NewArray(items ...*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{kind: Array, items: items}
}

// NewStrings returns a JSON array of strings.
func NewStrings(ss ...string) *Value {
	arr := NewArray()
	for _, s := range ss {
		arr.Append(NewString(s))
	}
	return arr
}

// NewObject returns an empty JSON object.
func NewObject() *Value { return &Value{kind: Object, members: []Member{}} }

// Kind reports the variant held by v. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

// IsObject reports whether v is an object.
func (v *Value) IsObject() bool { return v.Kind() == Object }

// IsArray reports whether v is an array.
func (v *Value) IsArray() bool { return v.Kind() == Array }

// Bool returns the boolean payload and whether v is a boolean.
func (v *Value) Bool() (bool, bool) {
	if v.Kind() != Bool {
		return false, false
	}
	return v.b, true
}

// Number returns the number literal and whether v is a number.
func (v *Value) Number() (json.Number, bool) {
	if v.Kind() != Number {
		return "", false
	}
	return v.n, true
}

// Str returns the string payload and whether v is a string.
func (v *Value) Str() (string, bool) {
	if v.Kind() != String {
		return "", false
	}
	return v.s, true
}

// Items returns the elements of an array, or nil for any other kind.
func (v *Value) Items() []*Value {
	if v.Kind() != Array {
		return nil
	}
	return v.items
}

// Append adds an element to the end of an array. It is a no-op on other kinds.
func (v *Value) Append(item *Value) {
	if v.Kind() != Array {
		return
	}
	v.items = append(v.items, item)
}

// Members returns the members of an object in document order.
func (v *Value) Members() []Member {
	if v.Kind() != Object {
		return nil
	}
	return v.members
}

// Keys returns the member names of an object in document order.
func (v *Value) Keys() []string {
	members := v.Members()
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, m.Key)
	}
	return keys
}

// Len returns the number of elements or members, and 0 for scalars.
func (v *Value) Len() int {
	switch v.Kind() {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	}
	return 0
}

// Get looks up a member of an object.
func (v *Value) Get(key string) (*Value, bool) {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Has reports whether an object has a member named key.
func (v *Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// GetString returns the string member named key, if it exists and is a string.
func (v *Value) GetString(key string) (string, bool) {
	child, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return child.Str()
}

// Set replaces the member named key in place, or appends it when absent.
// It is a no-op on non-objects.
func (v *Value) Set(key string, val *Value) {
	if v.Kind() != Object {
		return
	}
	for i := range v.members {
		if v.members[i].Key == key {
			v.members[i].Value = val
			return
		}
	}
	v.members = append(v.members, Member{Key: key, Value: val})
}

// Delete removes the member named key and reports whether it was present.
func (v *Value) Delete(key string) bool {
	if v.Kind() != Object {
		return false
	}
	for i := range v.members {
		if v.members[i].Key == key {
			v.members = append(v.members[:i], v.members[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{kind: v.kind, b: v.b, n: v.n, s: v.s}
	switch v.kind {
	case Array:
		c.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			c.items[i] = item.Clone()
		}
	case Object:
		c.members = make([]Member, len(v.members))
		for i, m := range v.members {
			c.members[i] = Member{Key: m.Key, Value: m.Value.Clone()}
		}
	}
	return c
}

// Equal reports structural equality. Object member order is ignored, array
// order is not, and numbers compare by value.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	case Number:
		if v.n == o.n {
			return true
		}
		a, errA := v.n.Float64()
		b, errB := o.n.Float64()
		return errA == nil && errB == nil && a == b
	case Array:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.members) != len(o.members) {
			return false
		}
		for _, m := range v.members {
			other, ok := o.Get(m.Key)
			if !ok || !m.Value.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}
