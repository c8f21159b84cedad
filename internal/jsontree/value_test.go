package jsontree

import (
	"strings"
	"testing"
)

func TestParse_PreservesMemberOrder(t *testing.T) {
	input := `{"zeta":1,"alpha":{"b":true,"a":null},"mid":[3,"x"]}`
	v, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	keys := strings.Join(v.Keys(), ",")
	if keys != "zeta,alpha,mid" {
		t.Errorf("keys = %s, want zeta,alpha,mid", keys)
	}

	out, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != input {
		t.Errorf("round trip = %s, want %s", out, input)
	}
}

func TestParse_KeepsNumberLiterals(t *testing.T) {
	v, err := Parse([]byte(`{"big":12345678901234567890,"f":1.50}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	big, _ := v.Get("big")
	n, ok := big.Number()
	if !ok || n.String() != "12345678901234567890" {
		t.Errorf("big = %q, want literal preserved", n)
	}
	f, _ := v.Get("f")
	if n, _ := f.Number(); n.String() != "1.50" {
		t.Errorf("f = %q, want 1.50", n)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated", `{"a":`},
		{"trailing data", `{} {}`},
		{"bare word", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Errorf("expected error for %q", tt.input)
			}
		})
	}
}

func TestIndent_NoHTMLEscaping(t *testing.T) {
	v := NewObject()
	v.Set("command", NewString("echo a && echo <b>"))
	out, err := Indent(v)
	if err != nil {
		t.Fatalf("Indent: %v", err)
	}
	want := "{\n  \"command\": \"echo a && echo <b>\"\n}\n"
	if string(out) != want {
		t.Errorf("Indent = %q, want %q", out, want)
	}
}

func TestSet_ReplacesInPlace(t *testing.T) {
	v := NewObject()
	v.Set("a", NewInt(1))
	v.Set("b", NewInt(2))
	v.Set("a", NewInt(3))

	if got := strings.Join(v.Keys(), ","); got != "a,b" {
		t.Errorf("keys = %s, want a,b", got)
	}
	a, _ := v.Get("a")
	if n, _ := a.Number(); n != "3" {
		t.Errorf("a = %s, want 3", n)
	}
	if !v.Delete("a") || v.Has("a") {
		t.Error("Delete should remove a")
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig, _ := Parse([]byte(`{"list":[{"k":"v"}]}`))
	c := orig.Clone()

	list, _ := c.Get("list")
	list.Items()[0].Set("k", NewString("changed"))
	list.Append(NewNull())

	origList, _ := orig.Get("list")
	if origList.Len() != 1 {
		t.Errorf("original list mutated: len = %d", origList.Len())
	}
	if s, _ := origList.Items()[0].GetString("k"); s != "v" {
		t.Errorf("original member mutated: %q", s)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"member order ignored", `{"a":1,"b":2}`, `{"b":2,"a":1}`, true},
		{"array order matters", `[1,2]`, `[2,1]`, false},
		{"numeric value", `1.0`, `1`, true},
		{"kind mismatch", `"1"`, `1`, false},
		{"extra member", `{"a":1}`, `{"a":1,"b":1}`, false},
		{"nested", `{"x":[{"y":null}]}`, `{"x":[{"y":null}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse([]byte(tt.a))
			if err != nil {
				t.Fatal(err)
			}
			b, err := Parse([]byte(tt.b))
			if err != nil {
				t.Fatal(err)
			}
			if got := a.Equal(b); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromAndInto(t *testing.T) {
	type pair struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	v, err := From(pair{Name: "x", Count: 2})
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	if got := strings.Join(v.Keys(), ","); got != "name,count" {
		t.Errorf("keys = %s, want struct field order", got)
	}

	var back pair
	if err := Into(v, &back); err != nil {
		t.Fatalf("Into: %v", err)
	}
	if back.Name != "x" || back.Count != 2 {
		t.Errorf("Into = %+v", back)
	}
}
