package manifest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/agentx-labs/confshare/internal/jsontree"
	"github.com/spf13/afero"
)

func TestCreate_Defaults(t *testing.T) {
	before := time.Now().Add(-time.Second)
	m := Create("tools", "", "desc", "me", "")

	if m.Version != "1.0.0" {
		t.Errorf("Version = %q, want 1.0.0", m.Version)
	}
	if m.License != "MIT" {
		t.Errorf("License = %q, want MIT", m.License)
	}
	for _, k := range CoreKinds {
		if _, ok := m.Content[k]; !ok {
			t.Errorf("content missing kind %s", k)
		}
		if _, ok := m.Exclude[k]; !ok {
			t.Errorf("exclude missing kind %s", k)
		}
	}
	if m.Apply == nil || len(m.Apply) != 0 {
		t.Errorf("Apply = %v, want empty list", m.Apply)
	}
	if m.Metadata.CreatedAt.Before(before) || m.Metadata.UpdatedAt.IsZero() {
		t.Errorf("timestamps not set: %+v", m.Metadata)
	}

	doc, err := jsontree.From(m)
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	if errs := Validate(doc, true); len(errs) != 0 {
		t.Errorf("created manifest fails strict validation: %v", errs)
	}
}

func TestSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := Create("tools", "2.1.0", "", "", "")
	m.Content[Commands] = SelectAll()
	m.Content[Agents] = Select("reviewer")
	m.Content[Skills] = Select("pdf")
	m.Repository = Repository{Type: RepoGitHub, URL: "https://github.com/o/r"}

	path := "/bundles/tools/" + FileName
	if err := Save(fs, path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := afero.ReadFile(fs, path)
	text := string(data)
	if !strings.Contains(text, "\n  \"name\": \"tools\",\n") {
		t.Errorf("expected two-space indented output:\n%s", text)
	}
	if !strings.Contains(text, `"commands": [`+"\n      \"all\"") {
		t.Errorf("expected all sentinel written as a list:\n%s", text)
	}
	if !strings.Contains(text, `"apply": []`) {
		t.Errorf("expected empty apply list:\n%s", text)
	}
	if exists, _ := afero.Exists(fs, path+".tmp"); exists {
		t.Error("temporary file left behind")
	}

	loaded, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "tools" || loaded.Version != "2.1.0" {
		t.Errorf("loaded = %s %s", loaded.Name, loaded.Version)
	}
	if !loaded.Content[Commands].All {
		t.Error("commands should select all")
	}
	if !loaded.Content[Agents].Contains("reviewer") || loaded.Content[Agents].Contains("other") {
		t.Errorf("agents = %v", loaded.Content[Agents])
	}
	if !loaded.Content[Skills].Contains("pdf") {
		t.Errorf("skills = %v", loaded.Content[Skills])
	}
	if !loaded.IsPublished() {
		t.Error("IsPublished should be true")
	}
	if !Exists(fs, "/bundles/tools") {
		t.Error("Exists should find the manifest")
	}
}

func TestDecode_LegacyFields(t *testing.T) {
	doc, err := jsontree.Parse([]byte(`{
		"plugin": "old",
		"version": "1.0.0",
		"content": {"commands": "all"},
		"apply": [{
			"project_file_path": "/home/u/.claude",
			"content": {"hooks": ["hooks.json"]},
			"exclude_content": {"commands": ["x"]},
			"hooks_mode": "smart",
			"applied_at": "2024-05-01T10:20:30.123456",
			"version": "1.0.0"
		}]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	m, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Name != "old" {
		t.Errorf("Name = %q, want legacy name", m.Name)
	}
	if !m.Content[Commands].All {
		t.Error("bare \"all\" should decode as the sentinel")
	}
	if len(m.Apply) != 1 {
		t.Fatalf("Apply = %d records", len(m.Apply))
	}
	rec := m.Apply[0]
	if rec.Target != "/home/u/.claude" {
		t.Errorf("Target = %q", rec.Target)
	}
	if !rec.Exclude[Commands].Contains("x") {
		t.Errorf("Exclude = %v", rec.Exclude)
	}
	if rec.AppliedAt.Year() != 2024 || rec.AppliedAt.Second() != 30 {
		t.Errorf("AppliedAt = %v", rec.AppliedAt)
	}
	if rec.HooksMode != HooksSmart {
		t.Errorf("HooksMode = %q", rec.HooksMode)
	}
}

func TestDecode_NotAnObject(t *testing.T) {
	doc, _ := jsontree.Parse([]byte(`[1,2]`))
	if _, err := Decode(doc); err == nil {
		t.Error("expected error for array document")
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		input string
		all   bool
		items []string
	}{
		{"", false, nil},
		{"all", true, nil},
		{"ALL", true, nil},
		{"a, b,,c", false, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sel := ParseSelection(tt.input)
			if sel.All != tt.all || strings.Join(sel.Items, ",") != strings.Join(tt.items, ",") {
				t.Errorf("ParseSelection(%q) = %+v", tt.input, sel)
			}
		})
	}
}

func TestContentSet_CanonicalOrder(t *testing.T) {
	set := ContentSet{Skills: Select("s"), MCP: Select(MCPFile), Commands: SelectAll()}
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"commands":["all"],"agents":[],"hooks":[],"mcp":["mcp.json"],"skills":["s"]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	empty, _ := json.Marshal(NewContentSet())
	if string(empty) != `{"commands":[],"agents":[],"hooks":[],"mcp":[]}` {
		t.Errorf("empty set = %s", empty)
	}
}

func TestTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-01-02T03:04:05Z")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(ts)
	if string(data) != `"2025-01-02T03:04:05Z"` {
		t.Errorf("Marshal = %s", data)
	}
	zero, _ := json.Marshal(Timestamp{})
	if string(zero) != `""` {
		t.Errorf("zero = %s", zero)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParseHooksMode("Replace"); err != nil || m != HooksReplace {
		t.Errorf("ParseHooksMode = %v, %v", m, err)
	}
	if _, err := ParseHooksMode("merge"); err == nil {
		t.Error("expected error for unknown hooks mode")
	}
	if r, err := ParseRepoType("gitlab"); err != nil || r != RepoGitLab {
		t.Errorf("ParseRepoType = %v, %v", r, err)
	}
	if _, err := ParseRepoType("bitbucket"); err == nil {
		t.Error("expected error for unknown repo type")
	}
}
