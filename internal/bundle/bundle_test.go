package bundle

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentx-labs/confshare/internal/conflict"
	"github.com/agentx-labs/confshare/internal/jsontree"
	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/agentx-labs/confshare/internal/sanitize"
	"github.com/spf13/afero"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

const agentDoc = "---\nname: reviewer\ndescription: Reviews code\n---\nBody\n"

// newBundle writes a bundle at /bundle holding the given files and a
// manifest selecting content.
func newBundle(t *testing.T, fs afero.Fs, content manifest.ContentSet, files map[string]string) {
	t.Helper()
	for rel, data := range files {
		writeFile(t, fs, filepath.Join("/bundle", rel), data)
	}
	m := manifest.Create("demo", "1.2.0", "", "", "")
	m.Content = content
	if err := manifest.Save(fs, "/bundle/"+manifest.FileName, m); err != nil {
		t.Fatal(err)
	}
}

func TestPack_SanitizesAndRecordsAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/commands/foo.md", "foo")
	writeFile(t, fs, "/src/commands/bar.md", "bar")
	writeFile(t, fs, "/src/mcp.json", `{"mcpServers":{"gh":{"env":{"GITHUB_TOKEN":"ghp_secret"}}}}`)

	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()
	content[manifest.MCP] = manifest.Select(manifest.MCPFile)

	res, err := Pack(fs, PackOptions{
		Name:    "demo",
		Source:  "/src",
		Dir:     "/out/demo",
		Content: content,
		Now:     fixedNow,
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if got := res.Report.Written(); got != 3 {
		t.Errorf("written = %d, want 3", got)
	}
	if res.Placeholders != 1 {
		t.Errorf("placeholders = %d, want 1", res.Placeholders)
	}

	mcp := readFile(t, fs, "/out/demo/mcp.json")
	if strings.Contains(mcp, "ghp_secret") {
		t.Errorf("secret leaked into bundle: %s", mcp)
	}
	if !strings.Contains(mcp, "${GITHUB_TOKEN}") {
		t.Errorf("placeholder missing: %s", mcp)
	}
	if env := readFile(t, fs, "/out/demo/"+sanitize.EnvExampleFile); !strings.Contains(env, "GITHUB_TOKEN=") {
		t.Errorf(".env.example missing key: %s", env)
	}

	m, err := manifest.LoadDir(fs, "/out/demo")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Content.Get(manifest.Commands).All {
		t.Errorf("commands = %v, want all", m.Content.Get(manifest.Commands))
	}
	if m.Metadata.FileCount != 3 {
		t.Errorf("file_count = %d, want 3", m.Metadata.FileCount)
	}
	if errs := Check(fs, "/out/demo", true); len(errs) != 0 {
		t.Errorf("packed bundle is not valid: %v", errs)
	}
}

func TestPack_SkipSanitizeKeepsValues(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/hooks.json", `{"Stop":[{"type":"command","API_KEY":"sk-1"}]}`)

	content := manifest.NewContentSet()
	content[manifest.Hooks] = manifest.Select(manifest.HooksFile)

	if _, err := Pack(fs, PackOptions{Name: "demo", Source: "/src", Dir: "/out/demo", Content: content, SkipSanitize: true}); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, fs, "/out/demo/hooks.json"); !strings.Contains(got, "sk-1") {
		t.Errorf("value should be kept with sanitizing skipped: %s", got)
	}
	if ok, _ := afero.Exists(fs, "/out/demo/"+sanitize.EnvExampleFile); ok {
		t.Error(".env.example should not be written when sanitizing is skipped")
	}
}

func TestPack_MissingItemsAndNamedSelection(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/commands/foo.md", "foo")
	writeFile(t, fs, "/src/commands/bar.md", "bar")

	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.Select("foo", "gone")

	res, err := Pack(fs, PackOptions{Name: "demo", Source: "/src", Dir: "/out/demo", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Skipped() != 1 {
		t.Fatalf("skipped = %d, want 1", res.Report.Skipped())
	}
	var cm *ContentMissingError
	for _, r := range res.Report.Results {
		if r.Outcome == Skipped && !errors.As(r.Err, &cm) {
			t.Errorf("skipped item error = %v, want ContentMissingError", r.Err)
		}
	}
	if got := res.Manifest.Content.Get(manifest.Commands).String(); got != "foo" {
		t.Errorf("recorded commands = %s, want foo", got)
	}
}

func TestPack_ExistingDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/commands/foo.md", "foo")
	writeFile(t, fs, "/out/demo/stale.md", "old")

	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()

	_, err := Pack(fs, PackOptions{Name: "demo", Source: "/src", Dir: "/out/demo", Content: content})
	if !errors.Is(err, ErrBundleExists) {
		t.Fatalf("err = %v, want ErrBundleExists", err)
	}

	if _, err := Pack(fs, PackOptions{Name: "demo", Source: "/src", Dir: "/out/demo", Content: content, Overwrite: true}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(fs, "/out/demo/stale.md"); ok {
		t.Error("overwrite should clear the old bundle")
	}
}

func TestPack_DryRunWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/commands/foo.md", "foo")

	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()

	res, err := Pack(fs, PackOptions{Name: "demo", Source: "/src", Dir: "/out/demo", Content: content, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Written() != 1 {
		t.Errorf("planned writes = %d, want 1", res.Report.Written())
	}
	if ok, _ := afero.Exists(fs, "/out/demo"); ok {
		t.Error("dry run created the bundle directory")
	}
}

func TestApply_ConflictModes(t *testing.T) {
	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()

	tests := []struct {
		name    string
		mode    conflict.Mode
		decider Decider
		outcome Outcome
		path    string
		body    string
	}{
		{"skip", conflict.Skip, nil, Skipped, "/target/commands/foo.md", "local"},
		{"overwrite", conflict.Overwrite, nil, Written, "/target/commands/foo.md", "shared"},
		{"rename", conflict.Rename, nil, Written, "/target/commands/foo_1.md", "shared"},
		{"ask without decider", conflict.Ask, nil, Failed, "/target/commands/foo.md", "local"},
		{"ask declined", conflict.Ask, DeciderFunc(func(string) (bool, error) { return false, nil }), Skipped, "/target/commands/foo.md", "local"},
		{"ask accepted", conflict.Ask, DeciderFunc(func(string) (bool, error) { return true, nil }), Written, "/target/commands/foo.md", "shared"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			newBundle(t, fs, content, map[string]string{"commands/foo.md": "shared"})
			writeFile(t, fs, "/target/commands/foo.md", "local")

			res, err := Apply(fs, ApplyOptions{
				Bundle:       "/bundle",
				Target:       "/target",
				ConflictMode: tt.mode,
				Decider:      tt.decider,
				Now:          fixedNow,
			})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if len(res.Report.Results) != 1 {
				t.Fatalf("results = %+v", res.Report.Results)
			}
			if got := res.Report.Results[0].Outcome; got != tt.outcome {
				t.Errorf("outcome = %s, want %s", got, tt.outcome)
			}
			if got := readFile(t, fs, tt.path); got != tt.body {
				t.Errorf("%s = %q, want %q", tt.path, got, tt.body)
			}
			if tt.outcome == Failed {
				var ce *conflict.ConflictError
				if !errors.As(res.Report.Err(), &ce) {
					t.Errorf("report error = %v, want ConflictError", res.Report.Err())
				}
			}
		})
	}
}

func TestApply_SmartHooksMergeAndLedger(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := manifest.NewContentSet()
	content[manifest.Hooks] = manifest.Select(manifest.HooksFile)
	newBundle(t, fs, content, map[string]string{
		"hooks.json": `{"PreToolUse":[{"type":"tool_use","tool_name":"Bash","when":"before","command":"new"}],` +
			`"Stop":[{"type":"command","command":"done"}]}`,
	})
	writeFile(t, fs, "/target/hooks.json", `{"PreToolUse":[{"type":"tool_use","tool_name":"Bash","when":"before","command":"mine"}]}`)

	res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Written() != 1 {
		t.Fatalf("report = %+v", res.Report.Results)
	}

	doc, err := jsontree.Parse([]byte(readFile(t, fs, "/target/hooks.json")))
	if err != nil {
		t.Fatal(err)
	}
	pre, _ := doc.Get("PreToolUse")
	if pre.Len() != 1 {
		t.Errorf("PreToolUse has %d hooks, want the existing one only", pre.Len())
	}
	if cmd, _ := pre.Items()[0].GetString("command"); cmd != "mine" {
		t.Errorf("existing hook rewritten: command = %s", cmd)
	}
	if !doc.Has("Stop") {
		t.Error("new event not added")
	}

	rec := res.Record
	if rec.Target != "/target" || rec.Version != "1.2.0" || rec.HooksMode != manifest.HooksSmart {
		t.Errorf("record = %+v", rec)
	}
	if len(res.Manifest.Apply) != 1 {
		t.Errorf("apply records = %d, want 1", len(res.Manifest.Apply))
	}
}

func TestApply_HooksModes(t *testing.T) {
	content := manifest.NewContentSet()
	content[manifest.Hooks] = manifest.Select(manifest.HooksFile)

	tests := []struct {
		mode manifest.HooksMode
		want string
	}{
		{manifest.HooksSkip, "local"},
		{manifest.HooksReplace, "shared"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			newBundle(t, fs, content, map[string]string{"hooks.json": `{"Stop":[{"type":"command","command":"shared"}]}`})
			writeFile(t, fs, "/target/hooks.json", `{"Stop":[{"type":"command","command":"local"}]}`)

			if _, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", HooksMode: tt.mode}); err != nil {
				t.Fatal(err)
			}
			if got := readFile(t, fs, "/target/hooks.json"); !strings.Contains(got, tt.want) {
				t.Errorf("hooks.json = %s, want it to contain %s", got, tt.want)
			}
		})
	}
}

func TestApply_RestoresPlaceholders(t *testing.T) {
	content := manifest.NewContentSet()
	content[manifest.MCP] = manifest.Select(manifest.MCPFile)
	files := map[string]string{
		"mcp.json":               `{"mcpServers":{"svc":{"env":{"API_KEY":"${API_KEY}"}}}}`,
		sanitize.EnvExampleFile: "API_KEY=your-api_key-here\n",
	}

	t.Run("bound", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newBundle(t, fs, content, files)
		res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", Env: map[string]string{"API_KEY": "real"}})
		if err != nil {
			t.Fatal(err)
		}
		if got := readFile(t, fs, "/target/mcp.json"); !strings.Contains(got, `"real"`) {
			t.Errorf("mcp.json = %s", got)
		}
		if res.Placeholders != 0 {
			t.Errorf("placeholders = %d, want 0", res.Placeholders)
		}
	})

	t.Run("unbound", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		newBundle(t, fs, content, files)
		res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Placeholders != 1 {
			t.Errorf("placeholders = %d, want 1", res.Placeholders)
		}
		if len(res.EnvKeys) != 1 || res.EnvKeys[0] != "API_KEY" {
			t.Errorf("env keys = %v", res.EnvKeys)
		}
	})
}

func TestApply_SkillsCopiedWhole(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := manifest.NewContentSet()
	content[manifest.Skills] = manifest.SelectAll()
	newBundle(t, fs, content, map[string]string{
		"skills/pdf/SKILL.md":        "skill",
		"skills/pdf/scripts/run.sh":  "echo",
		"skills/pdf/.git/HEAD":       "ref",
		"skills/pdf/node_modules/x":  "dep",
		"skills/.cache/ignored.json": "{}",
	})
	writeFile(t, fs, "/target/skills/pdf/old.md", "old")

	res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", ConflictMode: conflict.Overwrite})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Written() != 1 {
		t.Fatalf("report = %+v", res.Report.Results)
	}
	for path, want := range map[string]bool{
		"/target/skills/pdf/SKILL.md":       true,
		"/target/skills/pdf/scripts/run.sh": true,
		"/target/skills/pdf/old.md":         false,
		"/target/skills/pdf/.git":           false,
		"/target/skills/pdf/node_modules":   false,
		"/target/skills/.cache":             false,
	} {
		if got, _ := afero.Exists(fs, path); got != want {
			t.Errorf("exists(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestApply_InvalidManifestWritesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/bundle/"+manifest.FileName, `{"name":"demo","version":"one","content":{"commands":"foo"}}`)
	writeFile(t, fs, "/bundle/commands/foo.md", "x")

	_, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target"})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *manifest.SchemaError
	if !errors.As(err, &se) {
		t.Errorf("err = %v, want SchemaError", err)
	}
	if ok, _ := afero.Exists(fs, "/target"); ok {
		t.Error("target was touched")
	}
}

func TestApply_DryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()
	newBundle(t, fs, content, map[string]string{"commands/foo.md": "x"})

	res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Written() != 1 || len(res.Manifest.Apply) != 0 {
		t.Errorf("dry run report = %+v, records = %d", res.Report.Results, len(res.Manifest.Apply))
	}
	if ok, _ := afero.Exists(fs, "/target/commands/foo.md"); ok {
		t.Error("dry run wrote a file")
	}
}

func TestAppliedPathsAndRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()
	content[manifest.Agents] = manifest.Select("reviewer")
	newBundle(t, fs, content, map[string]string{
		"commands/foo.md":    "foo",
		"commands/bar.md":    "bar",
		"agents/reviewer.md": agentDoc,
	})

	res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", ConflictMode: conflict.Overwrite})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, fs, "/target/commands/mine.md", "keep")

	paths := AppliedPaths(fs, "/bundle", res.Manifest)
	want := []string{"/target/commands/bar.md", "/target/commands/foo.md", "/target/agents/reviewer.md"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("AppliedPaths = %v, want %v", paths, want)
	}

	report := Remove(fs, RemoveOptions{Bundle: "/bundle", Paths: append(paths, "/target/commands/gone.md")})
	if report.Written() != 3 || report.Skipped() != 1 {
		t.Errorf("remove report: %s", report.Summary())
	}
	if ok, _ := afero.Exists(fs, "/target/commands/foo.md"); ok {
		t.Error("applied file not removed")
	}
	if ok, _ := afero.Exists(fs, "/target/commands/mine.md"); !ok {
		t.Error("unrelated file removed")
	}
}

func TestRemove_LeavesWhatApplyDidNotWrite(t *testing.T) {
	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()

	tests := []struct {
		name    string
		mode    conflict.Mode
		decider Decider
		// after remove
		gone []string
		kept map[string]string
	}{
		{
			name: "skip",
			mode: conflict.Skip,
			gone: []string{"/target/commands/new.md"},
			kept: map[string]string{"/target/commands/foo.md": "local"},
		},
		{
			name:    "ask declined",
			mode:    conflict.Ask,
			decider: DeciderFunc(func(string) (bool, error) { return false, nil }),
			gone:    []string{"/target/commands/new.md"},
			kept:    map[string]string{"/target/commands/foo.md": "local"},
		},
		{
			name:    "ask failed",
			mode:    conflict.Ask,
			decider: DeciderFunc(func(string) (bool, error) { return false, errors.New("no tty") }),
			gone:    []string{"/target/commands/new.md"},
			kept:    map[string]string{"/target/commands/foo.md": "local"},
		},
		{
			name: "rename",
			mode: conflict.Rename,
			gone: []string{"/target/commands/new.md", "/target/commands/foo_1.md"},
			kept: map[string]string{"/target/commands/foo.md": "local"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			newBundle(t, fs, content, map[string]string{"commands/foo.md": "shared", "commands/new.md": "new"})
			writeFile(t, fs, "/target/commands/foo.md", "local")

			res, err := Apply(fs, ApplyOptions{
				Bundle:       "/bundle",
				Target:       "/target",
				ConflictMode: tt.mode,
				Decider:      tt.decider,
				Now:          fixedNow,
			})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			report := Remove(fs, RemoveOptions{Bundle: "/bundle", Paths: AppliedPaths(fs, "/bundle", res.Manifest)})
			if report.Failed() != 0 {
				t.Errorf("remove report: %s", report.Summary())
			}
			for _, path := range tt.gone {
				if ok, _ := afero.Exists(fs, path); ok {
					t.Errorf("%s still exists after remove", path)
				}
			}
			for path, body := range tt.kept {
				if got := readFile(t, fs, path); got != body {
					t.Errorf("%s = %q, want %q", path, got, body)
				}
			}
		})
	}
}

func TestApply_RecordsWhatWasWritten(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()
	content[manifest.Agents] = manifest.Select("reviewer")
	newBundle(t, fs, content, map[string]string{
		"commands/foo.md":    "shared",
		"commands/bar.md":    "bar",
		"agents/reviewer.md": agentDoc,
	})
	writeFile(t, fs, "/target/commands/foo.md", "local")

	res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", ConflictMode: conflict.Rename, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}

	rec := res.Record
	if got := rec.Content.Get(manifest.Commands).String(); got != "all" {
		t.Errorf("commands = %s, want all", got)
	}
	if got := rec.Content.Get(manifest.Agents).String(); got != "reviewer" {
		t.Errorf("agents = %s, want reviewer", got)
	}
	var paths []string
	for _, f := range rec.Files {
		paths = append(paths, f.Name+"="+f.Path)
	}
	want := "bar=commands/bar.md,foo=commands/foo_1.md,reviewer=agents/reviewer.md"
	if got := strings.Join(paths, ","); got != want {
		t.Errorf("files = %s, want %s", got, want)
	}

	owned := OwnedPaths(rec)
	if owned[filepath.Join("commands", "foo.md")] != filepath.Join("commands", "foo_1.md") {
		t.Errorf("OwnedPaths = %v", owned)
	}

	res, err = Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/other", ConflictMode: conflict.Skip, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Record.Tracked() {
		t.Error("record does not track its files")
	}
	writeFile(t, fs, "/third/commands/foo.md", "local")
	res, err = Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/third", ConflictMode: conflict.Skip, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Record.Content.Get(manifest.Commands).String(); got != "bar" {
		t.Errorf("commands after skip = %s, want bar", got)
	}
}

func TestApply_OwnedItemsGoBackToTheirPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.SelectAll()
	newBundle(t, fs, content, map[string]string{"commands/foo.md": "v2"})
	writeFile(t, fs, "/target/commands/foo.md", "local")
	writeFile(t, fs, "/target/commands/foo_1.md", "v1")

	res, err := Apply(fs, ApplyOptions{
		Bundle:       "/bundle",
		Target:       "/target",
		ConflictMode: conflict.Skip,
		Owned:        map[string]string{filepath.Join("commands", "foo.md"): filepath.Join("commands", "foo_1.md")},
		Now:          fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Written() != 1 {
		t.Errorf("report = %s", res.Report.Summary())
	}
	if got := readFile(t, fs, "/target/commands/foo.md"); got != "local" {
		t.Errorf("foo.md = %q, want local", got)
	}
	if got := readFile(t, fs, "/target/commands/foo_1.md"); got != "v2" {
		t.Errorf("foo_1.md = %q, want v2", got)
	}
}

func TestApply_RejectsNamesOutsideTheTree(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"parent as skill", `{"skills":[".."]}`},
		{"current dir as skill", `{"skills":["."]}`},
		{"escaping command", `{"commands":["../../settings"]}`},
		{"absolute agent", `{"agents":["/etc/passwd"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "/bundle/"+manifest.FileName, `{"name":"demo","version":"1.0.0","content":`+tt.content+`}`)
			writeFile(t, fs, "/bundle/commands/x.md", "x")
			writeFile(t, fs, "/target/settings.json", "{}")
			writeFile(t, fs, "/target/commands/mine.md", "mine")

			_, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", ConflictMode: conflict.Overwrite, Now: fixedNow})
			var se *manifest.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want SchemaError", err)
			}
			for path, body := range map[string]string{"/target/settings.json": "{}", "/target/commands/mine.md": "mine"} {
				if got := readFile(t, fs, path); got != body {
					t.Errorf("%s = %q, want %q", path, got, body)
				}
			}
		})
	}
}

func TestAppliedPaths_DropsEscapingRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/home/u/settings.json", "{}")

	m := manifest.Create("demo", "1.0.0", "", "", "")
	m.Apply = []manifest.ApplyRecord{
		{Target: "/home/u/.claude", Content: manifest.ContentSet{manifest.Commands: manifest.Select("../../settings")}},
		{Target: "/home/u/.claude", Files: []manifest.AppliedFile{{Kind: manifest.Commands, Name: "x", Path: "../settings.json"}}},
	}
	if paths := AppliedPaths(fs, "/bundle", m); len(paths) != 0 {
		t.Errorf("AppliedPaths = %v, want none", paths)
	}
}

func TestRemove_HooksKeepsUserDefinitions(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := manifest.NewContentSet()
	content[manifest.Hooks] = manifest.Select(manifest.HooksFile)
	newBundle(t, fs, content, map[string]string{
		"hooks.json": `{"PreToolUse":[{"type":"tool_use","tool_name":"Bash","when":"before","command":"lint"}],` +
			`"Stop":[{"type":"command","command":"notify ${SLACK_TOKEN}"}]}`,
	})
	writeFile(t, fs, "/bundle/"+EnvFile, "SLACK_TOKEN=xoxb-1\n")
	writeFile(t, fs, "/target/hooks.json", `{"PreToolUse":[{"type":"tool_use","tool_name":"Read","when":"before","command":"mine"}]}`)

	env, err := LoadEnv(fs, "/bundle")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/target", Env: env, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}

	report := Remove(fs, RemoveOptions{Bundle: "/bundle", Paths: AppliedPaths(fs, "/bundle", res.Manifest), Env: env})
	if report.Written() != 1 || report.Failed() != 0 {
		t.Fatalf("remove report: %+v", report.Results)
	}
	got := readFile(t, fs, "/target/hooks.json")
	if !strings.Contains(got, `"mine"`) || strings.Contains(got, "lint") || strings.Contains(got, "Stop") {
		t.Errorf("hooks.json after remove = %s", got)
	}

	// A hooks file holding only bundle definitions goes away.
	writeFile(t, fs, "/solo/.keep", "")
	res, err = Apply(fs, ApplyOptions{Bundle: "/bundle", Target: "/solo", Env: env, Now: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	Remove(fs, RemoveOptions{Bundle: "/bundle", Paths: []string{"/solo/hooks.json"}, Env: env})
	if ok, _ := afero.Exists(fs, "/solo/hooks.json"); ok {
		t.Error("hooks file with only bundle hooks was kept")
	}
}

func TestCheck(t *testing.T) {
	content := manifest.NewContentSet()
	content[manifest.Commands] = manifest.Select("foo", "missing")
	content[manifest.Agents] = manifest.Select("reviewer", "bare")
	content[manifest.MCP] = manifest.Select(manifest.MCPFile)

	fs := afero.NewMemMapFs()
	newBundle(t, fs, content, map[string]string{
		"commands/foo.md":    "foo",
		"agents/reviewer.md": agentDoc,
		"agents/bare.md":     "no front matter",
		"mcp.json":           "{not json",
	})

	errs := Check(fs, "/bundle", false)
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}
	missing := 0
	for _, err := range errs {
		if IsContentMissing(err) {
			missing++
		}
	}
	if missing != 1 {
		t.Errorf("content missing errors = %d, want 1", missing)
	}

	if errs := Check(fs, "/nowhere", false); len(errs) != 1 {
		t.Errorf("missing dir errors = %v", errs)
	}
}
