package library

import (
	"errors"
	"testing"

	"github.com/agentx-labs/confshare/internal/manifest"
	"github.com/spf13/afero"
)

func saveBundle(t *testing.T, fs afero.Fs, dir string, m *manifest.Manifest) {
	t.Helper()
	if err := manifest.Save(fs, dir+"/"+manifest.FileName, m); err != nil {
		t.Fatal(err)
	}
}

func TestList(t *testing.T) {
	fs := afero.NewMemMapFs()
	lib := Open(fs, "/share")

	plugins, err := lib.List()
	if err != nil || len(plugins) != 0 {
		t.Fatalf("List on missing dir = %v, %v", plugins, err)
	}

	shared := manifest.Create("zeta", "2.0.0", "published", "ann", "")
	shared.Repository = manifest.Repository{Type: manifest.RepoGitHub, URL: "https://github.com/ann/zeta"}
	saveBundle(t, fs, "/share/zeta", shared)
	saveBundle(t, fs, "/share/alpha", manifest.Create("alpha", "", "", "", ""))
	fs.MkdirAll("/share/empty", 0755)
	afero.WriteFile(fs, "/share/broken/"+manifest.FileName, []byte("{"), 0644)

	plugins, err = lib.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(plugins) != 2 || plugins[0].Name != "alpha" || plugins[1].Name != "zeta" {
		t.Fatalf("List = %+v", plugins)
	}
	if plugins[0].Role() != RoleUser || plugins[1].Role() != RoleSharer {
		t.Errorf("roles = %s, %s", plugins[0].Role(), plugins[1].Role())
	}

	if got := Filter(plugins, RoleSharer); len(got) != 1 || got[0].Name != "zeta" {
		t.Errorf("Filter(sharer) = %+v", got)
	}
	if got := Filter(plugins, RoleUser); len(got) != 2 {
		t.Errorf("Filter(user) = %+v", got)
	}
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()
	lib := Open(fs, "/share")
	saveBundle(t, fs, "/share/dir-name", manifest.Create("real-name", "", "", "", ""))

	for _, name := range []string{"real-name", "dir-name"} {
		if p, err := lib.Find(name); err != nil || p.Path != "/share/dir-name" {
			t.Errorf("Find(%s) = %+v, %v", name, p, err)
		}
	}
	if _, err := lib.Find("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(nope) err = %v, want ErrNotFound", err)
	}
}

func TestCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	lib := Open(fs, "/share")

	m := manifest.Create("demo", "", "", "", "")
	saveBundle(t, fs, "/tmp/download/demo", m)
	afero.WriteFile(fs, "/tmp/download/demo/commands/foo.md", []byte("foo"), 0644)
	afero.WriteFile(fs, "/tmp/download/demo/.git/HEAD", []byte("ref"), 0644)

	m.Version = "1.0.1"
	dir, err := lib.Cache("/tmp/download/demo", m)
	if err != nil {
		t.Fatalf("Cache: %v", err)
	}
	if dir != "/share/demo" {
		t.Errorf("dir = %s", dir)
	}
	if ok, _ := afero.Exists(fs, "/share/demo/commands/foo.md"); !ok {
		t.Error("content not cached")
	}
	if ok, _ := afero.Exists(fs, "/share/demo/.git/HEAD"); !ok {
		t.Error("git metadata not cached")
	}

	cached, path, err := lib.Load("demo")
	if err != nil || path != "/share/demo" || cached.Version != "1.0.1" {
		t.Errorf("Load = %+v, %s, %v", cached, path, err)
	}

	cached.Version = "1.0.2"
	if _, err := lib.Cache("/share/demo", cached); err != nil {
		t.Fatalf("re-cache in place: %v", err)
	}
	if again, _, _ := lib.Load("demo"); again.Version != "1.0.2" {
		t.Errorf("version = %s, want 1.0.2", again.Version)
	}

	if err := lib.Delete(path); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.Exists(fs, "/share/demo"); ok {
		t.Error("Delete left the directory")
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("Sharer"); err != nil || r != RoleSharer {
		t.Errorf("ParseRole = %s, %v", r, err)
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Error("expected error")
	}
}
