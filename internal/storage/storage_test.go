package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		full := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"blank fragments dropped", "A;B;;  ;C", []string{"A", "B", "C"}},
		{"trailing terminator", "CREATE TABLE t (a int);\n", []string{"CREATE TABLE t (a int)"}},
		{"only whitespace", " ;\n\t; ", nil},
		{"semicolon inside quotes", "INSERT INTO t VALUES ('a;b'); SELECT \"x;y\"", []string{"INSERT INTO t VALUES ('a;b')", "SELECT \"x;y\""}},
		{
			"apostrophe in line comment",
			"-- don't touch\nCREATE TABLE a (x int);\nCREATE TABLE b (x int);",
			[]string{"CREATE TABLE a (x int)", "CREATE TABLE b (x int)"},
		},
		{
			"trailing line comment",
			"CREATE TABLE a (x int); -- it's done; really\n",
			[]string{"CREATE TABLE a (x int)"},
		},
		{
			"block comment",
			"/* users' table; v1 */CREATE TABLE a (x int);\nCREATE TABLE b (x int);",
			[]string{"CREATE TABLE a (x int)", "CREATE TABLE b (x int)"},
		},
		{
			"unterminated block comment",
			"CREATE TABLE a (x int); /* left open;",
			[]string{"CREATE TABLE a (x int)"},
		},
		{
			"backslash escaped quote",
			"INSERT INTO t VALUES ('it\\'s');\nCREATE TABLE b (x int);",
			[]string{"INSERT INTO t VALUES ('it\\'s')", "CREATE TABLE b (x int)"},
		},
		{
			"doubled quote",
			"INSERT INTO t VALUES ('it''s; fine');\nCREATE TABLE b (x int);",
			[]string{"INSERT INTO t VALUES ('it''s; fine')", "CREATE TABLE b (x int)"},
		},
		{
			"dashes inside a string",
			"INSERT INTO t VALUES ('a -- b; c');SELECT 1",
			[]string{"INSERT INTO t VALUES ('a -- b; c')", "SELECT 1"},
		},
		{
			"backtick identifier",
			"CREATE TABLE `odd;name` (x int);SELECT 1",
			[]string{"CREATE TABLE `odd;name` (x int)", "SELECT 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitStatements(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDiscoverScriptsSortedAndFlat(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"0002_add_posts.sql": "CREATE TABLE posts (id int);",
		"0001_init.sql":      "CREATE TABLE users (id int); CREATE TABLE tags (id int);",
		"README.md":          "not a script",
		"nested/0003_x.sql":  "SELECT 1;",
		"0000_notes.sql.bak": "SELECT 1;",
	})

	scripts, err := DiscoverScripts(dir)
	if err != nil {
		t.Fatalf("DiscoverScripts: %v", err)
	}
	var versions []string
	for _, s := range scripts {
		versions = append(versions, s.Version)
	}
	if want := []string{"0001_init", "0002_add_posts"}; !reflect.DeepEqual(versions, want) {
		t.Fatalf("versions = %v, want %v", versions, want)
	}
	if got := scripts[0].Statements; len(got) != 2 {
		t.Errorf("statements = %q, want 2", got)
	}
	if scripts[0].FileName() != "0001_init.sql" {
		t.Errorf("file name = %q", scripts[0].FileName())
	}
	if scripts[0].Path != filepath.Join(dir, "0001_init.sql") {
		t.Errorf("path = %q", scripts[0].Path)
	}
	if len(scripts[0].Checksum) != 64 {
		t.Errorf("checksum = %q", scripts[0].Checksum)
	}
}

func TestDiscoverScriptsEmptyDir(t *testing.T) {
	scripts, err := DiscoverScripts(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 0 {
		t.Fatalf("scripts = %v, want none", scripts)
	}
}

func TestDiscoverScriptsMissingDir(t *testing.T) {
	_, err := DiscoverScripts(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, ErrScriptDir) {
		t.Fatalf("error = %v, want ErrScriptDir", err)
	}
}

func TestDiscoverScriptsRejectsFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.sql": "SELECT 1"})
	_, err := DiscoverScripts(filepath.Join(dir, "file.sql"))
	if !errors.Is(err, ErrScriptDir) {
		t.Fatalf("error = %v, want ErrScriptDir", err)
	}
}

func TestDiscoverFSRejectsLongVersion(t *testing.T) {
	fsys := fstest.MapFS{
		strings.Repeat("a", MaxVersionLength+1) + ".sql": {Data: []byte("SELECT 1")},
	}
	if _, err := DiscoverFS(fsys); !errors.Is(err, ErrInvalidScriptName) {
		t.Fatalf("error = %v, want ErrInvalidScriptName", err)
	}
}

func TestParseVersion(t *testing.T) {
	got, err := ParseVersion("/opt/0001_init.sql")
	if err != nil || got != "0001_init" {
		t.Fatalf("ParseVersion = %q, %v", got, err)
	}
	if _, err := ParseVersion(".sql"); !errors.Is(err, ErrInvalidScriptName) {
		t.Fatalf("empty stem error = %v", err)
	}
}
