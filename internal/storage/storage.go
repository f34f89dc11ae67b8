package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MaxVersionLength matches the width of the ledger's version_num column.
const MaxVersionLength = 32

var (
	ErrScriptDir         = errors.New("script directory unreadable")
	ErrInvalidScriptName = errors.New("invalid migration script name")
	ErrDuplicateVersion  = errors.New("duplicate migration version")
)

// Script is one bundled migration file. Version is the file name without the
// .sql extension.
type Script struct {
	Version    string
	Path       string
	Statements []string
	Checksum   string
}

// FileName returns the base name the script was discovered under.
func (s Script) FileName() string {
	return filepath.Base(s.Path)
}

// DiscoverScripts loads every *.sql file directly under dir, sorted by version.
func DiscoverScripts(dir string) ([]Script, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScriptDir, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrScriptDir, dir)
	}
	scripts, err := DiscoverFS(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	for i := range scripts {
		scripts[i].Path = filepath.Join(dir, scripts[i].Path)
	}
	return scripts, nil
}

// DiscoverFS loads every *.sql file at the root of fsys, sorted by version.
// Subdirectories are not descended into.
func DiscoverFS(fsys fs.FS) ([]Script, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScriptDir, err)
	}

	seen := map[string]bool{}
	var scripts []Script
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		version, err := ParseVersion(e.Name())
		if err != nil {
			return nil, err
		}
		if seen[version] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVersion, version)
		}
		seen[version] = true

		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		scripts = append(scripts, Script{
			Version:    version,
			Path:       e.Name(),
			Statements: SplitStatements(string(body)),
			Checksum:   computeChecksum(body),
		})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}

// ParseVersion derives the ledger version from a script file name.
func ParseVersion(name string) (string, error) {
	version := strings.TrimSuffix(path.Base(name), ".sql")
	if strings.TrimSpace(version) == "" {
		return "", fmt.Errorf("%w: %q has an empty version", ErrInvalidScriptName, name)
	}
	if len(version) > MaxVersionLength {
		return "", fmt.Errorf("%w: version %q exceeds %d characters", ErrInvalidScriptName, version, MaxVersionLength)
	}
	return version, nil
}

// SplitStatements splits a script into single statements on ';'. A ';'
// inside a quoted string, a quoted identifier or a comment does not split.
// Comments are dropped from the output, and empty statements are skipped.
// Inside quotes both a doubled quote and a backslash escape keep the string
// open.
func SplitStatements(sqlText string) []string {
	var (
		out     []string
		current strings.Builder
		quote   rune // open quote character, 0 outside quotes
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
	}

	src := []rune(sqlText)
	for i := 0; i < len(src); i++ {
		r := src[i]
		var next rune
		if i+1 < len(src) {
			next = src[i+1]
		}

		if quote != 0 {
			current.WriteRune(r)
			switch {
			case r == '\\' && next != 0:
				i++
				current.WriteRune(next)
			case r == quote && next == quote:
				i++
				current.WriteRune(next)
			case r == quote:
				quote = 0
			}
			continue
		}

		switch {
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '-' && next == '-':
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
			continue
		case r == '/' && next == '*':
			i += 2
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				i++
			}
			i++
			current.WriteRune(' ')
			continue
		case r == ';':
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return out
}

func computeChecksum(blobs ...[]byte) string {
	h := sha256.New()
	for _, b := range blobs {
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}
