package core_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/leapstack-labs/leapquery"

// importsOf returns the imports of every non-test Go file in dir, by file name.
func importsOf(t *testing.T, dir string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}

	out := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") {
			continue
		}
		// Skip test files
		if strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", path, err)
			continue
		}
		for _, imp := range f.Imports {
			out[path] = append(out[path], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return out
}

// TestCoreImportsOnly verifies pkg/core only imports the standard library.
// The Golden Rule: every other package depends on core, never the reverse.
func TestCoreImportsOnly(t *testing.T) {
	for file, imports := range importsOf(t, ".") {
		for _, importPath := range imports {
			// Allow stdlib (no dots in path)
			if !strings.Contains(importPath, ".") {
				continue
			}
			t.Errorf("%s imports forbidden package: %s", file, importPath)
		}
	}
}

// TestQueryLayersDoNoIO verifies the packages that build, compile and
// hydrate queries never reach for a database or the network themselves.
// Only pkg/adapter and the adapters talk to drivers.
func TestQueryLayersDoNoIO(t *testing.T) {
	forbidden := []string{"database/sql", "net", "net/http", "os/exec"}
	dirs := []string{
		".",
		"../expr",
		"../join",
		"../query",
		"../dialect",
		"../dialects/postgres",
		"../dialects/mysql",
		"../dialects/sqlite",
		"../dialects/mssql",
		"../compiler",
		"../hydrate",
	}

	for _, dir := range dirs {
		for file, imports := range importsOf(t, dir) {
			for _, importPath := range imports {
				for _, f := range forbidden {
					if importPath == f {
						t.Errorf("%s imports %s (query layers must not perform I/O)", file, importPath)
					}
				}
				if strings.HasPrefix(importPath, modulePath+"/internal/") ||
					strings.HasPrefix(importPath, modulePath+"/pkg/adapter") ||
					strings.HasPrefix(importPath, modulePath+"/pkg/session") {
					t.Errorf("%s imports %s (query layers must not depend on execution packages)", file, importPath)
				}
			}
		}
	}
}
