package internal_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDatabaseImportRestrictions keeps the repository free of game rules
func TestDatabaseImportRestrictions(t *testing.T) {
	allowedPrefixes := []string{
		"meshwars/internal/log", // Logging is allowed everywhere
	}

	checkImports(t, "./database", allowedPrefixes, nil)
}

// TestUniverseImportRestrictions ensures graph code stays storage agnostic
func TestUniverseImportRestrictions(t *testing.T) {
	allowedPrefixes := []string{
		"meshwars/internal/config",
		"meshwars/internal/log",
	}

	checkImports(t, "./universe", allowedPrefixes, nil)
}

// TestEconomyImportRestrictions ensures pricing works on plain rows
func TestEconomyImportRestrictions(t *testing.T) {
	allowedPrefixes := []string{
		"meshwars/internal/config",
		"meshwars/internal/database", // Row types only, no queries
		"meshwars/internal/log",
	}

	checkImports(t, "./economy", allowedPrefixes, nil)
}

// TestGameImportRestrictions ensures game rules don't know about text sessions
func TestGameImportRestrictions(t *testing.T) {
	forbiddenPrefixes := []string{
		"meshwars/internal/session", // Sessions sit on top of the world
	}

	checkImports(t, "./game", nil, forbiddenPrefixes)
}

// TestSessionImportRestrictions ensures sessions go through the world
func TestSessionImportRestrictions(t *testing.T) {
	forbiddenPrefixes := []string{
		"meshwars/internal/universe", // Path finding only via game.World
	}

	checkImports(t, "./session", nil, forbiddenPrefixes)
}

func checkImports(t *testing.T, packageDir string, allowedPrefixes, forbiddenPrefixes []string) {
	err := filepath.Walk(packageDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		fset := token.NewFileSet()
		node, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", path, err)
			return nil
		}

		for _, imp := range node.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)

			// Skip standard library and third-party imports
			if !strings.HasPrefix(importPath, "meshwars/internal") {
				continue
			}

			for _, forbidden := range forbiddenPrefixes {
				if strings.HasPrefix(importPath, forbidden) {
					t.Errorf("FORBIDDEN import in %s: %s", path, importPath)
				}
			}

			if allowedPrefixes != nil {
				allowed := false
				for _, prefix := range allowedPrefixes {
					if strings.HasPrefix(importPath, prefix) {
						allowed = true
						break
					}
				}
				if !allowed {
					t.Errorf("DISALLOWED import in %s: %s (not in allowed list)", path, importPath)
				}
			}
		}

		return nil
	})

	if err != nil {
		t.Errorf("Failed to walk directory %s: %v", packageDir, err)
	}
}
