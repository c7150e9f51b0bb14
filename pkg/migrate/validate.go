package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Migration filenames carry a 14-digit timestamp version so goose orders them
// deterministically across branches.
var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredDirectives = []string{"-- +goose Up", "-- +goose Down"}

// ValidateDir checks every SQL migration in dir for the filename convention,
// version uniqueness, and the goose section markers. An empty directory is
// valid.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if err := checkMigrationFile(dir, entry.Name(), versions); err != nil {
			return err
		}
	}
	return nil
}

func checkMigrationFile(dir, name string, versions map[string]string) error {
	match := sqlFileRe.FindStringSubmatch(name)
	if match == nil {
		return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}

	version := match[1]
	if earlier, dup := versions[version]; dup {
		return fmt.Errorf("duplicate migration version %s in %q and %q", version, earlier, name)
	}
	versions[version] = name

	body, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read file %q: %w", name, err)
	}
	for _, directive := range requiredDirectives {
		if !strings.Contains(string(body), directive) {
			return fmt.Errorf("migration %q missing %q", name, directive)
		}
	}
	return nil
}
