package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const versionLayout = "20060102150405"

// CreateSQLMigration writes an empty goose migration named
// <dir>/<version>_<name>.sql and returns its path.
func CreateSQLMigration(dir string, name string) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(skeleton(slug)); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// migrationSlug lower-cases name and collapses every run of characters
// outside [a-z0-9] into a single underscore.
func migrationSlug(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	return strings.Join(words, "_")
}

func skeleton(slug string) string {
	var b strings.Builder
	for _, direction := range []string{"Up", "Down"} {
		b.WriteString("-- +goose " + direction + "\n")
		b.WriteString("-- +goose StatementBegin\n")
		b.WriteString("-- " + strings.ToLower(direction) + ": " + slug + "\n")
		b.WriteString("-- +goose StatementEnd\n\n")
	}
	return b.String()
}
