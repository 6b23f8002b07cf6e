package repositories

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations
var migrations embed.FS

// readMigrations returns the migration scripts in dir ordered by file name.
func readMigrations(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrations, "migrations/"+dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := "migrations/" + dir + "/" + entry.Name()
		b, err := fs.ReadFile(migrations, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", path, err)
		}
		scripts = append(scripts, string(b))
	}

	return scripts, nil
}
