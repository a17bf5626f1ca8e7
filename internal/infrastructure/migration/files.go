package migration

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/storepulse/backend/migrations"
)

// ListMigrations returns the base names of the up migrations in fsys, in version order.
func ListMigrations(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	names := make([]string, 0, len(ups))
	for _, name := range ups {
		names = append(names, strings.TrimSuffix(name, ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}

// Embedded lists the migrations compiled into the binary.
func Embedded() ([]string, error) {
	return ListMigrations(migrations.FS)
}
