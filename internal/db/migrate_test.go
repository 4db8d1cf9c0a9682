package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", name)
		}
	}
	require.Equal(t, ups, downs)
}

func TestMigrationsCreateStoreTables(t *testing.T) {
	var all strings.Builder
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return err
		}
		b, err := migrationsFS.ReadFile(path)
		all.Write(b)
		return err
	})
	require.NoError(t, err)
	for _, table := range []string{"users", "roles", "user_roles", "refresh_tokens", "categories", "products", "carts", "cart_items", "orders", "order_items", "payments"} {
		require.Contains(t, all.String(), "CREATE TABLE "+table+" (", table)
	}
}

func TestDownMigrationsDropEveryTable(t *testing.T) {
	var ups, downs strings.Builder
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := migrationsFS.ReadFile(path)
		if strings.HasSuffix(path, ".down.sql") {
			downs.Write(b)
		} else {
			ups.Write(b)
		}
		return err
	})
	require.NoError(t, err)

	for _, line := range strings.Split(ups.String(), "\n") {
		rest, ok := strings.CutPrefix(line, "CREATE TABLE ")
		if !ok {
			continue
		}
		table := strings.Fields(rest)[0]
		require.Contains(t, downs.String(), "DROP TABLE IF EXISTS "+table, table)
	}
}
