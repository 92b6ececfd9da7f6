package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
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
		}
	}
	assert.Equal(t, ups, downs)
}

func TestInitialMigrationCarriesIntegrityConstraints(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.Contains(t, sql, "ux_trainer_matches_current_pair")
	assert.Contains(t, sql, "WHERE status <> 'ended'")
	assert.Contains(t, sql, "CHECK (stock_quantity >= 0)")
	assert.Contains(t, sql, "ux_roles_gym_name ON roles (gym_id, name)")
	assert.Contains(t, sql, "ux_users_email ON users (email)")
}

func TestApplySchemaIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, ApplySchema(conn))
	require.NoError(t, ApplySchema(conn))

	for _, table := range []string{"gyms", "roles", "users", "sessions", "trainer_matches", "product_categories", "products", "orders", "order_items", "audit_logs"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("trainer_matches", "ux_trainer_matches_current_pair"))
}

func TestStockCannotGoNegative(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, ApplySchema(conn))

	require.NoError(t, conn.Exec(
		`INSERT INTO products (id, gym_id, name, price, stock_quantity, is_active, created_at, updated_at)
		 VALUES (1, 1, 'Towel', 100, 1, true, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error)

	err = conn.Exec(`UPDATE products SET stock_quantity = stock_quantity - 2 WHERE id = 1`).Error
	assert.Error(t, err)
}
