package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"crudgen/internal/dbcheck"
	"crudgen/internal/dsl"
	"crudgen/internal/schema"
)

// storefront returns the model of one generation; later generations only
// add nullable fields so every step stays applicable to a populated database.
func storefront(generation int) []*dsl.Entity {
	status := dsl.Field{Name: "status", Type: dsl.Type{Kind: dsl.KindEnum}, Enum: []string{"NEW", "PAID"}}
	roles := ref("roles", dsl.ManyToMany, "Role")
	roles.Relation.JoinTable = "user_roles"

	customer := &dsl.Entity{Name: "Customer", Fields: []dsl.Field{idField("id"), scalar("email", "String")}}
	order := &dsl.Entity{Name: "Order", Fields: []dsl.Field{
		idField("id"), scalar("name", "String"), status,
		ref("customer", dsl.ManyToOne, "Customer"),
		ref("items", dsl.OneToMany, "OrderItem"),
	}}
	item := &dsl.Entity{Name: "OrderItem", Fields: []dsl.Field{idField("id"), scalar("qty", "Integer")}}
	role := &dsl.Entity{Name: "Role", Fields: []dsl.Field{idField("id"), scalar("name", "String")}}
	user := &dsl.Entity{Name: "User", Fields: []dsl.Field{idField("id"), roles, scalar("nicknames", "Set<String>")}}

	if generation > 1 {
		order.Fields = append(order.Fields, scalar("note", "String"), scalar("paidAt", "Instant"))
		item.Fields = append(item.Fields, ref("replaces", dsl.ManyToOne, "OrderItem"))
		customer.Fields = append(customer.Fields, scalar("tags", "List<String>"))
	}
	return []*dsl.Entity{order, customer, item, role, user}
}

func migrateAndVerify(t *testing.T, d schema.Dialect, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	for gen := 1; gen <= 2; gen++ {
		rep, err := Generate(storefront(gen), d, root, quiet())
		require.NoError(t, err)
		require.Equal(t, gen, rep.Version)
		for _, sc := range rep.Scripts {
			require.NoError(t, dbcheck.Apply(ctx, db, sc.Statements), sc.Name)
		}
	}

	rep, err := Generate(storefront(2), d, root, quiet())
	require.NoError(t, err)
	assert.Equal(t, StateClean, rep.State)

	cols, err := dbcheck.ColumnNames(ctx, db, d, "order")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "status", "customer_id", "note", "paid_at"}, cols)

	cols, err = dbcheck.ColumnNames(ctx, db, d, "order_item")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "qty", "order_id", "order_item_id"}, cols)

	cols, err = dbcheck.ColumnNames(ctx, db, d, "user_roles")
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id", "role_id"}, cols)

	cols, err = dbcheck.ColumnNames(ctx, db, d, "customer_tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "tags", "tags_order"}, cols)

	// the enum check constraint is live
	r := Renderer{Dialect: d}
	_, err = db.ExecContext(ctx, "insert into "+r.q("order")+" (name, status) values ('x', 'LOST')")
	assert.Error(t, err)
	_, err = db.ExecContext(ctx, "insert into "+r.q("order")+" (name, status) values ('x', 'PAID')")
	assert.NoError(t, err)
}

func TestMigrationsApplySQLite(t *testing.T) {
	db, err := dbcheck.Open(context.Background(), schema.SQLite, filepath.Join(t.TempDir(), "crudgen.db"))
	require.NoError(t, err)
	defer db.Close()

	migrateAndVerify(t, schema.SQLite, db)
}

func TestMigrationsApplyPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("crudgen"),
		postgres.WithUsername("crudgen"),
		postgres.WithPassword("crudgen"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := dbcheck.Open(ctx, schema.Postgres, connStr)
	require.NoError(t, err)
	defer db.Close()

	migrateAndVerify(t, schema.Postgres, db)
}

func TestMigrationsApplyMySQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MySQL integration test in short mode")
	}
	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx,
		"mysql:8.4",
		mysql.WithDatabase("crudgen"),
		mysql.WithUsername("crudgen"),
		mysql.WithPassword("crudgen"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	defer func() {
		if err := mysqlContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	connStr, err := mysqlContainer.ConnectionString(ctx)
	require.NoError(t, err)
	db, err := dbcheck.Open(ctx, schema.MySQL, connStr)
	require.NoError(t, err)
	defer db.Close()

	migrateAndVerify(t, schema.MySQL, db)
}
