package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudgen/internal/dsl"
)

func TestKindTypeIsTotal(t *testing.T) {
	for _, d := range Dialects {
		for k := dsl.KindUnknown; k < dsl.NumKinds; k++ {
			assert.NotEmpty(t, d.KindType(k, 0), "%s has no type for %s", d, k)
		}
	}
}

func TestKindTypeLength(t *testing.T) {
	assert.Equal(t, "varchar(255)", Postgres.KindType(dsl.KindString, 0))
	assert.Equal(t, "varchar(40)", MySQL.KindType(dsl.KindString, 40))
	assert.Equal(t, "varchar(12)", SQLServer.KindType(dsl.KindEnum, 12))
	assert.Equal(t, "bigint", Postgres.KindType(dsl.NumKinds+3, 0))
}

func TestColumnTypes(t *testing.T) {
	tests := []struct {
		typ  string
		want map[Dialect]string
	}{
		{"Instant", map[Dialect]string{Postgres: "timestamp with time zone", MySQL: "datetime(6)", SQLite: "timestamp", SQLServer: "datetimeoffset"}},
		{"UUID", map[Dialect]string{Postgres: "uuid", MySQL: "binary(16)", SQLite: "char(36)", SQLServer: "uniqueidentifier"}},
		{"Json<Address>", map[Dialect]string{Postgres: "jsonb", MySQL: "json", SQLite: "text", SQLServer: "nvarchar(max)"}},
		{"Boolean", map[Dialect]string{Postgres: "boolean", MySQL: "boolean", SQLite: "boolean", SQLServer: "bit"}},
		{"Money", map[Dialect]string{Postgres: "numeric(21,2)", MySQL: "decimal(21,2)", SQLite: "decimal(21,2)", SQLServer: "decimal(21,2)"}},
		{"Geometry", map[Dialect]string{Postgres: "bigint", MySQL: "bigint", SQLite: "integer", SQLServer: "bigint"}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			f := scalar("x", tt.typ)
			for d, want := range tt.want {
				assert.Equal(t, want, d.ColumnType(f), d.String())
			}
		})
	}
}

func TestIdentityClause(t *testing.T) {
	auto := &dsl.Identifier{Strategy: dsl.StrategyAuto}
	seq := &dsl.Identifier{Strategy: dsl.StrategySequence}
	named := &dsl.Identifier{Strategy: dsl.StrategySequence, Sequence: "order_seq"}
	table := &dsl.Identifier{Strategy: dsl.StrategyTable}

	assert.Equal(t, "generated by default as identity", Postgres.IdentityClause(auto, "orders", "id"))
	assert.Equal(t, "default nextval('orders_id_seq')", Postgres.IdentityClause(seq, "orders", "id"))
	assert.Equal(t, "default nextval('order_seq')", Postgres.IdentityClause(named, "orders", "id"))
	assert.Equal(t, "default next value for orders_id_seq", SQLServer.IdentityClause(seq, "orders", "id"))
	assert.Equal(t, "auto_increment", MySQL.IdentityClause(seq, "orders", "id"))
	assert.Equal(t, "identity(1,1)", SQLServer.IdentityClause(auto, "orders", "id"))
	assert.Empty(t, SQLite.IdentityClause(auto, "orders", "id"))
	for _, d := range Dialects {
		assert.Empty(t, d.IdentityClause(table, "orders", "id"), d.String())
		assert.Empty(t, d.IdentityClause(nil, "orders", "id"), d.String())
	}
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"postgres": Postgres, "PostgreSQL": Postgres, "mysql": MySQL,
		"sqlite3": SQLite, " mssql ": SQLServer,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDialect("oracle")
	assert.Error(t, err)

	var d Dialect
	require.NoError(t, d.UnmarshalText([]byte("sqlserver")))
	assert.Equal(t, SQLServer, d)
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", string(b))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"order"`, Postgres.Quote("order"))
	assert.Equal(t, "`order`", MySQL.Quote("order"))
	assert.Equal(t, "[user]", SQLServer.Quote("user"))
	assert.Equal(t, "order_item", Postgres.Quote("order_item"))
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "order_item", TableName(&dsl.Entity{Name: "OrderItem"}))
	assert.Equal(t, "items", TableName(&dsl.Entity{Name: "OrderItem", Table: " items "}))
	assert.Equal(t, "order_id", fkColumnName("OrderEntity"))
	assert.Equal(t, "entity_id", fkColumnName("Entity"))
	assert.Equal(t, "created_by", ColumnName(scalar("createdBy", "String")))

	long := ConstraintName("fk", "a_really_long_table_name_for_testing", "another_really_long_column_name")
	assert.LessOrEqual(t, len(long), maxIdentLen)
	assert.Equal(t, long, ConstraintName("fk", "a_really_long_table_name_for_testing", "another_really_long_column_name"))
}
