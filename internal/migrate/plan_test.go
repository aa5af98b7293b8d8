package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudgen/internal/dsl"
	"crudgen/internal/schema"
)

// applied returns the manifest a plan would persist, as if it had been run.
func applied(t *testing.T, m *Manifest, s *schema.Schema) *Manifest {
	t.Helper()
	p := BuildPlan(m, s)
	require.NotNil(t, p.Manifest)
	return p.Manifest
}

func TestPlanNewEntity(t *testing.T) {
	p := BuildPlan(NewManifest(), synth(t, schema.Postgres, orderEntity()))

	assert.Equal(t, 1, p.Version)
	require.Len(t, p.Scripts, 1)
	sc := p.Scripts[0]
	assert.Equal(t, "V1__create_order.sql", sc.Name)
	require.Len(t, sc.Statements, 1)
	assert.Equal(t, "create table \"order\" (\n"+
		"    id bigint not null generated by default as identity,\n"+
		"    name varchar(255),\n"+
		"    primary key (id)\n"+
		")", sc.Statements[0].SQL)

	require.Len(t, p.Changes, 1)
	assert.Equal(t, StatusNew, p.Changes[0].Status)
	assert.Equal(t, 1, p.Manifest.LastScriptVersion)
	assert.Equal(t, "postgres", p.Manifest.Dialect)
	require.Len(t, p.Manifest.Entities, 1)
	assert.Equal(t, "order", p.Manifest.Entities[0].Table)
}

func TestPlanUnchangedIsEmpty(t *testing.T) {
	s := synth(t, schema.Postgres, orderEntity())
	m := applied(t, NewManifest(), s)

	p := BuildPlan(m, synth(t, schema.Postgres, orderEntity()))
	assert.True(t, p.Empty())
	assert.Nil(t, p.Manifest)
	assert.Equal(t, 0, p.Version)
	assert.Equal(t, StatusUnchanged, p.Changes[0].Status)
}

func TestPlanAdditiveColumn(t *testing.T) {
	m := applied(t, NewManifest(), synth(t, schema.Postgres, orderEntity()))

	p := BuildPlan(m, synth(t, schema.Postgres, orderEntity(scalar("note", "String"))))
	require.Len(t, p.Scripts, 1)
	assert.Equal(t, 2, p.Version)
	sc := p.Scripts[0]
	assert.Equal(t, "V2__alter_tables.sql", sc.Name)
	assert.Equal(t, StatusChanged, p.Changes[0].Status)

	sql := sc.SQL()
	require.Len(t, sql, 1)
	assert.Equal(t, `alter table "order" add column note varchar(255)`, sql[0])
	assert.Equal(t, 1, strings.Count(strings.ToLower(sc.Content(schema.Postgres)), "add column"))
	for _, stmt := range sql {
		assert.NotContains(t, stmt, " id ")
		assert.NotContains(t, stmt, "name")
	}
	assert.Equal(t, 2, p.Manifest.LastScriptVersion)
}

func TestPlanNonAdditiveChangesAreIssuesOnly(t *testing.T) {
	m := applied(t, NewManifest(), synth(t, schema.Postgres, orderEntity(scalar("note", "String"))))

	retyped := orderEntity()
	retyped.Fields[1] = scalar("name", "Long")
	p := BuildPlan(m, synth(t, schema.Postgres, retyped))

	assert.True(t, p.Empty())
	assert.Equal(t, StatusUnchanged, p.Changes[0].Status)
	codes := issueCodes(p.Issues)
	assert.Contains(t, codes, schema.CodeColumnRetyped)
	assert.Contains(t, codes, schema.CodeColumnRemoved)
}

func TestPlanRemovedEntityAndDialectChange(t *testing.T) {
	customer := &dsl.Entity{Name: "Customer", Fields: []dsl.Field{idField("id")}}
	m := applied(t, NewManifest(), synth(t, schema.Postgres, orderEntity(), customer))

	p := BuildPlan(m, synth(t, schema.Postgres, orderEntity()))
	assert.True(t, p.Empty())
	assert.Equal(t, []string{schema.CodeEntityRemoved}, issueCodes(p.Issues))

	p = BuildPlan(m, synth(t, schema.MySQL, orderEntity(), customer))
	assert.Contains(t, issueCodes(p.Issues), schema.CodeDialectChanged)
}

func TestPlanDefersForeignKeyToLaterTable(t *testing.T) {
	order := orderEntity(ref("customer", dsl.ManyToOne, "Customer"))
	customer := &dsl.Entity{Name: "Customer", Fields: []dsl.Field{idField("id")}}

	p := BuildPlan(NewManifest(), synth(t, schema.Postgres, order, customer))
	require.Len(t, p.Scripts, 2)
	assert.Equal(t, "V1__create_order.sql", p.Scripts[0].Name)
	assert.Equal(t, "V1__create_customer.sql", p.Scripts[1].Name)

	fk := `alter table "order" add constraint fk_order_customer_id foreign key (customer_id) references customer (id)`
	assert.NotContains(t, p.Scripts[0].SQL(), fk)
	assert.Equal(t, fk, p.Scripts[1].SQL()[len(p.Scripts[1].Statements)-1])
}

func TestPlanForeignKeyToEarlierTable(t *testing.T) {
	customer := &dsl.Entity{Name: "Customer", Fields: []dsl.Field{idField("id")}}
	order := orderEntity(ref("customer", dsl.ManyToOne, "Customer"))

	p := BuildPlan(NewManifest(), synth(t, schema.MySQL, customer, order))
	require.Len(t, p.Scripts, 2)
	sql := p.Scripts[1].SQL()
	assert.Contains(t, sql[0], "create table `order`")
	assert.Equal(t, "alter table `order` add constraint fk_order_customer_id foreign key (customer_id) references customer (id)", sql[1])
}

func TestPlanSQLiteInlinesForeignKeys(t *testing.T) {
	customer := &dsl.Entity{Name: "Customer", Fields: []dsl.Field{idField("id")}}
	order := orderEntity(ref("customer", dsl.ManyToOne, "Customer"))

	p := BuildPlan(NewManifest(), synth(t, schema.SQLite, customer, order))
	for _, sc := range p.Scripts {
		for _, stmt := range sc.SQL() {
			assert.NotContains(t, stmt, "alter table")
		}
	}
	assert.Contains(t, p.Scripts[1].SQL()[0], "constraint fk_order_customer_id foreign key (customer_id) references customer (id)")
}

func TestPlanJoinAndCollectionTablesFollowOwner(t *testing.T) {
	roles := ref("roles", dsl.ManyToMany, "Role")
	roles.Relation.JoinTable = "user_roles"
	user := &dsl.Entity{Name: "User", Fields: []dsl.Field{idField("id"), roles, scalar("nicknames", "List<String>")}}
	role := &dsl.Entity{Name: "Role", Fields: []dsl.Field{idField("id")}}

	p := BuildPlan(NewManifest(), synth(t, schema.Postgres, role, user))
	require.Len(t, p.Scripts, 2)
	sql := p.Scripts[1].SQL()
	require.Len(t, sql, 6)
	assert.True(t, strings.HasPrefix(sql[0], `create table "user"`))
	assert.True(t, strings.HasPrefix(sql[1], "create table user_roles"))
	assert.True(t, strings.HasPrefix(sql[2], "create table user_nicknames"))
	assert.Contains(t, sql[3], `alter table user_roles add constraint fk_user_roles_user_id foreign key (user_id) references "user" (id)`)
	assert.Contains(t, sql[4], "references role (id)")
	assert.Contains(t, sql[5], "alter table user_nicknames")
}

func TestPlanChangedEntityGainsJoinTable(t *testing.T) {
	role := &dsl.Entity{Name: "Role", Fields: []dsl.Field{idField("id")}}
	user := &dsl.Entity{Name: "User", Fields: []dsl.Field{idField("id")}}
	m := applied(t, NewManifest(), synth(t, schema.Postgres, role, user))

	roles := ref("roles", dsl.ManyToMany, "Role")
	roles.Relation.JoinTable = "user_roles"
	user = &dsl.Entity{Name: "User", Fields: []dsl.Field{idField("id"), roles}}
	p := BuildPlan(m, synth(t, schema.Postgres, role, user))

	require.Len(t, p.Scripts, 1)
	assert.Equal(t, "V2__alter_tables.sql", p.Scripts[0].Name)
	sql := p.Scripts[0].SQL()
	require.Len(t, sql, 3)
	assert.True(t, strings.HasPrefix(sql[0], "create table user_roles"))
	require.Len(t, p.Changes[1].Tables, 1)
	assert.True(t, p.Changes[1].Tables[0].Created)
}

func TestPlanReverseForeignKeyChangesChild(t *testing.T) {
	item := &dsl.Entity{Name: "OrderItem", Fields: []dsl.Field{idField("id")}}
	m := applied(t, NewManifest(), synth(t, schema.Postgres, orderEntity(), item))

	p := BuildPlan(m, synth(t, schema.Postgres, orderEntity(ref("items", dsl.OneToMany, "OrderItem")), item))
	assert.Equal(t, StatusUnchanged, p.Changes[0].Status)
	assert.Equal(t, StatusChanged, p.Changes[1].Status)
	assert.Equal(t, []string{
		"alter table order_item add column order_id bigint",
		`alter table order_item add constraint fk_order_item_order_id foreign key (order_id) references "order" (id)`,
	}, p.Scripts[0].SQL())
}

func TestPlanAlterIsGroupedByTable(t *testing.T) {
	item := &dsl.Entity{Name: "OrderItem", Fields: []dsl.Field{idField("id")}}
	m := applied(t, NewManifest(), synth(t, schema.SQLServer, orderEntity(), item))

	item2 := &dsl.Entity{Name: "OrderItem", Fields: []dsl.Field{idField("id"), scalar("qty", "Integer")}}
	p := BuildPlan(m, synth(t, schema.SQLServer, orderEntity(scalar("note", "String"), scalar("paid", "Boolean")), item2))
	assert.Equal(t, []string{
		`alter table [order] add note varchar(255)`,
		`alter table [order] add paid bit`,
		`alter table order_item add qty int`,
	}, p.Scripts[0].SQL())
}

func TestPlanCreateScriptLayout(t *testing.T) {
	f := idField("id")
	f.ID.Strategy = dsl.StrategySequence
	status := dsl.Field{Name: "status", Type: dsl.Type{Kind: dsl.KindEnum}, Enum: []string{"NEW", "PAID"}}
	e := &dsl.Entity{Name: "Invoice", Fields: []dsl.Field{f, status}}
	s, err := schema.Synthesize([]*dsl.Entity{e}, schema.Postgres, schema.Options{Audit: true, OptimisticLock: true, Logger: quiet().Logger})
	require.NoError(t, err)

	p := BuildPlan(NewManifest(), s)
	content := p.Scripts[0].Content(schema.Postgres)
	assert.Equal(t, `-- V1__create_invoice.sql
-- dialect: postgres

create sequence if not exists invoice_id_seq start with 1 increment by 1;

create table invoice (
    id bigint not null default nextval('invoice_id_seq'),
    status varchar(255),
    version bigint not null default 0,
    created_at timestamp with time zone not null default current_timestamp,
    updated_at timestamp with time zone not null default current_timestamp,
    primary key (id),
    constraint ck_invoice_status check (status in ('NEW', 'PAID'))
);
-- audit columns: created_at, updated_at
-- optimistic locking column: version
`, content)
}

func issueCodes(issues []schema.Issue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func TestPlanUniqueKeyOverExistingAndNewColumn(t *testing.T) {
	keyed := func(extra ...dsl.Field) *dsl.Entity {
		e := orderEntity(extra...)
		if len(extra) > 0 {
			e.Unique = [][]string{{"name", "code"}}
		}
		return e
	}

	for d, want := range map[schema.Dialect]string{
		schema.Postgres: `alter table "order" add constraint uk_order_name_code unique (name, code)`,
		schema.SQLite:   `create unique index uk_order_name_code on "order" (name, code)`,
	} {
		t.Run(d.String(), func(t *testing.T) {
			m := applied(t, NewManifest(), synth(t, d, keyed()))

			p := BuildPlan(m, synth(t, d, keyed(scalar("code", "String"))))
			require.Len(t, p.Scripts, 1)
			sql := p.Scripts[0].SQL()
			require.Len(t, sql, 2)
			assert.Equal(t, `alter table "order" add column code varchar(255)`, sql[0])
			assert.Equal(t, want, sql[1])
			assert.NotContains(t, issueCodes(p.Issues), schema.CodeConstraintChanged)

			// once applied, the key is part of the snapshot and nothing is re-emitted
			next := BuildPlan(p.Manifest, synth(t, d, keyed(scalar("code", "String"))))
			assert.True(t, next.Empty())
		})
	}
}
