package schema

import (
	"io"
	"log/slog"

	"crudgen/internal/dsl"
)

func quiet() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func idField(name, typ string) dsl.Field {
	return dsl.Field{Name: name, Type: dsl.ParseType(typ), ID: &dsl.Identifier{Strategy: dsl.StrategyAuto}}
}

func scalar(name, typ string) dsl.Field {
	return dsl.Field{Name: name, Type: dsl.ParseType(typ)}
}

func relation(name string, kind dsl.RelationKind, target string) dsl.Field {
	return dsl.Field{Name: name, Relation: &dsl.Relation{Kind: kind, Target: target}}
}

func entity(name string, fields ...dsl.Field) *dsl.Entity {
	return &dsl.Entity{Name: name, Fields: fields}
}

// shop is a small model exercising every relation kind.
func shop() []*dsl.Entity {
	orderItems := relation("items", dsl.OneToMany, "OrderItem")
	roles := relation("roles", dsl.ManyToMany, "Role")
	roles.Relation.JoinTable = "user_roles"
	status := dsl.Field{Name: "status", Type: dsl.Type{Kind: dsl.KindEnum, Raw: "Enum"}, Enum: []string{"NEW", "PAID"}}

	return []*dsl.Entity{
		entity("User", idField("id", "Long"), scalar("email", "String"), roles),
		entity("Role", idField("id", "Integer"), scalar("name", "String")),
		entity("Order", idField("id", "Long"), scalar("name", "String"), status, orderItems),
		entity("OrderItem", idField("id", "Long"), scalar("qty", "Integer")),
	}
}

func columnNames(t *TableDef) []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}
