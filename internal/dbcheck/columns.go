package dbcheck

import (
	"context"
	"database/sql"
	"fmt"

	"crudgen/internal/schema"
)

// Column is a column as reported by the database catalog.
type Column struct {
	Name     string
	Nullable bool
}

// Columns lists the columns of table in ordinal order.
func Columns(ctx context.Context, db *sql.DB, d schema.Dialect, table string) ([]Column, error) {
	switch d {
	case schema.SQLite:
		return sqliteColumns(ctx, db, table)
	case schema.Postgres:
		return catalogColumns(ctx, db, `select column_name, is_nullable from information_schema.columns
			where table_schema = current_schema() and table_name = $1 order by ordinal_position`, table)
	case schema.MySQL:
		return catalogColumns(ctx, db, `select column_name, is_nullable from information_schema.columns
			where table_schema = database() and table_name = ? order by ordinal_position`, table)
	}
	return nil, fmt.Errorf("dbcheck: no catalog query for %s", d)
}

func catalogColumns(ctx context.Context, db *sql.DB, query, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var name, nullable string
		if err := rows.Scan(&name, &nullable); err != nil {
			return nil, err
		}
		out = append(out, Column{Name: name, Nullable: nullable == "YES"})
	}
	return out, rows.Err()
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, "select name, \"notnull\" from pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var (
			name    string
			notNull int
		)
		if err := rows.Scan(&name, &notNull); err != nil {
			return nil, err
		}
		out = append(out, Column{Name: name, Nullable: notNull == 0})
	}
	return out, rows.Err()
}

// ColumnNames is Columns without the nullability.
func ColumnNames(ctx context.Context, db *sql.DB, d schema.Dialect, table string) ([]string, error) {
	cols, err := Columns(ctx, db, d, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}
