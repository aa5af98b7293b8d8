// Package dbcheck applies generated scripts to a scratch database and reads
// back what the engine created. It backs the integration tests of the
// migration engine; the generator itself never connects to a database.
package dbcheck

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql" // driver: mysql
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"crudgen/internal/schema"
)

// DriverName returns the database/sql driver registered for d.
func DriverName(d schema.Dialect) string {
	switch d {
	case schema.Postgres:
		return "pgx"
	case schema.MySQL:
		return "mysql"
	case schema.SQLite:
		return "sqlite"
	}
	return ""
}

// Open connects to dsn with the driver of d and pings it.
func Open(ctx context.Context, d schema.Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName(d), dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if d == schema.SQLite {
		// an in-memory database lives as long as its only connection
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if d == schema.SQLite {
		if _, err := db.ExecContext(ctx, "pragma foreign_keys = on"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
