package dbcheck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// StatementError reports the statement a database rejected.
type StatementError struct {
	Index int
	SQL   string
	Code  string // SQLSTATE or server error number, when the driver exposes one
	Err   error
}

func (e *StatementError) Error() string {
	code := ""
	if e.Code != "" {
		code = " [" + e.Code + "]"
	}
	return fmt.Sprintf("statement %d%s: %v\n%s", e.Index+1, code, e.Err, e.SQL)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Apply executes statements one at a time, in order, and stops at the first
// failure.
func Apply(ctx context.Context, db *sql.DB, statements []string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return &StatementError{Index: i, SQL: stmt, Code: errorCode(err), Err: err}
		}
	}
	return nil
}

func errorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Sprintf("%d", myErr.Number)
	}
	return ""
}
