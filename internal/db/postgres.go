package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = dialect{
	name:        "postgres",
	driver:      "pgx",
	placeholder: dollarN,
	isStatementErr: func(err error) bool {
		var pe *pgconn.PgError
		return errors.As(err, &pe)
	},
}
