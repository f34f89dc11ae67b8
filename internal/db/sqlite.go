package db

import (
	"errors"

	"modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name:        "sqlite",
	driver:      "sqlite",
	placeholder: questionMark,
	isStatementErr: func(err error) bool {
		var se *sqlite.Error
		return errors.As(err, &se)
	},
}
