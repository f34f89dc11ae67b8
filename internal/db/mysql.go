package db

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Aurora MySQL is the engine the serverless cluster runs; this dialect lets
// the same runner talk to a local MySQL over the wire protocol.
var mysqlDialect = dialect{
	name:        "mysql",
	driver:      "mysql",
	placeholder: questionMark,
	isStatementErr: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me)
	},
}

func validateMySQLDSN(dsn string) error {
	_, err := mysql.ParseDSN(dsn)
	return err
}
