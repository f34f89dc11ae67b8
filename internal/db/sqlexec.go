package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type dialect struct {
	name           string
	driver         string
	placeholder    func(n int) string
	isStatementErr func(err error) bool
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLExecutor runs statements over a database/sql handle. Transactions are
// addressed by generated ids so callers see the same contract as the Data API.
type SQLExecutor struct {
	db      *sql.DB
	dialect dialect

	mu  sync.Mutex
	txs map[string]*sql.Tx
}

func newSQLExecutor(db *sql.DB, d dialect) *SQLExecutor {
	return &SQLExecutor{db: db, dialect: d, txs: map[string]*sql.Tx{}}
}

// OpenSQL opens a direct connection for one of the mysql, postgres or sqlite
// providers.
func OpenSQL(provider, dsn string) (*SQLExecutor, error) {
	var d dialect
	switch strings.ToLower(provider) {
	case "mysql":
		// Validate DSN early to provide actionable errors.
		if err := validateMySQLDSN(dsn); err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		d = mysqlDialect
	case "postgres":
		d = postgresDialect
	case "sqlite":
		d = sqliteDialect
	default:
		return nil, fmt.Errorf("unsupported provider %s", provider)
	}
	handle, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}
	handle.SetConnMaxIdleTime(5 * time.Minute)
	handle.SetMaxOpenConns(5)
	return newSQLExecutor(handle, d), nil
}

func (e *SQLExecutor) Close() error { return e.db.Close() }

func (e *SQLExecutor) Execute(ctx context.Context, sqlText string, params []Param, txID string) (*Result, error) {
	query, args, err := bindNamed(sqlText, params, e.dialect.placeholder)
	if err != nil {
		return nil, &StatementError{SQL: sqlText, Err: err}
	}

	var q queryer = e.db
	if txID != "" {
		tx, err := e.lookup(txID)
		if err != nil {
			return nil, err
		}
		q = tx
	}

	if !returnsRows(query) {
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return nil, e.classify(sqlText, err)
		}
		return &Result{}, nil
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, e.classify(sqlText, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make([]Value, len(cols))
		for i, v := range raw {
			rec[i] = valueOf(v)
		}
		res.Records = append(res.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, e.classify(sqlText, err)
	}
	return res, nil
}

func (e *SQLExecutor) BeginTransaction(ctx context.Context) (string, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin %s tx: %w", e.dialect.name, err)
	}
	id := uuid.NewString()
	e.mu.Lock()
	e.txs[id] = tx
	e.mu.Unlock()
	return id, nil
}

func (e *SQLExecutor) CommitTransaction(ctx context.Context, txID string) error {
	tx, err := e.take(txID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (e *SQLExecutor) RollbackTransaction(ctx context.Context, txID string) error {
	tx, err := e.take(txID)
	if err != nil {
		return err
	}
	return tx.Rollback()
}

func (e *SQLExecutor) lookup(txID string) (*sql.Tx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, ok := e.txs[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	return tx, nil
}

func (e *SQLExecutor) take(txID string) (*sql.Tx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, ok := e.txs[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, txID)
	}
	delete(e.txs, txID)
	return tx, nil
}

func (e *SQLExecutor) classify(sqlText string, err error) error {
	if e.dialect.isStatementErr(err) {
		return &StatementError{SQL: sqlText, Err: err}
	}
	return err
}

// returnsRows decides between QueryContext and ExecContext from the leading
// keyword, since not every driver accepts DDL through Query.
func returnsRows(query string) bool {
	trimmed := strings.TrimLeft(query, " \t\r\n(")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "VALUES", "DESCRIBE", "DESC", "TABLE":
		return true
	}
	return strings.Contains(strings.ToUpper(trimmed), " RETURNING ")
}

func valueOf(v any) Value {
	switch v := v.(type) {
	case nil:
		return NullValue()
	case int64:
		return LongValue(v)
	case int32:
		return LongValue(int64(v))
	case int:
		return LongValue(int64(v))
	case float64:
		return DoubleValue(v)
	case float32:
		return DoubleValue(float64(v))
	case bool:
		return BoolValue(v)
	case []byte:
		// mysql hands back text columns as raw bytes
		return StringValue(string(v))
	case string:
		return StringValue(v)
	case time.Time:
		return StringValue(v.UTC().Format("2006-01-02 15:04:05.999999"))
	default:
		return StringValue(fmt.Sprint(v))
	}
}
