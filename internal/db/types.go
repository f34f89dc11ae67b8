package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Executor sends single SQL statements to the database execution endpoint.
// An empty txID runs the statement outside any transaction.
type Executor interface {
	Execute(ctx context.Context, sql string, params []Param, txID string) (*Result, error)
	BeginTransaction(ctx context.Context) (string, error)
	CommitTransaction(ctx context.Context, txID string) error
	RollbackTransaction(ctx context.Context, txID string) error
}

// ExecCloser is an Executor owning resources that must be released.
type ExecCloser interface {
	Executor
	io.Closer
}

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Kind tags the type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindLong
	KindDouble
	KindBool
	KindBlob
)

// Value is one typed column value, mirroring the Data API field union.
type Value struct {
	Kind   Kind
	Str    string
	Long   int64
	Double float64
	Bool   bool
	Blob   []byte
}

func NullValue() Value            { return Value{Kind: KindNull} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func LongValue(n int64) Value     { return Value{Kind: KindLong, Long: n} }
func DoubleValue(f float64) Value { return Value{Kind: KindDouble, Double: f} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func BlobValue(b []byte) Value    { return Value{Kind: KindBlob, Blob: b} }
func (v Value) IsNull() bool      { return v.Kind == KindNull }

// Native returns the value as a plain Go type (nil for NULL).
func (v Value) Native() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindLong:
		return v.Long
	case KindDouble:
		return v.Double
	case KindBool:
		return v.Bool
	case KindBlob:
		return v.Blob
	default:
		return nil
	}
}

func (v Value) String() string {
	if v.Kind == KindNull {
		return "NULL"
	}
	return fmt.Sprint(v.Native())
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// Param is a named, typed statement parameter referenced as :name in SQL text.
type Param struct {
	Name  string
	Value Value
}

// Result holds the records returned by one statement.
type Result struct {
	Records [][]Value
}

// Rows converts the records into native Go values.
func (r *Result) Rows() [][]any {
	if r == nil {
		return nil
	}
	out := make([][]any, 0, len(r.Records))
	for _, rec := range r.Records {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v.Native()
		}
		out = append(out, row)
	}
	return out
}
