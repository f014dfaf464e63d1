package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ssargent/flightlog/pkg/ulog"
)

// ErrInvalidQuery is wrapped by every validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// operators is ordered so that two-character operators are tried first.
var operators = []string{">=", "<=", "!=", "=", ">", "<"}

// FieldQuery represents a single field-based query condition
type FieldQuery struct {
	Field    string  // qualified field name, e.g. "altitude" or "esc[0].rpm"
	Operator string  // one of =, !=, >, <, >=, <=
	Value    float64 // compared against the field converted to float64
}

// ParseFieldQuery parses an expression such as "altitude>=10.5".
func ParseFieldQuery(expr string) (FieldQuery, error) {
	for _, op := range operators {
		field, value, ok := strings.Cut(expr, op)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return FieldQuery{}, fmt.Errorf("%w: value in %q: %v", ErrInvalidQuery, expr, err)
		}
		q := FieldQuery{Field: strings.TrimSpace(field), Operator: op, Value: v}
		return q, q.Validate()
	}
	return FieldQuery{}, fmt.Errorf("%w: no operator in %q", ErrInvalidQuery, expr)
}

// Validate checks if the query is properly formed
func (q *FieldQuery) Validate() error {
	if q.Field == "" {
		return fmt.Errorf("%w: field name cannot be empty", ErrInvalidQuery)
	}
	switch q.Operator {
	case "=", "!=", ">", "<", ">=", "<=":
		return nil
	case "":
		return fmt.Errorf("%w: operator cannot be empty", ErrInvalidQuery)
	}
	return fmt.Errorf("%w: invalid operator: %s", ErrInvalidQuery, q.Operator)
}

// Match reports whether v satisfies the condition.
func (q *FieldQuery) Match(v float64) bool {
	switch q.Operator {
	case "=":
		return v == q.Value
	case "!=":
		return v != q.Value
	case ">":
		return v > q.Value
	case "<":
		return v < q.Value
	case ">=":
		return v >= q.Value
	case "<=":
		return v <= q.Value
	}
	return false
}

func (q FieldQuery) String() string {
	return q.Field + q.Operator + strconv.FormatFloat(q.Value, 'g', -1, 64)
}

// Request selects rows from one topic instance.
type Request struct {
	Topic    string
	Instance uint8

	// Fields to return, in order. Empty means every field.
	Fields []string

	// Start and End bound the record timestamp, inclusive. End 0 means no
	// upper bound.
	Start uint64
	End   uint64

	// Where conditions are combined with AND.
	Where []FieldQuery

	// Limit caps the number of rows. 0 means no limit.
	Limit int
}

// Validate checks if the request is properly formed
func (r *Request) Validate() error {
	if r.Topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidQuery)
	}
	if r.End != 0 && r.End < r.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidQuery, r.End, r.Start)
	}
	if r.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	for i := range r.Where {
		if err := r.Where[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Request) windowed() bool {
	return r.Start != 0 || r.End != 0
}

// Row is one selected record.
type Row struct {
	Index     int    // record index within the topic
	Timestamp uint64 // 0 if the topic has no timestamp field
	Values    []any  // one per selected field, in Request.Fields order
}

// QueryIterator provides streaming access to query results
type QueryIterator interface {
	// Columns returns the selected field names.
	Columns() []string
	Next() bool
	Result() Row
	// Err returns the error that stopped iteration, if any.
	Err() error
	Close() error
}

// QueryEngine handles query execution
type QueryEngine interface {
	Execute(ctx context.Context, log *ulog.Log, req Request) (QueryIterator, error)
}
