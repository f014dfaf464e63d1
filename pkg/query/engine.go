package query

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ssargent/flightlog/pkg/index"
	"github.com/ssargent/flightlog/pkg/ulog"
)

// ctxCheckInterval is how many candidate records the iterator examines
// between context checks.
const ctxCheckInterval = 256

// SimpleQueryEngine answers requests from the columns of a decoded log,
// narrowing candidates with the indexes kept by an IndexManager.
type SimpleQueryEngine struct {
	indexManager *index.IndexManager
}

// NewSimpleQueryEngine creates a new query engine
func NewSimpleQueryEngine(indexManager *index.IndexManager) *SimpleQueryEngine {
	if indexManager == nil {
		indexManager = index.NewIndexManager(0)
	}
	return &SimpleQueryEngine{indexManager: indexManager}
}

// Execute validates req and returns an iterator over the matching rows in
// record order.
func (qe *SimpleQueryEngine) Execute(ctx context.Context, log *ulog.Log, req Request) (QueryIterator, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topic, err := log.Topic(req.Topic, req.Instance)
	if err != nil {
		return nil, err
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = topic.FieldNames()
	}
	selected := make([]*ulog.Column, len(fields))
	for i, f := range fields {
		if selected[i], err = topic.Column(f); err != nil {
			return nil, err
		}
	}

	where := make([]*ulog.Column, len(req.Where))
	for i, q := range req.Where {
		if where[i], err = topic.Column(q.Field); err != nil {
			return nil, err
		}
	}

	var timestamps []uint64
	if ts, err := topic.Timestamps(); err == nil {
		timestamps = ts
	} else if req.windowed() {
		return nil, fmt.Errorf("cannot apply time window: %w", err)
	}

	candidates, err := qe.candidates(topic, req)
	if err != nil {
		return nil, err
	}

	return &rowIterator{
		ctx:        ctx,
		req:        req,
		columns:    fields,
		selected:   selected,
		where:      where,
		timestamps: timestamps,
		candidates: candidates,
		n:          topic.Len(),
	}, nil
}

// candidates returns the record indices worth examining, ascending. nil
// means every record. The iterator still applies every condition.
func (qe *SimpleQueryEngine) candidates(topic *ulog.Topic, req Request) ([]int, error) {
	for _, q := range req.Where {
		lo, hi, ok := indexBounds(q)
		if !ok {
			continue
		}
		idx, err := qe.indexManager.GetOrCreateIndex(topic, q.Field)
		if err != nil {
			return nil, err
		}
		records, err := idx.SearchRange(lo, hi)
		if err != nil {
			return nil, fmt.Errorf("index search failed: %w", err)
		}
		return ascending(records), nil
	}

	if req.windowed() {
		idx, err := qe.indexManager.TimeIndex(topic)
		if err != nil {
			return nil, err
		}
		end := req.End
		if end == 0 {
			end = math.MaxUint64
		}
		return ascending(idx.Between(req.Start, end)), nil
	}
	return nil, nil
}

// ascending sorts records in place. The result is never nil so that an
// empty candidate set is not mistaken for "every record".
func ascending(records []int) []int {
	if records == nil {
		return []int{}
	}
	sort.Ints(records)
	return records
}

// indexBounds converts a condition to an inclusive index range. "!=" and
// NaN comparisons cannot be answered from a range.
func indexBounds(q FieldQuery) (lo, hi float64, ok bool) {
	if math.IsNaN(q.Value) {
		return 0, 0, false
	}
	switch q.Operator {
	case "=":
		return q.Value, q.Value, true
	case ">", ">=":
		return q.Value, math.Inf(1), true
	case "<", "<=":
		return math.Inf(-1), q.Value, true
	}
	return 0, 0, false
}

// rowIterator evaluates rows lazily as Next is called.
type rowIterator struct {
	ctx        context.Context
	req        Request
	columns    []string
	selected   []*ulog.Column
	where      []*ulog.Column
	timestamps []uint64
	candidates []int // nil means 0..n-1
	n          int

	pos     int
	emitted int
	current Row
	err     error
	closed  bool
}

func (it *rowIterator) Columns() []string {
	return it.columns
}

func (it *rowIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if it.req.Limit > 0 && it.emitted >= it.req.Limit {
		return false
	}

	for {
		record, ok := it.nextCandidate()
		if !ok {
			return false
		}
		if it.pos%ctxCheckInterval == 0 {
			if err := it.ctx.Err(); err != nil {
				it.err = err
				return false
			}
		}
		if !it.matches(record) {
			continue
		}

		row := Row{Index: record, Values: make([]any, len(it.selected))}
		if it.timestamps != nil {
			row.Timestamp = it.timestamps[record]
		}
		for i, c := range it.selected {
			row.Values[i] = c.Value(record)
		}
		it.current = row
		it.emitted++
		return true
	}
}

func (it *rowIterator) nextCandidate() (int, bool) {
	n := it.n
	if it.candidates != nil {
		n = len(it.candidates)
	}
	if it.pos >= n {
		return 0, false
	}
	record := it.pos
	if it.candidates != nil {
		record = it.candidates[it.pos]
	}
	it.pos++
	return record, true
}

func (it *rowIterator) matches(record int) bool {
	if it.timestamps != nil && it.req.windowed() {
		ts := it.timestamps[record]
		if ts < it.req.Start || (it.req.End != 0 && ts > it.req.End) {
			return false
		}
	}
	for i := range it.req.Where {
		if !it.req.Where[i].Match(it.where[i].Float64(record)) {
			return false
		}
	}
	return true
}

func (it *rowIterator) Result() Row {
	return it.current
}

func (it *rowIterator) Err() error {
	return it.err
}

func (it *rowIterator) Close() error {
	it.closed = true
	return nil
}

// Collect drains an iterator into a slice.
func Collect(it QueryIterator) ([]Row, error) {
	defer it.Close()

	var rows []Row
	for it.Next() {
		rows = append(rows, it.Result())
	}
	return rows, it.Err()
}
