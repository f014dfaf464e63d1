package query

import (
	"bytes"
	"context"
	"testing"

	"github.com/ssargent/flightlog/internal/ulogtest"
	"github.com/ssargent/flightlog/pkg/index"
	"github.com/ssargent/flightlog/pkg/ulog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flightLog has 10 "gps" records at t=100..1000 with alt=t/10 and
// sats alternating 6,7, plus a timestamp-less "raw" topic.
func flightLog(t *testing.T) *ulog.Log {
	t.Helper()
	b := ulogtest.New(0).
		Format("gps:uint64_t timestamp;float alt;uint8_t sats;uint8_t[3] _padding0;").
		Format("raw:uint16_t v;").
		AddLogged(0, 1, "gps").
		AddLogged(0, 2, "raw")
	for i := 0; i < 10; i++ {
		ts := uint64(100 * (i + 1))
		b.Data(1, ulogtest.Record(ts, float32(ts/10), uint8(6+i%2), []byte{0, 0, 0}))
		b.Data(2, ulogtest.Record(uint16(i)))
	}
	log, err := ulog.Parse(bytes.NewReader(b.Bytes()), ulog.ParserConfig{})
	require.NoError(t, err)
	return log
}

func run(t *testing.T, log *ulog.Log, req Request) []Row {
	t.Helper()
	engine := NewSimpleQueryEngine(index.NewIndexManager(4))
	it, err := engine.Execute(context.Background(), log, req)
	require.NoError(t, err)
	rows, err := Collect(it)
	require.NoError(t, err)
	return rows
}

func indices(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Index
	}
	return out
}

func TestEngine_AllFields(t *testing.T) {
	log := flightLog(t)
	engine := NewSimpleQueryEngine(nil)

	it, err := engine.Execute(context.Background(), log, Request{Topic: "gps"})
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "alt", "sats"}, it.Columns())

	rows, err := Collect(it)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, Row{Index: 2, Timestamp: 300, Values: []any{uint64(300), float32(30), uint8(6)}}, rows[2])
}

func TestEngine_TimeWindow(t *testing.T) {
	log := flightLog(t)

	rows := run(t, log, Request{Topic: "gps", Fields: []string{"alt"}, Start: 250, End: 500})
	assert.Equal(t, []int{2, 3, 4}, indices(rows))
	assert.Equal(t, []any{float32(50)}, rows[2].Values)

	rows = run(t, log, Request{Topic: "gps", Start: 800})
	assert.Equal(t, []int{7, 8, 9}, indices(rows))

	rows = run(t, log, Request{Topic: "gps", Start: 2000})
	assert.Empty(t, rows)
}

func TestEngine_Where(t *testing.T) {
	log := flightLog(t)

	tests := []struct {
		name  string
		where []FieldQuery
		want  []int
	}{
		{"equality", []FieldQuery{{Field: "alt", Operator: "=", Value: 40}}, []int{3}},
		{"strict greater", []FieldQuery{{Field: "alt", Operator: ">", Value: 80}}, []int{8, 9}},
		{"less or equal", []FieldQuery{{Field: "alt", Operator: "<=", Value: 20}}, []int{0, 1}},
		{"not equal", []FieldQuery{{Field: "sats", Operator: "!=", Value: 6}}, []int{1, 3, 5, 7, 9}},
		{"conjunction", []FieldQuery{
			{Field: "sats", Operator: "=", Value: 7},
			{Field: "alt", Operator: ">=", Value: 40},
		}, []int{3, 5, 7, 9}},
		{"no match", []FieldQuery{{Field: "alt", Operator: "=", Value: 41}}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := run(t, log, Request{Topic: "gps", Where: tt.where})
			assert.Equal(t, tt.want, indices(rows))
		})
	}
}

func TestEngine_WhereWithWindowAndLimit(t *testing.T) {
	log := flightLog(t)

	rows := run(t, log, Request{
		Topic: "gps",
		Start: 200,
		End:   900,
		Where: []FieldQuery{{Field: "sats", Operator: "=", Value: 6}},
		Limit: 2,
	})
	assert.Equal(t, []int{2, 4}, indices(rows))
}

func TestEngine_NoTimestampTopic(t *testing.T) {
	log := flightLog(t)

	rows := run(t, log, Request{Topic: "raw", Where: []FieldQuery{{Field: "v", Operator: ">", Value: 6}}})
	assert.Equal(t, []int{7, 8, 9}, indices(rows))
	assert.Equal(t, uint64(0), rows[0].Timestamp)

	engine := NewSimpleQueryEngine(nil)
	_, err := engine.Execute(context.Background(), log, Request{Topic: "raw", Start: 1})
	assert.ErrorIs(t, err, ulog.ErrNoTimestamp)
}

func TestEngine_Errors(t *testing.T) {
	log := flightLog(t)
	engine := NewSimpleQueryEngine(nil)
	ctx := context.Background()

	_, err := engine.Execute(ctx, log, Request{Topic: "nope"})
	assert.ErrorIs(t, err, ulog.ErrTopicNotFound)

	_, err = engine.Execute(ctx, log, Request{Topic: "gps", Fields: []string{"speed"}})
	assert.ErrorIs(t, err, ulog.ErrFieldNotFound)

	_, err = engine.Execute(ctx, log, Request{Topic: "gps", Where: []FieldQuery{{Field: "speed", Operator: "=", Value: 1}}})
	assert.ErrorIs(t, err, ulog.ErrFieldNotFound)

	_, err = engine.Execute(ctx, log, Request{Topic: "gps", Start: 10, End: 5})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestEngine_Cancelled(t *testing.T) {
	log := flightLog(t)
	engine := NewSimpleQueryEngine(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Execute(ctx, log, Request{Topic: "gps"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_CloseStopsIteration(t *testing.T) {
	log := flightLog(t)
	engine := NewSimpleQueryEngine(nil)

	it, err := engine.Execute(context.Background(), log, Request{Topic: "gps"})
	require.NoError(t, err)
	require.True(t, it.Next())
	require.NoError(t, it.Close())
	assert.False(t, it.Next())
}
