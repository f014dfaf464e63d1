package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ssargent/flightlog/pkg/query"
	"github.com/ssargent/flightlog/pkg/ulog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowsJSON struct {
	Columns []string    `json:"columns"`
	Rows    []rowOutput `json:"rows"`
}

func TestDumpCommand(t *testing.T) {
	env := newTestEnv(t)
	path := writeFlight(t, env.dir)

	t.Run("all records as table", func(t *testing.T) {
		out, err := env.run(t, "dump", path, "vehicle_status")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, []string{"#", "timestamp", "nav_state"}, strings.Fields(lines[0]))
		assert.Equal(t, []string{"2", "3000", "3"}, strings.Fields(lines[3]))
	})

	t.Run("fields window and where", func(t *testing.T) {
		out, err := env.run(t, "dump", path, "vehicle_status",
			"--fields", "nav_state", "--start", "1500", "--where", "nav_state>=0", "--format", "json")
		require.NoError(t, err)

		var got rowsJSON
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, []string{"nav_state"}, got.Columns)
		require.Len(t, got.Rows, 2)
		assert.Equal(t, 1, got.Rows[0].Index)
		assert.Equal(t, uint64(3000), got.Rows[1].Timestamp)
		assert.Equal(t, []any{float64(3)}, got.Rows[1].Values)
	})

	t.Run("NaN becomes null", func(t *testing.T) {
		out, err := env.run(t, "dump", path, "baro", "--format", "json", "--limit", "1")
		require.NoError(t, err)

		var got rowsJSON
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got.Rows, 1)
		assert.Nil(t, got.Rows[0].Values[1])
	})

	t.Run("unknown topic", func(t *testing.T) {
		_, err := env.run(t, "dump", path, "airspeed")
		assert.ErrorIs(t, err, ulog.ErrTopicNotFound)
	})

	t.Run("bad where", func(t *testing.T) {
		_, err := env.run(t, "dump", path, "baro", "--where", "alt~3")
		assert.ErrorIs(t, err, query.ErrInvalidQuery)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := env.run(t, "dump", path, "baro", "--start", "5000", "--end", "10")
		assert.ErrorIs(t, err, query.ErrInvalidQuery)
	})
}

func TestChangesCommand(t *testing.T) {
	env := newTestEnv(t)
	path := writeFlight(t, env.dir)

	out, err := env.run(t, "changes", path, "vehicle_status", "nav_state", "--format", "json")
	require.NoError(t, err)
	var got []sampleOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 2, got[1].Index)
	assert.Equal(t, uint64(3000), got[1].Timestamp)
	assert.EqualValues(t, 3, got[1].Value)

	out, err = env.run(t, "changes", path, "vehicle_status", "nav_state")
	require.NoError(t, err)
	assert.Contains(t, out, "nav_state")
	assert.Contains(t, out, "3ms")

	_, err = env.run(t, "changes", path, "vehicle_status", "arming_state")
	assert.ErrorIs(t, err, ulog.ErrFieldNotFound)

	_, err = env.run(t, "changes", path, "vehicle_status", "nav_state", "--instance", "1")
	assert.ErrorIs(t, err, ulog.ErrTopicNotFound)
}
