package cmd

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/ssargent/flightlog/internal/ulogtest"
	"github.com/ssargent/flightlog/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag of c and its children back to its default so
// commands can be executed more than once in a test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// testEnv isolates HOME and writes a config whose catalog lives in a
// temporary directory.
type testEnv struct {
	dir        string
	configPath string
	catalogDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	env := testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "flightlog.yaml"),
		catalogDir: filepath.Join(dir, "catalog"),
	}
	settings := config.DefaultConfig()
	settings.Catalog.Dir = env.catalogDir
	settings.Logging.Level = "error"
	require.NoError(t, config.SaveConfig(settings, env.configPath))
	return env
}

// run executes a command against the environment's config file.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommand(t, append(args, "--config", e.configPath)...)
}

// writeFlight writes a small log: vehicle_status nav_state goes 0,0,3 and
// baro logs a NaN then 42.5.
func writeFlight(t *testing.T, dir string) string {
	t.Helper()
	data := ulogtest.New(1000).
		Info("char[6]", "sys_name", "PX4v6x").
		Info("uint32_t", "ver_sw_release", uint32(0x010e00ff)).
		Param("int32_t", "SYS_AUTOSTART", int32(4001)).
		Param("float", "MPC_XY_VEL_MAX", float32(10)).
		Format("vehicle_status:uint64_t timestamp;uint8_t nav_state;uint8_t[7] _padding0;").
		Format("baro:uint64_t timestamp;float alt;").
		AddLogged(0, 1, "vehicle_status").
		AddLogged(0, 2, "baro").
		Data(1, ulogtest.Record(uint64(1000), uint8(0), make([]byte, 7))).
		Data(2, ulogtest.Record(uint64(1500), float32(math.NaN()))).
		Data(1, ulogtest.Record(uint64(2000), uint8(0), make([]byte, 7))).
		Logging('6', 2500, "Armed by RC").
		Logging('3', 2600, "Baro sensor timeout").
		Param("float", "MPC_XY_VEL_MAX", float32(12)).
		Data(1, ulogtest.Record(uint64(3000), uint8(3), make([]byte, 7))).
		Data(2, ulogtest.Record(uint64(3500), float32(42.5))).
		Bytes()

	path := filepath.Join(dir, "flight.ulg")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// writeOrphanFlight writes a log with data for a msg id nobody subscribed.
func writeOrphanFlight(t *testing.T, dir string) string {
	t.Helper()
	data := ulogtest.New(0).
		Format("baro:uint64_t timestamp;float alt;").
		AddLogged(0, 1, "baro").
		Data(1, ulogtest.Record(uint64(100), float32(1))).
		Data(7, ulogtest.Record(uint64(200), float32(2))).
		Bytes()

	path := filepath.Join(dir, "orphan.ulg")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults without config file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		_, err := executeCommand(t, "info", "missing.ulg")
		require.Error(t, err)
		assert.Equal(t, "table", cfg.Output.Format)
		assert.Equal(t, "./catalog", cfg.Catalog.Dir)
	})

	t.Run("flags override config", func(t *testing.T) {
		env := newTestEnv(t)
		path := writeFlight(t, env.dir)
		_, err := env.run(t, "info", path, "--format", "json", "--filter", "baro", "--strict")
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.Output.Format)
		assert.Equal(t, []string{"baro"}, cfg.Parser.MessageFilter)
		assert.True(t, cfg.Parser.Strict)
		assert.Equal(t, env.catalogDir, cfg.Catalog.Dir)
	})

	t.Run("invalid format", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.run(t, "info", "x.ulg", "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid output format")
	})

	t.Run("missing config file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		_, err := executeCommand(t, "info", "x.ulg", "--config", "/nonexistent/flightlog.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})
}

func TestStrictMode(t *testing.T) {
	env := newTestEnv(t)
	path := writeOrphanFlight(t, env.dir)

	out, err := env.run(t, "topics", path)
	require.NoError(t, err)
	assert.Contains(t, out, "baro")

	_, err = env.run(t, "topics", path, "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoded with warnings")
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := newLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, l)
	}

	_, err := newLogger("loud")
	assert.Error(t, err)
}
