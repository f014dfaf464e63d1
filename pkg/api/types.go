package api

//go:generate mockgen -destination=./mock_service.go -package=api . ILogService

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssargent/flightlog/pkg/catalog"
	"github.com/ssargent/flightlog/pkg/query"
	"github.com/ssargent/flightlog/pkg/ulog"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // empty disables authentication

	// Gatherer backs /metrics. nil means the default registry.
	Gatherer prometheus.Gatherer

	// ShutdownTimeout bounds graceful shutdown. 0 means 10 seconds.
	ShutdownTimeout time.Duration

	// AllowedRoots limits the directories POST /logs may read from.
	// Empty allows any path the server can read.
	AllowedRoots []string
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// checkPath reports whether path resolves to a file under one of the
// allowed roots. Symlinks are followed on both sides.
func (c ServerConfig) checkPath(path string) error {
	if len(c.AllowedRoots) == 0 {
		return nil
	}
	target, err := resolvePath(path)
	if err != nil {
		return err
	}
	for _, root := range c.AllowedRoots {
		dir, err := resolvePath(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(dir, target)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
}

func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (c ServerConfig) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ShutdownTimeout
}

// LoadRequest is the body of a log load request.
type LoadRequest struct {
	Path string `json:"path"`
	// Catalog also records the log in the catalog, so that it can be
	// reopened by id after a restart.
	Catalog bool `json:"catalog"`
}

// LoadedLog is a parsed log held in memory by the service.
type LoadedLog struct {
	ID    string
	Entry catalog.Entry
	Log   *ulog.Log
}

// ILogService defines the log operations the API serves
type ILogService interface {
	Load(ctx context.Context, path string, persist bool) (*LoadedLog, error)
	Get(ctx context.Context, id string) (*LoadedLog, error)
	List() ([]catalog.Entry, error)
	Unload(id string) error
	Delete(id string) error
	Query(ctx context.Context, id string, req query.Request) (query.QueryIterator, error)
	Close() error
}

// InfoResponse describes the header and info messages of a log.
type InfoResponse struct {
	FileVersion     uint8          `json:"file_version"`
	StartTimestamp  uint64         `json:"start_timestamp"`
	LastTimestamp   uint64         `json:"last_timestamp"`
	SoftwareVersion string         `json:"software_version,omitempty"`
	Info            map[string]any `json:"info"`
	Stats           ulog.Stats     `json:"stats"`
	Warnings        []string       `json:"warnings,omitempty"`
	Truncated       bool           `json:"truncated"`
}

// ParameterChangeResponse is one parameter set after logging started.
type ParameterChangeResponse struct {
	Timestamp uint64 `json:"timestamp"`
	Name      string `json:"name"`
	Value     any    `json:"value"`
}

// ParametersResponse holds initial and changed parameters.
type ParametersResponse struct {
	Initial map[string]any            `json:"initial"`
	Changed []ParameterChangeResponse `json:"changed"`
}

// MessageResponse is one logged text line.
type MessageResponse struct {
	Level     string `json:"level"`
	Timestamp uint64 `json:"timestamp"`
	Text      string `json:"text"`
}

// DropoutResponse is one data gap.
type DropoutResponse struct {
	Timestamp  uint64 `json:"timestamp"`
	DurationMs uint16 `json:"duration_ms"`
}

// FieldResponse describes one column of a topic.
type FieldResponse struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int    `json:"offset"`
}

// TopicResponse describes one decoded topic.
type TopicResponse struct {
	Name    string          `json:"name"`
	MultiID uint8           `json:"multi_id"`
	MsgID   uint16          `json:"msg_id"`
	Records int             `json:"records"`
	Stride  int             `json:"stride"`
	Fields  []FieldResponse `json:"fields"`
}

// RowResponse is one selected record.
type RowResponse struct {
	Index     int    `json:"index"`
	Timestamp uint64 `json:"timestamp"`
	Values    []any  `json:"values"`
}

// RowsResponse is the result of a topic query.
type RowsResponse struct {
	Topic   string        `json:"topic"`
	Columns []string      `json:"columns"`
	Rows    []RowResponse `json:"rows"`
}

// SampleResponse is one point of a value-change series.
type SampleResponse struct {
	Index     int    `json:"index"`
	Timestamp uint64 `json:"timestamp"`
	Value     any    `json:"value"`
}

// ChangesResponse is the value-change series of one field.
type ChangesResponse struct {
	Topic   string           `json:"topic"`
	Field   string           `json:"field"`
	Samples []SampleResponse `json:"samples"`
}

// jsonValue replaces values encoding/json cannot represent. NaN and
// infinities become null.
func jsonValue(v any) any {
	switch x := v.(type) {
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	}
	return v
}

func jsonMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = jsonValue(v)
	}
	return out
}
