package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/flightlog/pkg/catalog"
	"github.com/ssargent/flightlog/pkg/index"
	"github.com/ssargent/flightlog/pkg/query"
	"github.com/ssargent/flightlog/pkg/ulog"
	"go.uber.org/zap"
)

// ErrLogNotFound is returned for an id that is neither loaded nor in the
// catalog.
var ErrLogNotFound = errors.New("log not found")

// LogServiceConfig holds configuration for a LogService
type LogServiceConfig struct {
	Parser ulog.ParserConfig

	// Catalog, when set, is owned by the service and closed with it.
	Catalog *catalog.Catalog

	// Indexes is shared with the query engine. nil creates one.
	Indexes *index.IndexManager

	// Metrics nil records into an unregistered set.
	Metrics *Metrics
	Logger  *zap.Logger
}

// LogService keeps parsed logs in memory and answers queries over them.
// Logs recorded in the catalog are parsed again on first access.
type LogService struct {
	mu      sync.RWMutex
	loaded  map[string]*LoadedLog
	parser  *ulog.Parser
	catalog *catalog.Catalog
	indexes *index.IndexManager
	engine  *query.SimpleQueryEngine
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewLogService creates a new log service
func NewLogService(config LogServiceConfig) *LogService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parserConfig := config.Parser
	if parserConfig.Logger == nil {
		parserConfig.Logger = logger.Named("parser")
	}
	indexes := config.Indexes
	if indexes == nil {
		indexes = index.NewIndexManager(0)
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &LogService{
		loaded:  make(map[string]*LoadedLog),
		parser:  ulog.NewParser(parserConfig),
		catalog: config.Catalog,
		indexes: indexes,
		engine:  query.NewSimpleQueryEngine(indexes),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Load parses the file at path and keeps it in memory. With persist set and
// a catalog configured, the summary is also recorded in the catalog and the
// catalog id becomes the log id.
func (s *LogService) Load(ctx context.Context, path string, persist bool) (*LoadedLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log, entry, err := s.parse(path)
	if err != nil {
		return nil, err
	}

	if persist && s.catalog != nil {
		if entry, err = s.catalog.Add(entry); err != nil {
			return nil, err
		}
	} else {
		entry.ID = ksuid.New().String()
		entry.AddedAt = s.now().UTC()
	}

	loaded := &LoadedLog{ID: entry.ID, Entry: entry, Log: log}
	s.mu.Lock()
	s.loaded[loaded.ID] = loaded
	s.metrics.SetLoadedLogs(len(s.loaded))
	s.mu.Unlock()

	s.logger.Info("log loaded",
		zap.String("id", loaded.ID),
		zap.String("path", path),
		zap.Int("topics", len(entry.Topics)),
		zap.Int("warnings", len(entry.Warnings)),
		zap.Bool("cataloged", persist && s.catalog != nil),
	)
	return loaded, nil
}

// Get returns a loaded log, parsing it again from its catalog entry if it
// is not in memory.
func (s *LogService) Get(ctx context.Context, id string) (*LoadedLog, error) {
	s.mu.RLock()
	loaded, ok := s.loaded[id]
	s.mu.RUnlock()
	if ok {
		return loaded, nil
	}
	if s.catalog == nil {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.catalog.Get(id)
	if errors.Is(err, catalog.ErrEntryNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	log, _, err := s.parse(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have reopened it meanwhile
	if existing, ok := s.loaded[id]; ok {
		return existing, nil
	}
	loaded = &LoadedLog{ID: id, Entry: entry, Log: log}
	s.loaded[id] = loaded
	s.metrics.SetLoadedLogs(len(s.loaded))
	s.logger.Debug("log reopened from catalog", zap.String("id", id), zap.String("path", entry.Path))
	return loaded, nil
}

// List returns the catalog entries and every loaded log, oldest first.
func (s *LogService) List() ([]catalog.Entry, error) {
	byID := make(map[string]catalog.Entry)
	if s.catalog != nil {
		entries, err := s.catalog.List()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			byID[e.ID] = e
		}
	}

	s.mu.RLock()
	for id, l := range s.loaded {
		byID[id] = l.Entry
	}
	s.mu.RUnlock()

	out := make([]catalog.Entry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out, nil
}

// Unload releases a log from memory along with its indexes. A catalog entry
// is kept.
func (s *LogService) Unload(id string) error {
	s.mu.Lock()
	loaded, ok := s.loaded[id]
	if ok {
		delete(s.loaded, id)
		s.metrics.SetLoadedLogs(len(s.loaded))
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	s.indexes.Drop(loaded.Log)
	return nil
}

// Delete unloads a log and removes its catalog entry.
func (s *LogService) Delete(id string) error {
	err := s.Unload(id)
	if err != nil && !errors.Is(err, ErrLogNotFound) {
		return err
	}
	unloaded := err == nil

	if s.catalog == nil {
		return err
	}
	if err := s.catalog.Delete(id); err != nil {
		if errors.Is(err, catalog.ErrEntryNotFound) {
			if unloaded {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrLogNotFound, id)
		}
		return err
	}
	return nil
}

// Query runs req against a log.
func (s *LogService) Query(ctx context.Context, id string, req query.Request) (query.QueryIterator, error) {
	loaded, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	it, err := s.engine.Execute(ctx, loaded.Log, req)
	if err != nil {
		s.metrics.RecordQuery(false, 0)
		return nil, err
	}
	return it, nil
}

// Close drops every loaded log and closes the catalog.
func (s *LogService) Close() error {
	s.mu.Lock()
	for id, l := range s.loaded {
		s.indexes.Drop(l.Log)
		delete(s.loaded, id)
	}
	s.metrics.SetLoadedLogs(0)
	s.mu.Unlock()

	if s.catalog != nil {
		return s.catalog.Close()
	}
	return nil
}

func (s *LogService) parse(path string) (*ulog.Log, catalog.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, catalog.Entry{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	start := time.Now()
	log, err := s.parser.ParseFile(path)
	s.metrics.RecordParse(log, err, time.Since(start))
	if err != nil {
		return nil, catalog.Entry{}, err
	}
	return log, catalog.Summarize(path, info.Size(), log), nil
}
