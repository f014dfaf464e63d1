// Package catalog keeps a persistent list of parsed log files with a
// summary of each, so that logs can be found again without re-reading them.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/flightlog/pkg/storage"
	"github.com/ssargent/flightlog/pkg/ulog"
)

// ErrEntryNotFound is returned for an unknown catalog id.
var ErrEntryNotFound = errors.New("catalog entry not found")

// TopicSummary describes one decoded topic.
type TopicSummary struct {
	Name    string `json:"name"`
	MultiID uint8  `json:"multi_id"`
	MsgID   uint16 `json:"msg_id"`
	Records int    `json:"records"`
	Fields  int    `json:"fields"`
}

// Entry is the stored summary of one log file.
type Entry struct {
	ID              string         `json:"id"`
	Path            string         `json:"path"`
	Size            int64          `json:"size"`
	AddedAt         time.Time      `json:"added_at"`
	FileVersion     uint8          `json:"file_version"`
	StartTimestamp  uint64         `json:"start_timestamp"`
	LastTimestamp   uint64         `json:"last_timestamp"`
	SoftwareVersion string         `json:"software_version,omitempty"`
	SystemName      string         `json:"system_name,omitempty"`
	Topics          []TopicSummary `json:"topics"`
	Parameters      int            `json:"parameters"`
	Messages        int            `json:"messages"`
	Dropouts        int            `json:"dropouts"`
	Warnings        []string       `json:"warnings,omitempty"`
	Truncated       bool           `json:"truncated"`
}

// Duration returns the time covered by the log's data.
func (e *Entry) Duration() time.Duration {
	if e.LastTimestamp < e.StartTimestamp {
		return 0
	}
	return time.Duration(e.LastTimestamp-e.StartTimestamp) * time.Microsecond
}

// Summarize builds an unsaved entry for a parsed log.
func Summarize(path string, size int64, log *ulog.Log) Entry {
	e := Entry{
		Path:           path,
		Size:           size,
		FileVersion:    log.FileVersion(),
		StartTimestamp: log.StartTimestamp(),
		LastTimestamp:  log.LastTimestamp(),
		Parameters:     len(log.InitialParameters()),
		Messages:       len(log.Messages()),
		Dropouts:       len(log.Dropouts()),
		Truncated:      log.Truncated(),
		Topics:         make([]TopicSummary, 0, len(log.Topics())),
	}
	if v, ok := log.SoftwareVersion(); ok {
		e.SoftwareVersion = v
	}
	if v, ok := log.InfoValue("sys_name"); ok {
		if s, ok := v.(string); ok {
			e.SystemName = s
		}
	}
	for _, t := range log.Topics() {
		e.Topics = append(e.Topics, TopicSummary{
			Name:    t.Name(),
			MultiID: t.MultiID(),
			MsgID:   t.MsgID(),
			Records: t.Len(),
			Fields:  len(t.Columns()),
		})
	}
	for _, w := range log.Warnings() {
		e.Warnings = append(e.Warnings, w.Error())
	}
	return e
}

// Catalog stores entries in a pebble database.
type Catalog struct {
	store *storage.DefaultStorage
	now   func() time.Time
}

// Open opens or creates a catalog in dir.
func Open(dir string) (*Catalog, error) {
	store, err := storage.NewDefaultStorage(dir, storage.Options{Sync: true})
	if err != nil {
		return nil, err
	}
	return &Catalog{store: store, now: time.Now}, nil
}

// Add saves e under a new id and returns the stored entry.
func (c *Catalog) Add(e Entry) (Entry, error) {
	e.AddedAt = c.now().UTC()
	e.ID = ""

	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}
	id, err := c.store.Create(data)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to add %s: %w", e.Path, err)
	}
	e.ID = id.String()
	return e, nil
}

// Get returns the entry with the given id.
func (c *Catalog) Get(id string) (Entry, error) {
	key, err := ksuid.Parse(id)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	data, err := c.store.Read(key)
	if errors.Is(err, storage.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}
	return unmarshal(key, data)
}

// List returns every entry, oldest first.
func (c *Catalog) List() ([]Entry, error) {
	var entries []Entry
	err := c.store.Scan(func(id ksuid.KSUID, data []byte) error {
		e, err := unmarshal(id, data)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AddedAt.Before(entries[j].AddedAt)
	})
	return entries, nil
}

// Delete removes the entry with the given id.
func (c *Catalog) Delete(id string) error {
	key, err := ksuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err := c.store.Delete(key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
		}
		return err
	}
	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.store.Close()
}

func unmarshal(id ksuid.KSUID, data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("corrupt catalog entry %s: %w", id, err)
	}
	e.ID = id.String()
	return e, nil
}
