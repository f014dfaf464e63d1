package ulog

import (
	"fmt"
	"maps"

	"github.com/ssargent/flightlog/pkg/codec"
	"github.com/ssargent/flightlog/pkg/schema"
	"go.uber.org/multierr"
)

// DefaultVersionKey is the info key holding the packed software version.
const DefaultVersionKey = "ver_sw_release"

// ParameterChange is a parameter set after logging started.
type ParameterChange struct {
	Timestamp uint64 // last data timestamp seen before the change
	Name      string
	Value     any
}

// Dropout marks a gap where the producer lost data.
type Dropout struct {
	Timestamp uint64 // last data timestamp seen before the gap
	Duration  uint16 // milliseconds
}

// LogMessage is a text line logged by the producer.
type LogMessage struct {
	Level     byte // ASCII '0' (emergency) to '7' (debug)
	Timestamp uint64
	Text      string
}

var levelNames = map[byte]string{
	'0': "EMERGENCY",
	'1': "ALERT",
	'2': "CRITICAL",
	'3': "ERROR",
	'4': "WARNING",
	'5': "NOTICE",
	'6': "INFO",
	'7': "DEBUG",
}

// LevelName returns the syslog-style name of a log level, or "UNKNOWN".
func LevelName(level byte) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return "UNKNOWN"
}

// LevelName returns the syslog-style name of the message's level.
func (m LogMessage) LevelName() string {
	return LevelName(m.Level)
}

// Stats counts what a parse consumed.
type Stats struct {
	Bytes           int64 // bytes consumed, header included
	Messages        int   // framed messages read
	DataRecords     int   // records appended to a subscription
	ShortRecords    int   // records shorter than their layout, zero-filled
	FilteredRecords int   // records for filtered or unusable msg ids
	DroppedRecords  int   // records for msg ids with no subscription
	Skipped         int   // messages ignored in the phase they appeared in
}

// Log is the decoded content of one log file. It is read-only once
// returned by a Parser.
type Log struct {
	header        codec.FileHeader
	lastTimestamp uint64
	info          map[string]any
	initialParams map[string]any
	changedParams []ParameterChange
	formats       *schema.Registry
	topics        []*Topic
	messages      []LogMessage
	dropouts      []Dropout
	warnings      []Warning
	truncated     bool
	stats         Stats
}

func newLog() *Log {
	return &Log{
		info:          make(map[string]any),
		initialParams: make(map[string]any),
		formats:       schema.NewRegistry(),
	}
}

// StartTimestamp returns the header start timestamp in microseconds.
func (l *Log) StartTimestamp() uint64 { return l.header.StartTimestamp }

// LastTimestamp returns the largest data timestamp seen, or the start
// timestamp if no record carried a larger one.
func (l *Log) LastTimestamp() uint64 { return l.lastTimestamp }

// FileVersion returns the header version byte.
func (l *Log) FileVersion() uint8 { return l.header.Version }

// Info returns a copy of the info key/value metadata.
func (l *Log) Info() map[string]any { return maps.Clone(l.info) }

// InfoValue returns a single info value.
func (l *Log) InfoValue(key string) (any, bool) {
	v, ok := l.info[key]
	return v, ok
}

// InitialParameters returns a copy of the parameters set before logging started.
func (l *Log) InitialParameters() map[string]any { return maps.Clone(l.initialParams) }

// ChangedParameters returns parameter changes in log order.
func (l *Log) ChangedParameters() []ParameterChange { return l.changedParams }

// Formats returns the registry of composite types defined by the log.
func (l *Log) Formats() *schema.Registry { return l.formats }

// Topics returns every decoded topic in subscription order.
func (l *Log) Topics() []*Topic { return l.topics }

// Messages returns the logged text messages in log order.
func (l *Log) Messages() []LogMessage { return l.messages }

// Dropouts returns the dropouts in log order.
func (l *Log) Dropouts() []Dropout { return l.dropouts }

// Warnings returns the non-fatal problems found while decoding.
func (l *Log) Warnings() []Warning { return l.warnings }

// Truncated reports whether the input ended in the middle of a message.
func (l *Log) Truncated() bool { return l.truncated }

// Stats returns parse statistics.
func (l *Log) Stats() Stats { return l.stats }

// Err combines all warnings into one error, or returns nil if there were
// none. Callers that want to treat warnings as failures can check it.
func (l *Log) Err() error {
	errs := make([]error, len(l.warnings))
	for i, w := range l.warnings {
		errs[i] = w
	}
	return multierr.Combine(errs...)
}

// Topic returns the topic with the given name and instance. It fails with
// ErrTopicNotFound if there is none and ErrAmbiguousTopic if a msg id was
// re-subscribed and more than one topic matches.
func (l *Log) Topic(name string, multiID uint8) (*Topic, error) {
	var found *Topic
	for _, t := range l.topics {
		if t.name != name || t.multiID != multiID {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s[%d]", ErrAmbiguousTopic, name, multiID)
		}
		found = t
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s[%d]", ErrTopicNotFound, name, multiID)
	}
	return found, nil
}

// TopicsByName returns all instances of the named topic.
func (l *Log) TopicsByName(name string) []*Topic {
	var out []*Topic
	for _, t := range l.topics {
		if t.name == name {
			out = append(out, t)
		}
	}
	return out
}

// Version is a packed software version.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
	// Type is the release stage: below 64 development, from 64 alpha, from
	// 128 beta, from 192 release candidate and 255 release.
	Type uint8
}

// ParseVersion unpacks a 32-bit version value laid out as 0xMMmmppTT.
func ParseVersion(v uint32) Version {
	return Version{
		Major: uint8(v >> 24),
		Minor: uint8(v >> 16),
		Patch: uint8(v >> 8),
		Type:  uint8(v),
	}
}

// Stage returns "development", "alpha", "beta", "rc" or "release".
func (v Version) Stage() string {
	switch {
	case v.Type < 64:
		return "development"
	case v.Type < 128:
		return "alpha"
	case v.Type < 192:
		return "beta"
	case v.Type < 255:
		return "rc"
	}
	return "release"
}

// Display renders the version as "v1.2.3", with " (alpha)", " (beta)" or
// " (RC)" appended for pre-releases. Development builds have no display
// string and return false.
func (v Version) Display() (string, bool) {
	if v.Type < 64 {
		return "", false
	}
	suffix := ""
	switch {
	case v.Type < 128:
		suffix = " (alpha)"
	case v.Type < 192:
		suffix = " (beta)"
	case v.Type < 255:
		suffix = " (RC)"
	}
	return fmt.Sprintf("v%d.%d.%d%s", v.Major, v.Minor, v.Patch, suffix), true
}

// VersionInfo decodes the packed version stored under an info key.
func (l *Log) VersionInfo(key string) (Version, bool) {
	raw, ok := l.info[key]
	if !ok {
		return Version{}, false
	}
	packed, ok := integer(raw)
	if !ok {
		return Version{}, false
	}
	return ParseVersion(uint32(packed)), true
}

// integer widens any decoded integer value to its two's complement bits.
func integer(v any) (uint64, bool) {
	switch x := v.(type) {
	case int8:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case int16:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case int32:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case int64:
		return uint64(x), true
	case uint64:
		return x, true
	}
	return 0, false
}

// SoftwareVersion returns the display string of the software version, if
// the log has one and it is at least an alpha build.
func (l *Log) SoftwareVersion() (string, bool) {
	v, ok := l.VersionInfo(DefaultVersionKey)
	if !ok {
		return "", false
	}
	return v.Display()
}
