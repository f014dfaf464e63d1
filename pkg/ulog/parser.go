package ulog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/flightlog/pkg/codec"
	"github.com/ssargent/flightlog/pkg/schema"
	"go.uber.org/zap"
)

// DefaultBufferSize is the read buffer used when ParserConfig.BufferSize is 0.
const DefaultBufferSize = 64 * 1024

// ParserConfig holds configuration for a Parser
type ParserConfig struct {
	// MessageFilter restricts which topics accumulate data. Nil or empty
	// means every topic.
	MessageFilter []string
	Logger        *zap.Logger
	BufferSize    int
}

// Parser decodes log files. A Parser holds no per-file state, so one value
// may decode several files, concurrently or not.
type Parser struct {
	filter     map[string]struct{}
	logger     *zap.Logger
	bufferSize int
}

// NewParser creates a parser with the given configuration.
func NewParser(config ParserConfig) *Parser {
	p := &Parser{
		logger:     config.Logger,
		bufferSize: config.BufferSize,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.bufferSize <= 0 {
		p.bufferSize = DefaultBufferSize
	}
	if len(config.MessageFilter) > 0 {
		p.filter = make(map[string]struct{}, len(config.MessageFilter))
		for _, name := range config.MessageFilter {
			p.filter[name] = struct{}{}
		}
	}
	return p
}

// Parse decodes a log from r using the given configuration.
func Parse(r io.Reader, config ParserConfig) (*Log, error) {
	return NewParser(config).Parse(r)
}

// ParseFile decodes the log file at path using the given configuration.
func ParseFile(path string, config ParserConfig) (*Log, error) {
	return NewParser(config).ParseFile(path)
}

// ParseFile opens and decodes the log file at path.
func (p *Parser) ParseFile(path string) (*Log, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	log, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return log, nil
}

// Parse decodes a whole log from r. It returns a *FormatError or
// *TruncatedError if r does not start with a valid header, and an I/O error
// if reading fails. A log that ends mid-message is not an error: everything
// decoded up to that point is returned and Log.Truncated reports true.
func (p *Parser) Parse(r io.Reader) (*Log, error) {
	s := &parseState{
		parser: p,
		log:    newLog(),
		subs:   newSubscriptionTable(),
		logger: p.logger,
	}

	reader := bufio.NewReaderSize(r, p.bufferSize)
	if err := s.readHeader(reader); err != nil {
		return nil, err
	}
	s.messages = newMessageReader(reader, codec.HeaderSize)

	if err := s.readDefinitions(); err != nil {
		return nil, err
	}
	if err := s.readData(); err != nil {
		return nil, err
	}
	s.finish()
	return s.log, nil
}

// parseState is the private state of a single parse.
type parseState struct {
	parser   *Parser
	log      *Log
	subs     *subscriptionTable
	messages *messageReader
	logger   *zap.Logger
}

func (s *parseState) readHeader(r io.Reader) error {
	var buf [codec.HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return &TruncatedError{Got: n}
		}
		return err
	}

	header, err := codec.DecodeHeader(buf[:])
	if err != nil {
		return &FormatError{Reason: err.Error()}
	}
	s.log.header = header
	s.log.lastTimestamp = header.StartTimestamp
	if !header.Compatible() {
		s.warn(&CompatibilityWarning{Version: header.Version})
	}
	return nil
}

// next wraps messageReader.next. It returns nil, nil at the end of input,
// clean or not.
func (s *parseState) next() (*message, error) {
	m, err := s.messages.next()
	switch {
	case err == nil:
		s.log.stats.Messages++
		return m, nil
	case err == io.EOF:
		return nil, nil
	case errors.Is(err, errTruncated):
		s.log.truncated = true
		s.logger.Debug("log ends inside a message", zap.Int64("offset", s.messages.Offset()))
		return nil, nil
	}
	return nil, fmt.Errorf("failed to read message at offset %d: %w", s.messages.Offset(), err)
}

// readDefinitions consumes info, format and parameter messages up to the
// first subscription or log line, which is left for readData.
func (s *parseState) readDefinitions() error {
	for {
		m, err := s.next()
		if err != nil || m == nil {
			return err
		}

		switch m.Type {
		case codec.MsgInfo:
			if kv, ok := s.decodeKeyValue(m); ok {
				s.log.info[kv.Key] = kv.Value
			}
		case codec.MsgParameter:
			if kv, ok := s.decodeKeyValue(m); ok {
				s.log.initialParams[kv.Key] = kv.Value
			}
		case codec.MsgFormat:
			c, err := schema.Parse(m.payload)
			if err != nil {
				s.malformed(m, err)
				continue
			}
			s.log.formats.Register(c)
		case codec.MsgAddLogged, codec.MsgLogging:
			s.log.stats.Messages--
			s.messages.unread(m)
			s.logger.Debug("definitions complete",
				zap.Int("formats", s.log.formats.Len()),
				zap.Int("info", len(s.log.info)),
				zap.Int("parameters", len(s.log.initialParams)),
				zap.Int64("offset", m.offset))
			return nil
		default:
			s.log.stats.Skipped++
		}
	}
}

// readData consumes the data section until the end of input.
func (s *parseState) readData() error {
	for {
		m, err := s.next()
		if err != nil || m == nil {
			return err
		}

		switch m.Type {
		case codec.MsgData:
			s.handleData(m)
		case codec.MsgAddLogged:
			s.handleAddLogged(m)
		case codec.MsgRemoveLogged:
			id, err := codec.DecodeRemoveLogged(m.payload)
			if err != nil {
				s.malformed(m, err)
				continue
			}
			s.subs.remove(id)
		case codec.MsgParameter:
			if kv, ok := s.decodeKeyValue(m); ok {
				s.log.changedParams = append(s.log.changedParams, ParameterChange{
					Timestamp: s.log.lastTimestamp,
					Name:      kv.Key,
					Value:     kv.Value,
				})
			}
		case codec.MsgLogging:
			msg, err := codec.DecodeLogging(m.payload)
			if err != nil {
				s.malformed(m, err)
				continue
			}
			s.log.messages = append(s.log.messages, LogMessage{
				Level:     msg.Level,
				Timestamp: msg.Timestamp,
				Text:      msg.Text,
			})
		case codec.MsgDropout:
			d, err := codec.DecodeDropout(m.payload)
			if err != nil {
				s.malformed(m, err)
				continue
			}
			s.log.dropouts = append(s.log.dropouts, Dropout{
				Timestamp: s.log.lastTimestamp,
				Duration:  d,
			})
		default:
			s.log.stats.Skipped++
		}
	}
}

func (s *parseState) handleAddLogged(m *message) {
	msg, err := codec.DecodeAddLogged(m.payload)
	if err != nil {
		s.malformed(m, err)
		return
	}

	if f := s.parser.filter; f != nil {
		if _, ok := f[msg.Name]; !ok {
			s.subs.filter(msg.MsgID)
			return
		}
	}

	layout, err := s.log.formats.Flatten(msg.Name)
	if err != nil {
		s.subs.filter(msg.MsgID)
		s.warn(&UnknownFormatWarning{Topic: msg.Name, MsgID: msg.MsgID, Err: err})
		return
	}

	s.subs.add(&Subscription{
		MsgID:   msg.MsgID,
		MultiID: msg.MultiID,
		Name:    msg.Name,
		Layout:  layout,
	})
	s.logger.Debug("subscribed",
		zap.String("topic", msg.Name),
		zap.Uint8("multi_id", msg.MultiID),
		zap.Uint16("msg_id", msg.MsgID),
		zap.Int("stride", layout.Stride))
}

// handleData routes one record to its subscription and advances the last
// timestamp.
func (s *parseState) handleData(m *message) {
	id, record, err := codec.DecodeData(m.payload)
	if err != nil {
		s.malformed(m, err)
		return
	}

	sub, ok := s.subs.lookup(id)
	if !ok {
		if s.subs.isFiltered(id) {
			s.log.stats.FilteredRecords++
			return
		}
		s.log.stats.DroppedRecords++
		if s.subs.reportMissing(id) {
			s.warn(&MissingSubscriptionWarning{MsgID: id})
		}
		return
	}

	if sub.append(record) {
		s.log.stats.ShortRecords++
	}
	s.log.stats.DataRecords++

	if ts := sub.timestamp(record); ts > s.log.lastTimestamp {
		s.log.lastTimestamp = ts
	}
}

func (s *parseState) decodeKeyValue(m *message) (codec.KeyValue, bool) {
	kv, err := codec.DecodeKeyValue(m.payload)
	if err != nil {
		s.malformed(m, err)
		return codec.KeyValue{}, false
	}
	return kv, true
}

// finish materializes every subscription that received data.
func (s *parseState) finish() {
	for _, sub := range s.subs.drain() {
		if sub.count == 0 {
			continue
		}
		s.log.topics = append(s.log.topics, materialize(sub))
	}
	s.log.stats.Bytes = s.messages.Offset()

	s.logger.Debug("parse complete",
		zap.Int("topics", len(s.log.topics)),
		zap.Int("records", s.log.stats.DataRecords),
		zap.Int("warnings", len(s.log.warnings)),
		zap.Bool("truncated", s.log.truncated))
}

func (s *parseState) malformed(m *message, err error) {
	s.warn(&MalformedMessageWarning{Type: m.Type, Offset: m.offset, Err: err})
}

func (s *parseState) warn(w Warning) {
	s.log.warnings = append(s.log.warnings, w)
	s.logger.Warn(w.Error())
}
