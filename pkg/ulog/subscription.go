package ulog

import (
	"encoding/binary"
	"sort"

	"github.com/ssargent/flightlog/pkg/schema"
)

// Subscription binds a msg id to one instance of a topic and accumulates the
// raw records logged for it.
type Subscription struct {
	MsgID   uint16
	MultiID uint8
	Name    string
	Layout  *schema.Layout

	buf   []byte
	count int
	seq   int
}

// Len returns the number of records accumulated so far.
func (s *Subscription) Len() int {
	return s.count
}

// append adds one record to the buffer. Every record occupies exactly
// Layout.Stride bytes in the buffer: a shorter record (for example one whose
// producer omitted trailing padding) is zero-filled and a longer one is cut.
// It reports whether the record was short.
func (s *Subscription) append(record []byte) bool {
	stride := s.Layout.Stride
	s.count++
	if len(record) >= stride {
		s.buf = append(s.buf, record[:stride]...)
		return false
	}
	s.buf = append(s.buf, record...)
	s.buf = append(s.buf, make([]byte, stride-len(record))...)
	return true
}

// timestamp extracts the record's timestamp, or 0 if the layout has none or
// the record is too short to hold it.
func (s *Subscription) timestamp(record []byte) uint64 {
	if !s.Layout.HasTimestamp {
		return 0
	}
	off := s.Layout.TimestampOffset
	if len(record) < off+8 {
		return 0
	}
	return binary.LittleEndian.Uint64(record[off : off+8])
}

// subscriptionTable is the per-parse mapping from msg id to subscription.
// A msg id maps to at most one active subscription; re-adding or removing an
// id retires the previous subscription so its data is kept.
type subscriptionTable struct {
	active   map[uint16]*Subscription
	retired  []*Subscription
	filtered map[uint16]struct{}
	missing  map[uint16]struct{}
	seq      int
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{
		active:   make(map[uint16]*Subscription),
		filtered: make(map[uint16]struct{}),
		missing:  make(map[uint16]struct{}),
	}
}

// add registers sub under its msg id.
func (t *subscriptionTable) add(sub *Subscription) {
	t.remove(sub.MsgID)
	delete(t.filtered, sub.MsgID)
	sub.seq = t.seq
	t.seq++
	t.active[sub.MsgID] = sub
}

// filter marks id as deliberately ignored. Data for a filtered id is
// dropped without a warning.
func (t *subscriptionTable) filter(id uint16) {
	t.remove(id)
	t.filtered[id] = struct{}{}
}

// remove retires the active subscription for id, if any.
func (t *subscriptionTable) remove(id uint16) bool {
	sub, ok := t.active[id]
	if !ok {
		return false
	}
	delete(t.active, id)
	t.retired = append(t.retired, sub)
	return true
}

func (t *subscriptionTable) lookup(id uint16) (*Subscription, bool) {
	sub, ok := t.active[id]
	return sub, ok
}

func (t *subscriptionTable) isFiltered(id uint16) bool {
	_, ok := t.filtered[id]
	return ok
}

// reportMissing returns true the first time an unknown, unfiltered id is seen.
func (t *subscriptionTable) reportMissing(id uint16) bool {
	if t.isFiltered(id) {
		return false
	}
	if _, seen := t.missing[id]; seen {
		return false
	}
	t.missing[id] = struct{}{}
	return true
}

// drain returns every subscription ever added, in the order they were
// added, and empties the table.
func (t *subscriptionTable) drain() []*Subscription {
	all := append([]*Subscription(nil), t.retired...)
	for _, sub := range t.active {
		all = append(all, sub)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	t.active = make(map[uint16]*Subscription)
	t.retired = nil
	return all
}
