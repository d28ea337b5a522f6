// Package attention keeps, per host, the deduplicated set of bookings that
// need an operator to look at them.
//
// Several independent streams each report the booking ids matching one
// predicate. A stream update replaces that stream's previous report for the
// host; the host's set is the union over streams, keyed by booking id, so a
// booking flagged by two streams is still counted once.
package attention

import (
	"sort"
	"sync"
)

type Stream string

const (
	StreamStatus  Stream = "status"
	StreamFlag    Stream = "flag"
	StreamRequest Stream = "request"
)

// Streams lists every stream a full refresh reports.
var Streams = []Stream{StreamStatus, StreamFlag, StreamRequest}

// DefaultStatuses are status values written by older clients that mark a
// booking as waiting on the host.
var DefaultStatuses = []string{"cancel_request", "cancellation_requested", "refund_requested"}

// Update is one stream's complete report for one host. Version orders
// reports from the same stream; stale ones are dropped.
type Update struct {
	HostID     string
	Stream     Stream
	Version    int64
	BookingIDs []string
}

type hostState struct {
	versions map[Stream]int64
	members  map[string]map[Stream]struct{}
	subs     map[int]chan int
}

// Set is safe for concurrent use.
type Set struct {
	mu     sync.Mutex
	hosts  map[string]*hostState
	nextID int
}

func NewSet() *Set {
	return &Set{hosts: make(map[string]*hostState)}
}

func (s *Set) host(hostID string) *hostState {
	h, ok := s.hosts[hostID]
	if !ok {
		h = &hostState{
			versions: make(map[Stream]int64),
			members:  make(map[string]map[Stream]struct{}),
			subs:     make(map[int]chan int),
		}
		s.hosts[hostID] = h
	}
	return h
}

// Apply merges a stream report. It returns false when the report was older
// than (or as old as) the last one applied for that stream.
func (s *Set) Apply(u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.host(u.HostID)
	if last, ok := h.versions[u.Stream]; ok && u.Version <= last {
		return false
	}
	h.versions[u.Stream] = u.Version

	before := len(h.members)

	incoming := make(map[string]struct{}, len(u.BookingIDs))
	for _, id := range u.BookingIDs {
		incoming[id] = struct{}{}
	}

	for id, tags := range h.members {
		if _, ok := incoming[id]; ok {
			continue
		}
		delete(tags, u.Stream)
		if len(tags) == 0 {
			delete(h.members, id)
		}
	}
	for id := range incoming {
		tags, ok := h.members[id]
		if !ok {
			tags = make(map[Stream]struct{})
			h.members[id] = tags
		}
		tags[u.Stream] = struct{}{}
	}

	if after := len(h.members); after != before {
		for _, ch := range h.subs {
			select {
			case ch <- after:
			default:
				// Slow subscribers only need the latest count.
				select {
				case <-ch:
				default:
				}
				ch <- after
			}
		}
	}
	return true
}

// Count is the size of the union for the host.
func (s *Set) Count(hostID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.hosts[hostID]; ok {
		return len(h.members)
	}
	return 0
}

// IDs returns the host's booking ids in sorted order.
func (s *Set) IDs(hostID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[hostID]
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(h.members))
	for id := range h.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tags returns the streams currently flagging a booking.
func (s *Set) Tags(hostID, bookingID string) []Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[hostID]
	if !ok {
		return nil
	}
	var out []Stream
	for tag := range h.members[bookingID] {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Subscribe returns a channel receiving the host's count whenever it
// changes. The channel holds at most one pending value.
func (s *Set) Subscribe(hostID string) (<-chan int, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.host(hostID)
	id := s.nextID
	s.nextID++
	ch := make(chan int, 1)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(h.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
