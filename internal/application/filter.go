package application

import (
	"sort"
	"sync"

	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/registry"
)

// FilterAll selects every room.
const FilterAll = "all"

// RoomFilter is the single piece of view-slicing state: "all" or one
// registry key. Changes fan out to subscribers.
type RoomFilter struct {
	rooms *registry.Registry

	mu      sync.Mutex
	current string
	subs    map[int]func(string)
	nextSub int
}

// NewRoomFilter builds a filter starting at "all".
func NewRoomFilter(rooms *registry.Registry) *RoomFilter {
	return &RoomFilter{
		rooms:   rooms,
		current: FilterAll,
		subs:    make(map[int]func(string)),
	}
}

// Current returns the active filter value.
func (f *RoomFilter) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Set switches the filter. Raw room labels are canonicalised through the
// registry; unknown rooms are rejected. Setting the current value again does
// not notify.
func (f *RoomFilter) Set(value string) error {
	canonical := FilterAll
	if value != FilterAll {
		key, ok := f.rooms.Match(value)
		if !ok {
			vErr := &meeting.ValidationError{}
			vErr.Add("filter", "unknown room")
			return vErr
		}
		canonical = key
	}

	f.mu.Lock()
	if f.current == canonical {
		f.mu.Unlock()
		return nil
	}
	f.current = canonical
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(string), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, f.subs[id])
	}
	f.mu.Unlock()

	for _, listener := range listeners {
		listener(canonical)
	}
	return nil
}

// Subscribe registers a change listener and returns its release function.
func (f *RoomFilter) Subscribe(listener func(string)) func() {
	if f == nil || listener == nil {
		return func() {}
	}
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = listener
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Apply narrows a meeting list by the given filter value using the room
// match policy; "all" passes everything through.
func Apply(list []meeting.Meeting, filter string) []meeting.Meeting {
	if filter == FilterAll || filter == "" {
		return list
	}
	out := make([]meeting.Meeting, 0, len(list))
	for _, m := range list {
		if registry.SameRoom(m.Room, filter) {
			out = append(out, m)
		}
	}
	return out
}
