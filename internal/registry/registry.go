// Package registry holds the authoritative set of meeting rooms and the
// name-normalisation rules used to match the inconsistent room labels found
// in legacy spreadsheets and API payloads.
package registry

import (
	"strings"
)

// Room is a catalog entry: a canonical key plus the label shown to users.
type Room struct {
	Key         string
	DisplayName string
}

// Registry is an ordered, immutable room catalog. Declaration order is the
// final tie-break of the matching policy, so it is preserved.
type Registry struct {
	rooms []Room
	byKey map[string]Room
}

// New builds a registry from the supplied rooms. Rooms with an empty key or a
// duplicate key are skipped; the display name falls back to the key.
func New(rooms []Room) *Registry {
	r := &Registry{byKey: make(map[string]Room, len(rooms))}
	for _, room := range rooms {
		key := strings.TrimSpace(room.Key)
		if key == "" {
			continue
		}
		if _, exists := r.byKey[key]; exists {
			continue
		}
		if strings.TrimSpace(room.DisplayName) == "" {
			room.DisplayName = key
		}
		room.Key = key
		r.rooms = append(r.rooms, room)
		r.byKey[key] = room
	}
	return r
}

// Rooms returns the catalog in declaration order.
func (r *Registry) Rooms() []Room {
	if r == nil {
		return nil
	}
	out := make([]Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// Keys returns the canonical keys in declaration order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.rooms))
	for i, room := range r.rooms {
		keys[i] = room.Key
	}
	return keys
}

// Get looks a room up by its canonical key.
func (r *Registry) Get(key string) (Room, bool) {
	if r == nil {
		return Room{}, false
	}
	room, ok := r.byKey[key]
	return room, ok
}

// Normalise collapses a raw room label for fuzzy comparison: case-folded,
// whitespace-collapsed, trimmed.
func Normalise(raw string) string {
	folded := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(folded), " ")
}

// Match resolves a raw room label to a canonical key. Resolution is
// deterministic with the precedence: exact match, case-insensitive exact
// match, shortest key containing the raw label, shortest raw label containing
// the key; remaining ties fall to declaration order. Containment is evaluated
// on normalised forms because the legacy data sources disagree on casing and
// spacing.
func (r *Registry) Match(raw string) (string, bool) {
	if r == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	if _, ok := r.byKey[trimmed]; ok {
		return trimmed, true
	}

	normalised := Normalise(trimmed)
	for _, room := range r.rooms {
		if Normalise(room.Key) == normalised {
			return room.Key, true
		}
	}

	// Key contains the raw label: prefer the shortest such key.
	best := ""
	for _, room := range r.rooms {
		if strings.Contains(Normalise(room.Key), normalised) {
			if best == "" || len(room.Key) < len(best) {
				best = room.Key
			}
		}
	}
	if best != "" {
		return best, true
	}

	// Raw label contains the key: again the shortest key wins.
	for _, room := range r.rooms {
		if strings.Contains(normalised, Normalise(room.Key)) {
			if best == "" || len(room.Key) < len(best) {
				best = room.Key
			}
		}
	}
	if best != "" {
		return best, true
	}

	return "", false
}

// SameRoom reports whether two room labels denote the same room under the
// bidirectional-containment policy. Canonical keys compare exactly; anything
// else is compared after normalisation.
func SameRoom(a, b string) bool {
	if a == b {
		return true
	}
	na, nb := Normalise(a), Normalise(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}
