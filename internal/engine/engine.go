// Package engine computes derived room states. It is pure: every function is
// deterministic over its arguments and performs no I/O, which keeps the
// scheduler's tick loop trivially re-entrant.
package engine

import (
	"sort"

	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/registry"
	"github.com/example/roomboard/internal/temporal"
)

// Status is the derived occupancy of a room at an instant.
type Status string

const (
	// StatusOccupied indicates a meeting is running right now.
	StatusOccupied Status = "occupied"
	// StatusUpcoming indicates the room is free but has a reservation later
	// today.
	StatusUpcoming Status = "upcoming"
	// StatusEmpty indicates no remaining reservation today.
	StatusEmpty Status = "empty"
)

// RoomState is the engine's output for one room: the status, the active
// meeting when occupied, and the next reservation of the day if any.
type RoomState struct {
	Room   string
	Status Status
	Active *meeting.Meeting
	Next   *meeting.Meeting
	At     temporal.Instant
}

// Evaluate computes the state of one room from an unordered meeting list.
// Only records on the instant's own day count; ended and force-ended records
// never surface. Windows are half-open, so a meeting ending at the current
// minute is no longer running while one starting at it already is.
func Evaluate(meetings []meeting.Meeting, room string, at temporal.Instant) RoomState {
	state := RoomState{Room: room, Status: StatusEmpty, At: at}

	var running, upcoming []meeting.Meeting
	for _, m := range meetings {
		if m.IsEnded || m.ForceEndedByUser {
			continue
		}
		if !m.Date.Equal(at.Date) {
			continue
		}
		if !registry.SameRoom(m.Room, room) {
			continue
		}
		switch {
		case temporal.InRange(at.Minutes, m.StartMinutes, m.EndMinutes):
			running = append(running, m)
		case m.StartMinutes > at.Minutes:
			upcoming = append(upcoming, m)
		}
	}

	sortByStart(upcoming)
	if len(upcoming) > 0 {
		next := upcoming[0]
		state.Next = &next
	}

	if len(running) > 0 {
		sortByStart(running)
		active := running[0]
		state.Status = StatusOccupied
		state.Active = &active
		return state
	}

	if state.Next != nil {
		state.Status = StatusUpcoming
	}
	return state
}

// EvaluateAll computes states for every registered room with the same room
// matching as Evaluate, so the batch answer for a room always equals the
// single-room answer. A label matching several registered rooms counts for
// each of them; records matching none are ignored.
func EvaluateAll(rooms *registry.Registry, meetings []meeting.Meeting, at temporal.Instant) []RoomState {
	states := make([]RoomState, 0, len(rooms.Keys()))
	for _, key := range rooms.Keys() {
		states = append(states, Evaluate(meetings, key, at))
	}
	return states
}

// sortByStart orders meetings ascending by start minute, then by id so the
// running tie-break and the "next" pick are stable.
func sortByStart(meetings []meeting.Meeting) {
	sort.SliceStable(meetings, func(i, j int) bool {
		if meetings[i].StartMinutes != meetings[j].StartMinutes {
			return meetings[i].StartMinutes < meetings[j].StartMinutes
		}
		return meetings[i].ID < meetings[j].ID
	})
}
