package application

import (
	"sort"
	"sync"
)

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeWarn    NoticeKind = "warn"
	NoticeError   NoticeKind = "error"
)

// Notification is a message for the presentation collaborator.
type Notification struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Notifier fans notifications out to subscribers synchronously in
// registration order.
type Notifier struct {
	mu      sync.Mutex
	subs    map[int]func(Notification)
	nextSub int
}

// NewNotifier builds an empty notification hub.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Notification))}
}

// Subscribe registers a listener and returns its release function.
func (n *Notifier) Subscribe(listener func(Notification)) func() {
	if n == nil || listener == nil {
		return func() {}
	}
	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	n.subs[id] = listener
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Publish delivers a notification to every subscriber.
func (n *Notifier) Publish(kind NoticeKind, message string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(Notification), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, n.subs[id])
	}
	n.mu.Unlock()

	notice := Notification{Kind: kind, Message: message}
	for _, listener := range listeners {
		listener(notice)
	}
}
