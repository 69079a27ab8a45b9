/*
Package store holds the per-session message state: two logical queues (default and
board), each with an unread counter, over a single newest-first message feed.

Unread counters are never derived from the feed. The backend may know of more unread
messages than the slice it pushed, so counters are set from the sync payload and then
incremented once per pushed message.
*/
package store

import (
	"slices"
	"sync"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

// DefaultMaxMessages bounds the locally held feed.
const DefaultMaxMessages = 100

// Listener receives a snapshot after every mutation. Versions are strictly increasing
// per listener; a snapshot overtaken by a newer one is skipped. Listeners must not
// mutate the store.
type Listener func(model.Snapshot)

// Store is the session-scoped message container. It is safe for concurrent use:
// mutations are serialized and selectors read a consistent state.
type Store struct {
	mu       sync.RWMutex
	version  uint64
	unread   map[model.Queue]int
	messages []model.Message
	max      int

	// [OBSERVERS]
	lmu       sync.Mutex
	nextID    int
	listeners map[int]Listener

	// [NOTIFY_ORDER] nmu serializes listener calls; notified is the highest version delivered.
	nmu      sync.Mutex
	notified uint64
}

type Option func(*Store)

// WithMaxMessages caps the feed length; older messages fall off the tail.
func WithMaxMessages(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		unread:    map[model.Queue]int{model.QueueDefault: 0, model.QueueBoard: 0},
		max:       DefaultMaxMessages,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- MUTATIONS ---

// SetUnreadCount sets a queue's counter absolutely. Used on full-state sync only.
func (s *Store) SetUnreadCount(q model.Queue, n int) {
	if n < 0 {
		n = 0
	}
	s.mutate(func() bool {
		s.unread[normalize(q)] = n
		return true
	})
}

// IncrementUnreadCount bumps a queue's counter by one. Used on single-message push only.
func (s *Store) IncrementUnreadCount(q model.Queue) {
	s.mutate(func() bool {
		s.unread[normalize(q)]++
		return true
	})
}

// ReplaceMessages swaps the whole feed. Used on full-state sync only.
func (s *Store) ReplaceMessages(list []model.Message) {
	s.mutate(func() bool {
		s.messages = s.clip(slices.Clone(list))
		return true
	})
}

// PrependMessage puts a pushed message at the head of the feed.
func (s *Store) PrependMessage(m model.Message) {
	s.mutate(func() bool {
		feed := make([]model.Message, 0, len(s.messages)+1)
		feed = append(feed, m)
		feed = append(feed, s.messages...)
		s.messages = s.clip(feed)
		return true
	})
}

// MarkAllRead zeroes a queue's counter. Persisting the read state is the caller's job.
func (s *Store) MarkAllRead(q model.Queue) {
	s.mutate(func() bool {
		s.unread[normalize(q)] = 0
		return true
	})
}

// MarkViewed flips is_viewed on a held message. Counters are left alone.
// Reports whether the message was found.
func (s *Store) MarkViewed(id int64) bool {
	found := false
	s.mutate(func() bool {
		for i := range s.messages {
			if s.messages[i].ID == id {
				found = true
				if s.messages[i].IsViewed {
					return false
				}
				s.messages[i].IsViewed = true
				return true
			}
		}
		return false
	})
	return found
}

// --- SELECTORS ---

func (s *Store) DefaultMessages() []model.Message { return s.Snapshot().Filter(model.QueueDefault) }
func (s *Store) BoardMessages() []model.Message   { return s.Snapshot().Filter(model.QueueBoard) }

func (s *Store) DefaultUnreadCount() int { return s.UnreadCount(model.QueueDefault) }
func (s *Store) BoardUnreadCount() int   { return s.UnreadCount(model.QueueBoard) }

func (s *Store) UnreadCount(q model.Queue) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread[normalize(q)]
}

// Message looks up a held message by id.
func (s *Store) Message(id int64) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

// Snapshot returns a deep-enough copy of the state: the feed slice is cloned.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// --- OBSERVERS ---

// Subscribe registers fn for change notifications and returns its release func.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

// mutate applies fn under the write lock and notifies listeners if fn changed state.
// Listeners run on the mutating goroutine, after the lock is released.
func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.nmu.Lock()
	defer s.nmu.Unlock()
	if snap.Version <= s.notified {
		// A concurrent mutator already delivered a newer state.
		return
	}
	s.notified = snap.Version

	s.lmu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.lmu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Version:       s.version,
		DefaultUnread: s.unread[model.QueueDefault],
		BoardUnread:   s.unread[model.QueueBoard],
		Messages:      slices.Clone(s.messages),
	}
}

func (s *Store) clip(feed []model.Message) []model.Message {
	if len(feed) > s.max {
		return feed[:s.max]
	}
	return feed
}

func normalize(q model.Queue) model.Queue {
	if q.Valid() {
		return q
	}
	return model.QueueDefault
}
