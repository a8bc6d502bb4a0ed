package chat

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Subscriber receives a snapshot of the full message list. Snapshots are copies
// owned by the subscriber.
type Subscriber func(snapshot []Message)

// Store is the ordered message list for one conversation. Every mutation
// publishes a snapshot to all subscribers synchronously, in mutation order.
//
// Subscribers must not mutate the Store from inside their callback; reads
// (Snapshot, Count, Get) are fine.
type Store struct {
	// pubMu serializes mutate-then-publish so subscribers never observe
	// snapshots out of order.
	pubMu sync.Mutex

	mu       sync.RWMutex
	messages []Message
	index    map[string]int
	subs     map[uint64]Subscriber
	nextSub  uint64

	logger *slog.Logger
}

// NewStore creates an empty Store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		index:  make(map[string]int),
		subs:   make(map[uint64]Subscriber),
		logger: logger,
	}
}

// Append inserts msg at the end of the list. The caller supplies the ID.
func (s *Store) Append(msg Message) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap, subs)
}

// UpdateLast replaces the text of the last message.
func (s *Store) UpdateLast(text string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if len(s.messages) == 0 {
		s.mu.Unlock()
		s.logger.Warn("update on empty message store")
		return ErrNotFound
	}
	if err := s.setTextLocked(len(s.messages)-1, text); err != nil {
		s.mu.Unlock()
		return err
	}
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap, subs)
	return nil
}

// Update replaces the text of the message with the given ID.
func (s *Store) Update(id, text string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("update on unknown message", "message_id", id)
		return fmt.Errorf("updating %s: %w", id, ErrNotFound)
	}
	if err := s.setTextLocked(i, text); err != nil {
		s.mu.Unlock()
		return err
	}
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap, subs)
	return nil
}

// Finalize freezes the text of the message with the given ID. Finalizing an
// already final message is a no-op and does not publish.
func (s *Store) Finalize(id string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("finalizing %s: %w", id, ErrNotFound)
	}
	if s.messages[i].Final {
		s.mu.Unlock()
		return nil
	}
	s.messages[i].Final = true
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap, subs)
	return nil
}

// Clear removes every message and publishes an empty snapshot.
func (s *Store) Clear() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.messages = nil
	s.index = make(map[string]int)
	snap, subs := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap, subs)
}

// Subscribe registers fn and immediately hands it the current snapshot.
// The returned function unsubscribes; calling it more than once is a no-op.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	snap := slices.Clone(s.messages)
	s.mu.Unlock()

	fn(nonNil(snap))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns a copy of the current message list.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nonNil(slices.Clone(s.messages))
}

// Get returns the message with the given ID.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Message{}, false
	}
	return s.messages[i], true
}

// Count returns the number of messages.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) setTextLocked(i int, text string) error {
	if s.messages[i].Final {
		s.logger.Warn("update on final message", "message_id", s.messages[i].ID)
		return fmt.Errorf("updating %s: %w", s.messages[i].ID, ErrFrozen)
	}
	s.messages[i].Text = text
	return nil
}

// snapshotLocked copies the message list and the subscriber set. s.mu must be held.
func (s *Store) snapshotLocked() ([]Message, []Subscriber) {
	subs := make([]Subscriber, 0, len(s.subs))
	for _, id := range slices.Sorted(maps.Keys(s.subs)) {
		subs = append(subs, s.subs[id])
	}
	return nonNil(slices.Clone(s.messages)), subs
}

// publish hands every subscriber its own copy of snap.
func (s *Store) publish(snap []Message, subs []Subscriber) {
	for i, fn := range subs {
		if i == len(subs)-1 {
			fn(snap)
			continue
		}
		fn(slices.Clone(snap))
	}
}

func nonNil(msgs []Message) []Message {
	if msgs == nil {
		return []Message{}
	}
	return msgs
}
