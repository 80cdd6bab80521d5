package realtime

import (
	"sort"
	"sync"

	"github.com/xhist/travel-buddy-client-sub000/pkg/models"
)

// entry pairs a message with its arrival sequence so equal timestamps
// keep a stable order.
type entry struct {
	msg models.Message
	seq int64
}

// MessageStore holds the ordered, deduplicated messages of one
// conversation. Live messages arrive newest-first over the broker;
// history pages arrive older-first from the REST backend; the store
// reconciles both into a single timestamp-ordered view keyed by
// message identifier.
type MessageStore struct {
	mu      sync.RWMutex
	byID    map[string]*entry
	nextSeq int64

	// noMoreHistory latches once an empty history page is seen.
	noMoreHistory bool
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		byID: make(map[string]*entry),
	}
}

// Prepend inserts a newly arrived live message. It is idempotent: a
// message whose identifier is already present is ignored. Returns
// true when the message was inserted.
func (s *MessageStore) Prepend(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(msg)
}

// AppendPage adds a page of historical messages in older-first order.
// Messages already present are skipped. An empty page latches the
// no-more-history flag. Returns the number of messages inserted.
func (s *MessageStore) AppendPage(older []models.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(older) == 0 {
		s.noMoreHistory = true
		return 0
	}
	inserted := 0
	for _, msg := range older {
		if s.insertLocked(msg) {
			inserted++
		}
	}
	return inserted
}

// insertLocked adds a message unless its identifier already exists.
func (s *MessageStore) insertLocked(msg models.Message) bool {
	if msg.ID == "" {
		return false
	}
	if _, exists := s.byID[msg.ID]; exists {
		return false
	}
	s.nextSeq++
	s.byID[msg.ID] = &entry{msg: msg, seq: s.nextSeq}
	return true
}

// Patch applies a partial update to the message with the given
// identifier. Missing messages are a silent no-op: the referenced
// message may simply not be loaded on this client yet. Returns true
// when the update was applied.
func (s *MessageStore) Patch(messageID string, update func(msg *models.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[messageID]
	if !ok {
		return false
	}
	update(&e.msg)
	return true
}

// AddReaction merges one reaction into a message, skipping exact
// duplicates. Returns true when the message exists.
func (s *MessageStore) AddReaction(messageID string, reaction models.Reaction) bool {
	return s.Patch(messageID, func(msg *models.Message) {
		if msg.HasReaction(reaction.Kind, reaction.UserID) {
			return
		}
		msg.Reactions = append(msg.Reactions, reaction)
	})
}

// OrderedView returns the messages sorted ascending by timestamp,
// independent of arrival order. Equal timestamps keep arrival order.
func (s *MessageStore) OrderedView() []models.Message {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.byID))
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].msg.Timestamp.Equal(entries[j].msg.Timestamp) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].msg.Timestamp.Before(entries[j].msg.Timestamp)
	})

	out := make([]models.Message, len(entries))
	for i, e := range entries {
		out[i] = e.msg
	}
	return out
}

// OldestLoaded returns the earliest message currently in the store.
func (s *MessageStore) OldestLoaded() (models.Message, bool) {
	view := s.OrderedView()
	if len(view) == 0 {
		return models.Message{}, false
	}
	return view[0], true
}

// Len returns the number of messages in the store.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// HasMoreHistory reports whether older pages may still exist. It
// starts true and latches false once an empty page is appended.
func (s *MessageStore) HasMoreHistory() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.noMoreHistory
}
