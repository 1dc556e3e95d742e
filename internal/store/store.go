package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageRecord is one received HL7 message. Immutable once stored;
// removed only by a clear-all.
type MessageRecord struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	MessageType  string    `json:"message_type"`
	RawMessage   string    `json:"raw_message"`
	SegmentCount int       `json:"segment_count"`
}

func NewMessageRecord(messageType, rawMessage string, segmentCount int) MessageRecord {
	return MessageRecord{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		MessageType:  messageType,
		RawMessage:   rawMessage,
		SegmentCount: segmentCount,
	}
}

// MessageStore keeps received messages in memory, unbounded, in arrival
// order. All access is serialized internally so concurrent receive, list
// and clear calls stay consistent.
type MessageStore struct {
	mu      sync.Mutex
	records []MessageRecord
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Append adds a record at the end.
func (s *MessageStore) Append(rec MessageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// List returns a copy of all records in insertion order.
func (s *MessageStore) List() []MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MessageRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Clear removes everything and returns how many records were dropped.
func (s *MessageStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.records)
	s.records = nil
	return n
}
