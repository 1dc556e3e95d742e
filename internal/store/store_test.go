package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndList(t *testing.T) {
	s := NewMessageStore()
	assert.Empty(t, s.List())

	for i := 0; i < 3; i++ {
		s.Append(NewMessageRecord("ADT^A01", fmt.Sprintf("MSH|%d", i), 1))
	}

	records := s.List()
	require.Len(t, records, 3)
	assert.Equal(t, "MSH|0", records[0].RawMessage)
	assert.Equal(t, "MSH|2", records[2].RawMessage)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestListReturnsCopy(t *testing.T) {
	s := NewMessageStore()
	s.Append(NewMessageRecord("ADT^A01", "MSH|x", 1))

	records := s.List()
	records[0].RawMessage = "mutated"

	assert.Equal(t, "MSH|x", s.List()[0].RawMessage)
}

func TestClear(t *testing.T) {
	s := NewMessageStore()
	for i := 0; i < 5; i++ {
		s.Append(NewMessageRecord("ORU^R01", "MSH|y", 1))
	}

	assert.Equal(t, 5, s.Clear())
	assert.Empty(t, s.List())

	// Clearing again is a no-op with an exact count
	assert.Equal(t, 0, s.Clear())
	assert.Empty(t, s.List())
}

func TestConcurrentAccess(t *testing.T) {
	s := NewMessageStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(NewMessageRecord("ADT^A01", "MSH|z", 1))
			s.List()
		}()
	}
	wg.Wait()

	assert.Len(t, s.List(), 50)
}

func TestNewMessageRecord(t *testing.T) {
	rec := NewMessageRecord("ADT^A01", "MSH|raw", 2)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "ADT^A01", rec.MessageType)
	assert.Equal(t, "MSH|raw", rec.RawMessage)
	assert.Equal(t, 2, rec.SegmentCount)
	assert.False(t, rec.Timestamp.IsZero())
	assert.Equal(t, "UTC", rec.Timestamp.Location().String())
}
