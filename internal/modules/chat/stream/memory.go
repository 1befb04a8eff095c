package stream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same retention rules as the
// Redis implementation. Entry ids are "<seq>-0".
type MemoryStore struct {
	mu      sync.Mutex
	streams map[uuid.UUID][]Entry
	seq     map[uuid.UUID]int
	status  map[uuid.UUID]string
	taskIDs map[uuid.UUID]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: make(map[uuid.UUID][]Entry),
		seq:     make(map[uuid.UUID]int),
		status:  make(map[uuid.UUID]string),
		taskIDs: make(map[uuid.UUID]string),
	}
}

func (s *MemoryStore) Append(_ context.Context, chatID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[chatID]++
	entries := append(s.streams[chatID], Entry{ID: fmt.Sprintf("%d-0", s.seq[chatID]), Token: token})
	if len(entries) > MaxLen {
		entries = entries[len(entries)-MaxLen:]
	}
	s.streams[chatID] = entries
	return nil
}

func (s *MemoryStore) ReadSince(_ context.Context, chatID uuid.UUID, cursor string) ([]Entry, error) {
	after := cursorSeq(cursor)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.streams[chatID] {
		if cursorSeq(e.ID) > after {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, chatID uuid.UUID, status string) error {
	s.mu.Lock()
	s.status[chatID] = status
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Status(_ context.Context, chatID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[chatID], nil
}

func (s *MemoryStore) SetTaskID(_ context.Context, chatID uuid.UUID, taskID string) error {
	s.mu.Lock()
	s.taskIDs[chatID] = taskID
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) TaskID(_ context.Context, chatID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskIDs[chatID], nil
}

func (s *MemoryStore) Exists(_ context.Context, chatID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, hasStream := s.streams[chatID]
	_, hasStatus := s.status[chatID]
	return hasStream && hasStatus, nil
}

// Entries returns a copy of the retained entries of a stream.
func (s *MemoryStore) Entries(chatID uuid.UUID) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.streams[chatID]...)
}

func cursorSeq(id string) int {
	head, _, _ := strings.Cut(id, "-")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}
