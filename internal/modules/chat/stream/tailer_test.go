package stream

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type collector struct {
	mu     sync.Mutex
	tokens []string
}

func (c *collector) emit(tok string) error {
	c.mu.Lock()
	c.tokens = append(c.tokens, tok)
	c.mu.Unlock()
	return nil
}

func (c *collector) joined() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.tokens, "")
}

type stubTasks struct{ complete bool }

func (s stubTasks) IsComplete(context.Context, string) (bool, error) { return s.complete, nil }

func newTailer(store Store, tasks TaskChecker, timeout time.Duration) *Tailer {
	return NewTailer(store, tasks, TailerConfig{PollInterval: 5 * time.Millisecond, ReadTimeout: timeout}, logger.NewNop())
}

// mustDo fails the test on the first setup error.
func mustDo(t *testing.T, errs ...error) {
	t.Helper()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
}

func TestNameFormat(t *testing.T) {
	id := uuid.MustParse("0b5c3b5e-8f2d-4e57-9a1a-2f6c1d7e9b10")
	if got, want := Name(id), "stream:0b5c3b5e8f2d4e579a1a2f6c1d7e9b10"; got != want {
		t.Fatalf("Name=%q, want %q", got, want)
	}
	if got, want := StatusKey(id), Name(id)+":task"; got != want {
		t.Fatalf("StatusKey=%q, want %q", got, want)
	}
}

func TestTailFilledContentEmitsOnce(t *testing.T) {
	var c collector
	err := newTailer(NewMemoryStore(), nil, time.Second).Tail(context.Background(), uuid.New(), "fry  the\nonions", c.emit)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if want := []string{"fry the onions"}; !reflect.DeepEqual(c.tokens, want) {
		t.Fatalf("tokens=%q, want %q", c.tokens, want)
	}
}

func TestTailMissingStreamReturnsImmediately(t *testing.T) {
	var c collector
	if err := newTailer(NewMemoryStore(), nil, time.Second).Tail(context.Background(), uuid.New(), "", c.emit); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(c.tokens) != 0 {
		t.Fatalf("tokens=%q, want none", c.tokens)
	}
}

func TestTailFollowsLiveStream(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	mustDo(t, store.SetStatus(ctx, id, StatusStarted), store.Append(ctx, id, "Chop "))

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = store.Append(ctx, id, "the ")
		_ = store.Append(ctx, id, "garlic.")
		_ = store.SetStatus(ctx, id, StatusCompleted)
	}()

	var c collector
	if err := newTailer(store, nil, time.Second).Tail(ctx, id, "", c.emit); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if got := c.joined(); got != "Chop the garlic." {
		t.Fatalf("tailed=%q", got)
	}
}

func TestTailStopsWhenTaskReportsComplete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	mustDo(t,
		store.SetStatus(ctx, id, StatusStarted),
		store.SetTaskID(ctx, id, "task-1"),
		store.Append(ctx, id, "partial"),
	)

	var c collector
	if err := newTailer(store, stubTasks{complete: true}, time.Second).Tail(ctx, id, "", c.emit); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if got := c.joined(); got != "partial" {
		t.Fatalf("tailed=%q, want %q", got, "partial")
	}
}

func TestTailWaitsForDispatchedTask(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	mustDo(t, store.SetTaskID(ctx, id, "task-1"))

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = store.SetStatus(ctx, id, StatusStarted)
		_ = store.Append(ctx, id, "Soak ")
		_ = store.Append(ctx, id, "the beans.")
		_ = store.SetStatus(ctx, id, StatusCompleted)
	}()

	var c collector
	if err := newTailer(store, stubTasks{}, time.Second).Tail(ctx, id, "", c.emit); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if got := c.joined(); got != "Soak the beans." {
		t.Fatalf("tailed=%q", got)
	}
}

func TestTailTimesOut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	mustDo(t, store.SetStatus(ctx, id, StatusStarted), store.Append(ctx, id, "stuck"))

	var c collector
	err := newTailer(store, stubTasks{}, 30*time.Millisecond).Tail(ctx, id, "", c.emit)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Tail err=%v, want %v", err, ErrTimeout)
	}
	if got := c.joined(); got != "stuck" {
		t.Fatalf("tailed=%q before timeout, want %q", got, "stuck")
	}
}

func TestTailHonoursCancellation(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	mustDo(t,
		store.SetStatus(context.Background(), id, StatusStarted),
		store.Append(context.Background(), id, "x"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	var c collector
	if err := newTailer(store, nil, time.Minute).Tail(ctx, id, "", c.emit); !errors.Is(err, context.Canceled) {
		t.Fatalf("Tail err=%v, want %v", err, context.Canceled)
	}
}

func TestTailPropagatesEmitError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	mustDo(t, store.SetStatus(ctx, id, StatusStarted), store.Append(ctx, id, "a"))

	boom := errors.New("client gone")
	err := newTailer(store, nil, time.Second).Tail(ctx, id, "", func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Tail err=%v, want %v", err, boom)
	}
}

func TestMemoryStoreTrimsToMaxLen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id := uuid.New()
	for i := 0; i < MaxLen+5; i++ {
		mustDo(t, store.Append(ctx, id, "t"))
	}
	entries := store.Entries(id)
	if len(entries) != MaxLen {
		t.Fatalf("entries=%d, want %d", len(entries), MaxLen)
	}
	if entries[0].ID != "6-0" {
		t.Fatalf("oldest entry=%q, want 6-0", entries[0].ID)
	}

	tail, err := store.ReadSince(ctx, id, entries[MaxLen-2].ID)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(tail) != 1 {
		t.Fatalf("ReadSince returned %d entries, want 1", len(tail))
	}
}
