package chat

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/cookgpt-backend/internal/domain"
)

func chatsWithCosts(costs ...int) []*types.Chat {
	out := make([]*types.Chat, 0, len(costs))
	for i, c := range costs {
		out = append(out, &types.Chat{ID: uuid.New(), Order: i, Content: "x", Cost: c})
	}
	return out
}

func windowCosts(h *History) []int {
	var out []int
	for c := range h.All() {
		out = append(out, c.Cost)
	}
	return out
}

func TestHistoryWindow(t *testing.T) {
	cases := []struct {
		name  string
		costs []int
		max   int
		want  []int
	}{
		{"last two fit", []int{5, 5, 5, 5, 5}, 12, []int{5, 5}},
		{"exact fit includes boundary", []int{5, 5, 5}, 10, []int{5, 5}},
		{"everything fits", []int{1, 2, 3}, 100, []int{1, 2, 3}},
		{"zero budget", []int{1, 1, 1}, 0, nil},
		{"newest alone too big", []int{1, 1, 50}, 10, nil},
		{"older big chat stops the scan", []int{1, 40, 2, 3}, 10, []int{2, 3}},
		{"empty thread", nil, 10, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHistory(chatsWithCosts(tc.costs...), tc.max)
			if got := windowCosts(h); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("window costs=%v, want %v", got, tc.want)
			}
			if got := len(h.Window()); got != len(tc.want) {
				t.Fatalf("len(Window())=%d, want %d", got, len(tc.want))
			}
		})
	}
}

func TestHistorySkipsPendingChats(t *testing.T) {
	chats := chatsWithCosts(3, 3, 0, 0)
	chats[2].Content = ""
	chats[3].Content = ""

	h := newHistory(chats, 100)
	if h.Len() != 2 {
		t.Fatalf("Len=%d, want 2", h.Len())
	}
	if got, ok := h.At(1); !ok || got.ID != chats[1].ID {
		t.Fatalf("At(1)=%v ok=%v, want %s", got, ok, chats[1].ID)
	}
	if h.Cost() != 6 {
		t.Fatalf("Cost=%d, want 6", h.Cost())
	}
}

func TestHistoryAtOutOfRange(t *testing.T) {
	h := newHistory(chatsWithCosts(1, 2), 10)
	for _, i := range []int{-1, 2, 100} {
		if got, ok := h.At(i); ok || got != nil {
			t.Fatalf("At(%d)=%v ok=%v, want nil false", i, got, ok)
		}
	}
	if _, ok := newHistory(nil, 10).At(0); ok {
		t.Fatalf("At(0) on empty history ok=true")
	}
}

func TestHistoryIsRestartable(t *testing.T) {
	h := newHistory(chatsWithCosts(1, 2, 3), 5)
	want := []int{2, 3}
	for range 2 {
		if got := windowCosts(h); !reflect.DeepEqual(got, want) {
			t.Fatalf("window costs=%v, want %v", got, want)
		}
	}

	for c := range h.All() {
		if c.Cost != 2 {
			t.Fatalf("first window chat cost=%d, want 2", c.Cost)
		}
		break
	}
}

func TestStoreHistoryUsesPersistedChats(t *testing.T) {
	f := newFixture(t)
	f.chain(t, 5, 5, 5, 5, 5)

	h, err := f.store.History(f.ctx, f.thread.ID, 12)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if h.Len() != 5 {
		t.Fatalf("Len=%d, want 5", h.Len())
	}
	if got := windowCosts(h); !reflect.DeepEqual(got, []int{5, 5}) {
		t.Fatalf("window costs=%v, want [5 5]", got)
	}
	if got := h.Window()[0].Order; got != 3 {
		t.Fatalf("window starts at order %d, want 3", got)
	}
}
