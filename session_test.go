package civicsense

import (
	"context"
	"testing"
	"time"
)

func TestMemSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemSessionStore()

	s := st.Create(ctx)
	if s.ID == "" {
		t.Fatal("created session has no id")
	}

	got, ok := st.Get(ctx, s.ID)
	if !ok || got.ID != s.ID {
		t.Fatalf("Get returned %v, %v", got, ok)
	}

	if !st.AddMessage(ctx, s.ID, ChatMessage{Role: "user", Content: "hello", Timestamp: time.Now()}) {
		t.Fatal("AddMessage failed for existing session")
	}
	got, _ = st.Get(ctx, s.ID)
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}

	if st.AddMessage(ctx, "missing", ChatMessage{Role: "user", Content: "x"}) {
		t.Error("AddMessage should fail for unknown session")
	}

	if !st.Delete(ctx, s.ID) {
		t.Fatal("Delete failed for existing session")
	}
	if _, ok := st.Get(ctx, s.ID); ok {
		t.Error("session still present after delete")
	}
	if st.Delete(ctx, s.ID) {
		t.Error("second delete should report missing")
	}
}

func TestMemSessionStore_ListRange(t *testing.T) {
	ctx := context.Background()
	st := NewMemSessionStore()

	for i := 0; i < 5; i++ {
		st.Create(ctx)
		time.Sleep(time.Millisecond)
	}

	all := st.List(ctx)
	if len(all) != 5 {
		t.Fatalf("expected 5 sessions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatal("List is not ordered by recency")
		}
	}

	page := st.ListRange(ctx, 1, 2)
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if page[0].ID != all[1].ID {
		t.Error("page does not start at offset")
	}
	if got := st.ListRange(ctx, 10, 2); len(got) != 0 {
		t.Errorf("out-of-range page should be empty, got %d", len(got))
	}
}

func TestMemSessionStore_Clean(t *testing.T) {
	ctx := context.Background()
	st := NewMemSessionStore()

	var newest string
	for i := 0; i < 6; i++ {
		newest = st.Create(ctx).ID
		time.Sleep(time.Millisecond)
	}
	if err := st.Clean(ctx, 2); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := len(st.List(ctx)); got != 2 {
		t.Fatalf("expected 2 sessions after clean, got %d", got)
	}
	if _, ok := st.Get(ctx, newest); !ok {
		t.Error("newest session should survive clean")
	}
}
