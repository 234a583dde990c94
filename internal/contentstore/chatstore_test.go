package contentstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alpinesboltltd/docwell/internal/entity"
)

func newTestChatStore(t *testing.T) *ChatStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	store, err := OpenChatStore(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenChatStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnsureSessionIsIdempotent(t *testing.T) {
	store := newTestChatStore(t)
	ctx := context.Background()

	if err := store.EnsureSession(ctx, "session-1", "My Session"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if err := store.EnsureSession(ctx, "session-1", "Ignored Title"); err != nil {
		t.Fatalf("EnsureSession second call: %v", err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1 (second EnsureSession should not duplicate)", len(sessions))
	}
	if sessions[0].Title != "My Session" {
		t.Fatalf("got title %q, want first-write title to stick", sessions[0].Title)
	}
}

func TestListSessionsOrdersNewestFirst(t *testing.T) {
	store := newTestChatStore(t)
	ctx := context.Background()

	store.EnsureSession(ctx, "older", "")
	store.EnsureSession(ctx, "newer", "")

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "newer" || sessions[1].ID != "older" {
		t.Fatalf("got order %q, %q, want newer first", sessions[0].ID, sessions[1].ID)
	}
}

func TestAppendAndRecentMessagesOrdering(t *testing.T) {
	store := newTestChatStore(t)
	ctx := context.Background()
	store.EnsureSession(ctx, "s1", "")

	if err := store.AppendMessage(ctx, "s1", entity.ChatRoleUser, "hello"); err != nil {
		t.Fatalf("AppendMessage user: %v", err)
	}
	if err := store.AppendMessage(ctx, "s1", entity.ChatRoleModel, "hi there"); err != nil {
		t.Fatalf("AppendMessage model: %v", err)
	}

	messages, err := store.RecentMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Content != "hello" || messages[1].Content != "hi there" {
		t.Fatalf("got %+v, want ascending time order starting with 'hello'", messages)
	}
	if messages[0].Role != entity.ChatRoleUser || messages[1].Role != entity.ChatRoleModel {
		t.Fatalf("got roles %v / %v, want user then model", messages[0].Role, messages[1].Role)
	}
}

func TestRecentMessagesRespectsLimit(t *testing.T) {
	store := newTestChatStore(t)
	ctx := context.Background()
	store.EnsureSession(ctx, "s2", "")

	for i := 0; i < 5; i++ {
		if err := store.AppendMessage(ctx, "s2", entity.ChatRoleUser, "msg"); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	messages, err := store.RecentMessages(ctx, "s2", 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3 (limit applied)", len(messages))
	}
}
