package conversations

import (
	"fmt"
	"sync"
	"testing"

	"tunetalk/pkg/protocol"
)

func TestGetOrCreate(t *testing.T) {
	store := NewStore()

	subject := protocol.SubjectEntity{ID: "artist-1", Name: "Artist X"}
	conv := store.GetOrCreate("conv-1", "conn-a", subject)

	if conv.ID != "conv-1" {
		t.Errorf("Expected conversation id conv-1, got %s", conv.ID)
	}
	if conv.OwnerConnectionID != "conn-a" {
		t.Errorf("Expected owner conn-a, got %s", conv.OwnerConnectionID)
	}
	if conv.Subject.Name != "Artist X" {
		t.Errorf("Expected subject Artist X, got %s", conv.Subject.Name)
	}
	if conv.CreatedAt.IsZero() {
		t.Error("Expected created-at to be set")
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := NewStore()

	store.GetOrCreate("conv-1", "conn-a", protocol.SubjectEntity{Name: "Artist X"})
	if err := store.Append("conv-1", Message{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	// Second call with a different owner and subject must return the same
	// conversation: first writer wins for the subject binding.
	again := store.GetOrCreate("conv-1", "conn-b", protocol.SubjectEntity{Name: "Somebody Else"})

	if again.Subject.Name != "Artist X" {
		t.Errorf("Expected original subject binding, got %s", again.Subject.Name)
	}
	if again.MessageCount != 1 {
		t.Errorf("Expected same underlying history (1 message), got %d", again.MessageCount)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 stored conversation, got %d", store.Count())
	}
}

func TestAppendUnknownConversation(t *testing.T) {
	store := NewStore()

	err := store.Append("nope", Message{Role: RoleUser, Content: "hi"})
	if err != ErrConversationNotFound {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestHistoryPreservesAppendOrder(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("conv-1", "conn-a", protocol.SubjectEntity{Name: "Artist X"})

	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := store.Append("conv-1", Message{Role: role, Content: fmt.Sprintf("msg-%d", i)}); err != nil {
			t.Fatalf("Failed to append message %d: %v", i, err)
		}
	}

	history := store.History("conv-1")
	if len(history) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(history))
	}
	for i, msg := range history {
		if msg.Content != fmt.Sprintf("msg-%d", i) {
			t.Errorf("Message %d out of order: got %s", i, msg.Content)
		}
		if msg.Timestamp.IsZero() {
			t.Errorf("Message %d missing timestamp", i)
		}
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("conv-1", "conn-a", protocol.SubjectEntity{Name: "Artist X"})
	store.Append("conv-1", Message{Role: RoleUser, Content: "original"})

	history := store.History("conv-1")
	history[0].Content = "mutated"

	if store.History("conv-1")[0].Content != "original" {
		t.Error("History must return a defensive copy")
	}
}

func TestSetOwner(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("conv-1", "conn-a", protocol.SubjectEntity{Name: "Artist X"})

	store.SetOwner("conv-1", "conn-b")

	conv, ok := store.Get("conv-1")
	if !ok {
		t.Fatal("Expected conversation to exist")
	}
	if conv.OwnerConnectionID != "conn-b" {
		t.Errorf("Expected owner conn-b after reassignment, got %s", conv.OwnerConnectionID)
	}

	// Unknown id is a no-op, not a panic
	store.SetOwner("nope", "conn-c")
}

func TestConcurrentDistinctConversations(t *testing.T) {
	store := NewStore()
	const n = 100

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", i)
			store.GetOrCreate(id, "conn-a", protocol.SubjectEntity{Name: "Artist X"})
			if err := store.Append(id, Message{Role: RoleUser, Content: "hello"}); err != nil {
				t.Errorf("Append to %s failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if store.Count() != n {
		t.Fatalf("Expected %d conversations, got %d", n, store.Count())
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("conv-%d", i)
		if got := len(store.History(id)); got != 1 {
			t.Errorf("Conversation %s: expected exactly 1 message, got %d", id, got)
		}
	}
}

func TestConcurrentAppendsSameConversation(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("conv-1", "conn-a", protocol.SubjectEntity{Name: "Artist X"})

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			store.Append("conv-1", Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
		}(i)
	}
	wg.Wait()

	// No lost updates: every append lands exactly once
	if got := len(store.History("conv-1")); got != n {
		t.Errorf("Expected %d messages, got %d", n, got)
	}
}
