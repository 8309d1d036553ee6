package services

import (
	"context"
	"strings"
	"testing"

	"github.com/luftkuhl/ninethree-backend/internal/types"
)

func newTestChatStore(t *testing.T, llm *fakeLLM) (ChatStore, *memBlob) {
	t.Helper()
	blob := newMemBlob()
	return NewChatStore(testLogger(t), blob, llm), blob
}

func TestConversationRoundtrip(t *testing.T) {
	store, _ := newTestChatStore(t, &fakeLLM{completeText: "Oil Leak Diagnosis"})
	ctx := context.Background()

	conv := &types.Conversation{
		ID: store.NewConversationID(),
		Messages: []types.Turn{
			{Role: types.RoleUser, Content: "Oil leak at the back of the engine"},
			{Role: types.RoleAssistant, Content: "Likely the rear main seal."},
		},
	}
	if err := store.SaveConversation(ctx, "jsmith", conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.LoadConversation(ctx, "jsmith", conv.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil || len(loaded.Messages) != 2 {
		t.Fatalf("want 2 messages got=%+v", loaded)
	}
	if loaded.Messages[1].Content != "Likely the rear main seal." {
		t.Fatalf("message content lost: %q", loaded.Messages[1].Content)
	}

	index, err := store.LoadIndex(ctx, "jsmith")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(index) != 1 {
		t.Fatalf("want 1 index entry got=%d", len(index))
	}
	if index[0].Title != "Oil Leak Diagnosis" {
		t.Fatalf("want generated title got=%q", index[0].Title)
	}
	if index[0].CreatedAt == "" || index[0].UpdatedAt == "" {
		t.Fatalf("timestamps missing: %+v", index[0])
	}
}

func TestNewConversationsLandOnTop(t *testing.T) {
	store, _ := newTestChatStore(t, &fakeLLM{completeText: "Title"})
	ctx := context.Background()

	first := &types.Conversation{ID: "aaaa1111", Messages: []types.Turn{{Role: types.RoleUser, Content: "one"}}}
	second := &types.Conversation{ID: "bbbb2222", Messages: []types.Turn{{Role: types.RoleUser, Content: "two"}}}
	if err := store.SaveConversation(ctx, "u", first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.SaveConversation(ctx, "u", second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	index, err := store.LoadIndex(ctx, "u")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(index) != 2 || index[0].ID != "bbbb2222" {
		t.Fatalf("newest conversation should be first: %+v", index)
	}
}

func TestSaveExistingConversationKeepsTitle(t *testing.T) {
	llm := &fakeLLM{completeText: "Original Title"}
	store, _ := newTestChatStore(t, llm)
	ctx := context.Background()

	conv := &types.Conversation{ID: "cccc3333", Messages: []types.Turn{{Role: types.RoleUser, Content: "q"}}}
	if err := store.SaveConversation(ctx, "u", conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	llm.completeText = "Should Not Replace"
	conv.Messages = append(conv.Messages, types.Turn{Role: types.RoleAssistant, Content: "a"})
	if err := store.SaveConversation(ctx, "u", conv); err != nil {
		t.Fatalf("resave: %v", err)
	}

	index, _ := store.LoadIndex(ctx, "u")
	if len(index) != 1 {
		t.Fatalf("resave must not duplicate index entries: %+v", index)
	}
	if index[0].Title != "Original Title" {
		t.Fatalf("title regenerated on resave: %q", index[0].Title)
	}
}

func TestTitleAssignedOnFirstMessage(t *testing.T) {
	llm := &fakeLLM{completeText: "Rough Idle Diagnosis"}
	store, _ := newTestChatStore(t, llm)
	ctx := context.Background()

	// The HTTP flow saves an empty conversation first, then appends the
	// first exchange on a later save.
	conv := &types.Conversation{ID: store.NewConversationID(), Messages: []types.Turn{}}
	if err := store.SaveConversation(ctx, "u", conv); err != nil {
		t.Fatalf("create: %v", err)
	}
	index, _ := store.LoadIndex(ctx, "u")
	if len(index) != 1 || index[0].Title != "" {
		t.Fatalf("empty conversation should have no title yet: %+v", index)
	}

	conv.Messages = append(conv.Messages,
		types.Turn{Role: types.RoleUser, Content: "Rough idle when warm"},
		types.Turn{Role: types.RoleAssistant, Content: "Check the idle control valve."},
	)
	if err := store.SaveConversation(ctx, "u", conv); err != nil {
		t.Fatalf("save with messages: %v", err)
	}

	index, _ = store.LoadIndex(ctx, "u")
	if index[0].Title != "Rough Idle Diagnosis" {
		t.Fatalf("want title on first message got=%q", index[0].Title)
	}

	// Later appends must not touch it.
	llm.completeText = "Should Not Replace"
	conv.Messages = append(conv.Messages, types.Turn{Role: types.RoleUser, Content: "and cold?"})
	if err := store.SaveConversation(ctx, "u", conv); err != nil {
		t.Fatalf("resave: %v", err)
	}
	index, _ = store.LoadIndex(ctx, "u")
	if index[0].Title != "Rough Idle Diagnosis" {
		t.Fatalf("title regenerated on later save: %q", index[0].Title)
	}
}

func TestRenameConversation(t *testing.T) {
	store, _ := newTestChatStore(t, &fakeLLM{completeText: "Before"})
	ctx := context.Background()

	conv := &types.Conversation{ID: "dddd4444", Messages: []types.Turn{{Role: types.RoleUser, Content: "q"}}}
	if err := store.SaveConversation(ctx, "u", conv); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.RenameConversation(ctx, "u", "dddd4444", "  After  "); err != nil {
		t.Fatalf("rename: %v", err)
	}
	index, _ := store.LoadIndex(ctx, "u")
	if index[0].Title != "After" {
		t.Fatalf("want trimmed new title got=%q", index[0].Title)
	}

	if err := store.RenameConversation(ctx, "u", "nope", "x"); err == nil {
		t.Fatalf("renaming an unknown conversation should fail")
	}
}

func TestDeleteConversationIdempotent(t *testing.T) {
	store, blob := newTestChatStore(t, &fakeLLM{completeText: "T"})
	ctx := context.Background()

	conv := &types.Conversation{ID: "eeee5555", Messages: []types.Turn{{Role: types.RoleUser, Content: "q"}}}
	if err := store.SaveConversation(ctx, "u", conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.DeleteConversation(ctx, "u", "eeee5555"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := blob.objects[conversationKey("u", "eeee5555")]; ok {
		t.Fatalf("conversation object still present")
	}
	index, _ := store.LoadIndex(ctx, "u")
	if len(index) != 0 {
		t.Fatalf("index entry not removed: %+v", index)
	}

	// Deleting again must not fail.
	if err := store.DeleteConversation(ctx, "u", "eeee5555"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestNewConversationID(t *testing.T) {
	store, _ := newTestChatStore(t, &fakeLLM{})

	id := store.NewConversationID()
	if len(id) != 8 {
		t.Fatalf("want 8 chars got=%q", id)
	}
	if strings.Contains(id, "-") {
		t.Fatalf("id should be bare hex: %q", id)
	}
	if id == store.NewConversationID() {
		t.Fatalf("ids should be unique")
	}
}

func TestGenerateTitleFallbacks(t *testing.T) {
	ctx := context.Background()

	long := strings.Repeat("w", 55)
	store, _ := newTestChatStore(t, &fakeLLM{completeErr: errTest})
	if got := store.GenerateTitle(ctx, long); got != strings.Repeat("w", 40)+"..." {
		t.Fatalf("model failure fallback wrong: %q", got)
	}

	store, _ = newTestChatStore(t, &fakeLLM{completeText: `"Cold Start Smoke"` + "."})
	if got := store.GenerateTitle(ctx, "why smoke?"); got != "Cold Start Smoke" {
		t.Fatalf("want stripped title got=%q", got)
	}

	store, _ = newTestChatStore(t, &fakeLLM{completeText: "short title"})
	if got := store.GenerateTitle(ctx, "short question"); got != "short title" {
		t.Fatalf("want model title got=%q", got)
	}
}
