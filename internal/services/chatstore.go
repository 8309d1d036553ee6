package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luftkuhl/ninethree-backend/internal/platform/anthropic"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/platform/s3"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

const (
	titleMaxTokens   = 20
	titleMaxLen      = 50
	titleFallbackLen = 40
)

// ChatStore persists per-user conversations and the sidebar index. All
// writes go straight to the blob store; concurrent writers to the same
// conversation are last-write-wins.
type ChatStore interface {
	LoadIndex(ctx context.Context, userID string) ([]types.IndexEntry, error)
	SaveIndex(ctx context.Context, userID string, index []types.IndexEntry) error
	LoadConversation(ctx context.Context, userID, convID string) (*types.Conversation, error)
	SaveConversation(ctx context.Context, userID string, conv *types.Conversation) error
	RenameConversation(ctx context.Context, userID, convID, title string) error
	DeleteConversation(ctx context.Context, userID, convID string) error
	NewConversationID() string
	GenerateTitle(ctx context.Context, firstMessage string) string
}

type chatStore struct {
	log  *logger.Logger
	blob BlobStore
	llm  anthropic.Client
	now  func() time.Time
}

func NewChatStore(log *logger.Logger, blob BlobStore, llm anthropic.Client) ChatStore {
	return &chatStore{
		log:  log.With("service", "ChatStore"),
		blob: blob,
		llm:  llm,
		now:  time.Now,
	}
}

func (s *chatStore) LoadIndex(ctx context.Context, userID string) ([]types.IndexEntry, error) {
	raw, err := s.blob.Get(ctx, chatIndexKey(userID))
	if err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			return []types.IndexEntry{}, nil
		}
		return nil, err
	}
	var index []types.IndexEntry
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("decode chat index for %s: %w", userID, err)
	}
	return index, nil
}

func (s *chatStore) SaveIndex(ctx context.Context, userID string, index []types.IndexEntry) error {
	raw, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return s.blob.Put(ctx, chatIndexKey(userID), raw, "application/json")
}

func (s *chatStore) LoadConversation(ctx context.Context, userID, convID string) (*types.Conversation, error) {
	raw, err := s.blob.Get(ctx, conversationKey(userID, convID))
	if err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var conv types.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", convID, err)
	}
	return &conv, nil
}

// SaveConversation writes the message log and refreshes the conversation's
// index row, creating one when missing. New conversations land at the top.
func (s *chatStore) SaveConversation(ctx context.Context, userID string, conv *types.Conversation) error {
	raw, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	if err := s.blob.Put(ctx, conversationKey(userID, conv.ID), raw, "application/json"); err != nil {
		return err
	}

	index, err := s.LoadIndex(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339)
	found := false
	for i := range index {
		if index[i].ID == conv.ID {
			// Conversations created empty get their title on the save that
			// brings the first message. Never regenerate an assigned title.
			if index[i].Title == "" && len(conv.Messages) > 0 {
				index[i].Title = s.GenerateTitle(ctx, conv.Messages[0].Content)
			}
			index[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		title := ""
		if len(conv.Messages) > 0 {
			title = s.GenerateTitle(ctx, conv.Messages[0].Content)
		}
		entry := types.IndexEntry{ID: conv.ID, Title: title, CreatedAt: now, UpdatedAt: now}
		index = append([]types.IndexEntry{entry}, index...)
	}
	return s.SaveIndex(ctx, userID, index)
}

func (s *chatStore) RenameConversation(ctx context.Context, userID, convID, title string) error {
	index, err := s.LoadIndex(ctx, userID)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].ID == convID {
			index[i].Title = strings.TrimSpace(title)
			index[i].UpdatedAt = s.now().UTC().Format(time.RFC3339)
			return s.SaveIndex(ctx, userID, index)
		}
	}
	return fmt.Errorf("conversation %s not found", convID)
}

// DeleteConversation removes the conversation object and its index row.
// Deleting an unknown ID is not an error, and a failed object delete still
// drops the index row so the sidebar stays consistent.
func (s *chatStore) DeleteConversation(ctx context.Context, userID, convID string) error {
	if err := s.blob.Delete(ctx, conversationKey(userID, convID)); err != nil {
		s.log.Warn("conversation object delete failed, removing index entry anyway",
			"conversation_id", convID,
			"error", err.Error(),
		)
	}
	index, err := s.LoadIndex(ctx, userID)
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, e := range index {
		if e.ID != convID {
			kept = append(kept, e)
		}
	}
	return s.SaveIndex(ctx, userID, kept)
}

func (s *chatStore) NewConversationID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// GenerateTitle asks the fast model for a 3-6 word title. Any failure
// falls back to a truncation of the message itself; titling never blocks
// or fails a chat.
func (s *chatStore) GenerateTitle(ctx context.Context, firstMessage string) string {
	firstMessage = strings.TrimSpace(firstMessage)
	fallback := truncateRunes(firstMessage, titleFallbackLen)
	if len([]rune(firstMessage)) > titleFallbackLen {
		fallback += "..."
	}

	if err := s.llm.Configured(); err != nil {
		return fallback
	}
	prompt := "Generate a 3-6 word title for this Porsche 993 question. " +
		"Just the title, no quotes or extra punctuation.\n\nQuestion: " + firstMessage
	raw, err := s.llm.Complete(ctx, s.llm.SmallModel(), "", []anthropic.Message{
		{Role: types.RoleUser, Content: prompt},
	}, titleMaxTokens)
	if err != nil {
		s.log.Warn("title generation failed, using fallback", "error", err.Error())
		return fallback
	}
	title := strings.Trim(strings.TrimSpace(raw), "\"'.")
	if title == "" {
		return fallback
	}
	return truncateRunes(title, titleMaxLen)
}
