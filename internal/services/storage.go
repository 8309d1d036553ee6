package services

import (
	"context"
	"fmt"
)

// BlobStore is the persistence surface the chat, profile, auth, and image
// services share. The S3 store satisfies it; tests use an in-memory fake.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

func credentialsKey() string {
	return "auth/credentials.json"
}

func profileKey(userID string) string {
	return fmt.Sprintf("users/%s/profile.json", userID)
}

func chatIndexKey(userID string) string {
	return fmt.Sprintf("users/%s/chats/index.json", userID)
}

func conversationKey(userID, convID string) string {
	return fmt.Sprintf("users/%s/chats/%s.json", userID, convID)
}

func imageKey(userID, name string) string {
	return fmt.Sprintf("users/%s/images/%s", userID, name)
}
