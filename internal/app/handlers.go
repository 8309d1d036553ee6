package app

import (
	"github.com/luftkuhl/ninethree-backend/internal/handlers"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Profile       *handlers.ProfileHandler
	Conversations *handlers.ConversationHandler
	Chat          *handlers.ChatHandler
	Images        *handlers.ImageHandler
	Health        *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, svcs *Services) *Handlers {
	return &Handlers{
		Auth:          handlers.NewAuthHandler(log, svcs.Auth),
		Profile:       handlers.NewProfileHandler(log, svcs.Profile),
		Conversations: handlers.NewConversationHandler(log, svcs.ChatStore, svcs.Images),
		Chat:          handlers.NewChatHandler(log, svcs.Pipeline, svcs.ChatStore, svcs.Profile),
		Images:        handlers.NewImageHandler(log, svcs.Images),
		Health:        handlers.NewHealthHandler(log, svcs.Search),
	}
}
