package app

import (
	"fmt"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Profile   services.ProfileService
	ChatStore services.ChatStore
	Search    services.SearchService
	Pipeline  services.AnswerPipeline
	Images    services.ImageService
}

func wireServices(log *logger.Logger, cfg Config, clients *Clients) (*Services, error) {
	auth, err := services.NewAuthService(log, clients.Blob, cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	profile := services.NewProfileService(log, clients.Blob, clients.VINs)
	chatStore := services.NewChatStore(log, clients.Blob, clients.LLM)
	search := services.NewSearchService(log, clients.Embedder, clients.Index, cfg.IndexName)

	pipeline := services.NewAnswerPipeline(
		log,
		clients.LLM,
		services.NewRewriteService(log, clients.LLM),
		search,
		services.NewPromptService(),
		services.NewPartsService(),
	)

	return &Services{
		Auth:      auth,
		Profile:   profile,
		ChatStore: chatStore,
		Search:    search,
		Pipeline:  pipeline,
		Images:    services.NewImageService(log, clients.Blob),
	}, nil
}
