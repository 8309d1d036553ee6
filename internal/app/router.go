package app

import (
	"github.com/gin-gonic/gin"

	"github.com/luftkuhl/ninethree-backend/internal/server"
)

func wireRouter(cfg Config, mw *Middleware, h *Handlers) *gin.Engine {
	if cfg.Mode == "prod" || cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return server.NewRouter(server.RouterDeps{
		AuthMW:        mw.Auth,
		Auth:          h.Auth,
		Profile:       h.Profile,
		Conversations: h.Conversations,
		Chat:          h.Chat,
		Images:        h.Images,
		Health:        h.Health,
		AllowOrigins:  cfg.AllowOrigins,
	})
}
