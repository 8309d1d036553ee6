package app

import (
	"github.com/luftkuhl/ninethree-backend/internal/middleware"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, svcs *Services) *Middleware {
	return &Middleware{
		Auth: middleware.NewAuthMiddleware(log, svcs.Auth),
	}
}
