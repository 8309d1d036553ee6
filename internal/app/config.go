package app

import (
	"strings"

	"github.com/joho/godotenv"

	"github.com/luftkuhl/ninethree-backend/internal/platform/envutil"
)

type Config struct {
	Mode         string
	Port         string
	JWTSecret    string
	IndexName    string
	AllowOrigins []string
}

func LoadConfig() Config {
	// Missing .env is fine in deployed environments.
	_ = godotenv.Load()

	return Config{
		Mode:         envutil.Get("APP_MODE", "dev"),
		Port:         envutil.Get("PORT", "8080"),
		JWTSecret:    envutil.Get("JWT_SECRET", ""),
		IndexName:    envutil.Get("PINECONE_INDEX", "porsche-993"),
		AllowOrigins: splitOrigins(envutil.Get("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
	}
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
