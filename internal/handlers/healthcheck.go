package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/services"
)

type HealthHandler struct {
	log           *logger.Logger
	searchService services.SearchService
}

func NewHealthHandler(log *logger.Logger, searchService services.SearchService) *HealthHandler {
	return &HealthHandler{
		log:           log.With("handler", "HealthHandler"),
		searchService: searchService,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}

// Stats reports knowledge-base size from the vector index. Doubles as a
// connectivity check for Pinecone credentials.
func (h *HealthHandler) Stats(c *gin.Context) {
	stats, err := h.searchService.Stats(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusBadGateway, "INDEX_UNAVAILABLE", err)
		return
	}
	RespondOK(c, gin.H{
		"total_vector_count": stats.TotalVectorCount,
		"dimension":          stats.Dimension,
	})
}
