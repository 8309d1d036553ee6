package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/requestdata"
	"github.com/luftkuhl/ninethree-backend/internal/services"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

type ProfileHandler struct {
	log            *logger.Logger
	profileService services.ProfileService
}

func NewProfileHandler(log *logger.Logger, profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		log:            log.With("handler", "ProfileHandler"),
		profileService: profileService,
	}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	profile, err := h.profileService.Load(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "PROFILE_LOAD_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"profile": profile, "complete": profile.Complete()})
}

func (h *ProfileHandler) Put(c *gin.Context) {
	var profile types.CarProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	saved, err := h.profileService.Save(c.Request.Context(), userID, &profile)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "PROFILE_SAVE_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"profile": saved})
}
