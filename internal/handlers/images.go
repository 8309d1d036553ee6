package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/requestdata"
	"github.com/luftkuhl/ninethree-backend/internal/services"
)

// Raw uploads are capped well above the processed size so oversized
// originals can still be shrunk server side.
const maxUploadBytes = 20 << 20

type ImageHandler struct {
	log          *logger.Logger
	imageService services.ImageService
}

func NewImageHandler(log *logger.Logger, imageService services.ImageService) *ImageHandler {
	return &ImageHandler{
		log:          log.With("handler", "ImageHandler"),
		imageService: imageService,
	}
}

func (h *ImageHandler) Upload(c *gin.Context) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_UPLOAD", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UPLOAD_READ_FAILED", err)
		return
	}
	if len(data) > maxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
			fmt.Errorf("upload exceeds %d bytes", maxUploadBytes))
		return
	}

	userID := requestdata.UserID(c.Request.Context())
	name, err := h.imageService.Upload(c.Request.Context(), userID, data)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "IMAGE_PROCESS_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"name": name})
}

func (h *ImageHandler) Get(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	data, err := h.imageService.Load(c.Request.Context(), userID, c.Param("name"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "IMAGE_NOT_FOUND", err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}
