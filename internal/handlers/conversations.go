package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/requestdata"
	"github.com/luftkuhl/ninethree-backend/internal/services"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

type ConversationHandler struct {
	log          *logger.Logger
	chatStore    services.ChatStore
	imageService services.ImageService
}

func NewConversationHandler(log *logger.Logger, chatStore services.ChatStore, imageService services.ImageService) *ConversationHandler {
	return &ConversationHandler{
		log:          log.With("handler", "ConversationHandler"),
		chatStore:    chatStore,
		imageService: imageService,
	}
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	index, err := h.chatStore.LoadIndex(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "INDEX_LOAD_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"conversations": index})
}

func (h *ConversationHandler) Create(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	conv := &types.Conversation{ID: h.chatStore.NewConversationID(), Messages: []types.Turn{}}
	if err := h.chatStore.SaveConversation(c.Request.Context(), userID, conv); err != nil {
		RespondError(c, http.StatusInternalServerError, "CONVERSATION_CREATE_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"conversation": conv})
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	conv, err := h.chatStore.LoadConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "CONVERSATION_LOAD_FAILED", err)
		return
	}
	if conv == nil {
		RespondError(c, http.StatusNotFound, "CONVERSATION_NOT_FOUND", nil)
		return
	}
	RespondOK(c, gin.H{"conversation": conv})
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	if err := h.chatStore.RenameConversation(c.Request.Context(), userID, c.Param("id"), req.Title); err != nil {
		RespondError(c, http.StatusNotFound, "CONVERSATION_RENAME_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"status": "renamed"})
}

// Delete removes the conversation and, best effort, any images its turns
// reference. A failed image cleanup never fails the delete.
func (h *ConversationHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	userID := requestdata.UserID(ctx)
	convID := c.Param("id")

	if conv, err := h.chatStore.LoadConversation(ctx, userID, convID); err == nil && conv != nil {
		var names []string
		for _, turn := range conv.Messages {
			names = append(names, turn.Images...)
		}
		h.imageService.DeleteAll(ctx, userID, names)
	}

	if err := h.chatStore.DeleteConversation(ctx, userID, convID); err != nil {
		RespondError(c, http.StatusInternalServerError, "CONVERSATION_DELETE_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}
