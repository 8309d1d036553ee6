package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/luftkuhl/ninethree-backend/internal/platform/anthropic"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/requestdata"
	"github.com/luftkuhl/ninethree-backend/internal/services"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

type ChatHandler struct {
	log            *logger.Logger
	pipeline       services.AnswerPipeline
	chatStore      services.ChatStore
	profileService services.ProfileService
}

func NewChatHandler(
	log *logger.Logger,
	pipeline services.AnswerPipeline,
	chatStore services.ChatStore,
	profileService services.ProfileService,
) *ChatHandler {
	return &ChatHandler{
		log:            log.With("handler", "ChatHandler"),
		pipeline:       pipeline,
		chatStore:      chatStore,
		profileService: profileService,
	}
}

type askRequest struct {
	Question string   `json:"question" binding:"required"`
	Images   []string `json:"images"`
}

// Ask answers a question inside a conversation, streaming the answer as
// server-sent events: "delta" events with text chunks, then one "done"
// event with the answer metadata. Errors after streaming has started are
// emitted as an "error" event since the status line is already gone.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	ctx := c.Request.Context()
	userID := requestdata.UserID(ctx)
	convID := c.Param("id")

	var (
		conv    *types.Conversation
		profile *types.CarProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conv, err = h.chatStore.LoadConversation(gctx, userID, convID)
		return err
	})
	g.Go(func() error {
		// Profile load is best effort: chat works with generic advice.
		p, err := h.profileService.Load(gctx, userID)
		if err != nil {
			h.log.Warn("profile load failed, answering without it", "error", err.Error())
			return nil
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		RespondError(c, http.StatusInternalServerError, "CONVERSATION_LOAD_FAILED", err)
		return
	}
	if conv == nil {
		RespondError(c, http.StatusNotFound, "CONVERSATION_NOT_FOUND", nil)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		RespondError(c, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", fmt.Errorf("response writer cannot flush"))
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	emit := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	history := conv.Messages
	full, meta, err := h.pipeline.Answer(ctx, req.Question, history, profile, func(delta string) {
		emit("delta", gin.H{"text": delta})
	})
	if err != nil {
		code := "ANSWER_FAILED"
		if errors.Is(err, anthropic.ErrNotConfigured) {
			code = "LLM_NOT_CONFIGURED"
		}
		h.log.Error("answer pipeline failed", "conversation_id", convID, "error", err.Error())
		emit("error", gin.H{"message": err.Error(), "code": code})
		return
	}

	conv.Messages = append(conv.Messages,
		types.Turn{Role: types.RoleUser, Content: req.Question, Images: req.Images},
		types.Turn{Role: types.RoleAssistant, Content: full},
	)
	if err := h.chatStore.SaveConversation(ctx, userID, conv); err != nil {
		// The user already has the answer; losing the save is a warning,
		// not a failed request.
		h.log.Warn("conversation save failed", "conversation_id", convID, "error", err.Error())
	}

	emit("done", gin.H{"meta": meta, "message_count": len(conv.Messages)})
}
