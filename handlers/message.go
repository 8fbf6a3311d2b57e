package handlers

import (
	"net/http"
	"time"

	"agendly/models"
	"agendly/services/dialogue"
	"agendly/services/directory"
	"agendly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageHandler exposes the dialogue engine to the messaging pipeline.
type MessageHandler struct {
	Engine    dialogue.DialogueEngine
	Directory directory.DirectoryService
	Logger    *zap.Logger
}

func NewMessageHandler(engine dialogue.DialogueEngine, dir directory.DirectoryService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{Engine: engine, Directory: dir, Logger: logger}
}

type inboundMessage struct {
	ConversationID string         `json:"conversationId" binding:"required"`
	Text           string         `json:"text" binding:"required"`
	Contact        models.Contact `json:"contact"`
}

// HandleInbound runs one dialogue turn for an inbound message and returns
// the outbound message directives the pipeline should deliver.
func (h *MessageHandler) HandleInbound(c *gin.Context) {
	var input inboundMessage
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	dir, err := h.Directory.Snapshot(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load directory", err.Error())
		return
	}

	result, err := h.Engine.HandleTurn(c.Request.Context(), models.TurnInput{
		ConversationID: input.ConversationID,
		Text:           input.Text,
		Contact:        input.Contact,
		Now:            time.Now().UTC(),
		Directory:      dir,
	})
	if err != nil {
		// Only storage-layer failures cross the engine boundary.
		h.Logger.Error("dialogue turn failed",
			zap.String("conversationId", input.ConversationID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// Health reports service liveness.
func (h *MessageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
