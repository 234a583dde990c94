package handler

import (
	"net/http"

	"github.com/alpinesboltltd/docwell/internal/agent"
	"github.com/alpinesboltltd/docwell/internal/contentstore"
	appErrors "github.com/alpinesboltltd/docwell/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler exposes the conversational agent and its session memory.
type ChatHandler struct {
	agent *agent.Client
	chat  *contentstore.ChatStore
}

func NewChatHandler(agentClient *agent.Client, chat *contentstore.ChatStore) *ChatHandler {
	return &ChatHandler{agent: agentClient, chat: chat}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat handles a stateless turn, POST /chat: a fresh session id is
// minted for each call.
func (h *ChatHandler) Chat(c *gin.Context) {
	h.reply(c, uuid.NewString())
}

// ChatInSession handles POST /chat/{session_id}, continuing an existing
// session's history.
func (h *ChatHandler) ChatInSession(c *gin.Context) {
	h.reply(c, c.Param("session_id"))
}

func (h *ChatHandler) reply(c *gin.Context, sessionID string) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErrors.HandleError(c, appErrors.NewValidationError("message is required"), "Chat")
		return
	}

	result, err := h.agent.Run(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		appErrors.HandleError(c, appErrors.NewInternalError("agent failed", err.Error()), "Chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "reply": result.Text, "sources": result.Sources})
}

// ListChatSessions handles GET /chat/sessions.
func (h *ChatHandler) ListChatSessions(c *gin.Context) {
	sessions, err := h.chat.ListSessions(c.Request.Context())
	if err != nil {
		appErrors.HandleError(c, err, "ListChatSessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// CreateChatSession handles POST /chat/sessions.
func (h *ChatHandler) CreateChatSession(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	_ = c.ShouldBindJSON(&req)

	sessionID := uuid.NewString()
	if err := h.chat.EnsureSession(c.Request.Context(), sessionID, req.Title); err != nil {
		appErrors.HandleError(c, err, "CreateChatSession")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sessionID, "title": req.Title})
}

// GetChatSession handles GET /chat/sessions/{id}, returning up to the
// session's maxSessionMessages most recent messages in ascending order.
func (h *ChatHandler) GetChatSession(c *gin.Context) {
	sessionID := c.Param("id")
	messages, err := h.chat.RecentMessages(c.Request.Context(), sessionID, maxSessionMessages)
	if err != nil {
		appErrors.HandleError(c, err, "GetChatSession")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": sessionID, "messages": messages})
}

const maxSessionMessages = 500
