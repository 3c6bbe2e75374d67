package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"aichat-backend/internal/ai"
	"aichat-backend/internal/app"
	"aichat-backend/internal/transport/http/middleware"
	"aichat-backend/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type historyItem struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	var req ChatRequest
	if !bindJSON(c, &req, app.ErrMessageEmpty.Error()) {
		return
	}

	record, err := h.chatService.Send(c.Request.Context(), userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, "invalid token payload")
		case errors.Is(err, ai.ErrUpstream):
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "AI response generation failed")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "chat failed")
		}
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"response": record.Response})
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	records, err := h.chatService.History(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "get history failed")
		return
	}

	items := make([]historyItem, 0, len(records))
	for _, r := range records {
		items = append(items, historyItem{
			ID:        r.ID,
			Message:   r.Message,
			Response:  r.Response,
			CreatedAt: r.CreatedAt,
		})
	}
	response.JSON(c, http.StatusOK, gin.H{"history": items})
}
