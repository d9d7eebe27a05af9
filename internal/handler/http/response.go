package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paragishere/Cyvance-chat/internal/service"
)

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

// SendResponse 是发送消息接口的响应体
type SendResponse struct {
	OK     bool                `json:"ok"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func ValidationErrorResponse(c *gin.Context, verr *service.ValidationError) {
	c.JSON(http.StatusBadRequest, SendResponse{OK: false, Errors: verr.Fields})
}

// MessageJSON 是轮询接口中的单条消息
type MessageJSON struct {
	ID        uint    `json:"id"`
	Type      string  `json:"type"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"image_url"`
	CreatedAt string  `json:"created_at"`
	Nickname  string  `json:"nickname"`
}

// MessagesResponse 是轮询接口的响应体
type MessagesResponse struct {
	Messages   []MessageJSON `json:"messages"`
	ServerTime string        `json:"server_time"`
	ExpiresAt  string        `json:"expires_at"`
}

func newMessagesResponse(page *service.MessagePage) MessagesResponse {
	resp := MessagesResponse{
		Messages:   make([]MessageJSON, 0, len(page.Messages)),
		ServerTime: service.FormatTimestamp(page.ServerTime),
		ExpiresAt:  service.FormatTimestamp(page.ExpiresAt),
	}
	for _, m := range page.Messages {
		resp.Messages = append(resp.Messages, MessageJSON{
			ID:        m.ID,
			Type:      string(m.Type),
			Content:   m.Content,
			ImageURL:  m.ImageURL,
			CreatedAt: service.FormatTimestamp(m.CreatedAt),
			Nickname:  m.Nickname,
		})
	}
	return resp
}
