package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/service"
)

// ChatHandler 封装房间页面与消息接口的 HTTP 处理逻辑
type ChatHandler struct {
	roomService    *service.RoomService
	messageService *service.MessageService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(roomService *service.RoomService, messageService *service.MessageService) *ChatHandler {
	if roomService == nil || messageService == nil {
		panic("RoomService and MessageService cannot be nil for ChatHandler")
	}
	return &ChatHandler{roomService: roomService, messageService: messageService}
}

// RegisterRoutes 注册所有会触发过期清理的路由，purge 为 nil 时不挂载清理中间件
func (h *ChatHandler) RegisterRoutes(r gin.IRouter, purge gin.HandlerFunc) {
	g := r.Group("")
	if purge != nil {
		g.Use(purge)
	}
	g.GET("/", h.Home)
	g.POST("/create/", h.CreateRoom)
	g.GET("/r/:code/", h.RoomView)

	api := g.Group("/api/:code")
	{
		api.GET("/messages/", h.ListMessages)
		api.POST("/send/text/", h.SendText)
		api.POST("/send/code/", h.SendCode)
		api.POST("/send/image/", h.SendImage)
	}
}

// Home 返回创建房间页面
func (h *ChatHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "create.html", nil)
}

// CreateRoom 创建房间并重定向到房间页面
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	room, err := h.roomService.CreateRoom(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, roomPath(room.Code))
}

// RoomView 刷新房间活跃时间并渲染房间页面
func (h *ChatHandler) RoomView(c *gin.Context) {
	code := c.Param("code")
	room, err := h.roomService.TouchRoom(c.Request.Context(), code)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	settings := h.roomService.Settings()
	c.HTML(http.StatusOK, "room.html", gin.H{
		"Code":          room.Code,
		"ExpiryMinutes": settings.IdleMinutes(),
		"MaxImageMB":    settings.MaxImageBytes / (1024 * 1024),
		"ImageAccept":   strings.Join(settings.AllowedImageTypes, ","),
		"MessagesURL":   "/api/" + room.Code + "/messages/",
		"SendTextURL":   "/api/" + room.Code + "/send/text/",
		"SendCodeURL":   "/api/" + room.Code + "/send/code/",
		"SendImageURL":  "/api/" + room.Code + "/send/image/",
	})
}

// ListMessages 返回 since 之后的消息
func (h *ChatHandler) ListMessages(c *gin.Context) {
	page, err := h.roomService.ListMessages(c.Request.Context(), c.Param("code"), c.Query("since"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, newMessagesResponse(page))
}

// SendText 追加文本消息
func (h *ChatHandler) SendText(c *gin.Context) {
	var in service.TextInput
	if err := c.ShouldBind(&in); err != nil {
		logrus.WithError(err).Warn("Handler.SendText: Failed to parse form")
	}
	_, err := h.messageService.SendText(c.Request.Context(), c.Param("code"), in)
	h.respondSend(c, err)
}

// SendCode 追加代码消息
func (h *ChatHandler) SendCode(c *gin.Context) {
	var in service.CodeInput
	if err := c.ShouldBind(&in); err != nil {
		logrus.WithError(err).Warn("Handler.SendCode: Failed to parse form")
	}
	_, err := h.messageService.SendCode(c.Request.Context(), c.Param("code"), in)
	h.respondSend(c, err)
}

// SendImage 追加图片消息，文件字段名为 image
func (h *ChatHandler) SendImage(c *gin.Context) {
	in := service.ImageInput{Nickname: c.PostForm("nickname")}

	header, err := c.FormFile("image")
	switch {
	case err == nil:
		file, openErr := header.Open()
		if openErr != nil {
			logrus.WithError(openErr).Error("Handler.SendImage: Failed to open uploaded file")
			HandleServiceError(c, openErr)
			return
		}
		defer file.Close()
		in.Filename = header.Filename
		in.ContentType = header.Header.Get("Content-Type")
		in.Size = header.Size
		in.Data = file
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// 留空交给 Service 返回必填错误
	default:
		logrus.WithError(err).Warn("Handler.SendImage: Failed to parse multipart form")
	}

	_, err = h.messageService.SendImage(c.Request.Context(), c.Param("code"), in)
	h.respondSend(c, err)
}

func (h *ChatHandler) respondSend(c *gin.Context, err error) {
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, SendResponse{OK: true})
}

// Healthz 存活检查，不触发清理
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func roomPath(code string) string {
	return "/r/" + code + "/"
}
