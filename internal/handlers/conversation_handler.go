package handlers

import (
	"net/http"

	"omnidesk/internal/services"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 会话与消息接口
type ConversationHandler struct {
	service *services.ConversationService
}

func NewConversationHandler(service *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// ListConversations 获取会话列表
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	convs, err := h.service.ListConversations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list conversations", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, convs)
}

// CreateConversation 创建会话（触发 conversation_created 自动化）
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req services.ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create conversation", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// GetConversation 获取单个会话
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.service.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "conversation not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to load conversation", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, conv)
}

// AddMessage 追加消息（入站消息触发 message_received 自动化）
func (h *ConversationHandler) AddMessage(c *gin.Context) {
	var req services.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	msg, err := h.service.AddMessage(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		status := http.StatusBadRequest
		if err.Error() == "conversation not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to add message", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// RegisterConversationRoutes 注册路由
func RegisterConversationRoutes(r *gin.RouterGroup, handler *ConversationHandler) {
	convs := r.Group("/conversations")
	{
		convs.GET("", handler.ListConversations)
		convs.POST("", handler.CreateConversation)
		convs.GET(":id", handler.GetConversation)
		convs.POST(":id/messages", handler.AddMessage)
	}
}
