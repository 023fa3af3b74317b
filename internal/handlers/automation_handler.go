package handlers

import (
	"net/http"

	"omnidesk/internal/models"
	"omnidesk/internal/services"

	"github.com/gin-gonic/gin"
)

// AutomationHandler 管理自动化规则
type AutomationHandler struct {
	service *services.AutomationService
	engine  *services.RuleEngine
}

func NewAutomationHandler(service *services.AutomationService, engine *services.RuleEngine) *AutomationHandler {
	return &AutomationHandler{service: service, engine: engine}
}

// ListRules 获取规则列表
func (h *AutomationHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list rules", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule 创建规则
func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var req services.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetRule 获取单条规则
func (h *AutomationHandler) GetRule(c *gin.Context) {
	rule, err := h.service.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if err == services.ErrRuleNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to load rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule 更新规则
func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	var req services.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		status := http.StatusBadRequest
		if err == services.ErrRuleNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule 删除规则
func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if err == services.ErrRuleNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ToggleRule 切换规则启用状态
func (h *AutomationHandler) ToggleRule(c *gin.Context) {
	rule, err := h.service.ToggleRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if err == services.ErrRuleNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to toggle rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListRuns 获取最近执行记录
func (h *AutomationHandler) ListRuns(c *gin.Context) {
	runs, err := h.service.ListRuns(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list runs", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// TestTriggerRequest 手工触发评估请求
type TestTriggerRequest struct {
	Trigger string                 `json:"trigger" binding:"required"`
	Payload map[string]interface{} `json:"payload"`
}

// TestTrigger evaluates a trigger against an inline payload. Operational
// escape hatch for verifying rules without waiting for a real event.
func (h *AutomationHandler) TestTrigger(c *gin.Context) {
	var req TestTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	if !models.IsSupportedTrigger(req.Trigger) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unsupported trigger", Message: req.Trigger})
		return
	}

	if err := h.engine.EvaluateTrigger(c.Request.Context(), req.Trigger, req.Payload); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Evaluation failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "evaluated"})
}

// RegisterAutomationRoutes 注册路由
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	auto := r.Group("/automation")
	{
		auto.GET("/rules", handler.ListRules)
		auto.POST("/rules", handler.CreateRule)
		auto.GET("/rules/:id", handler.GetRule)
		auto.PATCH("/rules/:id", handler.UpdateRule)
		auto.DELETE("/rules/:id", handler.DeleteRule)
		auto.PATCH("/rules/:id/toggle", handler.ToggleRule)
		auto.GET("/runs", handler.ListRuns)
		auto.POST("/test", handler.TestTrigger)
	}
}
