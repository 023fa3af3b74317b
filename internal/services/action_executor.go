package services

import (
	"context"
	"fmt"
	"strings"

	"omnidesk/internal/config"
	"omnidesk/internal/metrics"
	"omnidesk/pkg/webhook"

	"github.com/sirupsen/logrus"
)

// ActionHandler executes one action descriptor against an event payload.
// Returned errors are logged and swallowed by the executor; they never reach
// the rule engine.
type ActionHandler func(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error

// Collaborator capabilities the built-in delegating actions call into.
type ConversationAssigner interface {
	Assign(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error
}

type TicketCreator interface {
	CreateFromAutomation(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error
}

type NotificationSender interface {
	SendFromAutomation(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error
}

// ActionExecutor maps action type tags to handlers and isolates their
// failures. One failing action must not prevent the next from running.
type ActionExecutor struct {
	webhooks   webhook.Sender
	n8nBaseURL string
	handlers   map[string]ActionHandler
	logger     *logrus.Logger
}

func NewActionExecutor(
	cfg config.AutomationConfig,
	webhooks webhook.Sender,
	conversations ConversationAssigner,
	tickets TicketCreator,
	notifications NotificationSender,
	logger *logrus.Logger,
) *ActionExecutor {
	if logger == nil {
		logger = logrus.New()
	}
	e := &ActionExecutor{
		webhooks:   webhooks,
		n8nBaseURL: cfg.N8NBaseURL,
		handlers:   make(map[string]ActionHandler),
		logger:     logger,
	}

	e.Register("send_webhook", e.sendWebhook)
	e.Register("send_n8n_webhook", e.sendN8NWebhook)
	if conversations != nil {
		e.Register("assign_conversation", conversations.Assign)
	}
	if tickets != nil {
		e.Register("create_ticket", tickets.CreateFromAutomation)
	}
	if notifications != nil {
		e.Register("send_notification", notifications.SendFromAutomation)
	}
	return e
}

// Register adds or replaces the handler for an action type tag.
func (e *ActionExecutor) Register(actionType string, handler ActionHandler) {
	e.handlers[actionType] = handler
}

// Execute runs the handler registered for actionType. Unknown types log a
// warning and no-op; handler errors are logged and swallowed.
func (e *ActionExecutor) Execute(ctx context.Context, actionType string, params map[string]interface{}, payload map[string]interface{}) {
	handler, ok := e.handlers[actionType]
	if !ok {
		e.logger.Warnf("automation: unknown action type: %s", actionType)
		return
	}
	metrics.IncActionExecuted(actionType)
	if err := handler(ctx, params, payload); err != nil {
		metrics.IncActionFailed()
		e.logger.Errorf("automation: action %s failed: %v", actionType, err)
	}
}

func (e *ActionExecutor) sendWebhook(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error {
	url, _ := params["url"].(string)
	if url == "" {
		return fmt.Errorf("url param required")
	}
	return e.webhooks.Post(ctx, url, payload)
}

func (e *ActionExecutor) sendN8NWebhook(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error {
	if e.n8nBaseURL == "" {
		// Missing config is an operator concern, not a rule failure.
		e.logger.Warn("automation: n8n base URL not configured, skipping send_n8n_webhook")
		return nil
	}
	workflowID, _ := params["workflowId"].(string)
	if workflowID == "" {
		return fmt.Errorf("workflowId param required")
	}
	url := strings.TrimRight(e.n8nBaseURL, "/") + "/webhook/" + workflowID
	return e.webhooks.Post(ctx, url, payload)
}
