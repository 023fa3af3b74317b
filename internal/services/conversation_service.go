package services

import (
	"context"
	"fmt"
	"time"

	"omnidesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TriggerEvaluator is implemented by the rule engine. Domain services fire
// their events through it; evaluation errors are logged, never surfaced to
// the business operation that caused the event.
type TriggerEvaluator interface {
	EvaluateTrigger(ctx context.Context, trigger string, payload map[string]interface{}) error
}

// ConversationService owns omnichannel conversations and their messages.
// It is both an event source (conversation_created, message_received) and
// the assign_conversation action target.
type ConversationService struct {
	db     *gorm.DB
	engine TriggerEvaluator
	logger *logrus.Logger
}

func NewConversationService(db *gorm.DB, logger *logrus.Logger) *ConversationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ConversationService{db: db, logger: logger}
}

// SetRuleEngine injects the engine after construction; the engine's action
// executor depends on this service, so wiring happens in two steps.
func (s *ConversationService) SetRuleEngine(engine TriggerEvaluator) {
	s.engine = engine
}

// ConversationRequest 创建会话请求
type ConversationRequest struct {
	Channel   string `json:"channel" binding:"required"`
	Subject   string `json:"subject"`
	ContactID string `json:"contact_id" binding:"required"`
}

// MessageRequest 新消息请求
type MessageRequest struct {
	Direction string `json:"direction" binding:"required"` // inbound, outbound
	Sender    string `json:"sender"`
	Body      string `json:"body" binding:"required"`
}

// CreateConversation stores a conversation and fires conversation_created.
func (s *ConversationService) CreateConversation(ctx context.Context, req *ConversationRequest) (*models.Conversation, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	conv := &models.Conversation{
		Channel:   req.Channel,
		Subject:   req.Subject,
		Status:    "open",
		ContactID: req.ContactID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}

	s.fireTrigger(ctx, models.TriggerConversationCreated, s.conversationPayload(ctx, conv))
	return conv, nil
}

// AddMessage appends a message to a conversation. Inbound messages fire
// message_received; outbound (agent) messages do not trigger automations.
func (s *ConversationService) AddMessage(ctx context.Context, conversationID string, req *MessageRequest) (*models.Message, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	var conv models.Conversation
	if err := s.db.WithContext(ctx).Where("id = ?", conversationID).First(&conv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		Direction:      req.Direction,
		Sender:         req.Sender,
		Body:           req.Body,
		CreatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}

	now := msg.CreatedAt
	s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(map[string]interface{}{"last_message_at": &now, "updated_at": now})

	if req.Direction == "inbound" {
		payload := s.conversationPayload(ctx, &conv)
		payload["message"] = map[string]interface{}{
			"id":        msg.ID,
			"direction": msg.Direction,
			"sender":    msg.Sender,
			"body":      msg.Body,
		}
		s.fireTrigger(ctx, models.TriggerMessageReceived, payload)
	}
	return msg, nil
}

// GetConversation loads one conversation with its contact.
func (s *ConversationService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Preload("Contact").Where("id = ?", id).First(&conv).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("conversation not found")
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations 返回会话列表，最近更新优先
func (s *ConversationService) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// Assign is the assign_conversation automation capability. The conversation
// id comes from params or, failing that, from the event payload.
func (s *ConversationService) Assign(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error {
	conversationID, _ := params["conversationId"].(string)
	if conversationID == "" {
		conversationID, _ = payload["id"].(string)
	}
	if conversationID == "" {
		return fmt.Errorf("conversation id missing from params and payload")
	}
	assigneeID, _ := params["assigneeId"].(string)
	if assigneeID == "" {
		return fmt.Errorf("assigneeId param required")
	}

	result := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{"assigned_to_id": assigneeID, "status": "pending", "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	return nil
}

// conversationPayload builds the JSON-like event payload rules evaluate
// against. Nested contact fields stay reachable via dotted paths.
func (s *ConversationService) conversationPayload(ctx context.Context, conv *models.Conversation) map[string]interface{} {
	payload := map[string]interface{}{
		"id":      conv.ID,
		"channel": conv.Channel,
		"status":  conv.Status,
		"subject": conv.Subject,
	}
	if conv.AssignedToID != nil {
		payload["assignedTo"] = *conv.AssignedToID
	}
	var contact models.Contact
	if err := s.db.WithContext(ctx).Where("id = ?", conv.ContactID).First(&contact).Error; err == nil {
		payload["contact"] = map[string]interface{}{
			"id":      contact.ID,
			"name":    contact.Name,
			"email":   contact.Email,
			"phone":   contact.Phone,
			"company": contact.Company,
		}
	}
	return payload
}

func (s *ConversationService) fireTrigger(ctx context.Context, trigger string, payload map[string]interface{}) {
	if s.engine == nil {
		return
	}
	if err := s.engine.EvaluateTrigger(ctx, trigger, payload); err != nil {
		s.logger.Warnf("automation: evaluate %s failed: %v", trigger, err)
	}
}
