package services

import (
	"context"
	"fmt"
	"time"

	"omnidesk/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TicketService owns support tickets. It fires ticket_created,
// ticket_updated and ticket_unassigned, and is the create_ticket action
// target.
type TicketService struct {
	db     *gorm.DB
	engine TriggerEvaluator
	logger *logrus.Logger
}

func NewTicketService(db *gorm.DB, logger *logrus.Logger) *TicketService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TicketService{db: db, logger: logger}
}

func (s *TicketService) SetRuleEngine(engine TriggerEvaluator) {
	s.engine = engine
}

// TicketRequest 创建工单请求
type TicketRequest struct {
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Priority       string  `json:"priority"`
	ConversationID *string `json:"conversation_id"`
	AssignedToID   *string `json:"assigned_to_id"`
}

// TicketUpdateRequest 更新工单请求，nil 字段保持不变
type TicketUpdateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Priority     *string `json:"priority"`
	Status       *string `json:"status"`
	AssignedToID *string `json:"assigned_to_id"`
	Unassign     bool    `json:"unassign"`
}

// CreateTicket stores a ticket and fires ticket_created.
func (s *TicketService) CreateTicket(ctx context.Context, req *TicketRequest) (*models.Ticket, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}
	ticket := &models.Ticket{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       priority,
		Status:         "open",
		ConversationID: req.ConversationID,
		AssignedToID:   req.AssignedToID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}

	s.fireTrigger(ctx, models.TriggerTicketCreated, ticketPayload(ticket))
	return ticket, nil
}

// UpdateTicket applies a partial update and fires ticket_updated; clearing
// the assignee additionally fires ticket_unassigned.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, req *TicketUpdateRequest) (*models.Ticket, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("ticket not found")
		}
		return nil, err
	}

	hadAssignee := ticket.AssignedToID != nil && *ticket.AssignedToID != ""

	if req.Title != nil {
		ticket.Title = *req.Title
	}
	if req.Description != nil {
		ticket.Description = *req.Description
	}
	if req.Category != nil {
		ticket.Category = *req.Category
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}
	if req.Status != nil {
		ticket.Status = *req.Status
		if *req.Status == "resolved" && ticket.ResolvedAt == nil {
			now := time.Now()
			ticket.ResolvedAt = &now
		}
	}
	if req.Unassign {
		ticket.AssignedToID = nil
	} else if req.AssignedToID != nil {
		ticket.AssignedToID = req.AssignedToID
	}
	ticket.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&ticket).Error; err != nil {
		return nil, err
	}

	payload := ticketPayload(&ticket)
	s.fireTrigger(ctx, models.TriggerTicketUpdated, payload)
	if req.Unassign && hadAssignee {
		s.fireTrigger(ctx, models.TriggerTicketUnassigned, payload)
	}
	return &ticket, nil
}

// GetTicket loads one ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("ticket not found")
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListTickets 返回工单列表，最近创建优先
func (s *TicketService) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateFromAutomation is the create_ticket action capability. Tickets
// created by a rule do not fire ticket_created again: rules never chain.
func (s *TicketService) CreateFromAutomation(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error {
	title, _ := params["title"].(string)
	if title == "" {
		if subject, ok := payload["subject"].(string); ok && subject != "" {
			title = subject
		} else {
			title = "Automation ticket"
		}
	}
	description, _ := params["description"].(string)
	category, _ := params["category"].(string)
	priority, _ := params["priority"].(string)
	if priority == "" {
		priority = "normal"
	}

	ticket := &models.Ticket{
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      "open",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if conversationID, ok := payload["id"].(string); ok && conversationID != "" {
		// message/conversation payloads carry the conversation id at the root
		ticket.ConversationID = &conversationID
	}
	return s.db.WithContext(ctx).Create(ticket).Error
}

func (s *TicketService) fireTrigger(ctx context.Context, trigger string, payload map[string]interface{}) {
	if s.engine == nil {
		return
	}
	if err := s.engine.EvaluateTrigger(ctx, trigger, payload); err != nil {
		s.logger.Warnf("automation: evaluate %s failed: %v", trigger, err)
	}
}

// ticketPayload builds the JSON-like event payload for ticket triggers.
func ticketPayload(ticket *models.Ticket) map[string]interface{} {
	payload := map[string]interface{}{
		"id":       ticket.ID,
		"title":    ticket.Title,
		"category": ticket.Category,
		"priority": ticket.Priority,
		"status":   ticket.Status,
	}
	if ticket.AssignedToID != nil {
		payload["assignedTo"] = *ticket.AssignedToID
	}
	if ticket.ConversationID != nil {
		payload["conversationId"] = *ticket.ConversationID
	}
	return payload
}
