package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Automation triggers form a closed vocabulary; rules referencing anything
// else are rejected at the management API.
const (
	TriggerMessageReceived     = "message_received"
	TriggerConversationCreated = "conversation_created"
	TriggerTicketCreated       = "ticket_created"
	TriggerTicketUpdated       = "ticket_updated"
	TriggerTicketUnassigned    = "ticket_unassigned"
)

// IsSupportedTrigger reports whether trigger is part of the closed enum.
func IsSupportedTrigger(trigger string) bool {
	switch trigger {
	case TriggerMessageReceived, TriggerConversationCreated,
		TriggerTicketCreated, TriggerTicketUpdated, TriggerTicketUnassigned:
		return true
	default:
		return false
	}
}

// Condition is a single predicate over a dotted payload path.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Action is a side-effect descriptor executed when all conditions pass.
type Action struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// AutomationRule 自动化规则定义
type AutomationRule struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	Trigger    string    `gorm:"not null;index" json:"trigger"`    // see Trigger* constants
	Conditions string    `gorm:"type:text" json:"conditions"`      // JSON: [{field,operator,value}]
	Actions    string    `gorm:"type:text" json:"actions"`         // JSON: [{type,params}]
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *AutomationRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ConditionList decodes the stored conditions column. An empty column decodes
// to an empty list (a rule with no conditions matches everything).
func (r *AutomationRule) ConditionList() ([]Condition, error) {
	if r.Conditions == "" {
		return nil, nil
	}
	var conds []Condition
	if err := json.Unmarshal([]byte(r.Conditions), &conds); err != nil {
		return nil, err
	}
	return conds, nil
}

// ActionList decodes the stored actions column. List order is execution order.
func (r *AutomationRule) ActionList() ([]Action, error) {
	if r.Actions == "" {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal([]byte(r.Actions), &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// AutomationRun 规则执行记录用于审计
type AutomationRun struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RuleID    string    `gorm:"index" json:"rule_id"`
	Trigger   string    `gorm:"index" json:"trigger"`
	Status    string    `gorm:"index" json:"status"` // matched, skipped, invalid, failed
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
