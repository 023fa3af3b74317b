package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 联系人（终端客户）
type Contact struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"index" json:"email"`
	Phone     string         `json:"phone"`
	Company   string         `json:"company"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Conversations []Conversation `gorm:"foreignKey:ContactID" json:"conversations,omitempty"`
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// 会话模型（全渠道收件箱）
type Conversation struct {
	ID            string         `gorm:"primaryKey;type:uuid" json:"id"`
	Channel       string         `gorm:"not null" json:"channel"` // whatsapp, instagram, messenger, email, web
	Status        string         `gorm:"default:'open'" json:"status"` // open, pending, resolved, closed
	Subject       string         `json:"subject"`
	ContactID     string         `gorm:"index" json:"contact_id"`
	AssignedToID  *string        `gorm:"index" json:"assigned_to_id"`
	LastMessageAt *time.Time     `json:"last_message_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Contact  Contact   `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// 消息模型
type Message struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ConversationID string    `gorm:"index;not null" json:"conversation_id"`
	Direction      string    `gorm:"not null" json:"direction"` // inbound, outbound
	Sender         string    `json:"sender"`
	Body           string    `gorm:"type:text" json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// 工单模型
type Ticket struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	Category       string         `json:"category"`                         // technical, billing, general, complaint
	Priority       string         `gorm:"default:'normal'" json:"priority"` // low, normal, high, urgent
	Status         string         `gorm:"default:'open'" json:"status"`     // open, assigned, in_progress, resolved, closed
	ConversationID *string        `gorm:"index" json:"conversation_id"`
	AssignedToID   *string        `gorm:"index" json:"assigned_to_id"`
	ResolvedAt     *time.Time     `json:"resolved_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// 通知模型
type Notification struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Type      string    `gorm:"default:'system'" json:"type"` // system, automation
	Title     string    `json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
