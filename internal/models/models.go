package models

import (
	"time"
)

// DefaultMessageType tags messages that carry no template type.
const DefaultMessageType = "other"

// Template describes one drop folder: its name doubles as the folder name.
type Template struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Type            string    `gorm:"type:varchar(50);not null;default:'other'" json:"type"`
	RecipientColumn string    `gorm:"type:varchar(10);not null" json:"recipient_column"`
	Body            string    `gorm:"type:text;not null" json:"body"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

// Message is the audit row for one dispatch attempt. Gateway fields stay
// null until the attempt is finalized.
type Message struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SenderID        uint      `gorm:"index;not null" json:"sender_id"`
	Type            string    `gorm:"type:varchar(50);not null" json:"type"`
	Recipient       string    `gorm:"type:varchar(50);index;not null" json:"recipient"`
	Text            string    `gorm:"type:text" json:"text"`
	GatewayStatus   *int      `json:"gateway_status"`
	GatewayResponse *string   `gorm:"type:text" json:"gateway_response"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Pending reports whether the attempt still waits for a gateway outcome.
func (m *Message) Pending() bool {
	return m.GatewayStatus == nil
}
