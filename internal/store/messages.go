// Package store holds the gorm-backed repositories for templates and message records.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/models"

	"gorm.io/gorm"
)

type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Create inserts a pending record; gateway fields are left null.
func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create message %s: %w", m.ID, err)
	}
	return nil
}

// Finalize stores the gateway outcome. It fails with apperr.ErrNotFound when
// no record with the id exists.
func (s *MessageStore) Finalize(ctx context.Context, id string, status int, response string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_status":   status,
			"gateway_response": response,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("finalize message %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E(apperr.ErrNotFound, "message %s not found", id)
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "message %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return &m, nil
}

// MessageFilter narrows the history listing. Zero values are ignored.
type MessageFilter struct {
	SenderID  uint
	Recipient string
	Text      string
	MessageID string
	Type      string
	From      time.Time
	To        time.Time // inclusive day: records up to the end of this date
}

type MessagePage struct {
	Total      int64            `json:"total_count"`
	TotalPages int              `json:"total_pages"`
	Result     []models.Message `json:"result"`
}

// List returns newest-first records matching the filter.
func (s *MessageStore) List(ctx context.Context, f MessageFilter, page, limit int) (*MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	q := s.db.WithContext(ctx).Model(&models.Message{})
	if f.SenderID != 0 {
		q = q.Where("sender_id = ?", f.SenderID)
	}
	if f.Recipient != "" {
		q = q.Where("recipient LIKE ?", "%"+f.Recipient+"%")
	}
	if f.Text != "" {
		q = q.Where("text LIKE ?", "%"+f.Text+"%")
	}
	if f.MessageID != "" {
		q = q.Where("id LIKE ?", "%"+f.MessageID+"%")
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		q = q.Where("created_at >= ? AND created_at < ?", f.From, f.To.AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	messages := []models.Message{}
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &MessagePage{Total: total, TotalPages: pages, Result: messages}, nil
}

type SenderTotal struct {
	SenderID   uint      `json:"sender_id"`
	Total      int64     `json:"total"`
	LastSentAt time.Time `json:"last_sent_at"`
}

// SenderTotals aggregates the number of records per sender with their latest send time.
func (s *MessageStore) SenderTotals(ctx context.Context) ([]SenderTotal, error) {
	var rows []struct {
		SenderID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS total").
		Group("sender_id").
		Order("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate messages: %w", err)
	}

	totals := make([]SenderTotal, 0, len(rows))
	for _, r := range rows {
		var last models.Message
		err := s.db.WithContext(ctx).
			Select("created_at").
			Where("sender_id = ?", r.SenderID).
			Order("created_at DESC").
			First(&last).Error
		if err != nil {
			return nil, fmt.Errorf("latest message for sender %d: %w", r.SenderID, err)
		}
		totals = append(totals, SenderTotal{SenderID: r.SenderID, Total: r.Total, LastSentAt: last.CreatedAt})
	}
	return totals, nil
}
