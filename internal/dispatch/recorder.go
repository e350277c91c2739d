package dispatch

import (
	"context"
	"errors"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/models"

	"github.com/google/uuid"
)

// MessageRepository is the persistence the recorder needs; store.MessageStore satisfies it.
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	Finalize(ctx context.Context, id string, status int, response string) error
}

// Recorder owns the lifecycle of message records: created pending, finalized once.
type Recorder struct {
	repo MessageRepository
}

func NewRecorder(repo MessageRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record persists msg with null gateway fields and returns its new id.
func (r *Recorder) Record(ctx context.Context, msg *models.Message) (string, error) {
	msg.ID = uuid.NewString()
	if msg.Type == "" {
		msg.Type = models.DefaultMessageType
	}
	msg.GatewayStatus = nil
	msg.GatewayResponse = nil
	if err := r.repo.Create(ctx, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// Finalize stores the gateway outcome. A record that vanished after Record is
// reported as apperr.ErrLogic.
func (r *Recorder) Finalize(ctx context.Context, id string, status int, rawResponse string) error {
	err := r.repo.Finalize(ctx, id, status, rawResponse)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrLogic, err, "finalize %s", id)
	}
	return err
}
