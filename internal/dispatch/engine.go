// Package dispatch paces outgoing SMS into fixed-size batches and records every attempt.
package dispatch

import (
	"context"
	"sync"
	"time"

	"sms-gateway/internal/gateway"
	"sms-gateway/internal/logging"
	"sms-gateway/internal/models"

	"github.com/rs/zerolog"
)

// Sender is the gateway surface used by the engine.
type Sender interface {
	Send(ctx context.Context, recipient, messageID, text string) gateway.Result
}

// Outgoing is one rendered message ready for dispatch.
type Outgoing struct {
	Recipient string
	Text      string
	Type      string
}

type Engine struct {
	recorder  *Recorder
	gateway   Sender
	batchSize int
	delay     time.Duration
	log       zerolog.Logger

	wg sync.WaitGroup
}

func NewEngine(recorder *Recorder, gw Sender, batchSize int, delay time.Duration, log zerolog.Logger) *Engine {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Engine{
		recorder:  recorder,
		gateway:   gw,
		batchSize: batchSize,
		delay:     delay,
		log:       logging.Component(log, "dispatch"),
	}
}

// SendBatch sends the same text to every recipient. It returns as soon as the
// paced loop has been started.
func (e *Engine) SendBatch(recipients []string, text string, senderID uint) Estimate {
	items := make([]Outgoing, len(recipients))
	for i, r := range recipients {
		items[i] = Outgoing{Recipient: r, Text: text, Type: models.DefaultMessageType}
	}
	return e.DispatchEach(items, senderID)
}

// DispatchEach sends per-item texts with the same pacing as SendBatch.
func (e *Engine) DispatchEach(items []Outgoing, senderID uint) Estimate {
	est := EstimateFor(len(items), e.batchSize, e.delay)
	if len(items) == 0 {
		return est
	}

	e.log.Info().
		Int("recipients", est.Recipients).
		Int("batches", est.Batches).
		Str("estimated", est.Text).
		Uint("sender_id", senderID).
		Msg("dispatch started")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pace(items, senderID)
	}()
	return est
}

// pace starts one delivery per item in order and sleeps between batches.
// Deliveries are not awaited here.
func (e *Engine) pace(items []Outgoing, senderID uint) {
	for i, item := range items {
		e.wg.Add(1)
		go func(o Outgoing) {
			defer e.wg.Done()
			if _, err := e.Deliver(context.Background(), o, senderID); err != nil {
				e.log.Error().Err(err).Str("recipient", o.Recipient).Msg("delivery failed")
			}
		}(item)

		sent := i + 1
		if sent%e.batchSize == 0 && sent < len(items) && e.delay > 0 {
			timer := time.NewTimer(e.delay)
			<-timer.C
		}
	}
}

// Send is the synchronous single-recipient path; it returns the finalized record.
func (e *Engine) Send(ctx context.Context, recipient, text string, senderID uint, msgType string) (*models.Message, error) {
	return e.Deliver(ctx, Outgoing{Recipient: recipient, Text: text, Type: msgType}, senderID)
}

// Deliver records a pending message, calls the gateway and finalizes the record
// with whatever the gateway produced.
func (e *Engine) Deliver(ctx context.Context, o Outgoing, senderID uint) (*models.Message, error) {
	msg := &models.Message{
		SenderID:  senderID,
		Type:      o.Type,
		Recipient: o.Recipient,
		Text:      o.Text,
	}
	id, err := e.recorder.Record(ctx, msg)
	if err != nil {
		return nil, err
	}

	res := e.gateway.Send(ctx, o.Recipient, id, o.Text)
	if err := e.recorder.Finalize(ctx, id, res.StatusCode, res.Body); err != nil {
		return nil, err
	}

	status, body := res.StatusCode, res.Body
	msg.GatewayStatus = &status
	msg.GatewayResponse = &body
	return msg, nil
}

// Wait blocks until every paced loop and delivery has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Shutdown waits for in-flight deliveries, giving up when ctx is done.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
