package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/gateway"
	"sms-gateway/internal/models"

	"github.com/rs/zerolog"
)

type memRepo struct {
	mu       sync.Mutex
	records  map[string]*models.Message
	finalize map[string]int
	lose     bool
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[string]*models.Message{}, finalize: map[string]int{}}
}

func (r *memRepo) Create(_ context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.records[m.ID] = &cp
	return nil
}

func (r *memRepo) Finalize(_ context.Context, id string, status int, response string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.records[id]
	if !ok || r.lose {
		return apperr.E(apperr.ErrNotFound, "message %s not found", id)
	}
	m.GatewayStatus = &status
	m.GatewayResponse = &response
	r.finalize[id]++
	return nil
}

func (r *memRepo) all() []*models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Message, 0, len(r.records))
	for _, m := range r.records {
		out = append(out, m)
	}
	return out
}

type fakeSender struct {
	mu     sync.Mutex
	calls  map[string]time.Time
	result func(recipient string) gateway.Result
}

func newFakeSender() *fakeSender {
	return &fakeSender{calls: map[string]time.Time{}}
}

func (s *fakeSender) Send(_ context.Context, recipient, messageID, text string) gateway.Result {
	s.mu.Lock()
	s.calls[recipient] = time.Now()
	s.mu.Unlock()
	if s.result != nil {
		return s.result(recipient)
	}
	return gateway.Result{Kind: gateway.Delivered, StatusCode: 200, Body: "Request is received"}
}

func (s *fakeSender) at(recipient string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[recipient]
}

func TestEstimateFor(t *testing.T) {
	cases := []struct {
		n       int
		batches int
		dur     time.Duration
		text    string
	}{
		{0, 0, 0, "0 ms"},
		{1, 1, 0, "0 ms"},
		{100, 1, 0, "0 ms"},
		{101, 2, 300 * time.Millisecond, "300 ms"},
		{250, 3, 600 * time.Millisecond, "600 ms"},
		{1000, 10, 2700 * time.Millisecond, "2 s"},
	}
	for _, tc := range cases {
		est := EstimateFor(tc.n, 100, 300*time.Millisecond)
		if est.Batches != tc.batches || est.Duration != tc.dur || est.Text != tc.text || est.Recipients != tc.n {
			t.Errorf("EstimateFor(%d) = %+v", tc.n, est)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                 "0 ms",
		999 * time.Millisecond:            "999 ms",
		time.Second:                       "1 s",
		61 * time.Second:                  "1 min 1 s",
		time.Hour + 5*time.Second:         "1 h 0 min 5 s",
		2*time.Hour + 3*time.Minute + 4e9: "2 h 3 min 4 s",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestDispatchEachReturnsBeforeDeliveries(t *testing.T) {
	repo := newMemRepo()
	sender := newFakeSender()
	delay := 200 * time.Millisecond
	e := NewEngine(NewRecorder(repo), sender, 2, delay, zerolog.Nop())

	items := make([]Outgoing, 5)
	for i := range items {
		items[i] = Outgoing{Recipient: fmt.Sprintf("r%d", i), Text: fmt.Sprintf("hi %d", i), Type: "promo"}
	}

	start := time.Now()
	est := e.DispatchEach(items, 7)
	if elapsed := time.Since(start); elapsed >= delay {
		t.Fatalf("DispatchEach blocked for %v", elapsed)
	}
	if est.Batches != 3 || est.Duration != 2*delay {
		t.Fatalf("estimate = %+v", est)
	}

	e.Wait()

	if gap := sender.at("r4").Sub(sender.at("r0")); gap < 2*delay {
		t.Fatalf("last batch started %v after the first, want >= %v", gap, 2*delay)
	}
	if gap := sender.at("r2").Sub(sender.at("r1")); gap < delay {
		t.Fatalf("second batch started %v after the first, want >= %v", gap, delay)
	}

	records := repo.all()
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	for _, m := range records {
		if m.Pending() || *m.GatewayStatus != 200 {
			t.Fatalf("record %s not finalized: %+v", m.ID, m)
		}
		if m.SenderID != 7 || m.Type != "promo" {
			t.Fatalf("record attributes = %+v", m)
		}
		if repo.finalize[m.ID] != 1 {
			t.Fatalf("record %s finalized %d times", m.ID, repo.finalize[m.ID])
		}
	}
}

func TestSendBatchUsesDefaultType(t *testing.T) {
	repo := newMemRepo()
	e := NewEngine(NewRecorder(repo), newFakeSender(), 100, 0, zerolog.Nop())

	est := e.SendBatch([]string{"a", "b", "c"}, "same", 1)
	e.Wait()

	if est.Batches != 1 || est.Duration != 0 {
		t.Fatalf("estimate = %+v", est)
	}
	for _, m := range repo.all() {
		if m.Type != models.DefaultMessageType || m.Text != "same" {
			t.Fatalf("record = %+v", m)
		}
	}
}

func TestSendRecordsTransportFailure(t *testing.T) {
	repo := newMemRepo()
	sender := newFakeSender()
	sender.result = func(string) gateway.Result {
		return gateway.Result{
			Kind:       gateway.TransportFailure,
			StatusCode: gateway.TransportFailureStatus,
			Body:       gateway.TransportFailureBody,
			Err:        errors.New("connection refused"),
		}
	}
	e := NewEngine(NewRecorder(repo), sender, 100, 0, zerolog.Nop())

	msg, err := e.Send(context.Background(), "998901234567", "hello", 3, "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if *msg.GatewayStatus != 500 || *msg.GatewayResponse != "Internal Server Error" {
		t.Fatalf("returned record = %+v", msg)
	}
	stored := repo.records[msg.ID]
	if stored == nil || *stored.GatewayStatus != 500 || stored.Type != models.DefaultMessageType {
		t.Fatalf("stored record = %+v", stored)
	}
}

func TestSendKeepsRejectedStatus(t *testing.T) {
	repo := newMemRepo()
	sender := newFakeSender()
	sender.result = func(string) gateway.Result {
		return gateway.Result{Kind: gateway.Rejected, StatusCode: 422, Body: "bad number"}
	}
	e := NewEngine(NewRecorder(repo), sender, 100, 0, zerolog.Nop())

	msg, err := e.Send(context.Background(), "x", "hello", 1, "otp")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if *msg.GatewayStatus != 422 || *msg.GatewayResponse != "bad number" || msg.Type != "otp" {
		t.Fatalf("record = %+v", msg)
	}
}

func TestFinalizeMissingRecordIsLogicError(t *testing.T) {
	repo := newMemRepo()
	repo.lose = true
	e := NewEngine(NewRecorder(repo), newFakeSender(), 100, 0, zerolog.Nop())

	_, err := e.Send(context.Background(), "x", "hello", 1, "")
	if !errors.Is(err, apperr.ErrLogic) {
		t.Fatalf("err = %v, want ErrLogic", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want wrapped ErrNotFound", err)
	}
}

func TestShutdownHonoursDeadline(t *testing.T) {
	repo := newMemRepo()
	block := make(chan struct{})
	sender := newFakeSender()
	sender.result = func(string) gateway.Result {
		<-block
		return gateway.Result{Kind: gateway.Delivered, StatusCode: 200}
	}
	e := NewEngine(NewRecorder(repo), sender, 100, 0, zerolog.Nop())
	e.SendBatch([]string{"a"}, "t", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown = %v, want deadline exceeded", err)
	}

	close(block)
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown after release = %v", err)
	}
}
