package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sms-gateway/internal/config"
	"sms-gateway/internal/logging"

	"github.com/rs/zerolog"
)

// Synthetic outcome persisted when the broker could not be reached.
const (
	TransportFailureStatus = http.StatusInternalServerError
	TransportFailureBody   = "Internal Server Error"
)

// Kind tags how a delivery attempt ended.
type Kind int

const (
	// Delivered: the broker answered with a 2xx status.
	Delivered Kind = iota
	// Rejected: the broker answered with a non-2xx status.
	Rejected
	// TransportFailure: no response was received.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	case TransportFailure:
		return "transport_failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is the outcome of one Send. StatusCode and Body are always set so the
// record can be finalized; Err is only set for TransportFailure.
type Result struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (r Result) OK() bool { return r.Kind == Delivered }

// --- Wire format ---

type Envelope struct {
	Messages Payload `json:"messages"`
}

type Payload struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message-id"`
	SMS       SMS    `json:"sms"`
}

type SMS struct {
	Originator string  `json:"originator"`
	Content    Content `json:"content"`
}

type Content struct {
	Text string `json:"text"`
}

type Client struct {
	endpoint   string
	token      string
	originator string
	http       *http.Client
	log        zerolog.Logger
}

func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		endpoint:   cfg.BrokerURL,
		token:      cfg.BrokerToken,
		originator: cfg.Originator,
		http:       &http.Client{Timeout: cfg.GatewayTimeout},
		log:        logging.Component(log, "gateway"),
	}
}

// Send delivers one SMS. It never returns an error: a missing response is
// folded into a TransportFailure result with a synthetic 500.
func (c *Client) Send(ctx context.Context, recipient, messageID, text string) Result {
	body := Envelope{
		Messages: Payload{
			Recipient: recipient,
			MessageID: messageID,
			SMS: SMS{
				Originator: c.originator,
				Content:    Content{Text: text},
			},
		},
	}

	start := time.Now()
	status, respBody, err := c.sendRequest(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		c.log.Error().Err(err).Str("message_id", messageID).Str("recipient", recipient).Msg("broker unreachable")
		return Result{
			Kind:       TransportFailure,
			StatusCode: TransportFailureStatus,
			Body:       TransportFailureBody,
			Err:        err,
		}
	}

	kind := Delivered
	if status < 200 || status >= 300 {
		kind = Rejected
		c.log.Warn().Int("status", status).Str("message_id", messageID).Msg("broker rejected message")
	}
	c.log.Debug().
		Str("message_id", messageID).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("broker call finished")
	return Result{Kind: kind, StatusCode: status, Body: string(respBody)}
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		// The status line arrived; keep it and whatever body was read.
		c.log.Warn().Err(err).Int("status", resp.StatusCode).Int("read", len(respBody)).Msg("broker response body truncated")
	}
	return resp.StatusCode, respBody, nil
}
