package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/dispatch"
	"sms-gateway/internal/models"
	"sms-gateway/internal/spreadsheet"
	"sms-gateway/internal/store"

	"github.com/gin-gonic/gin"
)

// recipientColumn holds the phone numbers in spreadsheets posted to send-excel.
const recipientColumn = "A"

const dateLayout = "2006-01-02"

type Dispatcher interface {
	Send(ctx context.Context, recipient, text string, senderID uint, msgType string) (*models.Message, error)
	SendBatch(recipients []string, text string, senderID uint) dispatch.Estimate
}

type MessageQuery interface {
	List(ctx context.Context, f store.MessageFilter, page, limit int) (*store.MessagePage, error)
	SenderTotals(ctx context.Context) ([]store.SenderTotal, error)
}

type SMSHandler struct {
	engine    Dispatcher
	messages  MessageQuery
	defSender uint
	price     int
}

func NewSMSHandler(engine Dispatcher, messages MessageQuery, defaultSender uint, pricePerMessage int) *SMSHandler {
	return &SMSHandler{engine: engine, messages: messages, defSender: defaultSender, price: pricePerMessage}
}

type SendRequest struct {
	Recipient   string `json:"recipient" binding:"required"`
	MessageText string `json:"message_text" binding:"required"`
	Type        string `json:"type"`
}

func (h *SMSHandler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender, err := senderID(c, h.defSender)
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.engine.Send(c.Request.Context(), req.Recipient, req.MessageText, sender, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

type SendManyRequest struct {
	Recipients  []string `json:"recipients" binding:"required,min=1,dive,required"`
	MessageText string   `json:"message_text" binding:"required"`
}

type dispatchResponse struct {
	Message           string `json:"message"`
	EstimatedDuration string `json:"estimated_duration"`
	Batches           int    `json:"batches"`
	Recipients        int    `json:"recipients"`
}

func newDispatchResponse(est dispatch.Estimate) dispatchResponse {
	return dispatchResponse{
		Message:           "Messages are being sent",
		EstimatedDuration: est.Text,
		Batches:           est.Batches,
		Recipients:        est.Recipients,
	}
}

func (h *SMSHandler) SendMany(c *gin.Context) {
	var req SendManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sender, err := senderID(c, h.defSender)
	if err != nil {
		respondError(c, err)
		return
	}

	est := h.engine.SendBatch(req.Recipients, req.MessageText, sender)
	c.JSON(http.StatusAccepted, newDispatchResponse(est))
}

// SendExcel sends message_text to every number in column A of the uploaded workbook.
func (h *SMSHandler) SendExcel(c *gin.Context) {
	text := c.PostForm("message_text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_text is required"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !spreadsheet.IsSpreadsheet(fh.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be .xlsx or .xls"})
		return
	}
	sender, err := senderID(c, h.defSender)
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	sheet, err := spreadsheet.Open(f)
	if err != nil {
		respondError(c, err)
		return
	}
	recipients := sheet.Column(recipientColumn)
	if len(recipients) == 0 {
		respondError(c, apperr.E(apperr.ErrValidation, "no recipients in column %s", recipientColumn))
		return
	}

	est := h.engine.SendBatch(recipients, text, sender)
	c.JSON(http.StatusAccepted, newDispatchResponse(est))
}

func (h *SMSHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	f := store.MessageFilter{
		Recipient: c.Query("phone_number"),
		Text:      c.Query("message_text"),
		MessageID: c.Query("message_id"),
		Type:      c.Query("type"),
	}
	if raw := c.Query("sender_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sender_id"})
			return
		}
		f.SenderID = uint(id)
	}
	if start, end := c.Query("start_date"), c.Query("end_date"); start != "" && end != "" {
		from, err1 := time.Parse(dateLayout, start)
		to, err2 := time.Parse(dateLayout, end)
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
		f.From, f.To = from, to
	}

	result, err := h.messages.List(c.Request.Context(), f, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type HistoryEntry struct {
	SenderID   uint      `json:"sender_id"`
	Total      int64     `json:"total"`
	LastSentAt time.Time `json:"last_sent_at"`
	Price      int64     `json:"price"`
}

// History reports per-sender totals and what they cost.
func (h *SMSHandler) History(c *gin.Context) {
	totals, err := h.messages.SenderTotals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	history := make([]HistoryEntry, 0, len(totals))
	for _, t := range totals {
		history = append(history, HistoryEntry{
			SenderID:   t.SenderID,
			Total:      t.Total,
			LastSentAt: t.LastSentAt,
			Price:      t.Total * int64(h.price),
		})
	}
	c.JSON(http.StatusOK, history)
}
