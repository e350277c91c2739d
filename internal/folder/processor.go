// Package folder turns one pending spreadsheet into rendered, dispatched messages.
package folder

import (
	"context"
	"fmt"

	"sms-gateway/internal/dispatch"
	"sms-gateway/internal/logging"
	"sms-gateway/internal/models"
	"sms-gateway/internal/render"
	"sms-gateway/internal/spreadsheet"
	"sms-gateway/internal/storage"

	"github.com/rs/zerolog"
)

type TemplateFinder interface {
	FindByName(ctx context.Context, name string) (*models.Template, error)
}

type Dispatcher interface {
	DispatchEach(items []dispatch.Outgoing, senderID uint) dispatch.Estimate
}

type Processor struct {
	templates TemplateFinder
	storage   *storage.Storage
	engine    Dispatcher
	senderID  uint
	log       zerolog.Logger
}

func NewProcessor(templates TemplateFinder, st *storage.Storage, engine Dispatcher, senderID uint, log zerolog.Logger) *Processor {
	return &Processor{
		templates: templates,
		storage:   st,
		engine:    engine,
		senderID:  senderID,
		log:       logging.Component(log, "folder"),
	}
}

// ProcessFolder renders every usable row of folder/file with the folder's
// template and hands the messages to the engine. It returns once dispatch has
// been started, with the number of messages handed over.
func (p *Processor) ProcessFolder(ctx context.Context, folderName, fileName string) (int, error) {
	tpl, err := p.templates.FindByName(ctx, folderName)
	if err != nil {
		return 0, err
	}

	rc, err := p.storage.Open(folderName, fileName)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	sheet, err := spreadsheet.Open(rc)
	if err != nil {
		return 0, fmt.Errorf("%s/%s: %w", folderName, fileName, err)
	}

	msgType := tpl.Type
	if msgType == "" {
		msgType = models.DefaultMessageType
	}

	var items []dispatch.Outgoing
	stats := sheet.Each(tpl.RecipientColumn, func(e spreadsheet.Entry) {
		items = append(items, dispatch.Outgoing{
			Recipient: e.Recipient,
			Text:      render.Render(tpl.Body, e.Cells),
			Type:      msgType,
		})
	})

	est := p.engine.DispatchEach(items, p.senderID)

	p.log.Info().
		Str("template", tpl.Name).
		Str("file", fileName).
		Int("rows", stats.Total).
		Int("skipped", stats.Skipped).
		Int("dispatched", stats.Yielded).
		Str("estimated", est.Text).
		Msg("spreadsheet processed")
	return len(items), nil
}
