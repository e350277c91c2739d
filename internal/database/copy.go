package database

import (
	"context"
	"fmt"

	"sms-gateway/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const copyBatchSize = 500

// CopyReport counts the rows read from the source per table.
type CopyReport struct {
	Templates int64
	Messages  int64
}

// Copy moves templates and messages from src into dst. Rows whose primary key
// already exists in dst are left untouched, so the copy can be re-run.
func Copy(ctx context.Context, src, dst *gorm.DB, log zerolog.Logger) (CopyReport, error) {
	var report CopyReport

	n, err := copyTable[models.Template](ctx, src, dst, "templates", log)
	if err != nil {
		return report, err
	}
	report.Templates = n

	n, err = copyTable[models.Message](ctx, src, dst, "messages", log)
	if err != nil {
		return report, err
	}
	report.Messages = n
	return report, nil
}

func copyTable[T any](ctx context.Context, src, dst *gorm.DB, table string, log zerolog.Logger) (int64, error) {
	log.Info().Str("table", table).Msg("migrating table")

	var total int64
	var batch []T
	err := src.WithContext(ctx).FindInBatches(&batch, copyBatchSize, func(tx *gorm.DB, _ int) error {
		total += tx.RowsAffected
		return dst.WithContext(ctx).Transaction(func(dtx *gorm.DB) error {
			return dtx.Clauses(clause.OnConflict{DoNothing: true}).Create(&batch).Error
		})
	}).Error
	if err != nil {
		return total, fmt.Errorf("copy %s: %w", table, err)
	}

	log.Info().Str("table", table).Int64("rows", total).Msg("table migrated")
	return total, nil
}
