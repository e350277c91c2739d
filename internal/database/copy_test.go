package database

import (
	"context"
	"fmt"
	"testing"

	"sms-gateway/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func memDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open(fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", t.Name(), name)), zerolog.Nop())
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestCopyIsRepeatable(t *testing.T) {
	ctx := context.Background()
	src, dst := memDB(t, "src"), memDB(t, "dst")

	if err := src.Create(&models.Template{ID: "t-1", Name: "promo", Type: "promo", RecipientColumn: "A", Body: "Hi"}).Error; err != nil {
		t.Fatal(err)
	}
	status, body := 200, "ok"
	for i := 0; i < 3; i++ {
		m := models.Message{ID: fmt.Sprintf("m-%d", i), SenderID: 1, Type: "other", Recipient: "1", Text: "x"}
		if i == 0 {
			m.GatewayStatus, m.GatewayResponse = &status, &body
		}
		if err := src.Create(&m).Error; err != nil {
			t.Fatal(err)
		}
	}

	report, err := Copy(ctx, src, dst, zerolog.Nop())
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if report.Templates != 1 || report.Messages != 3 {
		t.Fatalf("report = %+v", report)
	}

	if _, err := Copy(ctx, src, dst, zerolog.Nop()); err != nil {
		t.Fatalf("second copy: %v", err)
	}
	var count int64
	dst.Model(&models.Message{}).Count(&count)
	if count != 3 {
		t.Fatalf("destination has %d messages, want 3", count)
	}

	var m models.Message
	if err := dst.First(&m, "id = ?", "m-0").Error; err != nil {
		t.Fatal(err)
	}
	if m.GatewayStatus == nil || *m.GatewayStatus != 200 {
		t.Fatalf("gateway status lost: %+v", m)
	}
}
