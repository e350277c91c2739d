package store

import (
	"context"
	"errors"
	"fmt"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) List(ctx context.Context) ([]models.Template, error) {
	templates := []models.Template{}
	if err := s.db.WithContext(ctx).Order("name").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateStore) Get(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "template %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return &t, nil
}

// FindByName resolves the template that owns a drop folder.
func (s *TemplateStore) FindByName(ctx context.Context, name string) (*models.Template, error) {
	var t models.Template
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "no template named %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("find template %q: %w", name, err)
	}
	return &t, nil
}

func (s *TemplateStore) Create(ctx context.Context, t *models.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Type == "" {
		t.Type = models.DefaultMessageType
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create template %q: %w", t.Name, err)
	}
	return nil
}

func (s *TemplateStore) Save(ctx context.Context, t *models.Template) error {
	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("save template %s: %w", t.ID, err)
	}
	return nil
}

func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Template{})
	if res.Error != nil {
		return fmt.Errorf("delete template %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E(apperr.ErrNotFound, "template %s not found", id)
	}
	return nil
}
