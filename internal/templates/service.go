// Package templates manages templates together with the drop folders named after them.
package templates

import (
	"context"
	"errors"
	"io"
	"strings"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/logging"
	"sms-gateway/internal/models"
	"sms-gateway/internal/render"
	"sms-gateway/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Repository is the template persistence; store.TemplateStore satisfies it.
type Repository interface {
	List(ctx context.Context) ([]models.Template, error)
	Get(ctx context.Context, id string) (*models.Template, error)
	FindByName(ctx context.Context, name string) (*models.Template, error)
	Create(ctx context.Context, t *models.Template) error
	Save(ctx context.Context, t *models.Template) error
	Delete(ctx context.Context, id string) error
}

type CreateInput struct {
	Name            string `json:"name" validate:"required,max=255"`
	Type            string `json:"type" validate:"omitempty,max=50"`
	RecipientColumn string `json:"recipient_column" validate:"required,alpha,uppercase,max=3"`
	Body            string `json:"body" validate:"required"`
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=255"`
	Type            *string `json:"type" validate:"omitempty,max=50"`
	RecipientColumn *string `json:"recipient_column" validate:"omitempty,alpha,uppercase,max=3"`
	Body            *string `json:"body" validate:"omitempty,min=1"`
}

// Detail is a template with the contents of its drop folder.
type Detail struct {
	Template     *models.Template `json:"template"`
	Placeholders []string         `json:"placeholders"`
	Files        []string         `json:"files"`
	SentFiles    []string         `json:"sent_files"`
}

type Service struct {
	repo     Repository
	storage  *storage.Storage
	validate *validator.Validate
	log      zerolog.Logger
}

func NewService(repo Repository, st *storage.Storage, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		storage:  st,
		validate: validator.New(),
		log:      logging.Component(log, "templates"),
	}
}

func (s *Service) List(ctx context.Context) ([]models.Template, error) {
	return s.repo.List(ctx)
}

// Detail returns the template plus its pending and archived files. A missing
// folder yields empty lists.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := s.storage.AllFiles(t.Name)
	if err != nil {
		return nil, err
	}
	sent, err := s.storage.SentFiles(t.Name)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Template:     t,
		Placeholders: nonNil(render.Placeholders(t.Body)),
		Files:        nonNil(files),
		SentFiles:    nonNil(sent),
	}, nil
}

// Create stores a template and creates its drop folder with the sent area.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Template, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if err := s.storage.ValidName(in.Name); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByName(ctx, in.Name); err == nil {
		return nil, apperr.E(apperr.ErrConflict, "template %q already exists", in.Name)
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	if err := s.storage.CreateFolder(in.Name); err != nil {
		return nil, err
	}

	t := &models.Template{
		Name:            in.Name,
		Type:            in.Type,
		RecipientColumn: in.RecipientColumn,
		Body:            in.Body,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		if _, rmErr := s.storage.RemoveFolder(in.Name); rmErr != nil {
			s.log.Error().Err(rmErr).Str("folder", in.Name).Msg("could not roll back folder")
		}
		return nil, err
	}

	s.log.Info().Str("template", t.Name).Str("id", t.ID).Msg("template created")
	return t, nil
}

// Update applies the set fields. A name change renames the drop folder.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Template, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldName := t.Name
	renamed := in.Name != nil && *in.Name != oldName
	if renamed {
		if err := s.storage.ValidName(*in.Name); err != nil {
			return nil, err
		}
		if _, err := s.repo.FindByName(ctx, *in.Name); err == nil {
			return nil, apperr.E(apperr.ErrConflict, "template %q already exists", *in.Name)
		} else if !apperr.IsNotFound(err) {
			return nil, err
		}
		if err := s.storage.RenameFolder(oldName, *in.Name); err != nil {
			return nil, err
		}
		t.Name = *in.Name
	}
	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.RecipientColumn != nil {
		t.RecipientColumn = *in.RecipientColumn
	}
	if in.Body != nil {
		t.Body = *in.Body
	}

	if err := s.repo.Save(ctx, t); err != nil {
		if renamed {
			if rbErr := s.storage.RenameFolder(t.Name, oldName); rbErr != nil {
				s.log.Error().Err(rbErr).Str("folder", t.Name).Msg("could not roll back rename")
			}
		}
		return nil, err
	}
	return t, nil
}

// Delete removes the template. The drop folder must be empty; a folder that
// no longer exists does not block the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	found, err := s.storage.RemoveFolder(t.Name)
	if err != nil {
		return err
	}
	if !found {
		s.log.Warn().Str("template", t.Name).Msg("drop folder already gone, deleting record only")
	}
	return s.repo.Delete(ctx, id)
}

// Upload stores a spreadsheet in the template's drop folder, where the next
// scan picks it up.
func (s *Service) Upload(ctx context.Context, id, fileName string, r io.Reader) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.WriteFile(t.Name, fileName, r); err != nil {
		return err
	}
	s.log.Info().Str("template", t.Name).Str("file", fileName).Msg("spreadsheet uploaded")
	return nil
}

func (s *Service) check(in interface{}) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Wrap(apperr.ErrValidation, err, "%s failed on %q", fe.Field(), fe.Tag())
	}
	return apperr.Wrap(apperr.ErrValidation, err, "invalid input")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
