package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-cargo-notify/core"
)

// TemplateStore holds one notification template per event type.
type TemplateStore struct {
	db   *bun.DB
	repo repository.Repository[*templateRecord]
}

func NewTemplateStore(db *bun.DB) (*TemplateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*templateRecord](db, templateHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid template repository wiring: %w", err)
		}
	}
	return &TemplateStore{db: db, repo: repo}, nil
}

func (s *TemplateStore) GetByEventType(ctx context.Context, eventType core.EventType) (core.NotificationTemplate, bool, error) {
	if s == nil || s.repo == nil {
		return core.NotificationTemplate{}, false, fmt.Errorf("sqlstore: template store is not configured")
	}
	key := strings.TrimSpace(string(eventType))
	if key == "" {
		return core.NotificationTemplate{}, false, fmt.Errorf("sqlstore: event type is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("event_type", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.NotificationTemplate{}, false, err
	}
	if len(records) == 0 {
		return core.NotificationTemplate{}, false, nil
	}
	return templateToDomain(records[0]), true, nil
}

func (s *TemplateStore) Upsert(ctx context.Context, template core.NotificationTemplate) (core.NotificationTemplate, error) {
	if s == nil || s.db == nil {
		return core.NotificationTemplate{}, fmt.Errorf("sqlstore: template store is not configured")
	}
	key := strings.TrimSpace(string(template.EventType))
	if key == "" {
		return core.NotificationTemplate{}, fmt.Errorf("sqlstore: event type is required")
	}

	now := time.Now().UTC()
	record := &templateRecord{
		ID:        uuid.NewString(),
		EventType: key,
		Enabled:   template.Enabled,
		Prefix:    template.Prefix,
		Body:      template.Body,
		UpdatedAt: now,
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (event_type) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("prefix = EXCLUDED.prefix").
		Set("body = EXCLUDED.body").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.NotificationTemplate{}, err
	}

	stored, ok, err := s.GetByEventType(ctx, template.EventType)
	if err != nil {
		return core.NotificationTemplate{}, err
	}
	if !ok {
		return core.NotificationTemplate{}, fmt.Errorf("sqlstore: template %q missing after upsert", key)
	}
	return stored, nil
}

func (s *TemplateStore) List(ctx context.Context) ([]core.NotificationTemplate, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: template store is not configured")
	}
	records, _, err := s.repo.List(ctx, repository.OrderBy("event_type ASC"))
	if err != nil {
		return nil, err
	}
	templates := make([]core.NotificationTemplate, 0, len(records))
	for _, record := range records {
		templates = append(templates, templateToDomain(record))
	}
	return templates, nil
}

var _ core.TemplateStore = (*TemplateStore)(nil)
