package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-cargo-notify/core"
)

// IntegrationStore holds webhook integration configurations. The dispatcher
// re-reads ListActive at the start of every run, so configuration edits apply
// to the next dispatch without a restart.
type IntegrationStore struct {
	db   *bun.DB
	repo repository.Repository[*integrationRecord]
}

func NewIntegrationStore(db *bun.DB) (*IntegrationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*integrationRecord](db, integrationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid integration repository wiring: %w", err)
		}
	}
	return &IntegrationStore{db: db, repo: repo}, nil
}

func (s *IntegrationStore) ListActive(ctx context.Context) ([]core.IntegrationConfig, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: integration store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.active = ?", true)
		}),
		repository.OrderBy("name ASC"),
	)
	if err != nil {
		return nil, err
	}
	integrations := make([]core.IntegrationConfig, 0, len(records))
	for _, record := range records {
		integrations = append(integrations, integrationToDomain(record))
	}
	return integrations, nil
}

func (s *IntegrationStore) Get(ctx context.Context, id string) (core.IntegrationConfig, error) {
	if s == nil || s.db == nil {
		return core.IntegrationConfig{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.IntegrationConfig{}, fmt.Errorf("sqlstore: integration id is required")
	}

	record := &integrationRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.IntegrationConfig{}, fmt.Errorf("sqlstore: integration %q not found", id)
		}
		return core.IntegrationConfig{}, err
	}
	return integrationToDomain(record), nil
}

func (s *IntegrationStore) Upsert(ctx context.Context, integration core.IntegrationConfig) (core.IntegrationConfig, error) {
	if s == nil || s.db == nil {
		return core.IntegrationConfig{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	if err := integration.Validate(); err != nil {
		return core.IntegrationConfig{}, err
	}

	now := time.Now().UTC()
	record := integrationToRecord(integration)
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("active = EXCLUDED.active").
		Set("endpoint_url = EXCLUDED.endpoint_url").
		Set("bearer_token = EXCLUDED.bearer_token").
		Set("event_allowlist = EXCLUDED.event_allowlist").
		Set("filters = EXCLUDED.filters").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return core.IntegrationConfig{}, err
	}
	return s.Get(ctx, record.ID)
}

func (s *IntegrationStore) List(ctx context.Context) ([]core.IntegrationConfig, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: integration store is not configured")
	}
	records, _, err := s.repo.List(ctx, repository.OrderBy("name ASC"))
	if err != nil {
		return nil, err
	}
	integrations := make([]core.IntegrationConfig, 0, len(records))
	for _, record := range records {
		integrations = append(integrations, integrationToDomain(record))
	}
	return integrations, nil
}

var _ core.IntegrationStore = (*IntegrationStore)(nil)
