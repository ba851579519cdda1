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

// CargoEventStore persists the canonical status-transition events.
type CargoEventStore struct {
	repo repository.Repository[*cargoEventRecord]
}

func NewCargoEventStore(db *bun.DB) (*CargoEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*cargoEventRecord](db, cargoEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid cargo event repository wiring: %w", err)
		}
	}
	return &CargoEventStore{repo: repo}, nil
}

func (s *CargoEventStore) Append(ctx context.Context, event core.DomainEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: cargo event store is not configured")
	}
	if strings.TrimSpace(event.CargoID) == "" {
		return fmt.Errorf("sqlstore: cargo id is required")
	}
	if strings.TrimSpace(string(event.EventType)) == "" {
		return fmt.Errorf("sqlstore: event type is required")
	}

	id := strings.TrimSpace(event.ID)
	if id == "" {
		id = uuid.NewString()
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	record := &cargoEventRecord{
		ID:             id,
		CargoID:        strings.TrimSpace(event.CargoID),
		EventType:      string(event.EventType),
		PreviousStatus: string(event.PreviousStatus),
		CurrentStatus:  string(event.CurrentStatus),
		ActorID:        strings.TrimSpace(event.ActorID),
		Metadata:       event.Metadata,
		Processed:      event.Processed,
		OccurredAt:     occurredAt.UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// ListByCargo returns the transition history for one shipment, newest first.
func (s *CargoEventStore) ListByCargo(ctx context.Context, cargoID string) ([]core.DomainEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: cargo event store is not configured")
	}
	cargoID = strings.TrimSpace(cargoID)
	if cargoID == "" {
		return nil, fmt.Errorf("sqlstore: cargo id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("cargo_id", "=", cargoID),
		repository.OrderBy("occurred_at DESC"),
		repository.OrderBy("id DESC"),
	)
	if err != nil {
		return nil, err
	}

	events := make([]core.DomainEvent, 0, len(records))
	for _, record := range records {
		events = append(events, cargoEventToDomain(record))
	}
	return events, nil
}

var _ core.DomainEventStore = (*CargoEventStore)(nil)
