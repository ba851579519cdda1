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

const defaultMaxDeliveryLogs = 500

// DeliveryLogStore records webhook delivery attempts. Every append runs in
// one transaction that inserts the row and evicts the oldest rows beyond the
// retention cap, so the cap holds even under concurrent dispatch completions.
type DeliveryLogStore struct {
	db      *bun.DB
	repo    repository.Repository[*deliveryLogRecord]
	maxRows int
}

func NewDeliveryLogStore(db *bun.DB, maxRows int) (*DeliveryLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	if maxRows <= 0 {
		maxRows = defaultMaxDeliveryLogs
	}
	repo := repository.NewRepository[*deliveryLogRecord](db, deliveryLogHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery log repository wiring: %w", err)
		}
	}
	return &DeliveryLogStore{
		db:      db,
		repo:    repo,
		maxRows: maxRows,
	}, nil
}

func (s *DeliveryLogStore) Append(ctx context.Context, attempt core.DeliveryAttempt) (core.DeliveryAttempt, error) {
	if s == nil || s.db == nil {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	if strings.TrimSpace(attempt.IntegrationID) == "" {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: integration id is required")
	}

	record := &deliveryLogRecord{
		ID:             strings.TrimSpace(attempt.ID),
		IntegrationID:  strings.TrimSpace(attempt.IntegrationID),
		EventType:      string(attempt.EventType),
		CargoID:        strings.TrimSpace(attempt.CargoID),
		TargetURL:      strings.TrimSpace(attempt.TargetURL),
		HTTPStatus:     attempt.HTTPStatus,
		ResponseBody:   attempt.ResponseBody,
		RequestPayload: attempt.RequestPayload,
		Succeeded:      attempt.Succeeded,
		AttemptNumber:  attempt.AttemptNumber,
		CreatedAt:      attempt.CreatedAt,
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.AttemptNumber <= 0 {
		record.AttemptNumber = 1
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		return evictOldestTx(ctx, tx, s.maxRows)
	})
	if err != nil {
		return core.DeliveryAttempt{}, err
	}
	return deliveryLogToDomain(record), nil
}

func (s *DeliveryLogStore) List(ctx context.Context, filter core.DeliveryLogFilter) ([]core.DeliveryAttempt, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var records []*deliveryLogRecord
	query := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC")

	switch filter.StatusKind {
	case core.DeliveryStatusSuccess:
		query = query.Where("?TableAlias.succeeded = ?", true)
	case core.DeliveryStatusFailure:
		query = query.Where("?TableAlias.succeeded = ?", false)
	}
	if eventType := strings.TrimSpace(string(filter.EventType)); eventType != "" {
		query = query.Where("?TableAlias.event_type = ?", eventType)
	}
	if cargoID := strings.TrimSpace(filter.CargoID); cargoID != "" {
		query = query.Where("lower(?TableAlias.cargo_id) LIKE ?", "%"+strings.ToLower(cargoID)+"%")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	attempts := make([]core.DeliveryAttempt, 0, len(records))
	for _, record := range records {
		attempts = append(attempts, deliveryLogToDomain(record))
	}
	return attempts, nil
}

func (s *DeliveryLogStore) Get(ctx context.Context, id string) (core.DeliveryAttempt, error) {
	if s == nil || s.db == nil {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery log id is required")
	}

	record := &deliveryLogRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.DeliveryAttempt{}, fmt.Errorf("sqlstore: delivery log %q not found", id)
		}
		return core.DeliveryAttempt{}, err
	}
	return deliveryLogToDomain(record), nil
}

// Prune trims retained rows down to max, oldest first, and reports how many
// were removed. Append already enforces the cap; this exists for operational
// jobs that shrink the cap after the fact.
func (s *DeliveryLogStore) Prune(ctx context.Context, max int) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: delivery log store is not configured")
	}
	if max <= 0 {
		max = s.maxRows
	}

	removed := 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		before, err := tx.NewSelect().Model((*deliveryLogRecord)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		if err := evictOldestTx(ctx, tx, max); err != nil {
			return err
		}
		after, err := tx.NewSelect().Model((*deliveryLogRecord)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		removed = before - after
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func evictOldestTx(ctx context.Context, tx bun.Tx, max int) error {
	count, err := tx.NewSelect().Model((*deliveryLogRecord)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	excess := count - max
	if excess <= 0 {
		return nil
	}
	oldest := tx.NewSelect().
		Model((*deliveryLogRecord)(nil)).
		Column("id").
		OrderExpr("created_at ASC, id ASC").
		Limit(excess)
	_, err = tx.NewDelete().
		Model((*deliveryLogRecord)(nil)).
		Where("id IN (?)", oldest).
		Exec(ctx)
	return err
}

var _ core.DeliveryLogStore = (*DeliveryLogStore)(nil)
