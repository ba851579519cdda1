package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type cargoEventRecord struct {
	bun.BaseModel `bun:"table:cargo_events,alias:ce"`

	ID             string         `bun:"id,pk"`
	CargoID        string         `bun:"cargo_id,notnull"`
	EventType      string         `bun:"event_type,notnull"`
	PreviousStatus string         `bun:"previous_status,notnull"`
	CurrentStatus  string         `bun:"current_status,notnull"`
	ActorID        string         `bun:"actor_id"`
	Metadata       map[string]any `bun:"metadata,type:jsonb"`
	Processed      bool           `bun:"processed,notnull"`
	OccurredAt     time.Time      `bun:"occurred_at,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type deliveryLogRecord struct {
	bun.BaseModel `bun:"table:cargo_delivery_logs,alias:cdl"`

	ID             string    `bun:"id,pk"`
	IntegrationID  string    `bun:"integration_id,notnull"`
	EventType      string    `bun:"event_type,notnull"`
	CargoID        string    `bun:"cargo_id,notnull"`
	TargetURL      string    `bun:"target_url,notnull"`
	HTTPStatus     int       `bun:"http_status,notnull"`
	ResponseBody   string    `bun:"response_body"`
	RequestPayload string    `bun:"request_payload"`
	Succeeded      bool      `bun:"succeeded,notnull"`
	AttemptNumber  int       `bun:"attempt_number,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type templateRecord struct {
	bun.BaseModel `bun:"table:cargo_notification_templates,alias:cnt"`

	ID        string    `bun:"id,pk"`
	EventType string    `bun:"event_type,notnull,unique"`
	Enabled   bool      `bun:"enabled,notnull"`
	Prefix    string    `bun:"prefix"`
	Body      string    `bun:"body"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type integrationRecord struct {
	bun.BaseModel `bun:"table:cargo_integrations,alias:ci"`

	ID             string            `bun:"id,pk"`
	Name           string            `bun:"name,notnull"`
	Active         bool              `bun:"active,notnull"`
	EndpointURL    string            `bun:"endpoint_url"`
	BearerToken    string            `bun:"bearer_token"`
	EventAllowlist []string          `bun:"event_allowlist,type:jsonb"`
	Filters        []filterRuleValue `bun:"filters,type:jsonb"`
	CreatedAt      time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type filterRuleValue struct {
	FieldPath string `json:"field_path"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
	Label     string `json:"label"`
}
