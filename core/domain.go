package core

import (
	"fmt"
	"strings"
	"time"
)

// Status is the closed set of shipment statuses the back office tracks.
type Status string

const (
	StatusInTransit     Status = "in-transit"
	StatusArrivedAtYard Status = "arrived-at-yard"
	StatusIdentified    Status = "identified"
	StatusInvoiced      Status = "invoiced"
	StatusDispatched    Status = "dispatched"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

// EventType identifies the canonical domain event emitted for a status
// transition. Values mirror the status set one-to-one.
type EventType string

const (
	EventTypeInTransit     EventType = "in-transit"
	EventTypeArrivedAtYard EventType = "arrived-at-yard"
	EventTypeIdentified    EventType = "identified"
	EventTypeInvoiced      EventType = "invoiced"
	EventTypeDispatched    EventType = "dispatched"
	EventTypeCompleted     EventType = "completed"
	EventTypeCancelled     EventType = "cancelled"
)

func KnownEventTypes() []EventType {
	return []EventType{
		EventTypeInTransit,
		EventTypeArrivedAtYard,
		EventTypeIdentified,
		EventTypeInvoiced,
		EventTypeDispatched,
		EventTypeCompleted,
		EventTypeCancelled,
	}
}

// EventTypeForStatus maps a shipment status to its canonical event type. The
// mapping is total: unknown statuses fall back to in-transit so downstream
// filters and templates always see a member of the closed set. Callers that
// care about unmapped statuses should check KnownStatus first and log.
func EventTypeForStatus(status Status) EventType {
	switch status {
	case StatusInTransit:
		return EventTypeInTransit
	case StatusArrivedAtYard:
		return EventTypeArrivedAtYard
	case StatusIdentified:
		return EventTypeIdentified
	case StatusInvoiced:
		return EventTypeInvoiced
	case StatusDispatched:
		return EventTypeDispatched
	case StatusCompleted:
		return EventTypeCompleted
	case StatusCancelled:
		return EventTypeCancelled
	default:
		return EventTypeInTransit
	}
}

func KnownStatus(status Status) bool {
	switch status {
	case StatusInTransit, StatusArrivedAtYard, StatusIdentified,
		StatusInvoiced, StatusDispatched, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// DeliveryPoint is one stop of a multi-stop shipment.
type DeliveryPoint struct {
	City  string
	State string
}

// ShipmentFinancials carries the declared-value fields of a shipment. Nil
// pointers mean the value was never captured, which filter rules and template
// placeholders treat as absent rather than zero.
type ShipmentFinancials struct {
	CustomerFreightValue *float64
	InvoiceValue         *float64
}

// ShipmentSnapshot is the read-only view of a shipment at event time.
// Immutable once captured for an event; the pipeline never writes back.
type ShipmentSnapshot struct {
	Code             string
	Status           Status
	Client           string
	City             string
	State            string
	Carrier          string
	Plate            string
	DIFAL            bool
	Financial        ShipmentFinancials
	DeliveryPoints   []DeliveryPoint
	ExpectedDelivery *time.Time
}

// DomainEvent is the canonical record of one observed status transition.
// Created exactly once per transition and never mutated afterwards.
// Processed is informational only; the dispatcher does not gate on it.
type DomainEvent struct {
	ID             string
	EventType      EventType
	CargoID        string
	PreviousStatus Status
	CurrentStatus  Status
	OccurredAt     time.Time
	ActorID        string
	Metadata       map[string]any
	Processed      bool
}

// NotificationTemplate is the per-event-type text pattern rendered into the
// outbound message. A disabled template suppresses custom rendering; the
// renderer still produces a generic fallback so output is never empty.
type NotificationTemplate struct {
	EventType EventType
	Enabled   bool
	Prefix    string
	Body      string
	UpdatedAt time.Time
}

// FilterOperator is the closed operator set for integration filter rules.
type FilterOperator string

const (
	FilterOperatorEquals      FilterOperator = "equals"
	FilterOperatorNotEquals   FilterOperator = "not_equals"
	FilterOperatorGreaterThan FilterOperator = "greater_than"
	FilterOperatorLessThan    FilterOperator = "less_than"
	FilterOperatorContains    FilterOperator = "contains"
)

// FilterRule is a predicate over shipment snapshot attributes. FieldPath is a
// dot-separated path resolved through a closed accessor table; see the
// filters package for the operator coercion semantics.
type FilterRule struct {
	FieldPath string         `json:"field_path"`
	Operator  FilterOperator `json:"operator"`
	Value     any            `json:"value"`
	Label     string         `json:"label"`
}

// IntegrationConfig describes one subscribed webhook endpoint. A deployment
// with a single row reproduces the original singleton behavior.
type IntegrationConfig struct {
	ID             string
	Name           string
	Active         bool
	EndpointURL    string
	BearerToken    string
	EventAllowlist []EventType
	Filters        []FilterRule
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c IntegrationConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("core: integration name is required")
	}
	if c.Active && strings.TrimSpace(c.EndpointURL) == "" {
		return fmt.Errorf("core: active integration requires an endpoint url")
	}
	for _, rule := range c.Filters {
		if strings.TrimSpace(rule.FieldPath) == "" {
			return fmt.Errorf("core: filter rule field path is required")
		}
	}
	return nil
}

// AllowsEvent reports whether the integration's allowlist includes eventType.
// An empty allowlist allows nothing; eligibility fails closed.
func (c IntegrationConfig) AllowsEvent(eventType EventType) bool {
	for _, allowed := range c.EventAllowlist {
		if allowed == eventType {
			return true
		}
	}
	return false
}

// DeliveryAttempt is the durable audit row for one dispatch outcome. A row
// exists if and only if the dispatcher reached the delivery step for an
// eligible integration; configuration skips write nothing.
type DeliveryAttempt struct {
	ID             string
	IntegrationID  string
	EventType      EventType
	CargoID        string
	TargetURL      string
	HTTPStatus     int
	ResponseBody   string
	RequestPayload string
	Succeeded      bool
	AttemptNumber  int
	CreatedAt      time.Time
}

// DeliveryStatusKind narrows a delivery log listing by outcome.
type DeliveryStatusKind string

const (
	DeliveryStatusAll     DeliveryStatusKind = "all"
	DeliveryStatusSuccess DeliveryStatusKind = "success"
	DeliveryStatusFailure DeliveryStatusKind = "failure"
)

// DeliveryLogFilter is the read-side projection filter for the audit view.
// Filtering never mutates stored rows.
type DeliveryLogFilter struct {
	StatusKind DeliveryStatusKind
	EventType  EventType
	CargoID    string
	Limit      int
	Offset     int
}

func (f DeliveryLogFilter) Validate() error {
	switch f.StatusKind {
	case "", DeliveryStatusAll, DeliveryStatusSuccess, DeliveryStatusFailure:
	default:
		return fmt.Errorf("core: unsupported delivery status kind %q", f.StatusKind)
	}
	if f.Limit < 0 {
		return fmt.Errorf("core: delivery log filter limit must be >= 0")
	}
	if f.Offset < 0 {
		return fmt.Errorf("core: delivery log filter offset must be >= 0")
	}
	return nil
}
