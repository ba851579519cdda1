package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// DomainEventStore persists canonical status-transition events.
type DomainEventStore interface {
	Append(ctx context.Context, event DomainEvent) error
	ListByCargo(ctx context.Context, cargoID string) ([]DomainEvent, error)
}

// DeliveryLogStore records webhook delivery attempts and serves the audit
// view. Append must serialize concurrent writers and enforce the retention
// cap atomically; List returns rows newest first.
type DeliveryLogStore interface {
	Append(ctx context.Context, attempt DeliveryAttempt) (DeliveryAttempt, error)
	List(ctx context.Context, filter DeliveryLogFilter) ([]DeliveryAttempt, error)
	Get(ctx context.Context, id string) (DeliveryAttempt, error)
	Prune(ctx context.Context, max int) (int, error)
}

// TemplateStore holds the per-event-type notification templates.
type TemplateStore interface {
	GetByEventType(ctx context.Context, eventType EventType) (NotificationTemplate, bool, error)
	Upsert(ctx context.Context, template NotificationTemplate) (NotificationTemplate, error)
	List(ctx context.Context) ([]NotificationTemplate, error)
}

// IntegrationStore holds webhook integration configurations. ListActive is
// what the dispatcher re-reads at the start of every run.
type IntegrationStore interface {
	ListActive(ctx context.Context) ([]IntegrationConfig, error)
	Get(ctx context.Context, id string) (IntegrationConfig, error)
	Upsert(ctx context.Context, integration IntegrationConfig) (IntegrationConfig, error)
	List(ctx context.Context) ([]IntegrationConfig, error)
}

type StoreProvider interface {
	EventStore() DomainEventStore
	DeliveryLogStore() DeliveryLogStore
	TemplateStore() TemplateStore
	IntegrationStore() IntegrationStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// RetentionTuner receives the resolved retention cap before stores are built.
// Store factories implement it so the configured cap, not the factory default,
// governs delivery log eviction.
type RetentionTuner interface {
	SetMaxDeliveryLogs(max int)
}

// MessageRenderer turns a shipment snapshot and event type into final
// human-readable text. Implementations must never return empty text.
type MessageRenderer interface {
	Render(ctx context.Context, snapshot ShipmentSnapshot, eventType EventType) (string, error)
}

// EligibilityEvaluator decides whether an integration should fire for an
// event. Fails closed on inactive/unconfigured integrations and unlisted
// event types.
type EligibilityEvaluator interface {
	ShouldTrigger(integration IntegrationConfig, event DomainEvent, snapshot ShipmentSnapshot) bool
}

// EventDispatcher performs the delivery leg for one event. Implementations
// own their error boundary: a dispatch failure is logged as an outcome, never
// surfaced to the transition that produced the event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event DomainEvent, snapshot ShipmentSnapshot) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
