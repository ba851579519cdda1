// Package webhooks orchestrates webhook delivery for shipment events:
// eligibility, rendering, the bounded HTTP POST, and the audit row.
package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-cargo-notify/core"
)

// Dispatcher runs the delivery leg for one event across every active
// integration. Each run re-reads the integration configuration so changes
// made after event creation still apply; a run that passes eligibility writes
// exactly one audit row per integration, attempt number 1, no retries.
type Dispatcher struct {
	integrations core.IntegrationStore
	deliveryLogs core.DeliveryLogStore
	renderer     core.MessageRenderer
	evaluator    core.EligibilityEvaluator
	sender       *Sender
	origin       string
	logger       core.Logger
	metrics      core.MetricsRecorder
	now          func() time.Time
	newID        func() string
}

type Option func(*Dispatcher)

func WithOrigin(origin string) Option {
	return func(d *Dispatcher) {
		d.origin = origin
	}
}

func WithSender(sender *Sender) Option {
	return func(d *Dispatcher) {
		if sender != nil {
			d.sender = sender
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(d *Dispatcher) {
		if metrics != nil {
			d.metrics = metrics
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) {
		if newID != nil {
			d.newID = newID
		}
	}
}

func New(
	integrations core.IntegrationStore,
	deliveryLogs core.DeliveryLogStore,
	renderer core.MessageRenderer,
	evaluator core.EligibilityEvaluator,
	options ...Option,
) *Dispatcher {
	dispatcher := &Dispatcher{
		integrations: integrations,
		deliveryLogs: deliveryLogs,
		renderer:     renderer,
		evaluator:    evaluator,
		sender:       NewSender(),
		logger:       glog.Ensure(nil),
		metrics:      core.NopMetricsRecorder{},
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(dispatcher)
	}
	return dispatcher
}

// Dispatch delivers one event to every eligible integration. Ineligible
// integrations are skipped silently with no audit row; absence of rows is the
// "not configured" signal, not a failure. Per-integration failures are
// collected and returned joined so the caller can log them, but a failed
// delivery to one integration never prevents delivery to the next.
func (d *Dispatcher) Dispatch(ctx context.Context, event core.DomainEvent, snapshot core.ShipmentSnapshot) error {
	if d == nil {
		return errors.New("webhooks: dispatcher is nil")
	}
	if d.integrations == nil {
		return errors.New("webhooks: integration store is required")
	}

	integrations, err := d.integrations.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("webhooks: listing integrations: %w", err)
	}

	var failures []error
	for _, integration := range integrations {
		if err := d.dispatchOne(ctx, integration, event, snapshot); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, integration core.IntegrationConfig, event core.DomainEvent, snapshot core.ShipmentSnapshot) error {
	if d.evaluator == nil || !d.evaluator.ShouldTrigger(integration, event, snapshot) {
		d.logger.Info("integration skipped",
			"integration_id", integration.ID,
			"event_id", event.ID,
			"event_type", event.EventType)
		return nil
	}

	message := d.renderMessage(ctx, snapshot, event)
	payload := BuildPayload(event, snapshot, d.origin, message)
	body, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("webhooks: encoding payload for integration %s: %w", integration.ID, err)
	}

	outcome := d.sender.Send(ctx, integration.EndpointURL, integration.BearerToken, body)
	d.recordOutcome(ctx, integration, event, outcome)

	attempt := core.DeliveryAttempt{
		ID:             d.newID(),
		IntegrationID:  integration.ID,
		EventType:      event.EventType,
		CargoID:        event.CargoID,
		TargetURL:      integration.EndpointURL,
		HTTPStatus:     outcome.HTTPStatus,
		ResponseBody:   outcome.ResponseBody,
		RequestPayload: string(body),
		Succeeded:      outcome.Succeeded,
		AttemptNumber:  1,
		CreatedAt:      d.now(),
	}
	if d.deliveryLogs == nil {
		return fmt.Errorf("webhooks: delivery log store is required to record attempt for integration %s", integration.ID)
	}
	if _, err := d.deliveryLogs.Append(ctx, attempt); err != nil {
		return fmt.Errorf("webhooks: recording delivery attempt for integration %s: %w", integration.ID, err)
	}
	return nil
}

func (d *Dispatcher) renderMessage(ctx context.Context, snapshot core.ShipmentSnapshot, event core.DomainEvent) string {
	if d.renderer == nil {
		return fmt.Sprintf("Status update for %s: new status %s", event.CargoID, event.CurrentStatus)
	}
	message, err := d.renderer.Render(ctx, snapshot, event.EventType)
	if err != nil || message == "" {
		d.logger.Error("message render failed, using fallback",
			"event_id", event.ID, "event_type", event.EventType)
		return fmt.Sprintf("Status update for %s: new status %s", event.CargoID, event.CurrentStatus)
	}
	return message
}

func (d *Dispatcher) recordOutcome(ctx context.Context, integration core.IntegrationConfig, event core.DomainEvent, outcome Outcome) {
	status := "failure"
	if outcome.Succeeded {
		status = "success"
	}
	d.metrics.IncCounter(ctx, "cargo_notify.delivery.total", 1, map[string]string{
		"integration_id": integration.ID,
		"event_type":     string(event.EventType),
		"status":         status,
	})
	if outcome.Succeeded {
		d.logger.Info("webhook delivered",
			"integration_id", integration.ID,
			"event_id", event.ID,
			"http_status", outcome.HTTPStatus)
		return
	}
	d.logger.Error("webhook delivery failed",
		"integration_id", integration.ID,
		"event_id", event.ID,
		"http_status", outcome.HTTPStatus,
		"response", outcome.ResponseBody)
}

var _ core.EventDispatcher = (*Dispatcher)(nil)
