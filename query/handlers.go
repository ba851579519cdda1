package query

import (
	"context"

	"github.com/goliatone/go-cargo-notify/core"
)

// ShipmentEventReader serves the per-shipment transition history, newest
// first.
type ShipmentEventReader interface {
	EventsForShipment(ctx context.Context, cargoID string) ([]core.DomainEvent, error)
}

type ListDeliveryLogsQuery struct {
	deliveryLogs core.DeliveryLogStore
}

func NewListDeliveryLogsQuery(deliveryLogs core.DeliveryLogStore) *ListDeliveryLogsQuery {
	return &ListDeliveryLogsQuery{deliveryLogs: deliveryLogs}
}

func (q *ListDeliveryLogsQuery) Query(ctx context.Context, msg ListDeliveryLogsMessage) ([]core.DeliveryAttempt, error) {
	if q == nil || q.deliveryLogs == nil {
		return nil, queryDependencyError("query: delivery log store is required")
	}
	return q.deliveryLogs.List(ctx, msg.Filter)
}

type GetDeliveryLogQuery struct {
	deliveryLogs core.DeliveryLogStore
}

func NewGetDeliveryLogQuery(deliveryLogs core.DeliveryLogStore) *GetDeliveryLogQuery {
	return &GetDeliveryLogQuery{deliveryLogs: deliveryLogs}
}

func (q *GetDeliveryLogQuery) Query(ctx context.Context, msg GetDeliveryLogMessage) (core.DeliveryAttempt, error) {
	if q == nil || q.deliveryLogs == nil {
		return core.DeliveryAttempt{}, queryDependencyError("query: delivery log store is required")
	}
	return q.deliveryLogs.Get(ctx, msg.ID)
}

type ListShipmentEventsQuery struct {
	reader ShipmentEventReader
}

func NewListShipmentEventsQuery(reader ShipmentEventReader) *ListShipmentEventsQuery {
	return &ListShipmentEventsQuery{reader: reader}
}

func (q *ListShipmentEventsQuery) Query(ctx context.Context, msg ListShipmentEventsMessage) ([]core.DomainEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: shipment event reader is required")
	}
	return q.reader.EventsForShipment(ctx, msg.CargoID)
}

type ListIntegrationsQuery struct {
	integrations core.IntegrationStore
}

func NewListIntegrationsQuery(integrations core.IntegrationStore) *ListIntegrationsQuery {
	return &ListIntegrationsQuery{integrations: integrations}
}

func (q *ListIntegrationsQuery) Query(ctx context.Context, msg ListIntegrationsMessage) ([]core.IntegrationConfig, error) {
	if q == nil || q.integrations == nil {
		return nil, queryDependencyError("query: integration store is required")
	}
	if msg.ActiveOnly {
		return q.integrations.ListActive(ctx)
	}
	return q.integrations.List(ctx)
}

type ListTemplatesQuery struct {
	templates core.TemplateStore
}

func NewListTemplatesQuery(templates core.TemplateStore) *ListTemplatesQuery {
	return &ListTemplatesQuery{templates: templates}
}

func (q *ListTemplatesQuery) Query(ctx context.Context, msg ListTemplatesMessage) ([]core.NotificationTemplate, error) {
	if q == nil || q.templates == nil {
		return nil, queryDependencyError("query: template store is required")
	}
	return q.templates.List(ctx)
}
