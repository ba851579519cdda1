package query

import (
	"strings"

	"github.com/goliatone/go-cargo-notify/core"
)

const (
	TypeListDeliveryLogs   = "cargonotify.query.delivery_logs.list"
	TypeGetDeliveryLog     = "cargonotify.query.delivery_logs.get"
	TypeListShipmentEvents = "cargonotify.query.shipment_events.list"
	TypeListIntegrations   = "cargonotify.query.integrations.list"
	TypeListTemplates      = "cargonotify.query.templates.list"
)

type ListDeliveryLogsMessage struct {
	Filter core.DeliveryLogFilter
}

func (ListDeliveryLogsMessage) Type() string { return TypeListDeliveryLogs }

func (m ListDeliveryLogsMessage) Validate() error {
	if err := m.Filter.Validate(); err != nil {
		return queryWrapValidation(err, "query: delivery log filter is invalid")
	}
	return nil
}

type GetDeliveryLogMessage struct {
	ID string
}

func (GetDeliveryLogMessage) Type() string { return TypeGetDeliveryLog }

func (m GetDeliveryLogMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "delivery log id is required")
	}
	return nil
}

type ListShipmentEventsMessage struct {
	CargoID string
}

func (ListShipmentEventsMessage) Type() string { return TypeListShipmentEvents }

func (m ListShipmentEventsMessage) Validate() error {
	if strings.TrimSpace(m.CargoID) == "" {
		return queryValidationError("cargo_id", "cargo id is required")
	}
	return nil
}

type ListIntegrationsMessage struct {
	ActiveOnly bool
}

func (ListIntegrationsMessage) Type() string { return TypeListIntegrations }

func (ListIntegrationsMessage) Validate() error { return nil }

type ListTemplatesMessage struct{}

func (ListTemplatesMessage) Type() string { return TypeListTemplates }

func (ListTemplatesMessage) Validate() error { return nil }
