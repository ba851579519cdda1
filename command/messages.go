package command

import (
	"strings"

	"github.com/goliatone/go-cargo-notify/core"
)

const (
	TypeRecordTransition  = "cargonotify.command.transition.record"
	TypeUpsertTemplate    = "cargonotify.command.template.upsert"
	TypeUpsertIntegration = "cargonotify.command.integration.upsert"
	TypePruneDeliveryLogs = "cargonotify.command.delivery_logs.prune"
)

type RecordTransitionMessage struct {
	Input core.TransitionInput
}

func (RecordTransitionMessage) Type() string { return TypeRecordTransition }

func (m RecordTransitionMessage) Validate() error {
	if strings.TrimSpace(m.Input.Snapshot.Code) == "" {
		return commandValidationError("snapshot.code", "shipment code is required")
	}
	if strings.TrimSpace(string(m.Input.Snapshot.Status)) == "" {
		return commandValidationError("snapshot.status", "shipment status is required")
	}
	return nil
}

type UpsertTemplateMessage struct {
	Template core.NotificationTemplate
}

func (UpsertTemplateMessage) Type() string { return TypeUpsertTemplate }

func (m UpsertTemplateMessage) Validate() error {
	if strings.TrimSpace(string(m.Template.EventType)) == "" {
		return commandValidationError("template.event_type", "template event type is required")
	}
	return nil
}

type UpsertIntegrationMessage struct {
	Integration core.IntegrationConfig
}

func (UpsertIntegrationMessage) Type() string { return TypeUpsertIntegration }

func (m UpsertIntegrationMessage) Validate() error {
	if err := m.Integration.Validate(); err != nil {
		return commandWrapValidation(err, "command: integration validation failed")
	}
	return nil
}

type PruneDeliveryLogsMessage struct {
	Max int
}

func (PruneDeliveryLogsMessage) Type() string { return TypePruneDeliveryLogs }

func (m PruneDeliveryLogsMessage) Validate() error {
	if m.Max < 0 {
		return commandValidationError("max", "retention cap must be >= 0")
	}
	return nil
}
