package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-cargo-notify/core"
)

// TransitionService is the mutating surface of the notification pipeline the
// command bus drives.
type TransitionService interface {
	RecordTransition(ctx context.Context, input core.TransitionInput) (*core.DomainEvent, error)
}

type RecordTransitionCommand struct {
	service TransitionService
}

func NewRecordTransitionCommand(service TransitionService) *RecordTransitionCommand {
	return &RecordTransitionCommand{service: service}
}

func (c *RecordTransitionCommand) Execute(ctx context.Context, msg RecordTransitionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: transition service is required")
	}
	event, err := c.service.RecordTransition(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, event)
	return nil
}

type UpsertTemplateCommand struct {
	templates core.TemplateStore
}

func NewUpsertTemplateCommand(templates core.TemplateStore) *UpsertTemplateCommand {
	return &UpsertTemplateCommand{templates: templates}
}

func (c *UpsertTemplateCommand) Execute(ctx context.Context, msg UpsertTemplateMessage) error {
	if c == nil || c.templates == nil {
		return commandDependencyError("command: template store is required")
	}
	stored, err := c.templates.Upsert(ctx, msg.Template)
	if err != nil {
		return err
	}
	storeResult(ctx, stored)
	return nil
}

type UpsertIntegrationCommand struct {
	integrations core.IntegrationStore
}

func NewUpsertIntegrationCommand(integrations core.IntegrationStore) *UpsertIntegrationCommand {
	return &UpsertIntegrationCommand{integrations: integrations}
}

func (c *UpsertIntegrationCommand) Execute(ctx context.Context, msg UpsertIntegrationMessage) error {
	if c == nil || c.integrations == nil {
		return commandDependencyError("command: integration store is required")
	}
	stored, err := c.integrations.Upsert(ctx, msg.Integration)
	if err != nil {
		return err
	}
	storeResult(ctx, stored)
	return nil
}

type PruneDeliveryLogsCommand struct {
	deliveryLogs core.DeliveryLogStore
}

func NewPruneDeliveryLogsCommand(deliveryLogs core.DeliveryLogStore) *PruneDeliveryLogsCommand {
	return &PruneDeliveryLogsCommand{deliveryLogs: deliveryLogs}
}

func (c *PruneDeliveryLogsCommand) Execute(ctx context.Context, msg PruneDeliveryLogsMessage) error {
	if c == nil || c.deliveryLogs == nil {
		return commandDependencyError("command: delivery log store is required")
	}
	removed, err := c.deliveryLogs.Prune(ctx, msg.Max)
	if err != nil {
		return err
	}
	storeResult(ctx, removed)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
