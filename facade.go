package cargonotify

import (
	"fmt"

	cargocommand "github.com/goliatone/go-cargo-notify/command"
	"github.com/goliatone/go-cargo-notify/core"
	cargoquery "github.com/goliatone/go-cargo-notify/query"
)

// CommandQueryService is the surface the facade wraps. The core service
// satisfies it directly.
type CommandQueryService interface {
	cargocommand.TransitionService
	cargoquery.ShipmentEventReader
}

type Commands struct {
	RecordTransition  *cargocommand.RecordTransitionCommand
	UpsertTemplate    *cargocommand.UpsertTemplateCommand
	UpsertIntegration *cargocommand.UpsertIntegrationCommand
	PruneDeliveryLogs *cargocommand.PruneDeliveryLogsCommand
}

type Queries struct {
	ListDeliveryLogs   *cargoquery.ListDeliveryLogsQuery
	GetDeliveryLog     *cargoquery.GetDeliveryLogQuery
	ListShipmentEvents *cargoquery.ListShipmentEventsQuery
	ListIntegrations   *cargoquery.ListIntegrationsQuery
	ListTemplates      *cargoquery.ListTemplatesQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	deliveryLogStore core.DeliveryLogStore
	templateStore    core.TemplateStore
	integrationStore core.IntegrationStore
}

func WithFacadeDeliveryLogStore(store core.DeliveryLogStore) FacadeOption {
	return func(options *facadeOptions) {
		options.deliveryLogStore = store
	}
}

func WithFacadeTemplateStore(store core.TemplateStore) FacadeOption {
	return func(options *facadeOptions) {
		options.templateStore = store
	}
}

func WithFacadeIntegrationStore(store core.IntegrationStore) FacadeOption {
	return func(options *facadeOptions) {
		options.integrationStore = store
	}
}

// NewFacade builds the command and query handlers around one service. Store
// backed handlers resolve their stores from the service dependencies unless
// an option overrides them; handlers whose store stays nil surface a
// dependency error when executed rather than failing construction.
func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("cargonotify: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	deps := resolveDependencies(service)
	if cfg.deliveryLogStore == nil {
		cfg.deliveryLogStore = deps.DeliveryLogStore
	}
	if cfg.templateStore == nil {
		cfg.templateStore = deps.TemplateStore
	}
	if cfg.integrationStore == nil {
		cfg.integrationStore = deps.IntegrationStore
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RecordTransition:  cargocommand.NewRecordTransitionCommand(service),
		UpsertTemplate:    cargocommand.NewUpsertTemplateCommand(cfg.templateStore),
		UpsertIntegration: cargocommand.NewUpsertIntegrationCommand(cfg.integrationStore),
		PruneDeliveryLogs: cargocommand.NewPruneDeliveryLogsCommand(cfg.deliveryLogStore),
	}
	facade.queries = Queries{
		ListDeliveryLogs:   cargoquery.NewListDeliveryLogsQuery(cfg.deliveryLogStore),
		GetDeliveryLog:     cargoquery.NewGetDeliveryLogQuery(cfg.deliveryLogStore),
		ListShipmentEvents: cargoquery.NewListShipmentEventsQuery(service),
		ListIntegrations:   cargoquery.NewListIntegrationsQuery(cfg.integrationStore),
		ListTemplates:      cargoquery.NewListTemplatesQuery(cfg.templateStore),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveDependencies(service CommandQueryService) core.ServiceDependencies {
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return core.ServiceDependencies{}
	}
	return provider.Dependencies()
}
