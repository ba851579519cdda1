package cargonotify

import (
	"time"

	"github.com/goliatone/go-cargo-notify/core"
	"github.com/goliatone/go-cargo-notify/filters"
	"github.com/goliatone/go-cargo-notify/render"
	"github.com/goliatone/go-cargo-notify/webhooks"
)

type Config = core.Config

type DispatchConfig = core.DispatchConfig

type RetentionConfig = core.RetentionConfig

type RenderConfig = core.RenderConfig

type Option = core.Option

type DispatcherFactory = core.DispatcherFactory

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Status = core.Status
type EventType = core.EventType
type ShipmentSnapshot = core.ShipmentSnapshot
type TransitionInput = core.TransitionInput
type DomainEvent = core.DomainEvent
type NotificationTemplate = core.NotificationTemplate
type IntegrationConfig = core.IntegrationConfig
type FilterRule = core.FilterRule
type DeliveryAttempt = core.DeliveryAttempt
type DeliveryLogFilter = core.DeliveryLogFilter

type DomainEventStore = core.DomainEventStore
type DeliveryLogStore = core.DeliveryLogStore
type TemplateStore = core.TemplateStore
type IntegrationStore = core.IntegrationStore
type MessageRenderer = core.MessageRenderer
type EligibilityEvaluator = core.EligibilityEvaluator
type EventDispatcher = core.EventDispatcher

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithPersistenceClient   = core.WithPersistenceClient
	WithRepositoryFactory   = core.WithRepositoryFactory
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithEventStore          = core.WithEventStore
	WithDeliveryLogStore    = core.WithDeliveryLogStore
	WithTemplateStore       = core.WithTemplateStore
	WithIntegrationStore    = core.WithIntegrationStore
	WithRenderer            = core.WithRenderer
	WithEvaluator           = core.WithEvaluator
	WithDispatcher          = core.WithDispatcher
	WithDispatcherFactory   = core.WithDispatcherFactory
	WithSynchronousDispatch = core.WithSynchronousDispatch
	WithClock               = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds a service with the full delivery pipeline wired in. When no
// dispatcher is supplied it assembles the renderer, the eligibility
// evaluator, and the webhook dispatcher from the resolved configuration, so
// dispatch.timeout_ms, dispatch.origin, and render.currency_prefix take
// effect without manual wiring. NewService stays the bare builder for callers
// that bring their own pipeline.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	options := make([]Option, 0, len(opts)+1)
	options = append(options, core.WithDispatcherFactory(defaultDispatcherFactory))
	options = append(options, opts...)
	return core.Setup(cfg, options...)
}

func defaultDispatcherFactory(cfg core.Config, deps core.ServiceDependencies) (core.EventDispatcher, error) {
	if deps.IntegrationStore == nil || deps.DeliveryLogStore == nil {
		return nil, nil
	}

	renderer := deps.Renderer
	if renderer == nil && deps.TemplateStore != nil {
		renderer = render.New(deps.TemplateStore,
			render.WithCurrencyPrefix(cfg.Render.CurrencyPrefix),
			render.WithLogger(deps.Logger),
		)
	}
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = filters.New(filters.WithLogger(deps.Logger))
	}

	sender := webhooks.NewSender(
		webhooks.WithTimeout(time.Duration(cfg.Dispatch.TimeoutMS) * time.Millisecond),
	)
	return webhooks.New(deps.IntegrationStore, deps.DeliveryLogStore, renderer, evaluator,
		webhooks.WithOrigin(cfg.Dispatch.Origin),
		webhooks.WithSender(sender),
		webhooks.WithLogger(deps.Logger),
		webhooks.WithMetrics(deps.MetricsRecorder),
	), nil
}
