package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

var (
	ErrEventStoreRequired = errors.New("core: event store is required")
	ErrServiceClosed      = errors.New("core: service is closed")
)

// TransitionInput carries one observed shipment status change. Snapshot holds
// the shipment state after the change; PreviousStatus is the state before it.
type TransitionInput struct {
	PreviousStatus Status
	Snapshot       ShipmentSnapshot
	ActorID        string
	Metadata       map[string]any
}

type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	eventStore        DomainEventStore
	deliveryLogStore  DeliveryLogStore
	templateStore     TemplateStore
	integrationStore  IntegrationStore
	renderer          MessageRenderer
	evaluator         EligibilityEvaluator
	dispatcher        EventDispatcher
	syncDispatch      bool
	now               func() time.Time

	mu       sync.Mutex
	inflight sync.WaitGroup
	closed   bool
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	EventStore        DomainEventStore
	DeliveryLogStore  DeliveryLogStore
	TemplateStore     TemplateStore
	IntegrationStore  IntegrationStore
	Renderer          MessageRenderer
	Evaluator         EligibilityEvaluator
	Dispatcher        EventDispatcher
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("cargo-notify", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("cargo-notify"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if storesMissing(&builder) && builder.repositoryFactory != nil {
		var storeProvider StoreProvider
		if factory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			// Push the resolved cap into the factory before the delivery log
			// store exists, so the configured retention governs eviction.
			if tuner, ok := builder.repositoryFactory.(RetentionTuner); ok {
				tuner.SetMaxDeliveryLogs(finalConfig.Retention.MaxDeliveryLogs)
			}
			built, buildErr := factory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			storeProvider = built
		} else if ready, ok := builder.repositoryFactory.(StoreProvider); ok {
			storeProvider = ready
		}
		if storeProvider != nil {
			if builder.eventStore == nil {
				builder.eventStore = storeProvider.EventStore()
			}
			if builder.deliveryLogStore == nil {
				builder.deliveryLogStore = storeProvider.DeliveryLogStore()
			}
			if builder.templateStore == nil {
				builder.templateStore = storeProvider.TemplateStore()
			}
			if builder.integrationStore == nil {
				builder.integrationStore = storeProvider.IntegrationStore()
			}
		}
	}

	if builder.dispatcher == nil && builder.dispatcherFactory != nil {
		deps := ServiceDependencies{
			Logger:            logger,
			LoggerProvider:    provider,
			MetricsRecorder:   builder.metricsRecorder,
			ErrorFactory:      builder.errorFactory,
			ErrorMapper:       builder.errorMapper,
			PersistenceClient: builder.persistenceClient,
			RepositoryFactory: builder.repositoryFactory,
			ConfigProvider:    builder.configProvider,
			OptionsResolver:   builder.optionsResolver,
			EventStore:        builder.eventStore,
			DeliveryLogStore:  builder.deliveryLogStore,
			TemplateStore:     builder.templateStore,
			IntegrationStore:  builder.integrationStore,
			Renderer:          builder.renderer,
			Evaluator:         builder.evaluator,
		}
		dispatcher, factoryErr := builder.dispatcherFactory(finalConfig, deps)
		if factoryErr != nil {
			return nil, mapBuildError(builder.errorMapper, factoryErr)
		}
		builder.dispatcher = dispatcher
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		eventStore:        builder.eventStore,
		deliveryLogStore:  builder.deliveryLogStore,
		templateStore:     builder.templateStore,
		integrationStore:  builder.integrationStore,
		renderer:          builder.renderer,
		evaluator:         builder.evaluator,
		dispatcher:        builder.dispatcher,
		syncDispatch:      builder.syncDispatch,
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func storesMissing(builder *serviceBuilder) bool {
	return builder.eventStore == nil ||
		builder.deliveryLogStore == nil ||
		builder.templateStore == nil ||
		builder.integrationStore == nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		EventStore:        s.eventStore,
		DeliveryLogStore:  s.deliveryLogStore,
		TemplateStore:     s.templateStore,
		IntegrationStore:  s.integrationStore,
		Renderer:          s.renderer,
		Evaluator:         s.evaluator,
		Dispatcher:        s.dispatcher,
	}
}

// RecordTransition turns one observed status change into a persisted domain
// event and hands it to the dispatcher. A transition where the status did not
// actually change produces no event and no side effects. Delivery failures
// never propagate to the caller; the transition itself only fails when input
// is invalid or the event cannot be persisted.
func (s *Service) RecordTransition(ctx context.Context, input TransitionInput) (event *DomainEvent, err error) {
	if s == nil {
		return nil, ErrEventStoreRequired
	}
	startedAt := s.now()
	fields := map[string]any{
		"cargo_id":        input.Snapshot.Code,
		"previous_status": input.PreviousStatus,
		"current_status":  input.Snapshot.Status,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "record_transition", err, fields)
	}()

	cargoID := strings.TrimSpace(input.Snapshot.Code)
	if cargoID == "" {
		err = s.mapError(fmt.Errorf("core: shipment code is required"))
		return nil, err
	}
	if strings.TrimSpace(string(input.Snapshot.Status)) == "" {
		err = s.mapError(fmt.Errorf("core: shipment status is required"))
		return nil, err
	}
	if input.PreviousStatus == input.Snapshot.Status {
		fields["outcome"] = "no_change"
		return nil, nil
	}
	if s.eventStore == nil {
		err = s.mapError(ErrEventStoreRequired)
		return nil, err
	}

	eventType := EventTypeForStatus(input.Snapshot.Status)
	if !KnownStatus(input.Snapshot.Status) {
		s.logInfo(ctx, "unmapped status, using in-transit event type", map[string]any{
			"cargo_id": cargoID,
			"status":   input.Snapshot.Status,
		})
	}
	fields["event_type"] = eventType

	record := DomainEvent{
		ID:             uuid.NewString(),
		EventType:      eventType,
		CargoID:        cargoID,
		PreviousStatus: input.PreviousStatus,
		CurrentStatus:  input.Snapshot.Status,
		OccurredAt:     s.now(),
		ActorID:        strings.TrimSpace(input.ActorID),
		Metadata:       copyAnyMap(input.Metadata),
	}
	if appendErr := s.eventStore.Append(ctx, record); appendErr != nil {
		err = s.mapError(appendErr)
		return nil, err
	}

	s.dispatchEvent(ctx, record, input.Snapshot)
	return &record, nil
}

// OnStatusChanged is the hook shipment workflows call after committing a
// status update.
func (s *Service) OnStatusChanged(ctx context.Context, input TransitionInput) (*DomainEvent, error) {
	return s.RecordTransition(ctx, input)
}

func (s *Service) dispatchEvent(ctx context.Context, event DomainEvent, snapshot ShipmentSnapshot) {
	if s == nil || s.dispatcher == nil {
		return
	}
	if s.syncDispatch {
		s.runDispatch(ctx, event, snapshot)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logError(ctx, "dispatch skipped, service closed", map[string]any{
			"event_id": event.ID,
			"cargo_id": event.CargoID,
		})
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		// Detached from the caller's request lifecycle on purpose.
		s.runDispatch(context.Background(), event, snapshot)
	}()
}

func (s *Service) runDispatch(ctx context.Context, event DomainEvent, snapshot ShipmentSnapshot) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logError(ctx, "dispatch panicked", map[string]any{
				"event_id":   event.ID,
				"cargo_id":   event.CargoID,
				"event_type": event.EventType,
				"panic":      fmt.Sprint(recovered),
			})
			s.recordCounter(ctx, "cargo_notify.dispatch_panic.total", 1, map[string]string{
				"event_type": string(event.EventType),
			})
		}
	}()

	if err := s.dispatcher.Dispatch(ctx, event, snapshot); err != nil {
		s.logError(ctx, "event dispatch failed", map[string]any{
			"event_id":   event.ID,
			"cargo_id":   event.CargoID,
			"event_type": event.EventType,
			"error":      err.Error(),
		})
	}
}

// EventsForShipment lists the persisted status-transition history for one
// shipment.
func (s *Service) EventsForShipment(ctx context.Context, cargoID string) (events []DomainEvent, err error) {
	if s == nil || s.eventStore == nil {
		return nil, ErrEventStoreRequired
	}
	startedAt := s.now()
	fields := map[string]any{"cargo_id": cargoID}
	defer func() {
		s.observeOperation(ctx, startedAt, "events_for_shipment", err, fields)
	}()

	cargoID = strings.TrimSpace(cargoID)
	if cargoID == "" {
		err = s.mapError(fmt.Errorf("core: shipment code is required"))
		return nil, err
	}
	events, err = s.eventStore.ListByCargo(ctx, cargoID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return events, nil
}

// Close drains in-flight background dispatches. New dispatches started after
// Close are dropped with a log line.
func (s *Service) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func copyAnyMap(values map[string]any) map[string]any {
	if len(values) == 0 {
		return nil
	}
	copied := make(map[string]any, len(values))
	for key, value := range values {
		copied[key] = value
	}
	return copied
}
