package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// DispatcherFactory builds the delivery leg from the resolved configuration
// and the dependencies assembled so far. It runs only when no dispatcher was
// supplied directly; returning a nil dispatcher leaves the service without a
// delivery leg, which is valid for detection-only deployments.
type DispatcherFactory func(cfg Config, deps ServiceDependencies) (EventDispatcher, error)

type serviceBuilder struct {
	runtimeConfig     Config
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
	dispatcherFactory DispatcherFactory
	syncDispatch      bool
	now               func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithEventStore(store DomainEventStore) Option {
	return func(b *serviceBuilder) {
		b.eventStore = store
	}
}

func WithDeliveryLogStore(store DeliveryLogStore) Option {
	return func(b *serviceBuilder) {
		b.deliveryLogStore = store
	}
}

func WithTemplateStore(store TemplateStore) Option {
	return func(b *serviceBuilder) {
		b.templateStore = store
	}
}

func WithIntegrationStore(store IntegrationStore) Option {
	return func(b *serviceBuilder) {
		b.integrationStore = store
	}
}

func WithRenderer(renderer MessageRenderer) Option {
	return func(b *serviceBuilder) {
		b.renderer = renderer
	}
}

func WithEvaluator(evaluator EligibilityEvaluator) Option {
	return func(b *serviceBuilder) {
		b.evaluator = evaluator
	}
}

func WithDispatcher(dispatcher EventDispatcher) Option {
	return func(b *serviceBuilder) {
		b.dispatcher = dispatcher
	}
}

// WithDispatcherFactory defers dispatcher construction until the config is
// resolved and the stores are built. A dispatcher set through WithDispatcher
// always wins over the factory.
func WithDispatcherFactory(factory DispatcherFactory) Option {
	return func(b *serviceBuilder) {
		b.dispatcherFactory = factory
	}
}

// WithSynchronousDispatch makes RecordTransition run the delivery leg inline
// instead of handing it to the background lane. Intended for tests; the
// error-isolation contract still holds.
func WithSynchronousDispatch() Option {
	return func(b *serviceBuilder) {
		b.syncDispatch = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

func defaultServiceBuilder(cfg Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("cargo-notify", nil, nil)
	return serviceBuilder{
		runtimeConfig:   cfg,
		logger:          logger,
		loggerProvider:  loggerProvider,
		metricsRecorder: NopMetricsRecorder{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return notifyErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	dispatch := map[string]any{}
	if includeZero || cfg.Dispatch.TimeoutMS != 0 {
		dispatch["timeout_ms"] = cfg.Dispatch.TimeoutMS
	}
	if includeZero || strings.TrimSpace(cfg.Dispatch.Origin) != "" {
		dispatch["origin"] = cfg.Dispatch.Origin
	}
	if len(dispatch) > 0 {
		layer["dispatch"] = dispatch
	}

	if includeZero || cfg.Retention.MaxDeliveryLogs != 0 {
		layer["retention"] = map[string]any{
			"max_delivery_logs": cfg.Retention.MaxDeliveryLogs,
		}
	}

	if includeZero || strings.TrimSpace(cfg.Render.CurrencyPrefix) != "" {
		layer["render"] = map[string]any{
			"currency_prefix": cfg.Render.CurrencyPrefix,
		}
	}
	return layer
}
