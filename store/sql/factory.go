package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-cargo-notify/core"
)

// RepositoryFactory builds the bun-backed stores from a persistence client
// and serves them as a core.StoreProvider.
type RepositoryFactory struct {
	db      *bun.DB
	maxLogs int

	eventStore       *CargoEventStore
	deliveryLogStore *DeliveryLogStore
	templateStore    *TemplateStore
	integrationStore *IntegrationStore
}

type FactoryOption func(*RepositoryFactory)

// WithMaxDeliveryLogs sets the retention cap the delivery log store enforces
// on every append.
func WithMaxDeliveryLogs(max int) FactoryOption {
	return func(f *RepositoryFactory) {
		if max > 0 {
			f.maxLogs = max
		}
	}
}

// SetMaxDeliveryLogs applies the resolved retention cap. Once the delivery
// log store has been built the cap is frozen and the call is a no-op.
func (f *RepositoryFactory) SetMaxDeliveryLogs(max int) {
	if f == nil || max <= 0 || f.deliveryLogStore != nil {
		return
	}
	f.maxLogs = max
}

func NewRepositoryFactory(options ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{maxLogs: defaultMaxDeliveryLogs}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, options ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(options...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, options ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(options...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.eventStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) EventStore() core.DomainEventStore {
	if f == nil {
		return nil
	}
	return f.eventStore
}

func (f *RepositoryFactory) DeliveryLogStore() core.DeliveryLogStore {
	if f == nil {
		return nil
	}
	return f.deliveryLogStore
}

func (f *RepositoryFactory) TemplateStore() core.TemplateStore {
	if f == nil {
		return nil
	}
	return f.templateStore
}

func (f *RepositoryFactory) IntegrationStore() core.IntegrationStore {
	if f == nil {
		return nil
	}
	return f.integrationStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	eventStore, err := NewCargoEventStore(f.db)
	if err != nil {
		return err
	}
	f.eventStore = eventStore

	deliveryLogStore, err := NewDeliveryLogStore(f.db, f.maxLogs)
	if err != nil {
		return err
	}
	f.deliveryLogStore = deliveryLogStore

	templateStore, err := NewTemplateStore(f.db)
	if err != nil {
		return err
	}
	f.templateStore = templateStore

	integrationStore, err := NewIntegrationStore(f.db)
	if err != nil {
		return err
	}
	f.integrationStore = integrationStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
