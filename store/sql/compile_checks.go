package sqlstore

import "github.com/goliatone/go-cargo-notify/core"

var (
	_ core.DomainEventStore       = (*CargoEventStore)(nil)
	_ core.DeliveryLogStore       = (*DeliveryLogStore)(nil)
	_ core.TemplateStore          = (*TemplateStore)(nil)
	_ core.TemplateStore          = (*CachedTemplateStore)(nil)
	_ core.IntegrationStore       = (*IntegrationStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.RetentionTuner         = (*RepositoryFactory)(nil)
)
