package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-cargo-notify/core"
)

var (
	_ gocmd.Querier[ListDeliveryLogsMessage, []core.DeliveryAttempt]    = (*ListDeliveryLogsQuery)(nil)
	_ gocmd.Querier[GetDeliveryLogMessage, core.DeliveryAttempt]        = (*GetDeliveryLogQuery)(nil)
	_ gocmd.Querier[ListShipmentEventsMessage, []core.DomainEvent]      = (*ListShipmentEventsQuery)(nil)
	_ gocmd.Querier[ListIntegrationsMessage, []core.IntegrationConfig]  = (*ListIntegrationsQuery)(nil)
	_ gocmd.Querier[ListTemplatesMessage, []core.NotificationTemplate]  = (*ListTemplatesQuery)(nil)
)
