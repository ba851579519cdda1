package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RecordTransitionMessage]  = (*RecordTransitionCommand)(nil)
	_ gocmd.Commander[UpsertTemplateMessage]    = (*UpsertTemplateCommand)(nil)
	_ gocmd.Commander[UpsertIntegrationMessage] = (*UpsertIntegrationCommand)(nil)
	_ gocmd.Commander[PruneDeliveryLogsMessage] = (*PruneDeliveryLogsCommand)(nil)
)
