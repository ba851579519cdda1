package sqlstore

import (
	"github.com/goliatone/go-cargo-notify/core"
)

func cargoEventToDomain(record *cargoEventRecord) core.DomainEvent {
	if record == nil {
		return core.DomainEvent{}
	}
	return core.DomainEvent{
		ID:             record.ID,
		EventType:      core.EventType(record.EventType),
		CargoID:        record.CargoID,
		PreviousStatus: core.Status(record.PreviousStatus),
		CurrentStatus:  core.Status(record.CurrentStatus),
		OccurredAt:     record.OccurredAt,
		ActorID:        record.ActorID,
		Metadata:       record.Metadata,
		Processed:      record.Processed,
	}
}

func deliveryLogToDomain(record *deliveryLogRecord) core.DeliveryAttempt {
	if record == nil {
		return core.DeliveryAttempt{}
	}
	return core.DeliveryAttempt{
		ID:             record.ID,
		IntegrationID:  record.IntegrationID,
		EventType:      core.EventType(record.EventType),
		CargoID:        record.CargoID,
		TargetURL:      record.TargetURL,
		HTTPStatus:     record.HTTPStatus,
		ResponseBody:   record.ResponseBody,
		RequestPayload: record.RequestPayload,
		Succeeded:      record.Succeeded,
		AttemptNumber:  record.AttemptNumber,
		CreatedAt:      record.CreatedAt,
	}
}

func templateToDomain(record *templateRecord) core.NotificationTemplate {
	if record == nil {
		return core.NotificationTemplate{}
	}
	return core.NotificationTemplate{
		EventType: core.EventType(record.EventType),
		Enabled:   record.Enabled,
		Prefix:    record.Prefix,
		Body:      record.Body,
		UpdatedAt: record.UpdatedAt,
	}
}

func integrationToDomain(record *integrationRecord) core.IntegrationConfig {
	if record == nil {
		return core.IntegrationConfig{}
	}
	allowlist := make([]core.EventType, 0, len(record.EventAllowlist))
	for _, eventType := range record.EventAllowlist {
		allowlist = append(allowlist, core.EventType(eventType))
	}
	rules := make([]core.FilterRule, 0, len(record.Filters))
	for _, rule := range record.Filters {
		rules = append(rules, core.FilterRule{
			FieldPath: rule.FieldPath,
			Operator:  core.FilterOperator(rule.Operator),
			Value:     rule.Value,
			Label:     rule.Label,
		})
	}
	return core.IntegrationConfig{
		ID:             record.ID,
		Name:           record.Name,
		Active:         record.Active,
		EndpointURL:    record.EndpointURL,
		BearerToken:    record.BearerToken,
		EventAllowlist: allowlist,
		Filters:        rules,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

func integrationToRecord(integration core.IntegrationConfig) *integrationRecord {
	allowlist := make([]string, 0, len(integration.EventAllowlist))
	for _, eventType := range integration.EventAllowlist {
		allowlist = append(allowlist, string(eventType))
	}
	rules := make([]filterRuleValue, 0, len(integration.Filters))
	for _, rule := range integration.Filters {
		rules = append(rules, filterRuleValue{
			FieldPath: rule.FieldPath,
			Operator:  string(rule.Operator),
			Value:     rule.Value,
			Label:     rule.Label,
		})
	}
	return &integrationRecord{
		ID:             integration.ID,
		Name:           integration.Name,
		Active:         integration.Active,
		EndpointURL:    integration.EndpointURL,
		BearerToken:    integration.BearerToken,
		EventAllowlist: allowlist,
		Filters:        rules,
		CreatedAt:      integration.CreatedAt,
		UpdatedAt:      integration.UpdatedAt,
	}
}
