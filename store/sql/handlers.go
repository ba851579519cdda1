package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func cargoEventHandlers() repository.ModelHandlers[*cargoEventRecord] {
	return repository.ModelHandlers[*cargoEventRecord]{
		NewRecord: func() *cargoEventRecord {
			return &cargoEventRecord{}
		},
		GetID: func(record *cargoEventRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *cargoEventRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *cargoEventRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func deliveryLogHandlers() repository.ModelHandlers[*deliveryLogRecord] {
	return repository.ModelHandlers[*deliveryLogRecord]{
		NewRecord: func() *deliveryLogRecord {
			return &deliveryLogRecord{}
		},
		GetID: func(record *deliveryLogRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *deliveryLogRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *deliveryLogRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func templateHandlers() repository.ModelHandlers[*templateRecord] {
	return repository.ModelHandlers[*templateRecord]{
		NewRecord: func() *templateRecord {
			return &templateRecord{}
		},
		GetID: func(record *templateRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *templateRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *templateRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func integrationHandlers() repository.ModelHandlers[*integrationRecord] {
	return repository.ModelHandlers[*integrationRecord]{
		NewRecord: func() *integrationRecord {
			return &integrationRecord{}
		},
		GetID: func(record *integrationRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *integrationRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *integrationRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
