package webhooks

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-cargo-notify/core"
)

const (
	defaultCarrierLabel = "Own fleet"
	eventTimeLayout     = "02/01/2006 15:04"
)

// DeliveryPayload is the flat body POSTed to an integration endpoint. Field
// names and flatness are a wire contract with downstream no-code tooling;
// nested structures must not be introduced.
type DeliveryPayload struct {
	Event            string `json:"evento"`
	CargoID          string `json:"carga_id"`
	PreviousStatus   string `json:"status_anterior"`
	CurrentStatus    string `json:"status_atual"`
	Client           string `json:"cliente"`
	Carrier          string `json:"transportadora"`
	Origin           string `json:"origem"`
	Destination      string `json:"destino"`
	DIFAL            bool   `json:"difal"`
	EventDate        string `json:"data_evento"`
	FormattedMessage string `json:"mensagem_formatada"`
}

// BuildPayload assembles the delivery payload for one event. Origin is the
// fixed company location from configuration; the destination collapses city
// and state into a single display string.
func BuildPayload(event core.DomainEvent, snapshot core.ShipmentSnapshot, origin, message string) DeliveryPayload {
	carrier := strings.TrimSpace(snapshot.Carrier)
	if carrier == "" {
		carrier = defaultCarrierLabel
	}
	return DeliveryPayload{
		Event:            string(event.EventType),
		CargoID:          event.CargoID,
		PreviousStatus:   string(event.PreviousStatus),
		CurrentStatus:    string(event.CurrentStatus),
		Client:           snapshot.Client,
		Carrier:          carrier,
		Origin:           origin,
		Destination:      formatDestination(snapshot.City, snapshot.State),
		DIFAL:            snapshot.DIFAL,
		EventDate:        event.OccurredAt.Format(eventTimeLayout),
		FormattedMessage: message,
	}
}

func (p DeliveryPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

func formatDestination(city, state string) string {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	switch {
	case city == "" && state == "":
		return ""
	case state == "":
		return city
	case city == "":
		return state
	default:
		return city + " - " + state
	}
}
