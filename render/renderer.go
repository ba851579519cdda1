// Package render produces the human-readable notification text for a
// shipment event from the per-event-type templates.
package render

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-cargo-notify/core"
)

const (
	defaultCurrencyPrefix = "R$"
	defaultCarrierLabel   = "Own fleet"
	missingValueLabel     = "N/A"
	pendingDateLabel      = "To be defined"

	dateTimeLayout = "02/01/2006 15:04"
	dateLayout     = "02/01/2006"
)

var placeholderPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Renderer resolves a template for the event type and substitutes shipment
// snapshot values into it. Missing templates and disabled templates fall back
// to a generic status line so the output is never empty.
type Renderer struct {
	templates      core.TemplateStore
	currencyPrefix string
	now            func() time.Time
	logger         core.Logger
}

type Option func(*Renderer)

func WithCurrencyPrefix(prefix string) Option {
	return func(r *Renderer) {
		if strings.TrimSpace(prefix) != "" {
			r.currencyPrefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func New(templates core.TemplateStore, options ...Option) *Renderer {
	renderer := &Renderer{
		templates:      templates,
		currencyPrefix: defaultCurrencyPrefix,
		now: func() time.Time {
			return time.Now().UTC()
		},
		logger: glog.Ensure(nil),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(renderer)
	}
	return renderer
}

// Render builds the final message. The {{date}} placeholder is the render
// time, not the event time.
func (r *Renderer) Render(ctx context.Context, snapshot core.ShipmentSnapshot, eventType core.EventType) (string, error) {
	if r == nil {
		return fallbackMessage(snapshot), nil
	}

	template, ok, err := r.lookupTemplate(ctx, eventType)
	if err != nil {
		r.logger.Error("template lookup failed, using fallback message",
			"event_type", eventType, "error", err.Error())
		return fallbackMessage(snapshot), nil
	}
	if !ok || !template.Enabled {
		return fallbackMessage(snapshot), nil
	}

	text := joinTemplateParts(template.Prefix, template.Body)
	if strings.TrimSpace(text) == "" {
		return fallbackMessage(snapshot), nil
	}

	for token, value := range r.placeholderValues(snapshot) {
		text = strings.ReplaceAll(text, token, value)
	}
	text = appendEnrichment(text, snapshot)
	text = placeholderPattern.ReplaceAllString(text, "---")

	if strings.TrimSpace(text) == "" {
		return fallbackMessage(snapshot), nil
	}
	return text, nil
}

func (r *Renderer) lookupTemplate(ctx context.Context, eventType core.EventType) (core.NotificationTemplate, bool, error) {
	if r.templates == nil {
		return core.NotificationTemplate{}, false, nil
	}
	return r.templates.GetByEventType(ctx, eventType)
}

func (r *Renderer) placeholderValues(snapshot core.ShipmentSnapshot) map[string]string {
	return map[string]string{
		"{{code}}":         textOrDefault(snapshot.Code, missingValueLabel),
		"{{status}}":       textOrDefault(string(snapshot.Status), missingValueLabel),
		"{{client}}":       textOrDefault(snapshot.Client, missingValueLabel),
		"{{city}}":         textOrDefault(snapshot.City, missingValueLabel),
		"{{state}}":        textOrDefault(snapshot.State, missingValueLabel),
		"{{carrier}}":      textOrDefault(snapshot.Carrier, defaultCarrierLabel),
		"{{plate}}":        textOrDefault(snapshot.Plate, missingValueLabel),
		"{{revenue}}":      r.currencyOrDefault(snapshot.Financial.CustomerFreightValue),
		"{{invoiceValue}}": r.currencyOrDefault(snapshot.Financial.InvoiceValue),
		"{{date}}":         r.now().Format(dateTimeLayout),
		"{{eta}}":          etaOrDefault(snapshot.ExpectedDelivery),
	}
}

func (r *Renderer) currencyOrDefault(value *float64) string {
	if value == nil {
		return missingValueLabel
	}
	return r.currencyPrefix + " " + formatAmount(*value)
}

func fallbackMessage(snapshot core.ShipmentSnapshot) string {
	return fmt.Sprintf("Status update for %s: new status %s",
		textOrDefault(snapshot.Code, missingValueLabel),
		textOrDefault(string(snapshot.Status), missingValueLabel))
}

func joinTemplateParts(prefix, body string) string {
	prefix = strings.TrimSpace(prefix)
	body = strings.TrimSpace(body)
	switch {
	case prefix == "":
		return body
	case body == "":
		return prefix
	default:
		return prefix + " " + body
	}
}

func appendEnrichment(text string, snapshot core.ShipmentSnapshot) string {
	if snapshot.DIFAL {
		text += "\nAttention: this shipment is subject to DIFAL tax handling."
	}
	if count := len(snapshot.DeliveryPoints); count > 1 {
		text += fmt.Sprintf("\nThis shipment has %d delivery points.", count)
	}
	return text
}

func etaOrDefault(eta *time.Time) string {
	if eta == nil || eta.IsZero() {
		return pendingDateLabel
	}
	return eta.Format(dateLayout)
}

func textOrDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

// formatAmount renders a monetary value with Brazilian grouping, thousands
// separated by dots and a comma before the cents.
func formatAmount(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	raw := strconv.FormatFloat(value, 'f', 2, 64)
	parts := strings.SplitN(raw, ".", 2)
	integer, cents := parts[0], parts[1]

	var grouped strings.Builder
	for i, digit := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String() + "," + cents
	if negative {
		out = "-" + out
	}
	return out
}

var _ core.MessageRenderer = (*Renderer)(nil)
