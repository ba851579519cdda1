package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-cargo-notify/core"
)

type memoryTemplateStore struct {
	templates map[core.EventType]core.NotificationTemplate
	err       error
}

func (s *memoryTemplateStore) GetByEventType(_ context.Context, eventType core.EventType) (core.NotificationTemplate, bool, error) {
	if s.err != nil {
		return core.NotificationTemplate{}, false, s.err
	}
	template, ok := s.templates[eventType]
	return template, ok, nil
}

func (s *memoryTemplateStore) Upsert(_ context.Context, template core.NotificationTemplate) (core.NotificationTemplate, error) {
	if s.templates == nil {
		s.templates = map[core.EventType]core.NotificationTemplate{}
	}
	s.templates[template.EventType] = template
	return template, nil
}

func (s *memoryTemplateStore) List(context.Context) ([]core.NotificationTemplate, error) {
	out := make([]core.NotificationTemplate, 0, len(s.templates))
	for _, template := range s.templates {
		out = append(out, template)
	}
	return out, nil
}

func fixedClock() time.Time {
	return time.Date(2026, time.January, 5, 14, 30, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 { return &v }

func newRenderer(templates map[core.EventType]core.NotificationTemplate) *Renderer {
	return New(&memoryTemplateStore{templates: templates}, WithClock(fixedClock))
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	renderer := newRenderer(map[core.EventType]core.NotificationTemplate{
		core.EventTypeDispatched: {
			EventType: core.EventTypeDispatched,
			Enabled:   true,
			Body:      "Cargo {{code}} sent to {{city}}/{{state}}",
		},
	})

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "GSL-26-001",
		Status: core.StatusDispatched,
		City:   "CURITIBA",
		State:  "PR",
	}, core.EventTypeDispatched)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(message, "Cargo GSL-26-001 sent to CURITIBA/PR") {
		t.Fatalf("message = %q, want substituted body", message)
	}
}

func TestRenderPrefixAndDefaults(t *testing.T) {
	renderer := newRenderer(map[core.EventType]core.NotificationTemplate{
		core.EventTypeCompleted: {
			EventType: core.EventTypeCompleted,
			Enabled:   true,
			Prefix:    "[Delivery]",
			Body:      "carrier {{carrier}}, plate {{plate}}, eta {{eta}}",
		},
	})

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "CRG-9",
		Status: core.StatusCompleted,
	}, core.EventTypeCompleted)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.HasPrefix(message, "[Delivery] ") {
		t.Fatalf("message = %q, want prefix first", message)
	}
	if !strings.Contains(message, "carrier Own fleet") {
		t.Fatalf("message = %q, want carrier default", message)
	}
	if !strings.Contains(message, "plate N/A") {
		t.Fatalf("message = %q, want plate default", message)
	}
	if !strings.Contains(message, "eta To be defined") {
		t.Fatalf("message = %q, want eta default", message)
	}
}

func TestRenderCurrencyAndDate(t *testing.T) {
	renderer := newRenderer(map[core.EventType]core.NotificationTemplate{
		core.EventTypeInvoiced: {
			EventType: core.EventTypeInvoiced,
			Enabled:   true,
			Body:      "revenue {{revenue}}, invoice {{invoiceValue}}, at {{date}}",
		},
	})

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "CRG-10",
		Status: core.StatusInvoiced,
		Financial: core.ShipmentFinancials{
			CustomerFreightValue: floatPtr(12345.6),
		},
	}, core.EventTypeInvoiced)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(message, "revenue R$ 12.345,60") {
		t.Fatalf("message = %q, want formatted revenue", message)
	}
	if !strings.Contains(message, "invoice N/A") {
		t.Fatalf("message = %q, want invoice default", message)
	}
	if !strings.Contains(message, "at 05/01/2026 14:30") {
		t.Fatalf("message = %q, want render-time date", message)
	}
}

func TestRenderFallbackWhenTemplateMissing(t *testing.T) {
	renderer := newRenderer(nil)

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "CRG-11",
		Status: core.StatusCancelled,
	}, core.EventTypeCancelled)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if message != "Status update for CRG-11: new status cancelled" {
		t.Fatalf("message = %q, want generic fallback", message)
	}
}

func TestRenderFallbackWhenTemplateDisabled(t *testing.T) {
	renderer := newRenderer(map[core.EventType]core.NotificationTemplate{
		core.EventTypeArrivedAtYard: {
			EventType: core.EventTypeArrivedAtYard,
			Enabled:   false,
			Body:      "never used {{code}}",
		},
	})

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "CRG-12",
		Status: core.StatusArrivedAtYard,
	}, core.EventTypeArrivedAtYard)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.HasPrefix(message, "Status update for CRG-12") {
		t.Fatalf("message = %q, want generic fallback", message)
	}
}

func TestRenderFallbackWhenLookupFails(t *testing.T) {
	renderer := New(&memoryTemplateStore{err: errors.New("store offline")}, WithClock(fixedClock))

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "CRG-13",
		Status: core.StatusInTransit,
	}, core.EventTypeInTransit)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.HasPrefix(message, "Status update for CRG-13") {
		t.Fatalf("message = %q, want generic fallback on lookup failure", message)
	}
}

func TestRenderSweepsUnresolvedTokens(t *testing.T) {
	renderer := newRenderer(map[core.EventType]core.NotificationTemplate{
		core.EventTypeIdentified: {
			EventType: core.EventTypeIdentified,
			Enabled:   true,
			Body:      "code {{code}} and mystery {{warehouse}} token",
		},
	})

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "CRG-14",
		Status: core.StatusIdentified,
	}, core.EventTypeIdentified)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(message, "{{") || strings.Contains(message, "}}") {
		t.Fatalf("message = %q, raw template syntax leaked", message)
	}
	if !strings.Contains(message, "mystery --- token") {
		t.Fatalf("message = %q, want neutral placeholder for unresolved token", message)
	}
}

func TestRenderEnrichmentBlocks(t *testing.T) {
	renderer := newRenderer(map[core.EventType]core.NotificationTemplate{
		core.EventTypeDispatched: {
			EventType: core.EventTypeDispatched,
			Enabled:   true,
			Body:      "Cargo {{code}} on the move",
		},
	})

	message, err := renderer.Render(context.Background(), core.ShipmentSnapshot{
		Code:   "CRG-15",
		Status: core.StatusDispatched,
		DIFAL:  true,
		DeliveryPoints: []core.DeliveryPoint{
			{City: "Curitiba", State: "PR"},
			{City: "Londrina", State: "PR"},
			{City: "Maringa", State: "PR"},
		},
	}, core.EventTypeDispatched)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(message, "DIFAL") {
		t.Fatalf("message = %q, want tax alert line", message)
	}
	if !strings.Contains(message, "3 delivery points") {
		t.Fatalf("message = %q, want multi-stop notice", message)
	}
	difalIdx := strings.Index(message, "DIFAL")
	stopsIdx := strings.Index(message, "delivery points")
	if difalIdx > stopsIdx {
		t.Fatalf("message = %q, enrichment blocks out of order", message)
	}
}

func TestRenderIsDeterministicWithFixedClock(t *testing.T) {
	renderer := newRenderer(map[core.EventType]core.NotificationTemplate{
		core.EventTypeCompleted: {
			EventType: core.EventTypeCompleted,
			Enabled:   true,
			Body:      "done {{code}} at {{date}}",
		},
	})
	snapshot := core.ShipmentSnapshot{Code: "CRG-16", Status: core.StatusCompleted}

	first, err := renderer.Render(context.Background(), snapshot, core.EventTypeCompleted)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	second, err := renderer.Render(context.Background(), snapshot, core.EventTypeCompleted)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if first != second {
		t.Fatalf("renders differ: %q vs %q", first, second)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{0, "0,00"},
		{12.5, "12,50"},
		{1234.56, "1.234,56"},
		{1234567.89, "1.234.567,89"},
		{-999.9, "-999,90"},
	}
	for _, tc := range cases {
		if got := formatAmount(tc.value); got != tc.want {
			t.Fatalf("formatAmount(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}
