package cargonotify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-cargo-notify/core"
)

// TemplatePack is a named bundle of notification templates that a deployment
// registers at boot, typically one pack per downstream portal.
type TemplatePack struct {
	Name      string
	Templates []core.NotificationTemplate
}

// IntegrationPack is a named bundle of webhook integration seeds.
type IntegrationPack struct {
	Name         string
	Integrations []core.IntegrationConfig
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects template packs, integration packs, and command/query
// bundle factories before the pipeline boots, then seeds them into the
// configured stores.
type ExtensionHooks struct {
	mu sync.RWMutex

	templatePacks    map[string]TemplatePack
	integrationPacks map[string]IntegrationPack
	bundles          map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		templatePacks:    map[string]TemplatePack{},
		integrationPacks: map[string]IntegrationPack{},
		bundles:          map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterTemplatePack(pack TemplatePack) error {
	if h == nil {
		return fmt.Errorf("cargonotify: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("cargonotify: template pack name is required")
	}
	if len(pack.Templates) == 0 {
		return fmt.Errorf("cargonotify: template pack %q has no templates", name)
	}
	for _, template := range pack.Templates {
		if strings.TrimSpace(string(template.EventType)) == "" {
			return fmt.Errorf("cargonotify: template pack %q contains template without event type", name)
		}
	}

	normalized := TemplatePack{
		Name:      name,
		Templates: append([]core.NotificationTemplate(nil), pack.Templates...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.templatePacks[name]; exists {
		return fmt.Errorf("cargonotify: template pack %q already registered", name)
	}
	h.templatePacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterIntegrationPack(pack IntegrationPack) error {
	if h == nil {
		return fmt.Errorf("cargonotify: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("cargonotify: integration pack name is required")
	}
	if len(pack.Integrations) == 0 {
		return fmt.Errorf("cargonotify: integration pack %q has no integrations", name)
	}
	for _, integration := range pack.Integrations {
		if err := integration.Validate(); err != nil {
			return fmt.Errorf("cargonotify: integration pack %q: %w", name, err)
		}
	}

	normalized := IntegrationPack{
		Name:         name,
		Integrations: append([]core.IntegrationConfig(nil), pack.Integrations...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.integrationPacks[name]; exists {
		return fmt.Errorf("cargonotify: integration pack %q already registered", name)
	}
	h.integrationPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("cargonotify: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("cargonotify: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("cargonotify: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("cargonotify: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// SeedTemplates upserts every registered template pack into the store. Packs
// apply in name order so later packs win on event type collisions.
func (h *ExtensionHooks) SeedTemplates(ctx context.Context, store core.TemplateStore) error {
	if h == nil {
		return nil
	}
	if store == nil {
		return fmt.Errorf("cargonotify: template store is required")
	}

	for _, pack := range h.TemplatePacks() {
		for _, template := range pack.Templates {
			if _, err := store.Upsert(ctx, template); err != nil {
				return fmt.Errorf("cargonotify: template pack %q seed failed: %w", pack.Name, err)
			}
		}
	}
	return nil
}

// SeedIntegrations upserts every registered integration pack into the store.
func (h *ExtensionHooks) SeedIntegrations(ctx context.Context, store core.IntegrationStore) error {
	if h == nil {
		return nil
	}
	if store == nil {
		return fmt.Errorf("cargonotify: integration store is required")
	}

	for _, pack := range h.IntegrationPacks() {
		for _, integration := range pack.Integrations {
			if _, err := store.Upsert(ctx, integration); err != nil {
				return fmt.Errorf("cargonotify: integration pack %q seed failed: %w", pack.Name, err)
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("cargonotify: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) TemplatePacks() []TemplatePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.templatePacks))
	for name := range h.templatePacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TemplatePack, 0, len(names))
	for _, name := range names {
		pack := h.templatePacks[name]
		out = append(out, TemplatePack{
			Name:      pack.Name,
			Templates: append([]core.NotificationTemplate(nil), pack.Templates...),
		})
	}
	return out
}

func (h *ExtensionHooks) IntegrationPacks() []IntegrationPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.integrationPacks))
	for name := range h.integrationPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]IntegrationPack, 0, len(names))
	for _, name := range names {
		pack := h.integrationPacks[name]
		out = append(out, IntegrationPack{
			Name:         pack.Name,
			Integrations: append([]core.IntegrationConfig(nil), pack.Integrations...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
