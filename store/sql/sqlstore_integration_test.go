package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	cargomigrations "github.com/goliatone/go-cargo-notify/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-cargo-notify/core"
	sqlstore "github.com/goliatone/go-cargo-notify/store/sql"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-cargo-notify-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"cargo_events",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "cargo_events" {
		t.Fatalf("expected cargo_events table, got %q", tableName)
	}
}

func TestCargoEventStore_AppendAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.EventStore()
	if store == nil {
		t.Fatalf("expected event store from factory")
	}

	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	transitions := []struct {
		id       string
		previous core.Status
		current  core.Status
	}{
		{"evt_1", "", core.StatusInTransit},
		{"evt_2", core.StatusInTransit, core.StatusArrivedAtYard},
		{"evt_3", core.StatusArrivedAtYard, core.StatusCompleted},
	}
	for i, transition := range transitions {
		if err := store.Append(ctx, core.DomainEvent{
			ID:             transition.id,
			EventType:      core.EventTypeForStatus(transition.current),
			CargoID:        "GSL-26-001",
			PreviousStatus: transition.previous,
			CurrentStatus:  transition.current,
			OccurredAt:     base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("append event %s: %v", transition.id, err)
		}
	}
	if err := store.Append(ctx, core.DomainEvent{
		ID:            "evt_other",
		EventType:     core.EventTypeInTransit,
		CargoID:       "GSL-26-999",
		CurrentStatus: core.StatusInTransit,
		OccurredAt:    base,
	}); err != nil {
		t.Fatalf("append event for other cargo: %v", err)
	}

	events, err := store.ListByCargo(ctx, "GSL-26-001")
	if err != nil {
		t.Fatalf("list by cargo: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events for cargo, got %d", len(events))
	}
	if events[0].ID != "evt_3" || events[1].ID != "evt_2" || events[2].ID != "evt_1" {
		t.Fatalf("expected newest-first ordering, got %s, %s, %s",
			events[0].ID, events[1].ID, events[2].ID)
	}
	if events[0].CurrentStatus != core.StatusCompleted {
		t.Fatalf("expected newest event to be the completed transition, got %s", events[0].CurrentStatus)
	}
}

func TestCargoEventStore_AssignsIDAndOccurredAtWhenMissing(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.EventStore()

	if err := store.Append(ctx, core.DomainEvent{
		EventType:     core.EventTypeDispatched,
		CargoID:       "GSL-26-044",
		CurrentStatus: core.StatusDispatched,
	}); err != nil {
		t.Fatalf("append without id: %v", err)
	}

	events, err := store.ListByCargo(ctx, "GSL-26-044")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if strings.TrimSpace(events[0].ID) == "" {
		t.Fatalf("expected generated event id")
	}
	if events[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be assigned")
	}
}

func TestDeliveryLogStore_AppendEnforcesRetentionCap(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	const maxLogs = 5
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client,
		sqlstore.WithMaxDeliveryLogs(maxLogs))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.DeliveryLogStore()

	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < maxLogs+3; i++ {
		if _, err := store.Append(ctx, core.DeliveryAttempt{
			ID:            fmt.Sprintf("log_%02d", i),
			IntegrationID: "intg_1",
			EventType:     core.EventTypeCompleted,
			CargoID:       fmt.Sprintf("GSL-26-%03d", i),
			TargetURL:     "https://hooks.example.com/cargo",
			HTTPStatus:    200,
			Succeeded:     true,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("append log %d: %v", i, err)
		}
	}

	logs, err := store.List(ctx, core.DeliveryLogFilter{StatusKind: core.DeliveryStatusAll})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != maxLogs {
		t.Fatalf("expected retention cap of %d rows, got %d", maxLogs, len(logs))
	}
	for _, attempt := range logs {
		if attempt.ID == "log_00" || attempt.ID == "log_01" || attempt.ID == "log_02" {
			t.Fatalf("expected oldest rows to be evicted, found %s", attempt.ID)
		}
	}
	if logs[0].ID != fmt.Sprintf("log_%02d", maxLogs+2) {
		t.Fatalf("expected newest row first, got %s", logs[0].ID)
	}
}

func TestDeliveryLogStore_ConcurrentAppendsHoldTheCap(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	const maxLogs = 10
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client,
		sqlstore.WithMaxDeliveryLogs(maxLogs))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.DeliveryLogStore()

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, appendErr := store.Append(ctx, core.DeliveryAttempt{
				ID:            fmt.Sprintf("log_conc_%02d", i),
				IntegrationID: "intg_1",
				EventType:     core.EventTypeInvoiced,
				CargoID:       "GSL-26-100",
				TargetURL:     "https://hooks.example.com/cargo",
				HTTPStatus:    200,
				Succeeded:     true,
			})
			if appendErr != nil {
				errs <- appendErr
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for appendErr := range errs {
		t.Fatalf("concurrent append: %v", appendErr)
	}

	logs, err := store.List(ctx, core.DeliveryLogFilter{})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != maxLogs {
		t.Fatalf("expected %d retained rows after concurrent appends, got %d", maxLogs, len(logs))
	}
}

func TestDeliveryLogStore_ListFiltersAndGet(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.DeliveryLogStore()

	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	rows := []core.DeliveryAttempt{
		{ID: "log_a", IntegrationID: "intg_1", EventType: core.EventTypeCompleted, CargoID: "GSL-26-001", TargetURL: "https://a.example.com", HTTPStatus: 200, Succeeded: true, CreatedAt: base},
		{ID: "log_b", IntegrationID: "intg_1", EventType: core.EventTypeInvoiced, CargoID: "GSL-26-002", TargetURL: "https://a.example.com", HTTPStatus: 502, Succeeded: false, CreatedAt: base.Add(time.Second)},
		{ID: "log_c", IntegrationID: "intg_2", EventType: core.EventTypeCompleted, CargoID: "XPT-26-003", TargetURL: "https://b.example.com", HTTPStatus: 408, Succeeded: false, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, row := range rows {
		if _, err := store.Append(ctx, row); err != nil {
			t.Fatalf("append %s: %v", row.ID, err)
		}
	}

	failures, err := store.List(ctx, core.DeliveryLogFilter{StatusKind: core.DeliveryStatusFailure})
	if err != nil {
		t.Fatalf("list failures: %v", err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].ID != "log_c" || failures[1].ID != "log_b" {
		t.Fatalf("expected newest-first failures, got %s, %s", failures[0].ID, failures[1].ID)
	}

	completed, err := store.List(ctx, core.DeliveryLogFilter{EventType: core.EventTypeCompleted})
	if err != nil {
		t.Fatalf("list by event type: %v", err)
	}
	if len(completed) != 2 {
		t.Fatalf("expected 2 completed deliveries, got %d", len(completed))
	}

	byCargo, err := store.List(ctx, core.DeliveryLogFilter{CargoID: "gsl-26"})
	if err != nil {
		t.Fatalf("list by cargo substring: %v", err)
	}
	if len(byCargo) != 2 {
		t.Fatalf("expected case-insensitive cargo substring match on 2 rows, got %d", len(byCargo))
	}

	paged, err := store.List(ctx, core.DeliveryLogFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list paged: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "log_b" {
		t.Fatalf("expected second-newest row in page, got %+v", paged)
	}

	if _, err := store.List(ctx, core.DeliveryLogFilter{StatusKind: "bogus"}); err == nil {
		t.Fatalf("expected invalid status kind to be rejected")
	}

	attempt, err := store.Get(ctx, "log_b")
	if err != nil {
		t.Fatalf("get log_b: %v", err)
	}
	if attempt.HTTPStatus != 502 || attempt.Succeeded {
		t.Fatalf("unexpected stored outcome %+v", attempt)
	}
	if _, err := store.Get(ctx, "log_missing"); err == nil {
		t.Fatalf("expected not-found error for unknown delivery log id")
	}
}

func TestDeliveryLogStore_PruneShrinksRetainedRows(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client,
		sqlstore.WithMaxDeliveryLogs(20))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.DeliveryLogStore()

	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		if _, err := store.Append(ctx, core.DeliveryAttempt{
			ID:            fmt.Sprintf("log_prune_%02d", i),
			IntegrationID: "intg_1",
			EventType:     core.EventTypeCompleted,
			CargoID:       "GSL-26-001",
			TargetURL:     "https://hooks.example.com/cargo",
			HTTPStatus:    200,
			Succeeded:     true,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("append log %d: %v", i, err)
		}
	}

	removed, err := store.Prune(ctx, 3)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 5 {
		t.Fatalf("expected 5 pruned rows, got %d", removed)
	}

	logs, err := store.List(ctx, core.DeliveryLogFilter{})
	if err != nil {
		t.Fatalf("list after prune: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 retained rows after prune, got %d", len(logs))
	}
	if logs[len(logs)-1].ID != "log_prune_05" {
		t.Fatalf("expected oldest retained row to be log_prune_05, got %s", logs[len(logs)-1].ID)
	}
}

func TestTemplateStore_UpsertUpdatesInsteadOfDuplicating(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.TemplateStore()

	first, err := store.Upsert(ctx, core.NotificationTemplate{
		EventType: core.EventTypeCompleted,
		Enabled:   true,
		Prefix:    "[fleet]",
		Body:      "Shipment {{code}} delivered in {{city}}.",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.Enabled || first.Body == "" {
		t.Fatalf("unexpected stored template %+v", first)
	}

	second, err := store.Upsert(ctx, core.NotificationTemplate{
		EventType: core.EventTypeCompleted,
		Enabled:   false,
		Body:      "updated body",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Enabled {
		t.Fatalf("expected second upsert to disable the template")
	}
	if second.Body != "updated body" {
		t.Fatalf("expected updated body, got %q", second.Body)
	}

	templates, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("expected a single row per event type, got %d", len(templates))
	}

	stored, found, err := store.GetByEventType(ctx, core.EventTypeCompleted)
	if err != nil {
		t.Fatalf("get by event type: %v", err)
	}
	if !found {
		t.Fatalf("expected template after upsert")
	}
	if stored.Body != "updated body" {
		t.Fatalf("expected latest body, got %q", stored.Body)
	}

	if _, found, err := store.GetByEventType(ctx, core.EventTypeCancelled); err != nil {
		t.Fatalf("get missing event type: %v", err)
	} else if found {
		t.Fatalf("expected no template for cancelled events")
	}
}

func TestIntegrationStore_UpsertAndListActive(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.IntegrationStore()

	active, err := store.Upsert(ctx, core.IntegrationConfig{
		Name:        "fleet-portal",
		Active:      true,
		EndpointURL: "https://hooks.example.com/cargo",
		BearerToken: "token-1",
		EventAllowlist: []core.EventType{
			core.EventTypeCompleted,
			core.EventTypeCancelled,
		},
		Filters: []core.FilterRule{
			{FieldPath: "financial.customerFreightValue", Operator: core.FilterOperatorGreaterThan, Value: 1000},
		},
	})
	if err != nil {
		t.Fatalf("upsert active integration: %v", err)
	}
	if strings.TrimSpace(active.ID) == "" {
		t.Fatalf("expected generated integration id")
	}
	if len(active.EventAllowlist) != 2 || len(active.Filters) != 1 {
		t.Fatalf("expected allowlist and filters to round-trip, got %+v", active)
	}

	if _, err := store.Upsert(ctx, core.IntegrationConfig{
		Name:   "dormant-portal",
		Active: false,
	}); err != nil {
		t.Fatalf("upsert inactive integration: %v", err)
	}

	if _, err := store.Upsert(ctx, core.IntegrationConfig{Name: "", Active: false}); err == nil {
		t.Fatalf("expected validation error for unnamed integration")
	}
	if _, err := store.Upsert(ctx, core.IntegrationConfig{Name: "broken", Active: true}); err == nil {
		t.Fatalf("expected validation error for active integration without endpoint")
	}

	activeList, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(activeList) != 1 {
		t.Fatalf("expected 1 active integration, got %d", len(activeList))
	}
	if activeList[0].Name != "fleet-portal" {
		t.Fatalf("unexpected active integration %q", activeList[0].Name)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 integrations, got %d", len(all))
	}

	renamed := active
	renamed.Name = "fleet-portal-v2"
	updated, err := store.Upsert(ctx, renamed)
	if err != nil {
		t.Fatalf("re-upsert integration: %v", err)
	}
	if updated.ID != active.ID {
		t.Fatalf("expected upsert by id to keep the row, got new id %s", updated.ID)
	}
	if updated.Name != "fleet-portal-v2" {
		t.Fatalf("expected renamed integration, got %q", updated.Name)
	}

	fetched, err := store.Get(ctx, active.ID)
	if err != nil {
		t.Fatalf("get integration: %v", err)
	}
	if fetched.Name != "fleet-portal-v2" {
		t.Fatalf("expected updated name from get, got %q", fetched.Name)
	}
	if _, err := store.Get(ctx, "intg_missing"); err == nil {
		t.Fatalf("expected not-found error for unknown integration id")
	}
}

func TestServiceRetentionConfigGovernsDeliveryLogCap(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	cfg := core.DefaultConfig()
	cfg.Retention.MaxDeliveryLogs = 2
	svc, err := core.NewService(cfg,
		core.WithRepositoryFactory(sqlstore.NewRepositoryFactory()),
		core.WithPersistenceClient(client),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	store := svc.Dependencies().DeliveryLogStore
	if store == nil {
		t.Fatalf("expected delivery log store from the service build")
	}

	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if _, err := store.Append(ctx, core.DeliveryAttempt{
			ID:            fmt.Sprintf("log_cfg_%02d", i),
			IntegrationID: "intg_1",
			EventType:     core.EventTypeCompleted,
			CargoID:       "GSL-26-001",
			TargetURL:     "https://hooks.example.com/cargo",
			HTTPStatus:    200,
			Succeeded:     true,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("append log %d: %v", i, err)
		}
	}

	logs, err := store.List(ctx, core.DeliveryLogFilter{})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected the configured cap of 2 retained rows, got %d", len(logs))
	}
	if logs[0].ID != "log_cfg_03" || logs[1].ID != "log_cfg_02" {
		t.Fatalf("expected only the two newest rows, got %s, %s", logs[0].ID, logs[1].ID)
	}
}

func TestRepositoryFactory_BuildStoresResolvesClients(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	fromClient := sqlstore.NewRepositoryFactory()
	provider, err := fromClient.BuildStores(client)
	if err != nil {
		t.Fatalf("build stores from persistence client: %v", err)
	}
	if provider.EventStore() == nil || provider.DeliveryLogStore() == nil ||
		provider.TemplateStore() == nil || provider.IntegrationStore() == nil {
		t.Fatalf("expected all stores from persistence client")
	}

	fromDB, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("build stores from bun db: %v", err)
	}
	if fromDB.EventStore() == nil {
		t.Fatalf("expected stores from bun db")
	}

	bare := sqlstore.NewRepositoryFactory()
	if _, err := bare.BuildStores(nil); err == nil {
		t.Fatalf("expected error for nil persistence client")
	}
	if _, err := sqlstore.NewRepositoryFactory().BuildStores("not-a-client"); err == nil {
		t.Fatalf("expected error for unsupported client type")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:cargo-notify-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = cargomigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != cargomigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, cargomigrations.WithValidationTargets(cargomigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func TestConnect_OpensSQLiteAndRejectsUnknownDriver(t *testing.T) {
	dsn := fmt.Sprintf(
		"file:cargo-notify-connect-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Connect(testPersistenceConfig{
		driver: sqlstore.DriverSQLite,
		server: dsn,
	})
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	defer client.Close()

	if client.DB() == nil {
		t.Fatalf("expected bun db on connected client")
	}
	var one int
	if err := client.DB().NewRaw("SELECT 1").Scan(context.Background(), &one); err != nil {
		t.Fatalf("ping connected client: %v", err)
	}
	if one != 1 {
		t.Fatalf("unexpected scalar %d", one)
	}

	if _, err := sqlstore.Connect(testPersistenceConfig{driver: "mysql", server: "dsn"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Connect(nil); err == nil {
		t.Fatalf("expected nil config error")
	}
}
