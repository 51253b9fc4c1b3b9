package crud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-crudgrid/pkg/form"
	"github.com/goliatone/go-crudgrid/pkg/query"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

func policyConfig(serverSide bool) schema.Configuration {
	return schema.Configuration{
		ID:         "policies",
		PrimaryKey: "id",
		Table: schema.TableSpec{
			GlobalSearch: true,
			ServerSide:   serverSide,
			Columns: []schema.Column{
				{Field: "name"},
				{Field: "insurer"},
			},
		},
		Form: schema.FormSpec{Fields: []schema.Field{
			{Name: "name", Required: true},
			{Name: "insurer"},
		}},
	}
}

func policyRows() []schema.Row {
	rows := make([]schema.Row, 0, 23)
	for i := 0; i < 23; i++ {
		insurer := "Globex"
		if i < 15 {
			insurer = "Acme"
		}
		rows = append(rows, schema.Row{"id": i + 1, "name": fmt.Sprintf("Policy %02d", i), "insurer": insurer})
	}
	return rows
}

type signalRecorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *signalRecorder) Notify(s Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *signalRecorder) all() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Signal(nil), r.signals...)
}

func newOrchestrator(t *testing.T, cfg schema.Configuration, cb Callbacks, opts ...Option) (*Orchestrator, *query.ManualScheduler, *signalRecorder) {
	t.Helper()
	clock := query.NewManualScheduler()
	signals := &signalRecorder{}
	opts = append([]Option{
		WithNotifier(signals),
		WithQueryOptions(query.WithScheduler(clock)),
	}, opts...)
	o, err := New(cfg, cb, opts...)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	t.Cleanup(o.Close)
	return o, clock, signals
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	_, err := New(schema.Configuration{}, Callbacks{})
	if !errors.Is(err, schema.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestLocalModeSearchAndPaging(t *testing.T) {
	t.Parallel()

	o, clock, _ := newOrchestrator(t, policyConfig(false), Callbacks{})
	o.SetRows(policyRows(), -1)

	if vm := o.View(); vm.TotalRows != 23 || len(vm.Rows) != 10 || vm.PageCount != 3 {
		t.Fatalf("initial view: total=%d rows=%d pages=%d", vm.TotalRows, len(vm.Rows), vm.PageCount)
	}

	o.Query().SetPage(2)
	o.Query().SetGlobalFilter("a")
	o.Query().SetGlobalFilter("ac")
	o.Query().SetGlobalFilter("acme")
	if vm := o.View(); vm.Query.Global != "acme" || vm.TotalRows != 23 || len(vm.Rows) != 3 {
		t.Fatalf("view changed before the debounce settled: global=%q total=%d rows=%d", vm.Query.Global, vm.TotalRows, len(vm.Rows))
	}
	clock.Advance(query.DefaultDebounce)

	vm := o.View()
	if vm.Query.PageIndex != 0 || vm.TotalRows != 15 || len(vm.Rows) != 10 || vm.PageCount != 2 {
		t.Fatalf("first page: page=%d total=%d rows=%d pages=%d", vm.Query.PageIndex, vm.TotalRows, len(vm.Rows), vm.PageCount)
	}

	o.Query().SetPage(1)
	vm = o.View()
	if vm.TotalRows != 15 || len(vm.Rows) != 5 || vm.HasMore {
		t.Fatalf("second page: total=%d rows=%d more=%v", vm.TotalRows, len(vm.Rows), vm.HasMore)
	}
}

func TestServerModeEmitsDescriptors(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var emitted []query.Descriptor
	cb := Callbacks{
		QueryChanged: func(d query.Descriptor) {
			mu.Lock()
			defer mu.Unlock()
			emitted = append(emitted, d)
		},
		Save: func(context.Context, schema.Row) error { return nil },
	}
	o, clock, _ := newOrchestrator(t, policyConfig(true), cb)

	o.Query().SetGlobalFilter("a")
	o.Query().SetGlobalFilter("acme")
	clock.Advance(query.DefaultDebounce)
	o.Query().SetSort("name")

	want := []query.Descriptor{
		{Page: 0, PageSize: 10, GlobalFilter: "acme"},
		{Page: 0, PageSize: 10, GlobalFilter: "acme", SortField: "name", SortDirection: query.DirectionAsc},
	}
	mu.Lock()
	got := append([]query.Descriptor(nil), emitted...)
	mu.Unlock()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("descriptors mismatch (-want +got):\n%s", diff)
	}

	page := policyRows()[:10]
	o.SetRows(page, 15)
	vm := o.View()
	if len(vm.Rows) != 10 || vm.TotalRows != 15 || vm.PageCount != 2 || !vm.HasMore {
		t.Fatalf("server view: rows=%d total=%d pages=%d more=%v", len(vm.Rows), vm.TotalRows, vm.PageCount, vm.HasMore)
	}

	ctx := context.Background()
	if err := o.OpenCreate(ctx); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if err := o.SetField(ctx, "name", "New policy"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := o.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(emitted) != 3 || emitted[2].SortField != "name" {
		t.Fatalf("expected the current descriptor to be re-emitted after save, got %+v", emitted)
	}
}

func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var saved []schema.Row
	fail := true
	cb := Callbacks{Save: func(_ context.Context, record schema.Row) error {
		saved = append(saved, record)
		if fail {
			return errors.New("name already taken")
		}
		return nil
	}}
	refetched := 0
	cb.Refetch = func() { refetched++ }
	o, _, signals := newOrchestrator(t, policyConfig(false), cb)
	row := schema.Row{"id": 4, "name": "Old", "insurer": "Acme", "notes": "keep"}
	o.SetRows([]schema.Row{row}, -1)

	if err := o.OpenEdit(ctx, row); err != nil {
		t.Fatalf("open edit: %v", err)
	}
	if err := o.SetField(ctx, "name", "Renamed"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	err := o.Submit(ctx)
	if err == nil {
		t.Fatalf("expected rejected save")
	}
	vm := o.View()
	if vm.Form == nil || vm.Form.State != form.StateFailed {
		t.Fatalf("form should stay open in failed state: %+v", vm.Form)
	}
	if got := o.Form().Value("name"); got != "Renamed" {
		t.Fatalf("form lost its values: %v", got)
	}
	if row["name"] != "Old" || vm.Rows[0]["name"] != "Old" {
		t.Fatalf("row modified by a failed save")
	}
	if refetched != 0 {
		t.Fatalf("failed save asked for a refetch")
	}

	fail = false
	if err := o.Submit(ctx); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if o.View().Form != nil {
		t.Fatalf("form still open after successful save")
	}
	if refetched != 1 {
		t.Fatalf("refetch calls = %d, want 1", refetched)
	}

	wantRecord := schema.Row{"id": 4, "name": "Renamed", "insurer": "Acme", "notes": "keep"}
	if diff := cmp.Diff(wantRecord, saved[1]); diff != "" {
		t.Fatalf("saved record mismatch (-want +got):\n%s", diff)
	}

	got := signals.all()
	if len(got) != 2 ||
		got[0].Outcome != OutcomeFailure || got[0].Message != "name already taken" || got[0].Op != OpUpdate ||
		got[1].Outcome != OutcomeSuccess || got[1].Op != OpUpdate {
		t.Fatalf("unexpected signals: %+v", got)
	}
}

func TestSubmitValidationErrorsDoNotCallSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	called := false
	o, _, signals := newOrchestrator(t, policyConfig(false), Callbacks{Save: func(context.Context, schema.Row) error {
		called = true
		return nil
	}})
	if err := o.OpenCreate(ctx); err != nil {
		t.Fatalf("open create: %v", err)
	}

	err := o.Submit(ctx)
	var fieldErrs form.FieldErrors
	if !errors.As(err, &fieldErrs) || !fieldErrs.Has("name") {
		t.Fatalf("expected field errors, got %v", err)
	}
	if called || len(signals.all()) != 0 {
		t.Fatalf("validation failure reached the save callback or notifier")
	}
}

func TestCreateRecordHasNoPrimaryKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var saved schema.Row
	o, _, signals := newOrchestrator(t, policyConfig(false), Callbacks{Save: func(_ context.Context, record schema.Row) error {
		saved = record
		return nil
	}})
	if err := o.OpenCreate(ctx); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if err := o.SetField(ctx, "name", "Fresh"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := o.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if diff := cmp.Diff(schema.Row{"name": "Fresh"}, saved); diff != "" {
		t.Fatalf("saved record mismatch (-want +got):\n%s", diff)
	}
	if got := signals.all(); len(got) != 1 || got[0].Op != OpCreate || got[0].Outcome != OutcomeSuccess {
		t.Fatalf("unexpected signals: %+v", got)
	}
}

func TestSubmitWhileSavingIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	o, _, _ := newOrchestrator(t, policyConfig(false), Callbacks{Save: func(context.Context, schema.Row) error {
		close(entered)
		<-release
		return nil
	}})
	if err := o.OpenCreate(ctx); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if err := o.SetField(ctx, "name", "Once"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- o.Submit(ctx) }()
	<-entered

	if err := o.Submit(ctx); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if err := o.CloseForm(); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight on close, got %v", err)
	}
	if err := o.SetField(ctx, "name", "Twice"); !errors.Is(err, form.ErrSubmitting) {
		t.Fatalf("expected ErrSubmitting, got %v", err)
	}
	if !o.View().Saving {
		t.Fatalf("view should report saving")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestDeleteRequestedThenCancelled(t *testing.T) {
	t.Parallel()

	deleted := 0
	o, _, signals := newOrchestrator(t, policyConfig(false), Callbacks{Delete: func(context.Context, schema.Row) error {
		deleted++
		return nil
	}})
	rows := policyRows()
	o.SetRows(rows, -1)

	if err := o.RequestDelete(rows[0]); err != nil {
		t.Fatalf("request delete: %v", err)
	}
	if vm := o.View(); vm.Confirm == nil || vm.Confirm["id"] != 1 {
		t.Fatalf("confirmation not open: %+v", vm.Confirm)
	}
	if err := o.CancelDelete(); err != nil {
		t.Fatalf("cancel delete: %v", err)
	}

	vm := o.View()
	if deleted != 0 || len(signals.all()) != 0 {
		t.Fatalf("cancel reached the delete callback")
	}
	if vm.Confirm != nil || vm.TotalRows != 23 || vm.Rows[0]["id"] != 1 {
		t.Fatalf("row list changed after cancel: confirm=%v total=%d", vm.Confirm, vm.TotalRows)
	}
	if err := o.ConfirmDelete(context.Background()); !errors.Is(err, ErrNoConfirmation) {
		t.Fatalf("expected ErrNoConfirmation, got %v", err)
	}
}

func TestConfirmDeleteOutcomes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fail := true
	var deletedIDs []any
	refetched := 0
	o, _, signals := newOrchestrator(t, policyConfig(false), Callbacks{
		Delete: func(_ context.Context, row schema.Row) error {
			if fail {
				return errors.New("in use")
			}
			deletedIDs = append(deletedIDs, row["id"])
			return nil
		},
		Refetch: func() { refetched++ },
	})
	rows := policyRows()
	o.SetRows(rows, -1)

	if err := o.RequestDelete(rows[1]); err != nil {
		t.Fatalf("request delete: %v", err)
	}
	if err := o.ConfirmDelete(ctx); err == nil {
		t.Fatalf("expected rejected delete")
	}
	vm := o.View()
	if vm.Confirm == nil || vm.TotalRows != 23 || refetched != 0 {
		t.Fatalf("rejected delete should keep confirmation and rows: confirm=%v total=%d", vm.Confirm, vm.TotalRows)
	}

	fail = false
	if err := o.ConfirmDelete(ctx); err != nil {
		t.Fatalf("confirm delete: %v", err)
	}
	if o.View().Confirm != nil {
		t.Fatalf("confirmation still open after delete")
	}
	if diff := cmp.Diff([]any{2}, deletedIDs); diff != "" {
		t.Fatalf("deleted ids mismatch (-want +got):\n%s", diff)
	}
	if refetched != 1 {
		t.Fatalf("refetch calls = %d, want 1", refetched)
	}
	got := signals.all()
	if len(got) != 2 || got[0].Outcome != OutcomeFailure || got[1].Outcome != OutcomeSuccess || got[1].Op != OpDelete {
		t.Fatalf("unexpected signals: %+v", got)
	}
}

func TestOnlyOneDialogAtATime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	o, _, _ := newOrchestrator(t, policyConfig(false), Callbacks{})
	row := policyRows()[0]

	if err := o.OpenEdit(ctx, row); err != nil {
		t.Fatalf("open edit: %v", err)
	}
	if err := o.RequestDelete(row); !errors.Is(err, ErrOverlayOpen) {
		t.Fatalf("expected ErrOverlayOpen, got %v", err)
	}
	if err := o.CloseForm(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	if err := o.RequestDelete(row); err != nil {
		t.Fatalf("request delete: %v", err)
	}
	if err := o.OpenCreate(ctx); !errors.Is(err, ErrOverlayOpen) {
		t.Fatalf("expected ErrOverlayOpen, got %v", err)
	}
}

func TestActionsVisibility(t *testing.T) {
	t.Parallel()

	cfg := policyConfig(false)
	cfg.Actions = schema.ActionsSpec{
		Delete: schema.Bool(false),
		Visible: func(action schema.Action, row schema.Row) bool {
			return row["insurer"] != "Globex"
		},
	}
	o, _, _ := newOrchestrator(t, cfg, Callbacks{})

	if err := o.RequestDelete(schema.Row{"id": 1, "insurer": "Acme"}); !errors.Is(err, ErrActionDisabled) {
		t.Fatalf("expected disabled delete, got %v", err)
	}
	if err := o.OpenEdit(context.Background(), schema.Row{"id": 2, "insurer": "Globex"}); !errors.Is(err, ErrActionDisabled) {
		t.Fatalf("expected hidden edit, got %v", err)
	}
	if err := o.OpenEdit(context.Background(), schema.Row{"id": 3, "insurer": "Acme"}); err != nil {
		t.Fatalf("open edit: %v", err)
	}
}

func TestPresentationChangesKeepQueryAndForm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	o, _, _ := newOrchestrator(t, policyConfig(false), Callbacks{})
	o.SetRows(policyRows(), -1)
	o.Query().SetSort("name")
	o.Query().SetPage(1)
	if err := o.OpenCreate(ctx); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if err := o.SetField(ctx, "name", "Draft"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	before := o.Query().Settled()

	if err := o.SetPresentation(schema.PresentationPanel); err != nil {
		t.Fatalf("set presentation: %v", err)
	}
	if err := o.SetListMode(schema.ListCards); err != nil {
		t.Fatalf("set list mode: %v", err)
	}
	if err := o.SetPresentation("modal"); err == nil {
		t.Fatalf("expected unknown presentation error")
	}

	vm := o.View()
	if vm.Presentation != schema.PresentationPanel || vm.ListMode != schema.ListCards {
		t.Fatalf("layout not applied: %s/%s", vm.Presentation, vm.ListMode)
	}
	if diff := cmp.Diff(before, o.Query().Settled()); diff != "" {
		t.Fatalf("query state changed (-before +after):\n%s", diff)
	}
	if o.Form().Value("name") != "Draft" {
		t.Fatalf("form lost its draft")
	}
}

func TestCloseStopsPendingInput(t *testing.T) {
	t.Parallel()

	emitted := 0
	o, clock, _ := newOrchestrator(t, policyConfig(true), Callbacks{QueryChanged: func(query.Descriptor) { emitted++ }})
	o.Query().SetGlobalFilter("late")
	o.Close()
	clock.Advance(time.Second)

	if emitted != 0 {
		t.Fatalf("pending input settled after close")
	}
	if err := o.OpenCreate(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics, err := NewPrometheusMetrics(reg, "test")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	again, err := NewPrometheusMetrics(reg, "test")
	if err != nil {
		t.Fatalf("re-register metrics: %v", err)
	}

	ctx := context.Background()
	o, _, _ := newOrchestrator(t, policyConfig(false), Callbacks{
		Save: func(context.Context, schema.Row) error { return errors.New("nope") },
	}, WithMetrics(metrics))
	o.Query().SetPage(1)
	if err := o.OpenCreate(ctx); err != nil {
		t.Fatalf("open create: %v", err)
	}
	if err := o.SetField(ctx, "name", "x"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	_ = o.Submit(ctx)
	again.ObserveQuery(query.ModeLocal)

	if got := testutil.ToFloat64(metrics.writes.WithLabelValues("create", "failure")); got != 1 {
		t.Fatalf("failed creates = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.queries.WithLabelValues("local")); got != 2 {
		t.Fatalf("local queries = %v, want 2", got)
	}
}
