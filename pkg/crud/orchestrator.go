package crud

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/form"
	"github.com/goliatone/go-crudgrid/pkg/options"
	"github.com/goliatone/go-crudgrid/pkg/query"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// Callbacks connect the orchestrator to the caller's data layer.
type Callbacks struct {
	// Save persists a created or edited record. Create records carry no
	// primary key.
	Save func(ctx context.Context, record schema.Row) error
	// Delete removes a record.
	Delete func(ctx context.Context, record schema.Row) error
	// QueryChanged receives every settled query in server mode, and the
	// current query again after a successful write.
	QueryChanged func(query.Descriptor)
	// Refetch asks a local-mode caller to reload its rows after a write.
	Refetch func()
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a structured logger shared with the controller, the
// resolver and form instances.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNotifier replaces the logging notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithMetrics installs a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithResolver overrides the option resolver used by forms.
func WithResolver(r form.OptionResolver) Option {
	return func(o *Orchestrator) {
		o.resolver = r
	}
}

// WithFetcher configures the default resolver with a candidate fetcher.
func WithFetcher(f options.Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
	}
}

// WithQueryOptions forwards options to the query controller.
func WithQueryOptions(opts ...query.Option) Option {
	return func(o *Orchestrator) {
		o.queryOptions = append(o.queryOptions, opts...)
	}
}

// Orchestrator binds one screen configuration to its query state, its rows
// and the create/edit/delete flows. At most one of the form and the delete
// confirmation is open at a time.
type Orchestrator struct {
	mu sync.Mutex

	cfg       schema.Configuration
	callbacks Callbacks

	controller   *query.Controller
	queryOptions []query.Option
	resolver     form.OptionResolver
	fetcher      options.Fetcher
	notifier     Notifier
	metrics      Metrics
	logger       *slog.Logger

	rows   []schema.Row
	total  int
	result query.Result

	form     *form.Engine
	confirm  schema.Row
	saving   bool
	deleting bool
	closed   bool

	presentation schema.Presentation
	listMode     schema.ListMode
}

// New validates cfg and builds an orchestrator for it.
func New(cfg schema.Configuration, callbacks Callbacks, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	o := &Orchestrator{
		cfg:          cfg,
		callbacks:    callbacks,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:      noopMetrics{},
		presentation: cfg.Presentation,
		listMode:     cfg.ListMode,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(o)
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	if o.resolver == nil {
		o.resolver = options.NewResolver(
			options.WithFetcher(o.fetcher),
			options.WithLogger(o.logger),
			options.WithObserver(o.metrics),
		)
	}

	queryOpts := append([]query.Option{query.WithLogger(o.logger)}, o.queryOptions...)
	o.controller = query.NewController(cfg, o.recompute, queryOpts...)
	o.result = query.Compute(nil, cfg.Table.Columns, o.controller.Settled(), cfg.ListBehavior)
	return o, nil
}

// Config returns the validated configuration with defaults applied.
func (o *Orchestrator) Config() schema.Configuration { return o.cfg }

// Query exposes the query controller for filter, sort and page input.
func (o *Orchestrator) Query() *query.Controller { return o.controller }

// SetRows replaces the row snapshot. In local mode rows is the full data set
// and total is ignored; in server mode rows is the current page and total the
// number of matching rows (negative means unknown).
func (o *Orchestrator) SetRows(rows []schema.Row, total int) {
	state := o.controller.Settled()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows = slices.Clone(rows)
	o.total = total
	if total < 0 {
		o.total = len(rows)
	}
	if state.Mode == query.ModeLocal {
		o.result = query.Compute(o.rows, o.cfg.Table.Columns, state, o.cfg.ListBehavior)
	}
}

// recompute is the single settle hook: server mode hands the descriptor to the
// caller, local mode recomputes the visible rows.
func (o *Orchestrator) recompute(state query.State) {
	o.metrics.ObserveQuery(state.Mode)
	if state.Mode == query.ModeServer {
		if o.callbacks.QueryChanged != nil {
			o.callbacks.QueryChanged(state.Descriptor())
		}
		return
	}

	o.mu.Lock()
	o.result = query.Compute(o.rows, o.cfg.Table.Columns, state, o.cfg.ListBehavior)
	o.mu.Unlock()
}

// OpenCreate opens an empty form seeded with field defaults.
func (o *Orchestrator) OpenCreate(ctx context.Context) error {
	return o.openForm(ctx, nil)
}

// OpenEdit opens a form over a copy of row.
func (o *Orchestrator) OpenEdit(ctx context.Context, row schema.Row) error {
	if !o.cfg.Actions.Allowed(schema.ActionEdit, row) {
		return ErrActionDisabled
	}
	return o.openForm(ctx, valuepath.Clone(row))
}

func (o *Orchestrator) openForm(ctx context.Context, record schema.Row) error {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.saving:
		o.mu.Unlock()
		return ErrInFlight
	case o.confirm != nil:
		o.mu.Unlock()
		return ErrOverlayOpen
	}
	if o.form != nil {
		o.form.Close()
	}
	f := form.New(o.cfg, record, o.resolver, form.WithLogger(o.logger))
	o.form = f
	o.mu.Unlock()

	o.logger.Debug("crud: form opened", "screen", o.cfg.ID, "form", f.ID(), "creating", f.Creating())
	f.Refresh(ctx)
	return nil
}

// CloseForm discards the open form. Closing is refused while it saves.
func (o *Orchestrator) CloseForm() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.saving {
		return ErrInFlight
	}
	if o.form != nil {
		o.form.Close()
		o.form = nil
	}
	return nil
}

// Form returns the open form instance, or nil.
func (o *Orchestrator) Form() *form.Engine {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.form
}

// SetField writes a form value and re-resolves the options of fields scoped by
// it.
func (o *Orchestrator) SetField(ctx context.Context, name string, value any) error {
	o.mu.Lock()
	f := o.form
	o.mu.Unlock()
	if f == nil {
		return ErrNoForm
	}
	if err := f.Set(name, value); err != nil {
		return err
	}
	f.ResolveDependents(ctx, name)
	return nil
}

// Submit validates the open form and hands the merged record to Save. Field
// errors are returned as form.FieldErrors and keep the form open. A rejected
// save keeps the form open and populated and signals failure; a successful one
// closes it, signals success and asks the caller to refetch.
func (o *Orchestrator) Submit(ctx context.Context) error {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.form == nil:
		o.mu.Unlock()
		return ErrNoForm
	case o.saving:
		o.mu.Unlock()
		return ErrInFlight
	case o.callbacks.Save == nil:
		o.mu.Unlock()
		return fmt.Errorf("%w: save", ErrNoHandler)
	}
	f := o.form
	record, err := f.BeginSubmit()
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.saving = true
	o.mu.Unlock()

	op := OpUpdate
	if f.Creating() {
		op = OpCreate
	}

	start := time.Now()
	saveErr := o.callbacks.Save(ctx, record)
	elapsed := time.Since(start)

	o.mu.Lock()
	o.saving = false
	if err := f.CompleteSubmit(saveErr); err != nil {
		o.logger.Debug("crud: complete submit", "error", err)
	}
	if saveErr == nil && o.form == f {
		o.form = nil
	}
	o.mu.Unlock()

	return o.finish(op, saveErr, elapsed)
}

// RequestDelete opens the confirmation for row. Nothing is deleted until
// ConfirmDelete.
func (o *Orchestrator) RequestDelete(row schema.Row) error {
	if !o.cfg.Actions.Allowed(schema.ActionDelete, row) {
		return ErrActionDisabled
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.closed:
		return ErrClosed
	case o.deleting:
		return ErrInFlight
	case o.form != nil:
		return ErrOverlayOpen
	}
	o.confirm = valuepath.Clone(row)
	return nil
}

// CancelDelete closes the confirmation without calling Delete.
func (o *Orchestrator) CancelDelete() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.deleting {
		return ErrInFlight
	}
	o.confirm = nil
	return nil
}

// ConfirmDelete calls Delete for the pending row. On success the
// confirmation closes and the caller is asked to refetch; on rejection the
// confirmation stays open so the user can retry or cancel.
func (o *Orchestrator) ConfirmDelete(ctx context.Context) error {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.confirm == nil:
		o.mu.Unlock()
		return ErrNoConfirmation
	case o.deleting:
		o.mu.Unlock()
		return ErrInFlight
	case o.callbacks.Delete == nil:
		o.mu.Unlock()
		return fmt.Errorf("%w: delete", ErrNoHandler)
	}
	row := valuepath.Clone(o.confirm)
	o.deleting = true
	o.mu.Unlock()

	start := time.Now()
	err := o.callbacks.Delete(ctx, row)
	elapsed := time.Since(start)

	o.mu.Lock()
	o.deleting = false
	if err == nil {
		o.confirm = nil
	}
	o.mu.Unlock()

	return o.finish(OpDelete, err, elapsed)
}

func (o *Orchestrator) finish(op Operation, err error, elapsed time.Duration) error {
	if err != nil {
		o.metrics.ObserveWrite(op, OutcomeFailure, elapsed)
		o.notifier.Notify(Signal{Outcome: OutcomeFailure, Op: op, Message: failureMessage(op, err), Err: err})
		return fmt.Errorf("crud: %s rejected: %w", op, err)
	}
	o.metrics.ObserveWrite(op, OutcomeSuccess, elapsed)
	o.notifier.Notify(Signal{Outcome: OutcomeSuccess, Op: op, Message: successMessage(op)})
	o.refetch()
	return nil
}

// refetch asks the caller for fresh rows instead of patching the snapshot.
func (o *Orchestrator) refetch() {
	if o.controller.Settled().Mode == query.ModeServer {
		o.controller.Resettle()
		return
	}
	if o.callbacks.Refetch != nil {
		o.callbacks.Refetch()
	}
}

// SetPresentation switches between overlay, panel and page without touching
// the query state or an open form.
func (o *Orchestrator) SetPresentation(p schema.Presentation) error {
	switch p {
	case schema.PresentationOverlay, schema.PresentationPanel, schema.PresentationPage:
	default:
		return fmt.Errorf("crud: unknown presentation %q", p)
	}
	o.mu.Lock()
	o.presentation = p
	o.mu.Unlock()
	return nil
}

// SetListMode switches between table and cards without touching the query
// state or an open form.
func (o *Orchestrator) SetListMode(m schema.ListMode) error {
	switch m {
	case schema.ListTable, schema.ListCards:
	default:
		return fmt.Errorf("crud: unknown list mode %q", m)
	}
	o.mu.Lock()
	o.listMode = m
	o.mu.Unlock()
	return nil
}

// Close stops pending debounce timers and discards the form and confirmation.
func (o *Orchestrator) Close() {
	o.controller.Stop()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.form != nil {
		o.form.Close()
		o.form = nil
	}
	o.confirm = nil
}
