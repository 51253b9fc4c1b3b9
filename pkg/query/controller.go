package query

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// DefaultDebounce is how long typed filter text must stay unchanged before it
// settles.
const DefaultDebounce = 300 * time.Millisecond

// Option customises a Controller.
type Option func(*Controller)

// WithScheduler overrides the timer source used for debounce windows.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithDebounce overrides DefaultDebounce. Non-positive values settle text
// input immediately.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = d
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInitialState seeds the controller, for screens restored from a URL.
func WithInitialState(s State) Option {
	return func(c *Controller) {
		c.initial = &s
	}
}

// Controller owns the query state of one screen. Every transition follows the
// same rule set: criteria changes reset the page to 0; text input settles
// after the debounce window; everything else settles immediately. Each settled
// state is handed to the onSettled hook exactly once.
type Controller struct {
	mu         sync.Mutex
	columns    []schema.Column
	search     bool
	sizes      []int
	pageSize   int
	state      State
	settled    State
	scheduler  Scheduler
	delay      time.Duration
	timer      Timer
	generation uint64
	stopped    bool
	onSettled  func(State)
	logger     *slog.Logger
	initial    *State
}

// NewController builds a controller for cfg. onSettled is invoked outside the
// controller lock and may call back into the controller.
func NewController(cfg schema.Configuration, onSettled func(State), options ...Option) *Controller {
	cfg = cfg.WithDefaults()
	mode := ModeLocal
	if cfg.Table.ServerSide {
		mode = ModeServer
	}

	c := &Controller{
		columns:   append([]schema.Column(nil), cfg.Table.Columns...),
		search:    cfg.Table.GlobalSearch,
		sizes:     append([]int(nil), cfg.Table.PageSizeOptions...),
		pageSize:  cfg.Table.PageSize,
		scheduler: RealScheduler(),
		delay:     DefaultDebounce,
		onSettled: onSettled,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}

	c.state = State{PageSize: cfg.Table.PageSize, Mode: mode}
	if c.initial != nil {
		c.state = c.admit(*c.initial)
		c.state.Mode = mode
		c.initial = nil
	}
	c.settled = c.state.Clone()
	return c
}

// admit applies the same guards as the setters to a seeded state: filters and
// sorts on columns that do not allow them are dropped, the global term needs
// global search, and the page size must be one of the offered sizes.
func (c *Controller) admit(s State) State {
	out := s.Clone()
	out.Filters = nil
	for field, filter := range s.Filters {
		column, ok := c.column(field)
		if !ok || !column.IsFilterable() || filter.Text == "" {
			c.logger.Debug("query: dropping seeded filter", "field", field)
			continue
		}
		if out.Filters == nil {
			out.Filters = make(map[string]Filter)
		}
		if filter.Match == "" {
			filter.Match = column.MatchMode()
		}
		out.Filters[field] = filter
	}
	if out.Sort.Active() {
		if column, ok := c.column(out.Sort.Field); !ok || !column.IsSortable() {
			c.logger.Debug("query: dropping seeded sort", "field", out.Sort.Field)
			out.Sort = Sort{}
		}
	} else {
		out.Sort = Sort{}
	}
	if !c.search {
		out.Global = ""
	}
	if !c.sizeAllowed(out.PageSize) {
		out.PageSize = c.pageSize
	}
	if out.PageIndex < 0 {
		out.PageIndex = 0
	}
	return out
}

// sizeAllowed reports whether n may be used as page size. When the table
// offers PageSizeOptions only those sizes, plus the configured default, are
// accepted.
func (c *Controller) sizeAllowed(n int) bool {
	if n <= 0 {
		return false
	}
	if len(c.sizes) == 0 || n == c.pageSize {
		return true
	}
	return slices.Contains(c.sizes, n)
}

// State returns the live state, including text still inside the debounce
// window.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Settled returns the last state handed to onSettled.
func (c *Controller) Settled() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled.Clone()
}

// Pending reports whether text input is waiting for its debounce window.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// SetGlobalFilter updates the global search term and resets the page. It is
// a no-op when the table has global search turned off.
func (c *Controller) SetGlobalFilter(text string) {
	if !c.search {
		c.logger.Debug("query: ignoring global filter, global search is off")
		return
	}
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.state.Global = text
	c.state.PageIndex = 0
	c.scheduleLocked()
	c.mu.Unlock()
}

// SetColumnFilter updates one column filter and resets the page. Unknown or
// non-filterable columns are ignored and reported as false.
func (c *Controller) SetColumnFilter(field, text string) bool {
	column, ok := c.column(field)
	if !ok || !column.IsFilterable() {
		c.logger.Debug("query: ignoring filter on non-filterable column", "field", field)
		return false
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if text == "" {
		delete(c.state.Filters, field)
	} else {
		if c.state.Filters == nil {
			c.state.Filters = make(map[string]Filter)
		}
		c.state.Filters[field] = Filter{Text: text, Match: column.MatchMode()}
	}
	c.state.PageIndex = 0
	c.scheduleLocked()
	c.mu.Unlock()
	return true
}

// ClearFilters drops every column filter and the global term, settling at
// once.
func (c *Controller) ClearFilters() {
	c.transition(func(s *State) bool {
		s.Filters = nil
		s.Global = ""
		s.PageIndex = 0
		return true
	})
}

// SetSort cycles field through ascending, descending and unsorted. Sorting a
// different field replaces the previous sort. Unknown or non-sortable columns
// are ignored and reported as false.
func (c *Controller) SetSort(field string) bool {
	column, ok := c.column(field)
	if !ok || !column.IsSortable() {
		c.logger.Debug("query: ignoring sort on non-sortable column", "field", field)
		return false
	}
	return c.transition(func(s *State) bool {
		next := Sort{Field: field, Direction: DirectionAsc}
		if s.Sort.Field == field {
			switch s.Sort.Direction {
			case DirectionAsc:
				next.Direction = DirectionDesc
			case DirectionDesc:
				next = Sort{}
			}
		}
		s.Sort = next
		s.PageIndex = 0
		return true
	})
}

// SetPage moves to a 0-based page index. Negative indexes are rejected.
func (c *Controller) SetPage(index int) bool {
	if index < 0 {
		return false
	}
	return c.transition(func(s *State) bool {
		s.PageIndex = index
		return true
	})
}

// SetPageSize changes the window size and returns to the first page. When
// the table lists PageSizeOptions, other sizes are rejected.
func (c *Controller) SetPageSize(n int) bool {
	if !c.sizeAllowed(n) {
		c.logger.Debug("query: ignoring page size", "size", n)
		return false
	}
	return c.transition(func(s *State) bool {
		s.PageSize = n
		s.PageIndex = 0
		return true
	})
}

// Flush settles pending text input immediately.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.stopped || c.timer == nil {
		c.mu.Unlock()
		return
	}
	snapshot := c.settleLocked()
	c.mu.Unlock()
	c.emit(snapshot)
}

// Resettle hands the current settled state to onSettled again, used after a
// successful write so the caller refetches.
func (c *Controller) Resettle() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	snapshot := c.settleLocked()
	c.mu.Unlock()
	c.emit(snapshot)
}

// Stop cancels pending timers. A stopped controller ignores every transition.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.cancelLocked()
}

func (c *Controller) transition(apply func(*State) bool) bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if !apply(&c.state) {
		c.mu.Unlock()
		return false
	}
	snapshot := c.settleLocked()
	c.mu.Unlock()
	c.emit(snapshot)
	return true
}

// scheduleLocked replaces any pending window with a new one. The generation
// guard drops a callback whose timer could not be stopped in time.
func (c *Controller) scheduleLocked() {
	c.cancelLocked()
	if c.delay <= 0 {
		snapshot := c.settleLocked()
		c.mu.Unlock()
		c.emit(snapshot)
		c.mu.Lock()
		return
	}
	gen := c.generation
	c.timer = c.scheduler.AfterFunc(c.delay, func() { c.fire(gen) })
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("query: dropped stale debounce callback", "generation", gen)
		return
	}
	snapshot := c.settleLocked()
	c.mu.Unlock()
	c.emit(snapshot)
}

func (c *Controller) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}

func (c *Controller) settleLocked() State {
	c.cancelLocked()
	c.settled = c.state.Clone()
	return c.settled.Clone()
}

func (c *Controller) emit(s State) {
	c.logger.Debug("query: settled",
		"mode", s.Mode,
		"page", s.PageIndex,
		"pageSize", s.PageSize,
		"sort", s.Sort.Field,
		"direction", s.Sort.Direction,
		"global", s.Global,
		"filters", len(s.Filters),
	)
	if c.onSettled != nil {
		c.onSettled(s)
	}
}

func (c *Controller) column(field string) (schema.Column, bool) {
	for _, column := range c.columns {
		if column.Field == field {
			return column, true
		}
	}
	return schema.Column{}, false
}
