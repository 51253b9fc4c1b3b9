package crud

import (
	"github.com/goliatone/go-crudgrid/internal/valuepath"
	"github.com/goliatone/go-crudgrid/pkg/form"
	"github.com/goliatone/go-crudgrid/pkg/query"
	"github.com/goliatone/go-crudgrid/pkg/schema"
)

// ViewModel is everything a renderer needs to paint the screen.
type ViewModel struct {
	Config       schema.Configuration
	Rows         []schema.Row
	TotalRows    int
	PageCount    int
	HasMore      bool
	Query        query.State
	Presentation schema.Presentation
	ListMode     schema.ListMode
	Form         *form.Snapshot
	Confirm      schema.Row
	Saving       bool
	Deleting     bool
}

// View snapshots the screen. Query is the live state, so typed filter text
// shows before it settles.
func (o *Orchestrator) View() ViewModel {
	live := o.controller.State()
	settled := o.controller.Settled()

	o.mu.Lock()
	defer o.mu.Unlock()

	vm := ViewModel{
		Config:       o.cfg,
		Query:        live,
		Presentation: o.presentation,
		ListMode:     o.listMode,
		Saving:       o.saving,
		Deleting:     o.deleting,
	}
	if settled.Mode == query.ModeServer {
		vm.Rows = cloneRows(o.rows)
		vm.TotalRows = o.total
		vm.PageCount = query.PageCount(o.total, settled.PageSize)
		vm.HasMore = (settled.PageIndex+1)*settled.PageSize < o.total
	} else {
		vm.Rows = cloneRows(o.result.Rows)
		vm.TotalRows = o.result.TotalRows
		vm.PageCount = o.result.PageCount
		vm.HasMore = o.result.HasMore
	}
	if o.form != nil {
		snap := o.form.Snapshot()
		vm.Form = &snap
	}
	if o.confirm != nil {
		vm.Confirm = valuepath.Clone(o.confirm)
	}
	return vm
}

func cloneRows(rows []schema.Row) []schema.Row {
	out := make([]schema.Row, len(rows))
	for i, row := range rows {
		out[i] = valuepath.Clone(row)
	}
	return out
}
