package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/tui"
)

type editOptions struct {
	delete bool
	write  bool
}

func (a *app) newEditCmd() *cobra.Command {
	opts := editOptions{}
	cmd := &cobra.Command{
		Use:   "edit [key]",
		Short: "Create, edit or delete a record interactively",
		Long: `edit prompts for every form field. Without a key it creates a record.
Remote options are resolved from the lookup collections in --data.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			return a.runEdit(cmd, key, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.delete, "delete", false, "delete the record after confirmation")
	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "write the result back to the --data file")
	return cmd
}

func (a *app) runEdit(cmd *cobra.Command, key string, opts editOptions) error {
	ctx := cmd.Context()
	ws, err := a.openWorkspace(ctx)
	if err != nil {
		return err
	}
	orch, err := ws.orchestrator(
		crud.WithLogger(a.logger),
		crud.WithFetcher(ws.fetcher()),
		crud.WithNotifier(a.notifier()),
	)
	if err != nil {
		return err
	}
	defer orch.Close()

	driver := a.driver
	if driver == nil {
		driver = tui.NewSurveyDriver(a.stdout)
	}
	filler := tui.NewFiller(tui.WithPromptDriver(driver), tui.WithLogger(a.logger))

	if opts.delete {
		if key == "" {
			return fmt.Errorf("--delete needs a record key")
		}
		return a.deleteRecord(cmd, ws, orch, filler, key, opts.write)
	}

	if key == "" {
		err = orch.OpenCreate(ctx)
	} else {
		row, findErr := ws.find(key)
		if findErr != nil {
			return findErr
		}
		err = orch.OpenEdit(ctx, row)
	}
	if err != nil {
		return err
	}

	if err := filler.Fill(ctx, orch.Form()); err != nil {
		return err
	}
	if err := orch.Submit(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ws.lastSaved()); err != nil {
		return err
	}
	if opts.write {
		return ws.persist()
	}
	return nil
}

func (a *app) deleteRecord(cmd *cobra.Command, ws *workspace, orch *crud.Orchestrator, filler *tui.Filler, key string, write bool) error {
	ctx := cmd.Context()
	row, err := ws.find(key)
	if err != nil {
		return err
	}
	if err := orch.RequestDelete(row); err != nil {
		return err
	}

	label := fmt.Sprintf("%s %s", ws.cfg.PrimaryKey, key)
	if ws.cfg.Title != "" {
		label = fmt.Sprintf("%s from %s", label, ws.cfg.Title)
	}
	ok, err := filler.ConfirmDelete(ctx, label)
	if err != nil {
		_ = orch.CancelDelete()
		return err
	}
	if !ok {
		fmt.Fprintln(a.stdout, a.paint(color.FgYellow, "Delete cancelled"))
		return orch.CancelDelete()
	}
	if err := orch.ConfirmDelete(ctx); err != nil {
		return err
	}
	if write {
		return ws.persist()
	}
	return nil
}

// notifier prints write outcomes in color.
func (a *app) notifier() crud.Notifier {
	return crud.NotifierFunc(func(s crud.Signal) {
		if s.Outcome == crud.OutcomeFailure {
			fmt.Fprintln(a.stderr, a.paint(color.FgRed, s.Message))
			return
		}
		fmt.Fprintln(a.stdout, a.paint(color.FgGreen, s.Message))
	})
}
