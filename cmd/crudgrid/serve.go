package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudgrid/pkg/crud"
	"github.com/goliatone/go-crudgrid/pkg/query"
	"github.com/goliatone/go-crudgrid/pkg/schema"
	"github.com/goliatone/go-crudgrid/pkg/view/html"
)

type serveOptions struct {
	addr            string
	shutdownTimeout time.Duration
}

func (a *app) newServeCmd() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the grid as HTML with its lookup endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 5*time.Second, "grace period for in-flight requests")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, opts serveOptions) error {
	ctx := cmd.Context()
	ws, err := a.openWorkspace(ctx)
	if err != nil {
		return err
	}
	handler, err := newServer(ws, prometheus.NewRegistry(), a.logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(a.stdout, "Serving %s on %s\n", ws.cfg.ID, opts.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down", "addr", opts.addr)
	return srv.Shutdown(shutdownCtx)
}

// newServer routes the grid page, its configuration, the lookup collections
// and the metrics endpoint.
func newServer(ws *workspace, reg *prometheus.Registry, logger *slog.Logger) (http.Handler, error) {
	metrics, err := crud.NewPrometheusMetrics(reg, "crudgrid")
	if err != nil {
		return nil, err
	}
	renderer, err := html.New()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		values := req.URL.Query()
		desc := query.ParseDescriptor(values, ws.cfg.Table.PageSize)
		orch, err := ws.orchestrator(
			crud.WithLogger(logger),
			crud.WithMetrics(metrics),
			crud.WithQueryOptions(query.WithInitialState(desc.State()), query.WithDebounce(0)),
		)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer orch.Close()

		if err := applyLayout(orch, values.Get("layout"), values.Get("presentation")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := renderer.Render(req.Context(), orch.View())
		if err != nil {
			logger.Error("render grid", "error", err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", renderer.ContentType())
		_, _ = w.Write(out)
	})

	r.Get("/api/config", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, configResponse{
			Configuration: ws.cfg,
			Lookups:       lookupEndpoints(ws),
		})
	})

	for _, comp := range ws.components() {
		if _, err := comp.RegisterRoutes(r, ""); err != nil {
			return nil, err
		}
	}

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r, nil
}

type configResponse struct {
	Configuration schema.Configuration `json:"configuration"`
	Lookups       []string             `json:"lookups"`
}

func lookupEndpoints(ws *workspace) []string {
	out := make([]string, 0, len(ws.lookups))
	for _, comp := range ws.components() {
		out = append(out, comp.Path(""))
	}
	sort.Strings(out)
	return out
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
