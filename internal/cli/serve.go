package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"creatorhub/internal/export"
	"creatorhub/internal/views"
	"creatorhub/pkg/domain"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API, live notifications and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = rt.app.Config.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func serve(ctx context.Context, rt *runtime, addr string) error {
	srv := &http.Server{Addr: addr, Handler: newMux(rt), ReadHeaderTimeout: 5 * time.Second}
	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	rt.app.Logger.Info("listening", "addr", addr, "user", rt.user)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type dashboard struct {
	Summary views.CreatorSummary `json:"summary"`
	Week    []views.DayLoad      `json:"week"`
}

type exportBody struct {
	Entities []domain.EntityType `json:"entities"`
	Formats  []export.Format     `json:"formats"`
}

func newMux(rt *runtime) *http.ServeMux {
	app := rt.app
	mux := http.NewServeMux()
	mux.Handle("/ws", app.Hub)
	mux.Handle("GET /metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{Registry: app.Registry}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"initialized": app.Workspace.Initialized()})
	})
	mux.HandleFunc("GET /api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		start, err := rt.week(r.URL.Query().Get("week"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboard{
			Summary: app.Workspace.Health(rt.now()),
			Week:    app.Workspace.WeeklyLoad(start, rt.thresholds()),
		})
	})
	mux.HandleFunc("GET /api/toasts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, app.Toasts.Toasts())
	})
	mux.HandleFunc("GET /api/activity", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, app.Workspace.Activity.Recent(limit))
	})
	mux.HandleFunc("POST /api/exports", func(w http.ResponseWriter, r *http.Request) {
		var body exportBody
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		rec, err := app.Exports.Enqueue(export.Request{
			Source:      export.FromWorkspace(app.Workspace),
			Entities:    body.Entities,
			Formats:     body.Formats,
			RequestedBy: rt.user,
		})
		switch {
		case errors.Is(err, export.ErrQueueFull), errors.Is(err, export.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err)
		case err != nil:
			writeError(w, http.StatusBadRequest, err)
		default:
			writeJSON(w, http.StatusAccepted, rec)
		}
	})
	mux.HandleFunc("GET /api/exports/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := app.Exports.Get(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("export not found"))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
