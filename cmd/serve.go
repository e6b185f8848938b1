package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve qualification runs over HTTP with an SSE event stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := newAppEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})
		r.Handle("/metrics", env.metrics.Handler())
		r.Post("/api/qualify", handleQualify(env))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			Handler:     r,
			ReadTimeout: 30 * time.Second,
			// no WriteTimeout: qualification streams can run for minutes
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := newShutdownContext()
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type qualifyRequest struct {
	Candidates []model.Candidate `json:"candidates"`
	Rubric     string            `json:"rubric,omitempty"`
	UseVision  *bool             `json:"use_vision,omitempty"`
}

// handleQualify runs one batch and streams its events as server-sent
// events. The stream ends with the complete event, or with a fatal error
// event when setup fails.
func handleQualify(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req qualifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if len(req.Candidates) == 0 {
			http.Error(w, `{"error":"candidates are required"}`, http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
			return
		}

		candidates := req.Candidates
		for i := range candidates {
			if candidates[i].Domain == "" {
				candidates[i].Domain = model.DomainOf(candidates[i].URL)
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Relevance > candidates[j].Relevance
		})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		sink := pipeline.SinkFunc(func(e pipeline.Event) {
			payload, err := json.Marshal(e)
			if err != nil {
				zap.L().Warn("marshal event", zap.Error(err))
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
			flusher.Flush()
		})

		o, err := env.newOrchestrator(req.Rubric, sink)
		if err != nil {
			fmt.Fprintf(w, "event: error\ndata: {\"type\":\"error\",\"fatal\":true,\"error\":%q}\n\n", err.Error())
			flusher.Flush()
			return
		}

		useVision := env.cfg.Qualify.UseVision
		if req.UseVision != nil {
			useVision = *req.UseVision
		}

		if _, err := o.Run(r.Context(), candidates, useVision); err != nil {
			zap.L().Warn("qualification run ended early", zap.Error(err))
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
