package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/pipeline"
)

var servePort int

// extractRunner is the part of the pipeline the HTTP layer needs.
type extractRunner func(ctx context.Context, url, userID string) (*model.Result, error)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP extraction server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		run := func(ctx context.Context, url, userID string) (*model.Result, error) {
			res, err := env.Pipeline.Run(ctx, url, userID)
			if err == nil {
				persistResult(ctx, env.Store, res, userID)
			}
			return res, err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(run, cfg.Server.Tokens),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP API. tokens maps bearer tokens to user IDs;
// requests without a recognized token still run, but only against the
// global cache tier.
func newRouter(run extractRunner, tokens map[string]string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/extract", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
			return
		}

		userID := userForToken(req, tokens)

		result, err := run(req.Context(), body.URL, userID)
		if err != nil {
			zap.L().Warn("extraction failed",
				zap.String("url", body.URL),
				zap.Error(err))
			writeJSON(w, statusForError(err), map[string]any{
				"error":  eris.Cause(err).Error(),
				"result": result,
			})
			return
		}

		writeJSON(w, http.StatusOK, result)
	})

	return r
}

// userForToken resolves the bearer token to a user ID, or "" when the
// token is absent or unknown.
func userForToken(req *http.Request, tokens map[string]string) string {
	auth := req.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return tokens[strings.TrimSpace(token)]
}

func statusForError(err error) int {
	switch {
	case eris.Is(err, pipeline.ErrLinkDead):
		return http.StatusGone
	case eris.Is(err, pipeline.ErrRateLimited):
		return http.StatusServiceUnavailable
	case eris.Is(err, pipeline.ErrRescueFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
