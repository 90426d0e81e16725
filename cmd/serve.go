package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/api"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/config"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/resilience"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:         "serve",
	Annotations: map[string]string{configMode: "serve"},
	Short:       "Start the search backend",
	Long: `Serve the first-party search backend: the primary retrieval channel
(GET /api/search), query interpretation (POST /api/interpret), the lead
tracker (/api/leads), health and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env := initSearch(cfg)
		tracker, st, err := openTracker(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.Server.RetryAttempts
		retry.OnRetry = resilience.RetryLogger("places search")

		handler := api.NewRouter(api.Deps{
			PlacesKey:   cfg.Places.Key,
			NewPlaces:   placesFactory(cfg),
			Breaker:     providerBreaker(cfg),
			Retry:       retry,
			Interpreter: env.Interpreter,
			LLMKey:      cfg.Anthropic.Key,
			Leads:       tracker,
			Metrics:     env.Metrics,
			Gatherer:    env.Registry,
			RateLimit:   cfg.Server.RateLimit,
			Burst:       cfg.Server.Burst,
			CORSOrigins: cfg.Server.CORSOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// providerBreaker logs every circuit transition.
func providerBreaker(c *config.Config) *resilience.Breaker {
	return resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: c.Server.BreakerThreshold,
		ResetTimeout:     time.Duration(c.Server.BreakerResetSecs) * time.Second,
		OnStateChange: func(from, to resilience.State) {
			zap.L().Warn("provider circuit changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
