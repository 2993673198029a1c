package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"poolchat/internal/config"
	"poolchat/internal/httpapi"
	"poolchat/internal/session"
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the chat over HTTP and websocket",
		Example: "  poolchat serve --addr :8080 --workers 4",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return opts.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&opts.flags.Addr, "addr", "", "HTTP listen address; defaults to POOLCHAT_ADDR or :8080")
	cmd.Flags().IntVar(&opts.flags.RequestsPerMinute, "requests-per-minute", 0, "Submissions allowed per minute (0=unlimited)")
	cmd.Flags().StringVar(&opts.corsOrigins, "cors-origins", envStr("POOLCHAT_CORS_ORIGINS", ""), "Comma-separated CORS origins; empty disables CORS")
	cmd.Flags().BoolVar(&opts.watch, "watch-config", false, "Reload log_level and system_prompt when the config file changes")
	return cmd
}

func (o *options) serve(ctx context.Context) error {
	drv, sess, err := o.buildDriver()
	if err != nil {
		return err
	}
	defer sess.Close()

	httpapi.SetLogger(o.log)
	if o.cfg.LogLevel != "" {
		httpapi.SetDefaultLogLevel(o.cfg.LogLevel)
	}
	httpapi.SetBaseContext(ctx)
	httpapi.SetRateLimit(o.cfg.RequestsPerMinute)
	httpapi.SetCORSOptions(len(o.cfg.CORSOrigins) > 0, o.cfg.CORSOrigins,
		[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
		[]string{"Content-Type", "X-Log-Level", "X-Request-Id"})

	if o.watch {
		if o.configPath == "" {
			return errors.New("--watch-config needs --config or POOLCHAT_CONFIG")
		}
		if err := config.Watch(ctx, o.configPath, 0, o.log, func(c config.Config) { o.apply(sess, c) }); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              o.cfg.Addr,
		Handler:           httpapi.NewMux(drv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		o.log.Info().Str("addr", o.cfg.Addr).Str("backend", o.cfg.Backend).Msg("poolchat listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		o.log.Error().Err(err).Msg("graceful shutdown error")
	}
	o.log.Info().Msg("poolchat stopped")
	return nil
}

// apply hot-reloads the settings that can change without a restart.
func (o *options) apply(sess *session.Session, c config.Config) {
	c = o.reloaded(c)
	if c.LogLevel != "" {
		lvl := setLogLevel(c.LogLevel)
		httpapi.SetDefaultLogLevel(c.LogLevel)
		o.log.Info().Str("level", lvl.String()).Msg("log level changed")
	}
	sess.SetSystemPrompt(c.SystemPrompt)
}

// reloaded layers environment and flags over a freshly read config file,
// the same precedence resolve uses at start.
func (o *options) reloaded(c config.Config) config.Config {
	return c.Merge(config.Config{Addr: os.Getenv("POOLCHAT_ADDR")}).Merge(o.flags)
}
