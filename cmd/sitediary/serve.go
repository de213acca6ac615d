package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/site-diary/internal/logger"
	"github.com/thywilljoshua/site-diary/internal/metrics"
	"github.com/thywilljoshua/site-diary/internal/review"
	"github.com/thywilljoshua/site-diary/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the review HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Debug {
				gin.SetMode(gin.ReleaseMode)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			enh, err := a.enhancer(ctx)
			if err != nil {
				return err
			}
			store := review.NewStore()
			m := metrics.New()
			srv := server.New(server.Options{
				Addr:            a.cfg.Server.Addr,
				MaxUploadBytes:  a.cfg.Server.MaxUploadBytes,
				AllowedOrigins:  a.cfg.Server.AllowedOrigins,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
			}, server.Deps{
				Store:     store,
				Extractor: a.extractor(),
				Enhancer:  enh,
				Renderer:  a.renderer(),
				Metrics:   m,
				Logger:    a.log,
			})

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(ctx) })
			if ttl := a.cfg.Server.SessionTTL; ttl > 0 {
				g.Go(func() error {
					pruneSessions(ctx, store, m, ttl, a.log)
					return nil
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}

// pruneSessions drops idle sessions until ctx is done.
func pruneSessions(ctx context.Context, store *review.Store, m *metrics.Metrics, ttl time.Duration, log logger.Logger) {
	interval := ttl / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	if interval < time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := store.Prune(now.Add(-ttl)); n > 0 {
				m.Sessions.Set(float64(store.Len()))
				log.Info("Pruned idle sessions", logger.Int("count", n))
			}
		}
	}
}
