package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"blogicum/internal/auth"
	"blogicum/internal/blog"
	httpx "blogicum/internal/http"
	"blogicum/internal/media"
	"blogicum/internal/util"
	"blogicum/web"
)

const shutdownTimeout = 10 * time.Second

func (e *env) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withStore(cmd.Context(), func(st Store) error {
				h, err := e.handler(cmd.Context(), st)
				if err != nil {
					return err
				}
				return e.serve(cmd.Context(), h)
			})
		},
	}
}

// handler assembles the services and the HTTP front end over st.
func (e *env) handler(ctx context.Context, st Store) (http.Handler, error) {
	authSvc := auth.NewService(st, e.cfg.SessionLifetime)
	if n, err := authSvc.PurgeExpired(ctx); err != nil {
		e.log.Warn("purge expired sessions", "err", err)
	} else if n > 0 {
		e.log.Info("purged expired sessions", "count", n)
	}

	blogSvc := blog.NewService(st, media.NewDir(e.cfg.MediaDir),
		blog.WithMaxUpload(e.cfg.MaxUploadBytes),
		blog.WithLogger(e.log),
	)
	loc, err := e.cfg.Location()
	if err != nil {
		return nil, err
	}
	views, err := util.NewRenderer(web.FS, "templates", loc)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	srv, err := httpx.NewServer(blogSvc, authSvc, views, e.cfg, e.log)
	if err != nil {
		return nil, err
	}
	return srv, nil
}

func (e *env) serve(ctx context.Context, h http.Handler) error {
	srv := &http.Server{
		Addr:              e.cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		e.log.Info("listening", "addr", e.cfg.Addr, "storage", e.cfg.Storage)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	e.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
