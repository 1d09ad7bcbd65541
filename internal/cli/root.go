// Package cli wires the blogicum command tree: the web server, schema
// migration and the category/location back office.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"blogicum/internal/admin"
	"blogicum/internal/app"
	"blogicum/internal/auth"
	"blogicum/internal/blog"
	"blogicum/internal/db"
	"blogicum/internal/memstore"
)

// Store is everything the commands need from persistence.
type Store interface {
	blog.Store
	auth.Store
	admin.Store
}

// Stores is an opened storage backend.
type Stores struct {
	Store Store
	Close func()
}

// Opener connects to the storage named in the configuration.
type Opener func(ctx context.Context, cfg app.Config, log *slog.Logger) (*Stores, error)

// OpenStores opens PostgreSQL (migrating the schema) or a fresh in-memory store.
func OpenStores(ctx context.Context, cfg app.Config, log *slog.Logger) (*Stores, error) {
	if cfg.Storage == app.StorageMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		return &Stores{Store: memstore.New(), Close: func() {}}, nil
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Stores{Store: db.NewStore(pool), Close: pool.Close}, nil
}

type env struct {
	cfg  app.Config
	log  *slog.Logger
	open Opener

	addr        string
	databaseURL string
	storage     string
}

// NewRootCommand builds the command tree. open is called by every command that
// touches storage.
func NewRootCommand(open Opener) *cobra.Command {
	e := &env{open: open}

	root := &cobra.Command{
		Use:   "blogicum",
		Short: "Blogicum - a small multi-author blog",
		Long: `Blogicum serves a multi-author blog with categories, locations,
scheduled posts and comments.

Configuration comes from the environment (ADDR, DATABASE_URL, STORAGE, ...);
the flags below override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&e.addr, "addr", "", "Listen address (overrides ADDR)")
	root.PersistentFlags().StringVar(&e.databaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	root.PersistentFlags().StringVar(&e.storage, "storage", "", "postgres or memory (overrides STORAGE)")

	root.AddCommand(
		e.serveCommand(),
		e.migrateCommand(),
		e.categoryCommand(),
		e.locationCommand(),
	)
	return root
}

func (e *env) load(cmd *cobra.Command) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = e.addr
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = e.databaseURL
	}
	if flags.Changed("storage") {
		cfg.Storage = e.storage
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	e.cfg = cfg
	e.log = app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(e.log)
	return nil
}

// withStore opens storage for the duration of fn.
func (e *env) withStore(ctx context.Context, fn func(Store) error) error {
	st, err := e.open(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st.Store)
}

func (e *env) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.Storage != app.StoragePostgres {
				return fmt.Errorf("migrate needs STORAGE=%s", app.StoragePostgres)
			}
			return e.withStore(cmd.Context(), func(Store) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	}
}
