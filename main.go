package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/msomdec/stitchworks/internal/config"
	"github.com/msomdec/stitchworks/internal/icon"
	"github.com/msomdec/stitchworks/internal/repository/sqlite"
	"github.com/msomdec/stitchworks/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, cfgErr := config.Load()

	root := &cobra.Command{
		Use:           "stitchworks",
		Short:         "Manage stitch libraries and crochet pattern documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			setupLogging(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfg.LibraryDir, "library", cfg.LibraryDir, "stitch library directory")
	root.PersistentFlags().StringVar(&cfg.IndexPath, "index", cfg.IndexPath, "library index database")

	root.AddCommand(newServeCmd(&cfg), newCatalogCmd(&cfg), newDocCmd())
	return root
}

func setupLogging(level slog.Level) {
	logOpts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)
}

// openLibrary opens the index database and the library it describes. The
// caller closes the returned database.
func openLibrary(ctx context.Context, cfg *config.Config) (*service.LibraryService, *sqlite.DB, error) {
	if err := os.MkdirAll(cfg.LibraryDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create library directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sqlite.New(cfg.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("index migrations applied", "path", cfg.IndexPath)

	fs := osfs.New(cfg.LibraryDir)
	lib := service.NewLibraryService(fs, db.Catalogs(), icon.NewRasterRenderer(fs), cfg.ColorContext())
	if err := lib.Open(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open library: %w", err)
	}
	return lib, db, nil
}

// hostFile splits a path on the host filesystem into a filesystem rooted at
// its directory and the file name inside it.
func hostFile(path string) (billy.Filesystem, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	return osfs.New(filepath.Dir(abs)), filepath.Base(abs), nil
}
