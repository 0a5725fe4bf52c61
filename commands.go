package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/msomdec/stitchworks/internal/chart"
	"github.com/msomdec/stitchworks/internal/config"
	"github.com/msomdec/stitchworks/internal/document"
	"github.com/msomdec/stitchworks/internal/handler"
	"github.com/msomdec/stitchworks/internal/service"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only view of the stitch library over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			lib, db, err := openLibrary(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			limiter := service.NewTokenBucket(ctx, 20, 40, 10*time.Minute)
			mux := http.NewServeMux()
			handler.RegisterRoutes(mux, lib, limiter)

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           handler.SecurityHeaders(mux),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       120 * time.Second,
				MaxHeaderBytes:    1 << 20, // 1MB
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("server starting", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}
			slog.Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			slog.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	return cmd
}

func newCatalogCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and manage stitch catalogs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List installed catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, err := openLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTITCHES\tFILE\tFLAGS")
			for _, c := range lib.Catalogs() {
				var flags []string
				if c.IsBuiltIn {
					flags = append(flags, "built-in")
				}
				if c.IsMasterSet {
					flags = append(flags, "master")
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Name, c.StitchCount(), c.FileName, strings.Join(flags, ","))
			}
			return tw.Flush()
		},
	}

	export := &cobra.Command{
		Use:   "export NAME FILE",
		Short: "Write a catalog as a self-contained binary .set file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, err := openLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			dst, name, err := hostFile(args[1])
			if err != nil {
				return err
			}
			return lib.ExportBinary(args[0], dst, name)
		},
	}

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Install a catalog from a .yaml or binary .set file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, err := openLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			src, name, err := hostFile(args[0])
			if err != nil {
				return err
			}
			c, err := lib.Import(cmd.Context(), src, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %q (%d stitches)\n", c.Name, c.StitchCount())
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Uninstall a catalog and delete its folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, err := openLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return lib.Remove(cmd.Context(), args[0])
		},
	}

	master := &cobra.Command{
		Use:   "master NAME",
		Short: "Make a catalog the master set that new stitches are added to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, err := openLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return lib.SetMasterSet(cmd.Context(), args[0])
		},
	}

	adopt := &cobra.Command{
		Use:   "adopt CATALOG STITCH",
		Short: "Copy a stitch from a catalog into the master set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, db, err := openLibrary(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return lib.AddToMasterSet(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(list, export, imp, remove, master, adopt)
	return cmd
}

func newDocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Inspect pattern documents",
	}

	info := &cobra.Command{
		Use:   "info FILE",
		Short: "Load a pattern document and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, name, err := hostFile(args[0])
			if err != nil {
				return err
			}
			doc := document.New(fs, name)
			defer doc.Close()
			if err := document.NewCodec(fs, nil).Load(doc); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:     %s\n", args[0])
			fmt.Fprintf(out, "version:  %d", doc.CurrentFileVersion)
			if doc.IsOldFileVersion() {
				fmt.Fprint(out, " (older format, will be upgraded on save)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "colors:   %d\n", doc.Palette.Len())
			fmt.Fprintf(out, "stitches: %d custom\n", doc.Stitches.StitchCount())
			for _, p := range doc.Pages {
				if c, ok := p.(*chart.Chart); ok {
					fmt.Fprintf(out, "chart:    %s (%s, %d cells, uses %s, colors %s)\n",
						c.Name, c.Style, len(c.Cells), strings.Join(c.StitchNames(), " "), strings.Join(c.Colors(), " "))
					for _, col := range c.Colors() {
						if !doc.Palette.Has(col) {
							fmt.Fprintf(out, "warning:  %s uses %s, which is not in the palette\n", c.Name, col)
						}
					}
				}
			}
			return nil
		},
	}

	cmd.AddCommand(info)
	return cmd
}
