package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xaenox/knowledge-hub/internal/bot"
	"github.com/xaenox/knowledge-hub/internal/ingest"
	"github.com/xaenox/knowledge-hub/internal/routing"
	"github.com/xaenox/knowledge-hub/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and, when configured, the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub, err := app.openHub(ctx)
			if err != nil {
				return err
			}
			defer hub.Close()

			if addr == "" {
				addr = app.Config.Server.Addr
			}
			srv := server.New(hub.Store, hub.Ingest, hub.Syncer, server.ParseAPIKeys(app.Config.Server.APIKeys...), app.Logger,
				server.WithMaxUploadSize(app.Config.Server.MaxUploadMB<<20))

			var b *bot.Bot
			if token := app.Config.Telegram.Token; token != "" {
				b, err = bot.New(token, hub.Store, hub.Ingest, hub.Syncer, app.Config.Telegram.AllowedUsers, app.Logger)
				if err != nil {
					return err
				}
			} else {
				app.Logger.Info("Telegram token not set, bot disabled")
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(ctx, addr) })
			if b != nil {
				g.Go(func() error { return b.Start(ctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [username]",
		Short: "Merge a GitHub user's repositories and gists into the hub",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := app.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer hub.Close()

			var username string
			if len(args) == 1 {
				username = args[0]
			}
			result, err := hub.Syncer.Sync(cmd.Context(), username)
			if err != nil {
				return err
			}
			return writeOut(cmd, result)
		},
	}
}

func newCaptureCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <url>",
		Short: "Crawl a website and add it to the hub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := app.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer hub.Close()

			item, err := hub.Ingest.CaptureWebsite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOut(cmd, item)
		},
	}
}

func newUploadCmd(app *App) *cobra.Command {
	var mediaType string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Classify, tag and store a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			hub, err := app.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer hub.Close()

			res, err := hub.Ingest.Upload(cmd.Context(), ingest.UploadRequest{
				Filename:  filepath.Base(args[0]),
				MediaType: mediaType,
				Data:      data,
			})
			if err != nil {
				return err
			}
			if res.Warning != "" {
				app.Logger.Warn("Upload stored locally only", zap.String("warning", res.Warning), zap.Error(res.Err))
			}
			return writeOut(cmd, res)
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "Media type, used when the extension is unknown")
	return cmd
}

func newClassifyCmd(app *App) *cobra.Command {
	var mediaType string
	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Preview routing and tags for a file without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			// Classification never persists, so the in-memory backend is enough.
			app.Config.Storage.Backend = "memory"
			hub, err := app.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer hub.Close()

			analysis, tags := hub.Ingest.Classify(cmd.Context(), filepath.Base(args[0]), mediaType, data)
			return writeOut(cmd, map[string]any{
				"analysis": analysis,
				"size":     routing.FormatFileSize(int64(len(data))),
				"tags":     tags,
			})
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "Media type, used when the extension is unknown")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show hub counters and folder sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := app.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer hub.Close()

			return writeOut(cmd, map[string]any{
				"stats":          hub.Store.Stats(),
				"folders":        hub.Store.FolderCounts(),
				"githubUsername": hub.Store.GitHubUsername(),
			})
		},
	}
}

func newGistCmd(app *App) *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "gist <item-id>",
		Short: "Publish an item's content as a GitHub gist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hub, err := app.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer hub.Close()

			item, err := hub.Ingest.PublishGist(cmd.Context(), args[0], public)
			if err != nil {
				return err
			}
			return writeOut(cmd, item)
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "Create a public gist")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <owner/repo> <path>",
		Short: "Copy a file from a GitHub repository into the hub",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, ok := strings.Cut(args[0], "/")
			if !ok {
				repo, owner = owner, ""
			}
			hub, err := app.openHub(cmd.Context())
			if err != nil {
				return err
			}
			defer hub.Close()

			item, err := hub.Ingest.ImportFile(cmd.Context(), owner, repo, args[1])
			if err != nil {
				return err
			}
			return writeOut(cmd, item)
		},
	}
}

func writeOut(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
