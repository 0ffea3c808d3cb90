package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/RichardoC/csvchat/internal/api"
	"github.com/RichardoC/csvchat/internal/dataset"
	"github.com/RichardoC/csvchat/internal/db"
	"github.com/RichardoC/csvchat/internal/llm"
	"github.com/RichardoC/csvchat/internal/session"
	"github.com/RichardoC/csvchat/internal/tools"
	"github.com/RichardoC/csvchat/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runServe(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg.Data.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.Data.DatabasePath))
		return err
	}
	defer func() { err = multierr.Append(err, database.Close()) }()

	registry, err := newRegistry()
	if err != nil {
		return err
	}

	var chat api.ChatService
	svc, err := newChatService(registry)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("Language model not configured; /api/chat will return 503")
	case err != nil:
		return err
	default:
		chat = svc
	}

	binding := session.NewBinding(session.Context{})
	handler := api.NewHandler(database, chat, binding, api.Options{
		UploadDir:       cfg.Data.UploadDir,
		MaxUploadBytes:  cfg.MaxUploadBytes(),
		FallbackDataset: registry.FallbackPath(),
	}, logger)

	var w *watcher.Watcher
	if cfg.Data.WatchUploads {
		var werr error
		if w, werr = watcher.New(cfg.Data.UploadDir, database, logger); werr != nil {
			return werr
		}
		defer func() { err = multierr.Append(err, w.Close()) }()
		w.OnChange = func(path string, removed bool) {
			if removed && binding.Snapshot().DatasetPath == path {
				binding.Bind("")
			}
		}
		if serr := w.Scan(ctx); serr != nil {
			logger.Warn("Failed to scan upload directory", zap.Error(serr))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, cfg.Server.Addr, cfg.Server.MaxConnections, handler.Routes(cfg.Server.AllowedOrigins), logger)
	})
	if w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}

// newRegistry makes sure the fallback dataset exists and registers the tools
// against it.
func newRegistry() (*tools.Registry, error) {
	fallback := cfg.Data.DefaultDataset
	if err := dataset.WriteDemo(fallback); err != nil {
		return nil, err
	}
	return tools.NewDefaultRegistry(fallback, logger)
}

func newChatService(registry *tools.Registry) (*llm.Service, error) {
	model, err := llm.NewModel(cfg.LLM, nil)
	if err != nil {
		return nil, err
	}

	opts := []llm.Option{
		llm.WithLogger(logger),
		llm.WithMaxRounds(cfg.Agent.MaxRounds),
		llm.WithCallTimeout(cfg.GetLLMTimeout()),
		llm.WithCallOptions(llm.CallOptions(cfg.LLM)...),
	}
	if cfg.Agent.Trace {
		opts = append(opts, llm.WithTracer(llm.NewZapTracer(logger, cfg.LLM.Model)))
	}
	return llm.NewService(model, registry, opts...), nil
}
