package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/cache"
	"github.com/ppiankov/evidenceview/internal/model"
	"github.com/ppiankov/evidenceview/internal/notify"
	"github.com/ppiankov/evidenceview/internal/present"
	"github.com/ppiankov/evidenceview/internal/render"
	"github.com/ppiankov/evidenceview/internal/source"
)

// withTimeout derives the per-command deadline (swapped in tests)
var withTimeout = context.WithTimeout

// app bundles the collaborators a command needs to drive presenters
type app struct {
	cfg      *model.Config
	fetcher  present.Fetcher
	store    cache.Cache
	notifier present.Notifier
	renderer *render.Renderer
	logger   *zap.Logger
}

// newApp loads and validates the configuration and wires the fetcher chain:
// HTTP client or fixture file, optionally behind the evidence cache
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flagBool(cmd, "no-cache") {
		cfg.Cache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var base source.Fetcher
	if cfg.Source.BaseURL != "" {
		client, err := source.NewClient(cfg.Source, source.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create evidence client: %w", err)
		}
		base = client
	} else {
		base = source.NewFileSource(cfg.Source.File)
	}

	a := &app{
		cfg:     cfg,
		fetcher: base,
		notifier: notify.Multi{
			notify.NewConsoleSink(cmd.ErrOrStderr()),
			notify.NewLogSink(logger),
		},
		renderer: render.NewRenderer(cfg.Output.Format, cfg.Output.Verbose),
		logger:   logger,
	}

	if cfg.Cache.Enabled {
		store, err := cache.New(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		a.store = store
		a.fetcher = source.NewCachedFetcher(base, store, 0, logger)
	}

	logger.Debug("configured evidence source",
		zap.String("base_url", cfg.Source.BaseURL),
		zap.String("file", cfg.Source.File),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend))
	return a, nil
}

// presenter creates a presenter bound to the app's collaborators
func (a *app) presenter(opener present.Opener) *present.Presenter {
	opts := present.OptionsFromConfig(a.cfg.View)
	opts.Opener = opener
	opts.Logger = a.logger
	return present.New(a.fetcher, a.notifier, opts)
}

func (a *app) render(w io.Writer, p *present.Presenter) error {
	return a.renderer.Render(w, p.Snapshot())
}

func (a *app) close() {
	if closer, ok := a.store.(io.Closer); ok {
		_ = closer.Close()
	}
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	return err == nil && v
}
