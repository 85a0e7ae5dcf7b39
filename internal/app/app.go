// Package app wires the engine together for the command line: logger,
// module packs, manifest, and the chosen action (documenting or running
// modules).
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/pluginrig/internal/ctxlog"
	"github.com/vk/pluginrig/internal/database"
	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/manager"
	"github.com/vk/pluginrig/internal/manifest"
	"github.com/vk/pluginrig/internal/printing"
	"github.com/vk/pluginrig/modules/geometry"
)

// Config holds everything an App needs to run.
type Config struct {
	// ManifestPath optionally names an HCL manifest applied after the
	// module packs load.
	ManifestPath string

	// RunKey names the module to run. Empty means no run.
	RunKey string

	// Docs requests the reStructuredText documentation of every
	// registered module on stdout.
	Docs bool

	// CacheDir optionally roots the persistent cache layout. Empty keeps
	// all caching in memory.
	CacheDir string

	LogFormat string
	LogLevel  string
}

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// New builds an App with its own isolated logger.
func New(outW io.Writer, cfg *Config) *App {
	return &App{
		outW:   outW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		config: cfg,
	}
}

// Run executes the configured action.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	mm, err := a.buildManager()
	if err != nil {
		return err
	}

	if err := geometry.Load(mm); err != nil {
		return fmt.Errorf("loading module packs: %w", err)
	}
	a.logger.Debug("Module packs loaded.", "modules", mm.Len())

	if a.config.ManifestPath != "" {
		man, err := manifest.Load(ctx, a.config.ManifestPath)
		if err != nil {
			return err
		}
		if err := man.Apply(ctx, mm); err != nil {
			return fmt.Errorf("applying manifest: %w", err)
		}
		a.logger.Debug("Manifest applied.", "path", a.config.ManifestPath)
	}

	if a.config.Docs {
		printing.DocumentModules(a.outW, mm)
		return nil
	}

	if a.config.RunKey != "" {
		return a.runModule(ctx, mm, a.config.RunKey)
	}

	fmt.Fprintln(a.outW, "Nothing to do; pass -run or -docs.")
	return nil
}

func (a *App) buildManager() (*manager.Manager, error) {
	if a.config.CacheDir == "" {
		return manager.New(), nil
	}
	a.logger.Debug("Opening persistent cache.", "dir", a.config.CacheDir)
	return manager.NewPersistent(database.NewFactory(a.config.CacheDir))
}

func (a *App) runModule(ctx context.Context, mm *manager.Manager, key string) error {
	mod, err := mm.At(key)
	if err != nil {
		return err
	}
	rm, err := mod.Run(ctx, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.outW, "%s:\n", key)
	rm.Each(func(k string, r *fields.Result) bool {
		if r.HasValue() {
			fmt.Fprintf(a.outW, "  %s = %s\n", k, r.Field())
		}
		return true
	})

	if a.config.CacheDir != "" {
		if err := mm.BackupCaches(); err != nil {
			return err
		}
	}
	return nil
}
