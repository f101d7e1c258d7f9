package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/airfoil-geometry/internal/app"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/geometry/spacing"
	"github.com/mohammed-shakir/airfoil-geometry/internal/logger"
)

// cli carries what every subcommand needs once flags are parsed.
type cli struct {
	cfg config.Config
	log *slog.Logger

	catalogURL string
	redisAddr  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "airfoilctl",
		Short:         "Inspect and export airfoil geometry from the coordinate catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.catalogURL, "catalog-url", "", "catalog base URL (overrides CATALOG_URL)")
	pf.StringVar(&c.redisAddr, "redis", "", "redis address; enables the document store (overrides REDIS_ADDR)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newShowCmd(c),
		newExportCmd(c),
		newIndexCmd(c),
		newCloneCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.catalogURL != "" {
		cfg.CatalogURL = strings.TrimRight(c.catalogURL, "/")
	}
	if c.redisAddr != "" {
		cfg.RedisAddr = c.redisAddr
		cfg.RedisEnabled = true
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	// stdout is reserved for command output
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   true,
		Component: "airfoilctl",
	}, cmd.ErrOrStderr())
	c.log = logger.NewSlog(&zl)
	return nil
}

func (c *cli) app(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.cfg, c.log)
}

// resampleFlags are shared by show and export. Resampling happens only when
// --n is given.
type resampleFlags struct {
	n      int
	scheme string
	ratio  float64
}

func (f *resampleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.n, "n", 0, "total point count of the resampled contour (0 keeps the parsed contour)")
	cmd.Flags().StringVar(&f.scheme, "scheme", string(spacing.Chord), "spacing scheme: chord or circle")
	cmd.Flags().Float64Var(&f.ratio, "ratio", 0, "panel length ratio (0 uses RESAMPLE_RATIO)")
}

func (f *resampleFlags) enabled() bool { return f.n != 0 }

func (f *resampleFlags) resolve(defaults config.ResampleCfg) (int, spacing.Scheme, float64, error) {
	if m := defaults.MaxPoints; m > 0 && f.n > m {
		return 0, "", 0, fmt.Errorf("%w: --n %d exceeds RESAMPLE_MAX_POINTS %d", model.ErrInvalidSpacingParameters, f.n, m)
	}
	s, err := spacing.ParseScheme(f.scheme)
	if err != nil {
		return 0, "", 0, err
	}
	ratio := f.ratio
	if ratio == 0 {
		ratio = defaults.Ratio
	}
	return f.n, s, ratio, nil
}

// openOutput returns stdout for "" or "-", otherwise a created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
