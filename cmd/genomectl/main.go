// Command genomectl manages stored genome models: SIF import, exports and
// rule validation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"genomecore/internal/blob"
	"genomecore/internal/config"
	"genomecore/internal/core"
)

var exitFunc = os.Exit

func main() {
	root := newRootCmd(os.Getenv, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		exitFunc(1)
	}
}

// app carries the service shared by every subcommand of one invocation.
type app struct {
	getenv func(string) string
	out    io.Writer
	errOut io.Writer
	svc    *core.Service
	// closers run in order once the subcommand succeeds.
	closers []func() error
}

func newRootCmd(getenv func(string) string, out, errOut io.Writer) *cobra.Command {
	a := &app{getenv: getenv, out: out, errOut: errOut}
	root := &cobra.Command{
		Use:   "genomectl",
		Short: "Manage genome models",
		Long: "genomectl stores genome models, imports SIF interaction lists, exports models as XML, SIF or SBML " +
			"and validates them. Storage is configured through GENOMECORE_* environment variables or the YAML " +
			"file named by GENOMECORE_CONFIG.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.shutdown()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.AddCommand(a.modelsCmd())
	root.AddCommand(a.importSIFCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.validateCmd())
	return root
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadEnv(a.getenv)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))
	store, err := core.OpenModelStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	opts := []core.Option{core.WithLogger(logger)}
	switch cfg.Metrics {
	case config.MetricsExpvar:
		rec := core.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetricsRecorder(rec))
		a.closers = append(a.closers, func() error {
			return json.NewEncoder(a.errOut).Encode(rec.Snapshot())
		})
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, core.WithMetricsRecorder(rec))
		a.closers = append(a.closers, func() error { return writeMetrics(a.errOut, reg) })
	}
	if cfg.Trace == config.TraceJSON {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.errOut)))
	}
	a.svc = core.NewService(store, blobs, opts...)
	logger.Debug("configured", "storage", cfg.Storage.Driver, "blob", cfg.Blob.Driver,
		"metrics", cfg.Metrics, "trace", cfg.Trace)
	return nil
}

func (a *app) shutdown() error {
	var errs []error
	for _, fn := range a.closers {
		errs = append(errs, fn())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// writeMetrics dumps the gathered families in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
