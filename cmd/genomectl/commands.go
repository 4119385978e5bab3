package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"genomecore/internal/blob"
	"genomecore/internal/core"
	"genomecore/internal/sif"
	"genomecore/pkg/domain"
)

func (a *app) modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List, create and delete stored models",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := a.svc.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			if len(models) == 0 {
				fmt.Fprintln(a.out, "no models found")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tREVISION\tSIZE\tUPDATED")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Revision, humanize.Bytes(uint64(m.Size)), humanize.Time(m.UpdatedAt))
			}
			return tw.Flush()
		},
	})

	var title string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, info, err := a.svc.CreateModel(cmd.Context(), args[0], title)
			if err != nil {
				return fmt.Errorf("create model: %w", err)
			}
			fmt.Fprintf(a.out, "created %s (revision %s)\n", info.Name, info.Revision)
			return nil
		},
	}
	create.Flags().StringVar(&title, "title", "", "display name of the root genome (defaults to the model name)")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a model and its exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existed, err := a.svc.DeleteModel(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete model: %w", err)
			}
			if !existed {
				return fmt.Errorf("model %s: %w", args[0], domain.ErrNotFound)
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func (a *app) importSIFCmd() *cobra.Command {
	var name string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "import-sif <file>",
		Short: "Merge a SIF interaction list into a model's root genome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			var mon sif.Monitor
			if !quiet {
				mon = sif.MonitorFunc(func(done, total int) error {
					if done == total {
						fmt.Fprintf(a.errOut, "processed %s lines\n", humanize.Comma(int64(total)))
					}
					return nil
				})
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			stats, info, err := a.svc.ImportSIF(ctx, name, f, mon)
			if errors.Is(err, domain.ErrExitRequested) || errors.Is(err, context.Canceled) {
				fmt.Fprintf(a.errOut, "import cancelled; %s unchanged\n", name)
				return nil
			}
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			fmt.Fprintf(a.out, "imported into %s (revision %s): %s genes created, %s links created, %s skipped\n",
				info.Name, info.Revision,
				humanize.Comma(int64(stats.GenesCreated)),
				humanize.Comma(int64(stats.LinksCreated)),
				humanize.Comma(int64(stats.LinksSkipped)))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "model", "", "target model (created when absent)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var name, format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a model into the artifact store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.svc.Export(cmd.Context(), name, format)
			if err != nil {
				return fmt.Errorf("export %s: %w", name, err)
			}
			fmt.Fprintf(a.errOut, "stored %s (%s)\n", info.Key, humanize.Bytes(uint64(info.Size)))
			if output == "" {
				return nil
			}
			_, rc, err := a.svc.Blobs().Get(cmd.Context(), info.Key)
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()
			if output == "-" {
				_, err = io.Copy(a.out, rc)
				return err
			}
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, rc); err != nil {
				return err
			}
			return os.WriteFile(output, buf.Bytes(), 0o644)
		},
	}
	cmd.Flags().StringVar(&name, "model", "", "model to export")
	cmd.Flags().StringVar(&format, "format", blob.FormatXML, "export format: xml, sif or sbml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the artifact to this file (- for stdout)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Run the model rules against a stored model or a model file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				report core.Report
				err    error
			)
			switch {
			case name != "" && len(args) == 0:
				report, err = a.svc.Validate(cmd.Context(), name)
			case name == "" && len(args) == 1:
				var f *os.File
				if f, err = os.Open(args[0]); err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				report, err = a.svc.ValidateDocument(cmd.Context(), f)
			default:
				return fmt.Errorf("validate needs either --model or a file")
			}
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}
			printReport(a.out, report)
			if !report.Valid() {
				return fmt.Errorf("model has blocking violations")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "model", "", "stored model to validate")
	return cmd
}

func printReport(w io.Writer, r core.Report) {
	for _, id := range r.Fixups {
		fmt.Fprintf(w, "repaired\t%s\n", id)
	}
	if len(r.Result.Violations) == 0 {
		fmt.Fprintln(w, "ok")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range r.Result.Violations {
		target := v.OwnerKey
		if v.EntityID != "" {
			target += "/" + v.EntityID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Severity, v.Rule, target, v.Message)
	}
	_ = tw.Flush()
}
