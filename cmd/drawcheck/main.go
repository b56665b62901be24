// Command drawcheck validates an engineering drawing against fabrication
// standards and writes the resulting report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wudi/drawcheck/annotator"
	"github.com/wudi/drawcheck/config"
	"github.com/wudi/drawcheck/extractor"
	"github.com/wudi/drawcheck/observability"
	"github.com/wudi/drawcheck/orchestrator"
	"github.com/wudi/drawcheck/report"
	"github.com/wudi/drawcheck/standards"
	"github.com/wudi/drawcheck/validation"
	"github.com/wudi/drawcheck/validation/checklist"
	"github.com/wudi/drawcheck/validation/gdt"
	"github.com/wudi/drawcheck/validation/material"
	"github.com/wudi/drawcheck/validation/welding"

	_ "github.com/wudi/drawcheck/ocr/tesseract"
)

type validateOptions struct {
	configFile string
	checks     []string
	params     []string
	jsonOut    string
	htmlOut    string
	annotate   string
	progress   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "drawcheck: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "drawcheck",
		Short:         "Validate engineering drawings against fabrication standards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newStandardsCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions
	cmd := &cobra.Command{
		Use:   "validate <drawing.pdf>",
		Short: "Run the validation pipeline over one drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.configFile, "config", "", "Path to a YAML config file")
	cmd.Flags().StringSliceVar(&opts.checks, "checks", nil, "Domains to run (gdt, welding, material, equipmentChecklist); default all")
	cmd.Flags().StringSliceVar(&opts.params, "param", nil, "Check parameter as name=value (e.g. base_thickness=0.5)")
	cmd.Flags().StringVar(&opts.jsonOut, "json", "", "Write the JSON report to this file (- for stdout)")
	cmd.Flags().StringVar(&opts.htmlOut, "html", "", "Write the HTML report to this file")
	cmd.Flags().StringVar(&opts.annotate, "annotate", "", "Write an annotated PDF to this file")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Print progress events to stderr")
	return cmd
}

func runValidate(ctx context.Context, path string, opts validateOptions) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	backend := logrus.New()
	backend.SetLevel(level)
	backend.SetOutput(os.Stderr)
	log := observability.NewLogrusLogger(backend)

	document, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read drawing: %w", err)
	}

	checks, err := parseChecks(opts.checks)
	if err != nil {
		return err
	}
	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	std := standards.MustLoad()
	ext := extractor.New(extractor.Config{
		MinCharDensity: cfg.MinCharDensity,
		PageTimeout:    cfg.PageTimeout,
		RasterDPI:      cfg.RasterDPI,
		Languages:      cfg.OCRLanguages,
	}, extractor.WithLogger(log))
	reg := orchestrator.NewRegistry(gdt.New(), welding.New(), material.New(), checklist.New())

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithTimeout(cfg.RequestTimeout),
	}
	if cfg.AnnotationEnabled {
		orchOpts = append(orchOpts, orchestrator.WithAnnotator(
			annotator.NewPDFAnnotator(
				annotator.WithDPI(cfg.AnnotateDPI),
				annotator.WithLogger(log))))
	}
	if cfg.Sequential {
		orchOpts = append(orchOpts, orchestrator.WithSequential())
	}
	if opts.progress {
		orchOpts = append(orchOpts, orchestrator.WithProgress(func(ev orchestrator.Event) {
			fmt.Fprintf(os.Stderr, "[%3d%%] %s: %s\n", ev.Percent, ev.Phase, ev.Message)
		}))
	}

	orch := orchestrator.New(std, ext, reg, orchOpts...)
	rep := orch.Validate(ctx, orchestrator.Request{
		Document: document,
		Checks:   checks,
		Params:   params,
		Annotate: opts.annotate != "",
	})

	if err := writeOutputs(rep, opts); err != nil {
		return err
	}
	if rep.Aggregate.CriticalFailures > 0 {
		return fmt.Errorf("%d critical failure(s)", rep.Aggregate.CriticalFailures)
	}
	return nil
}

func writeOutputs(rep *report.Report, opts validateOptions) error {
	if opts.jsonOut != "" {
		raw, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if opts.jsonOut == "-" {
			fmt.Println(string(raw))
		} else if err := os.WriteFile(opts.jsonOut, raw, 0o644); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
	}
	if opts.htmlOut != "" {
		html, err := rep.RenderHTML()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.htmlOut, []byte(html), 0o644); err != nil {
			return fmt.Errorf("write html report: %w", err)
		}
	}
	if opts.annotate != "" {
		if rep.Annotated == nil {
			fmt.Fprintln(os.Stderr, "drawcheck: no annotated document produced (see report notes)")
		} else if err := os.WriteFile(opts.annotate, rep.Annotated.Data, 0o644); err != nil {
			return fmt.Errorf("write annotated pdf: %w", err)
		}
	}
	if opts.jsonOut == "" && opts.htmlOut == "" {
		fmt.Print(rep.RenderMarkdown())
	}
	return nil
}

func parseChecks(names []string) ([]orchestrator.Domain, error) {
	known := map[string]orchestrator.Domain{
		"gdt":                orchestrator.DomainGDT,
		"welding":            orchestrator.DomainWelding,
		"material":           orchestrator.DomainMaterial,
		"equipmentchecklist": orchestrator.DomainChecklist,
	}
	var out []orchestrator.Domain
	for _, n := range names {
		d, ok := known[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown check %q", n)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseParams(pairs []string) (validation.Params, error) {
	params := validation.Params{}
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not name=value", p)
		}
		var v float64
		if _, err := fmt.Sscanf(value, "%g", &v); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p, err)
		}
		params[strings.TrimSpace(name)] = v
	}
	return params, nil
}

func newStandardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "standards",
		Short: "Query the embedded standards datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			std := standards.MustLoad()
			out := map[string]interface{}{
				"records": std.Count(),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.AddCommand(newWeightCmd())
	return cmd
}

func newWeightCmd() *cobra.Command {
	var (
		lengthFt float64
		actualLb float64
		tolPct   float64
	)
	cmd := &cobra.Command{
		Use:   "weight <designation>",
		Short: "Verify a member's weight against its catalog lb/ft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tolPct <= 0 {
				if cfg, err := config.Load(""); err == nil {
					tolPct = cfg.WeightTolerancePct
				}
			}
			std := standards.MustLoad()
			check, ok := std.VerifyWeight(args[0], lengthFt, actualLb, tolPct)
			if !ok {
				return fmt.Errorf("designation %q not in the beam or pipe datasets", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(check); err != nil {
				return err
			}
			if !check.Within {
				return fmt.Errorf("weight %.2f lb outside tolerance band", actualLb)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&lengthFt, "length", 0, "Member length in feet")
	cmd.Flags().Float64Var(&actualLb, "actual", 0, "Measured weight in pounds")
	cmd.Flags().Float64Var(&tolPct, "tolerance", 0, "Tolerance percent (0 uses the code default)")
	_ = cmd.MarkFlagRequired("length")
	_ = cmd.MarkFlagRequired("actual")
	return cmd
}
