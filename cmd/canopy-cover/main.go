package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	canopy "github.com/menta2k/canopy-analyzer"
	"github.com/menta2k/canopy-analyzer/internal/config"
	"github.com/menta2k/canopy-analyzer/internal/utils"
	"github.com/menta2k/canopy-analyzer/pkg/batch"
	"github.com/menta2k/canopy-analyzer/pkg/types"
)

type flags struct {
	configPath    string
	redGreenMax   float64
	blueGreenMax  float64
	exgMin        float64
	mode          string
	openingSize   int
	parseMetadata bool
	saveMask      bool
	parallel      bool
	workers       int
	format        string
	renderDir     string
	renderFormat  string
	quality       int
	quiet         bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	return newCommand(&flags{})
}

func newCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canopy-cover [flags] <image|pattern> [image...]",
		Short: "Estimate fractional green canopy cover of field photographs",
		Long: `canopy-cover classifies the pixels of every image as vegetation or not
and prints one row per image with its canopy cover, EXIF capture time and
GPS position. A single argument may be a glob pattern such as "plots/*.JPG".`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       canopy.GetVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return run(ctx, cfg, args, f.quiet, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", config.GetConfigPath(), "configuration file (JSON)")
	fs.Float64Var(&f.redGreenMax, "red-green-max", 0.95, "maximum red/green ratio of a vegetation pixel")
	fs.Float64Var(&f.blueGreenMax, "blue-green-max", 0.95, "maximum blue/green ratio of a vegetation pixel")
	fs.Float64Var(&f.exgMin, "exg-min", 20, "minimum excess green index (2G-R-B) of a vegetation pixel")
	fs.StringVar(&f.mode, "mode", "exg-gated", "classification rule: exg-gated|ratio-only")
	fs.IntVar(&f.openingSize, "opening-size", 10, "side of the square opening element, 0 disables it")
	fs.BoolVar(&f.parseMetadata, "parse-metadata", true, "read capture time and GPS position from EXIF")
	fs.BoolVar(&f.saveMask, "save-mask", false, "keep vegetation masks in the result (json output only)")
	fs.BoolVar(&f.parallel, "parallel", false, "process images concurrently")
	fs.IntVar(&f.workers, "workers", 0, "worker count in parallel mode, 0 means one per CPU")
	fs.StringVar(&f.format, "format", "csv", "output format: csv|json")
	fs.StringVar(&f.renderDir, "render-dir", "", "write an image/mask comparison per image to this directory")
	fs.StringVar(&f.renderFormat, "render-format", "png", "comparison image format: png|jpg|webp")
	fs.IntVar(&f.quality, "quality", 90, "JPEG/WebP quality of comparison images (1-100)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "do not log progress")

	cmd.AddCommand(newInitConfigCommand())
	return cmd
}

func newInitConfigCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the default configuration, with environment overrides applied",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			return initConfig(path, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func initConfig(path string, force bool) error {
	if utils.FileExists(path) && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	cfg := config.Default()
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.SaveToFile(path); err != nil {
		return err
	}

	log.Printf("wrote %s", path)
	return nil
}

// resolveConfig layers defaults, the config file, the environment and
// explicitly set flags, in that order
func resolveConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("red-green-max") {
		cfg.Classifier.RedGreenMax = f.redGreenMax
	}
	if fs.Changed("blue-green-max") {
		cfg.Classifier.BlueGreenMax = f.blueGreenMax
	}
	if fs.Changed("exg-min") {
		cfg.Classifier.ExGMin = f.exgMin
	}
	if fs.Changed("mode") {
		cfg.Classifier.Mode = f.mode
	}
	if fs.Changed("opening-size") {
		cfg.Classifier.OpeningSize = f.openingSize
	}
	if fs.Changed("parse-metadata") {
		cfg.Batch.ParseMetadata = f.parseMetadata
	}
	if fs.Changed("save-mask") {
		cfg.Batch.SaveMask = f.saveMask
	}
	if fs.Changed("parallel") {
		cfg.Batch.Parallel = f.parallel
	}
	if fs.Changed("workers") {
		cfg.Batch.Workers = f.workers
	}
	if fs.Changed("format") {
		cfg.Output.Format = strings.ToLower(f.format)
	}
	if fs.Changed("render-dir") {
		cfg.Output.RenderDir = f.renderDir
	}
	if fs.Changed("render-format") {
		cfg.Output.RenderFormat = strings.ToLower(f.renderFormat)
	}
	if fs.Changed("quality") {
		cfg.Output.Quality = f.quality
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func optionsFromConfig(cfg *config.Config) canopy.Options {
	opts := canopy.DefaultOptions()
	opts.Thresholds = types.Thresholds{
		RedGreenMax:  cfg.Classifier.RedGreenMax,
		BlueGreenMax: cfg.Classifier.BlueGreenMax,
		ExGMin:       cfg.Classifier.ExGMin,
	}
	opts.Mode = cfg.Mode()
	opts.OpeningSize = cfg.Classifier.OpeningSize
	opts.ParseMetadata = cfg.Batch.ParseMetadata
	opts.SaveMask = cfg.Batch.SaveMask
	opts.Parallel = cfg.Batch.Parallel
	opts.Workers = cfg.Batch.Workers
	opts.Formats = cfg.Analyzer.SupportedFormats
	opts.RenderQuality = cfg.Output.Quality
	return opts
}

func sourceFromArgs(args []string) batch.Source {
	if len(args) == 1 {
		return canopy.Path(args[0])
	}
	return canopy.Paths(args...)
}

func run(ctx context.Context, cfg *config.Config, args []string, quiet bool, out io.Writer) error {
	opts := optionsFromConfig(cfg)
	if !quiet {
		opts.Progress = batch.LogProgress(log.Default(), 10)
	}

	a := canopy.NewWithOptions(opts)
	report, err := a.Run(ctx, sourceFromArgs(args))
	if err != nil {
		return err
	}
	report.Table.SortByImage()

	if !quiet {
		log.Printf("processed %d images: %d rows, %d skipped, %d failed",
			report.Total, report.Table.Len(), len(report.Skipped), len(report.Failed))
	}

	if err := writeTable(out, report.Table, cfg.Output.Format); err != nil {
		return err
	}

	if cfg.Output.RenderDir != "" {
		return render(a, report.Table, cfg.Output)
	}
	return nil
}

func writeTable(w io.Writer, table *types.Table, format string) error {
	switch format {
	case "json":
		rows := table.Maps()
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	default:
		return table.WriteCSV(w)
	}
}

func render(a *canopy.Analyzer, table *types.Table, out config.OutputConfig) error {
	if err := utils.EnsureDir(out.RenderDir); err != nil {
		return fmt.Errorf("failed to create render directory: %w", err)
	}

	images := lo.Map(table.Rows(), func(r types.Record, _ int) string { return r.Image })
	names := renderNames(images, out.RenderDir, out.RenderFormat)
	for _, path := range images {
		outPath := names[path]
		if _, err := a.Plot(path, outPath); err != nil {
			log.Printf("render %s failed: %v", path, err)
			continue
		}
		log.Printf("wrote %s", outPath)
	}
	return nil
}

// renderNames maps every image to a distinct output file. Images sharing a
// base name are prefixed with their parent directory, then numbered if that
// still collides.
func renderNames(images []string, dir, format string) map[string]string {
	plain := func(path string) string {
		return utils.GenerateOutputFilename(path, dir, "", "_cover", format)
	}
	counts := lo.CountValuesBy(images, plain)

	names := make(map[string]string, len(images))
	used := make(map[string]bool, len(images))
	for _, path := range images {
		name := plain(path)
		if counts[name] > 1 {
			parent := filepath.Base(filepath.Dir(path))
			name = utils.GenerateOutputFilename(path, dir, parent+"_", "_cover", format)
		}
		for i := 2; used[name]; i++ {
			name = utils.GenerateOutputFilename(path, dir, "", fmt.Sprintf("_cover_%d", i), format)
		}
		used[name] = true
		names[path] = name
	}
	return names
}
