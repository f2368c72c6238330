package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"esvelte/internal/diag"
	"esvelte/internal/diagfmt"
	"esvelte/internal/observ"
	"esvelte/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [path...]",
	Short: "Compile every component and report diagnostics",
	Long:  "Preprocess and compile every .svelte file under the given paths (default: project root) without bundling.",
	RunE:  checkExecution,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "components compiled in parallel (0 = GOMAXPROCS)")
	checkCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
	checkCmd.Flags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	checkCmd.Flags().Bool("warnings-as-errors", false, "fail when any warning is reported")
	checkCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func checkExecution(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	strict, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	manifest, err := loadManifest(configPath, ".")
	if err != nil {
		return err
	}
	timer := observ.NewTimer()

	done := timer.Track("discover")
	roots := args
	if len(roots) == 0 {
		roots = []string{manifest.Root}
	}
	files, err := discoverComponents(roots)
	if err != nil {
		return err
	}
	done(fmt.Sprintf("%d component(s)", len(files)))
	if len(files) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "no components found")
		}
		return nil
	}

	stages := &stageTotals{}
	cfg := checkConfig(manifest, log, stages)

	done = timer.Track("check")
	var results []pipeline.FileResult
	if format == "pretty" && useTUI(uiModeValue, quiet) {
		display := make([]string, len(files))
		for i, f := range files {
			display[i] = displayOf(manifest.Root, f)
		}
		results, err = runCheckWithUI(cmd.Context(), "checking", display, cfg, stages, files, jobs)
	} else {
		results, err = runCheck(cmd.Context(), cfg, files, jobs)
	}
	done("")
	if err != nil {
		return err
	}

	bag := diag.NewBag(0)
	for _, r := range results {
		bag.AddAll(r.Result.Errors)
		bag.AddAll(r.Result.Warnings)
	}
	bag.Sort()

	done = timer.Track("report")
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		err = diagfmt.JSON(out, bag.Items(), diagfmt.JSONOpts{Max: maxDiagnostics})
	default:
		items := bag.Items()
		if quiet {
			items = bag.Filter(diag.SevError)
		}
		if maxDiagnostics > 0 && len(items) > maxDiagnostics {
			items = items[:maxDiagnostics]
		}
		err = diagfmt.Pretty(out, items, diagfmt.PrettyOpts{Color: colorOn(), Root: manifest.Root, Width: terminalWidth()})
	}
	done("")
	if err != nil {
		return err
	}

	errs := len(bag.Filter(diag.SevError))
	warns := len(bag.Filter(diag.SevWarning))
	if format == "pretty" && !quiet {
		fmt.Fprintf(out, "%d component(s): %d error(s), %d warning(s)\n", len(files), errs, warns)
	}
	if showTimings {
		printStageTimings(out, stages.Timings())
		fmt.Fprint(out, timer.Summary())
	}
	if bag.HasErrors() || (strict && bag.HasWarnings()) {
		return reportedError{n: errs + warns}
	}
	return nil
}

func checkConfig(manifest *projectManifest, log *zap.Logger, progress pipeline.ProgressSink) pipeline.Config {
	c := manifest.Config
	return pipeline.Config{
		Root:              manifest.Root,
		Compiler:          c.Svelte.nodeCompiler(manifest.Root, log),
		DisableTypeScript: !c.Svelte.typescript(),
		TypeScript:        c.Svelte.TSOptions,
		EmitCSS:           c.Svelte.emitCSS(),
		CompileOptions:    c.resolvedOptions(),
		Sourcemap:         pipeline.SourcemapConfig{JS: c.Svelte.sourcemap(), CSS: c.Svelte.sourcemap()},
		Logger:            log,
		Progress:          progress,
	}
}

func runCheck(ctx context.Context, cfg pipeline.Config, files []string, jobs int) ([]pipeline.FileResult, error) {
	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}
	return p.Batch(ctx, files, jobs)
}

// discoverComponents returns every *.svelte file under roots, skipping
// node_modules and dot directories. A root may also name a single file.
func discoverComponents(roots []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; !ok {
			seen[path] = struct{}{}
			files = append(files, path)
		}
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != abs && (name == "node_modules" || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ".svelte") {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
