package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"esvelte/internal/observ"
	"esvelte/internal/pipeline"
	"esvelte/plugin"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [entry...]",
	Short: "Bundle entry points with the svelte plugin",
	Long:  "Bundle entry points with esbuild. Entries and options default to esvelte.toml.",
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().String("outdir", "", "output directory (overrides [outdir])")
	buildCmd.Flags().Bool("minify", false, "minify output, implies production mode")
	buildCmd.Flags().Bool("ssr", false, "compile components for the server")
	buildCmd.Flags().Bool("watch", false, "rebuild on change until interrupted")
	buildCmd.Flags().Bool("metafile", false, "print a bundle size analysis")
}

func buildExecution(cmd *cobra.Command, args []string) error {
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
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	metafile, err := cmd.Flags().GetBool("metafile")
	if err != nil {
		return err
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
	cfg := manifest.Config
	if v, _ := cmd.Flags().GetString("outdir"); v != "" {
		cfg.Outdir = v
	}
	if v, _ := cmd.Flags().GetBool("minify"); v {
		cfg.Esbuild.Minify = true
	}
	if v, _ := cmd.Flags().GetBool("ssr"); v {
		cfg.Svelte.Generate = "server"
		cfg.Esbuild.Platform = "node"
	}
	if len(args) > 0 {
		cfg.Entry = args
	}
	if len(cfg.Entry) == 0 {
		return fmt.Errorf("no entry points: pass them as arguments or set entry in %s", configName)
	}

	timer := observ.NewTimer()
	stages := &stageTotals{}
	opts, err := buildOptions(manifest.Root, cfg, log, stages)
	if err != nil {
		return err
	}
	opts.Metafile = metafile

	if watch {
		return runWatch(cmd, opts, quiet)
	}

	done := timer.Track("bundle")
	result := api.Build(opts)
	done(fmt.Sprintf("%d output file(s)", len(result.OutputFiles)))

	printMessages(result.Warnings, api.WarningMessage, quiet)
	printMessages(result.Errors, api.ErrorMessage, false)
	if metafile && result.Metafile != "" && !quiet {
		fmt.Fprint(cmd.OutOrStdout(), api.AnalyzeMetafile(result.Metafile, api.AnalyzeMetafileOptions{Color: colorOn()}))
	}
	if showTimings {
		totals := stages.Timings()
		for _, stage := range pipeline.Stages {
			if totals.Has(stage) {
				timer.Add(string(stage), totals.Duration(stage), fmt.Sprintf("%d component(s)", stages.Files()))
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	if len(result.Errors) > 0 {
		return reportedError{n: len(result.Errors)}
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "built %d entr%s into %s\n", len(cfg.Entry), plural(len(cfg.Entry), "y", "ies"), displayOf(manifest.Root, opts.Outdir))
	}
	return nil
}

// buildOptions turns a project config into esbuild options with the plugin installed.
func buildOptions(root string, cfg projectConfig, log *zap.Logger, progress pipeline.ProgressSink) (api.BuildOptions, error) {
	format, err := parseFormat(cfg.Esbuild.Format)
	if err != nil {
		return api.BuildOptions{}, err
	}
	platform, err := parsePlatform(cfg.Esbuild.Platform)
	if err != nil {
		return api.BuildOptions{}, err
	}
	outdir := cfg.Outdir
	if outdir == "" {
		outdir = "dist"
	}
	entries := make([]string, len(cfg.Entry))
	for i, e := range cfg.Entry {
		entries[i] = filepath.Join(root, filepath.FromSlash(e))
	}

	popts := []plugin.Option{
		plugin.WithRoot(root),
		plugin.WithCompiler(cfg.Svelte.nodeCompiler(root, log)),
		plugin.WithEmitCSS(cfg.Svelte.emitCSS()),
		plugin.WithCompileOptions(cfg.Svelte.compileOptions()),
		plugin.WithSourcemap(cfg.Svelte.sourcemap(), cfg.Svelte.sourcemap()),
		plugin.WithLogger(log),
		plugin.WithProgress(progress),
	}
	if cfg.Svelte.Dev != nil {
		popts = append(popts, plugin.WithDev(*cfg.Svelte.Dev))
	}
	if !cfg.Svelte.typescript() {
		popts = append(popts, plugin.WithoutTypeScript())
	}
	if cfg.Svelte.TSOptions != nil {
		popts = append(popts, plugin.WithTypeScriptOptions(cfg.Svelte.TSOptions))
	}
	if cfg.Svelte.Filter != "" {
		popts = append(popts, plugin.WithFilter(cfg.Svelte.Filter))
	}

	opts := api.BuildOptions{
		AbsWorkingDir:     root,
		EntryPoints:       entries,
		Outdir:            filepath.Join(root, filepath.FromSlash(outdir)),
		Bundle:            true,
		Write:             true,
		Format:            format,
		Platform:          platform,
		MinifyWhitespace:  cfg.Esbuild.Minify,
		MinifyIdentifiers: cfg.Esbuild.Minify,
		MinifySyntax:      cfg.Esbuild.Minify,
		Conditions:        cfg.Esbuild.Conditions,
		Define:            cfg.Esbuild.Define,
		External:          cfg.Esbuild.External,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{plugin.New(popts...)},
	}
	if cfg.Esbuild.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if cfg.Esbuild.Target != "" {
		// target = "es2020" или список движков "chrome100,firefox100"
		if t, ok := esTarget(cfg.Esbuild.Target); ok {
			opts.Target = t
		} else {
			opts.Engines, err = engines(cfg.Esbuild.Target)
			if err != nil {
				return api.BuildOptions{}, err
			}
		}
	}
	return opts, nil
}

func runWatch(cmd *cobra.Command, opts api.BuildOptions, quiet bool) error {
	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "esvelte-report",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				printMessages(result.Warnings, api.WarningMessage, quiet)
				printMessages(result.Errors, api.ErrorMessage, false)
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "rebuilt: %d error(s), %d warning(s)\n", len(result.Errors), len(result.Warnings))
				}
				return api.OnEndResult{}, nil
			})
		},
	})
	bctx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		printMessages(ctxErr.Errors, api.ErrorMessage, false)
		return reportedError{n: len(ctxErr.Errors)}
	}
	defer bctx.Dispose()

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "watching for changes, press Ctrl+C to stop")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}

func printMessages(msgs []api.Message, kind api.MessageKind, quiet bool) {
	if quiet || len(msgs) == 0 {
		return
	}
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind:          kind,
		Color:         colorOn(),
		TerminalWidth: terminalWidth(),
	})
	fmt.Fprint(os.Stderr, strings.Join(formatted, ""))
}

func esTarget(s string) (api.Target, bool) {
	switch strings.ToLower(s) {
	case "esnext":
		return api.ESNext, true
	case "es2015":
		return api.ES2015, true
	case "es2016":
		return api.ES2016, true
	case "es2017":
		return api.ES2017, true
	case "es2018":
		return api.ES2018, true
	case "es2019":
		return api.ES2019, true
	case "es2020":
		return api.ES2020, true
	case "es2021":
		return api.ES2021, true
	case "es2022":
		return api.ES2022, true
	}
	return api.DefaultTarget, false
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"safari":  api.EngineSafari,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"deno":    api.EngineDeno,
	"opera":   api.EngineOpera,
}

// engines parses "chrome100,safari15.4" into esbuild engines.
func engines(list string) ([]api.Engine, error) {
	var out []api.Engine
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		i := strings.IndexAny(part, "0123456789")
		if i <= 0 {
			return nil, fmt.Errorf("invalid target %q", part)
		}
		name, ok := engineNames[strings.ToLower(part[:i])]
		if !ok {
			return nil, fmt.Errorf("unknown engine %q", part[:i])
		}
		out = append(out, api.Engine{Name: name, Version: part[i:]})
	}
	return out, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
