package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"esvelte/internal/cssreg"
	"esvelte/internal/diagfmt"
	"esvelte/internal/pipeline"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file>",
	Short: "Compile one component and print the result",
	Long:  "Compile one .svelte component (or .svelte.js/.svelte.ts module) and print the generated JavaScript, or its stylesheet with --css.",
	Args:  cobra.ExactArgs(1),
	RunE:  compileExecution,
}

func init() {
	compileCmd.Flags().Bool("css", false, "print the extracted stylesheet instead of the script")
	compileCmd.Flags().Bool("ssr", false, "compile for the server")
}

func compileExecution(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	showCSS, err := cmd.Flags().GetBool("css")
	if err != nil {
		return err
	}
	ssr, err := cmd.Flags().GetBool("ssr")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	manifest, err := loadManifest(configPath, filepath.Dir(path))
	if err != nil {
		return err
	}
	if ssr {
		manifest.Config.Svelte.Generate = "server"
	}
	p, err := pipeline.New(checkConfig(manifest, log, nil))
	if err != nil {
		return err
	}

	reg := cssreg.New()
	var res pipeline.LoadResult
	if isRuneModule(path) {
		res = p.LoadModule(cmd.Context(), path)
	} else {
		res = p.LoadComponent(cmd.Context(), path, "", reg)
	}

	stderr := cmd.ErrOrStderr()
	perr := diagfmt.Pretty(stderr, append(res.Errors, res.Warnings...), diagfmt.PrettyOpts{Color: colorOn(), Root: manifest.Root})
	if perr != nil {
		return perr
	}
	if res.Failed() {
		return reportedError{n: len(res.Errors)}
	}

	out := cmd.OutOrStdout()
	if showCSS {
		style := cssreg.StyleFor(path, "")
		css := p.LoadStyle(reg, style.Key)
		if css.Failed() {
			fmt.Fprintln(stderr, "component has no styles")
			return nil
		}
		fmt.Fprint(out, css.Contents)
	} else {
		fmt.Fprint(out, res.Contents)
	}
	if showTimings {
		printStageTimings(stderr, res.Timings)
	}
	return nil
}

func isRuneModule(path string) bool {
	return strings.HasSuffix(path, ".svelte.js") || strings.HasSuffix(path, ".svelte.ts")
}
