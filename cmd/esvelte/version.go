package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"esvelte/internal/version"
)

const esbuildModule = "github.com/evanw/esbuild"

// versionInfo собирает версии всего, что участвует в сборке: самого
// esvelte, слинкованного esbuild и svelte из node_modules проекта.
type versionInfo struct {
	Version   string
	GitCommit string
	BuildDate string
	Esbuild   string
	Svelte    string
	// SvelteErr is set when the project compiler could not be queried.
	SvelteErr string
	Root      string
}

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
}

type versionPayload struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Esbuild     string `json:"esbuild"`
	Svelte      string `json:"svelte,omitempty"`
	SvelteError string `json:"svelte_error,omitempty"`
	Root        string `json:"root"`
	GitCommit   string `json:"git_commit,omitempty"`
	BuildDate   string `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowHash bool
	versionShowDate bool
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowHash, "hash", false, "include git commit hash")
	versionCmd.Flags().BoolVar(&versionShowDate, "date", false, "include build timestamp")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show esvelte, esbuild and project svelte versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := versionOptions{
			format:   strings.ToLower(versionFormat),
			showHash: versionShowHash || versionShowFull,
			showDate: versionShowDate || versionShowFull,
		}
		switch opts.format {
		case "pretty", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}

		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		manifest, err := loadManifest(configPath, wd)
		if err != nil {
			return err
		}

		info := collectVersionInfo()
		info.Root = manifest.Root
		// svelte берётся из проекта, а не из бинаря; его отсутствие не ошибка
		sv, err := manifest.Config.Svelte.nodeCompiler(manifest.Root, log).Version(cmd.Context())
		if err != nil {
			info.SvelteErr = err.Error()
		} else {
			info.Svelte = sv
		}

		if opts.format == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), info, opts)
		}
		renderVersionPretty(cmd.OutOrStdout(), info, opts)
		return nil
	},
}

func collectVersionInfo() versionInfo {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	bi, _ := debug.ReadBuildInfo()
	return versionInfo{
		Version:   v,
		GitCommit: strings.TrimSpace(version.GitCommit),
		BuildDate: strings.TrimSpace(version.BuildDate),
		Esbuild:   linkedVersion(bi, esbuildModule),
	}
}

// linkedVersion returns the version of module path as recorded in the
// binary, honouring replace directives.
func linkedVersion(bi *debug.BuildInfo, path string) string {
	if bi == nil {
		return ""
	}
	for _, dep := range bi.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return ""
}

func renderVersionPretty(out io.Writer, info versionInfo, opts versionOptions) {
	fmt.Fprintf(out, "esvelte %s\n", version.Pretty())
	fmt.Fprintf(out, "esbuild: %s\n", valueOrUnknown(info.Esbuild))
	if info.Svelte != "" {
		fmt.Fprintf(out, "svelte:  %s (%s)\n", info.Svelte, info.Root)
	} else {
		fmt.Fprintf(out, "svelte:  not found in %s: %s\n", info.Root, valueOrUnknown(info.SvelteErr))
	}
	if opts.showHash {
		fmt.Fprintf(out, "commit:  %s\n", valueOrUnknown(info.GitCommit))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:   %s\n", valueOrUnknown(info.BuildDate))
	}
}

func renderVersionJSON(out io.Writer, info versionInfo, opts versionOptions) error {
	payload := versionPayload{
		Tool:        "esvelte",
		Version:     info.Version,
		Esbuild:     valueOrUnknown(info.Esbuild),
		Svelte:      info.Svelte,
		SvelteError: info.SvelteErr,
		Root:        info.Root,
	}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
