package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"esvelte/internal/compiler"
	"esvelte/internal/mode"
)

const configName = "esvelte.toml"

// projectConfig mirrors esvelte.toml:
//
//	entry = ["src/main.ts"]
//	outdir = "dist"
//
//	[svelte]
//	generate = "client"
//	dev = true
//
//	[esbuild]
//	format = "esm"
//	minify = false
type projectConfig struct {
	Entry   []string      `toml:"entry"`
	Outdir  string        `toml:"outdir"`
	Svelte  svelteConfig  `toml:"svelte"`
	Esbuild esbuildConfig `toml:"esbuild"`
}

type svelteConfig struct {
	Node          string         `toml:"node"`
	EmitCSS       *bool          `toml:"emit_css"`
	TypeScript    *bool          `toml:"typescript"`
	Generate      string         `toml:"generate"`
	Dev           *bool          `toml:"dev"`
	CustomElement bool           `toml:"custom_element"`
	Runes         *bool          `toml:"runes"`
	Sourcemap     *bool          `toml:"sourcemap"`
	Filter        string         `toml:"filter"`
	Compiler      map[string]any `toml:"compiler_options"`
	TSOptions     map[string]any `toml:"ts_options"`
}

type esbuildConfig struct {
	Format     string            `toml:"format"`
	Platform   string            `toml:"platform"`
	Target     string            `toml:"target"`
	Minify     bool              `toml:"minify"`
	Sourcemap  bool              `toml:"sourcemap"`
	Conditions []string          `toml:"conditions"`
	Define     map[string]string `toml:"define"`
	External   []string          `toml:"external"`
}

// projectManifest is a loaded config with the directory it lives in.
type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadManifest reads explicit when set, otherwise searches upwards from
// startDir. Without a config file the manifest is empty and rooted at startDir.
func loadManifest(explicit, startDir string) (*projectManifest, error) {
	path := explicit
	if path == "" {
		found, ok, err := findConfig(startDir)
		if err != nil {
			return nil, err
		}
		if !ok {
			root, err := filepath.Abs(startDir)
			if err != nil {
				return nil, err
			}
			return &projectManifest{Root: root}, nil
		}
		path = found
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg, err := loadProjectConfig(abs)
	if err != nil {
		return nil, err
	}
	return &projectManifest{Path: abs, Root: filepath.Dir(abs), Config: cfg}, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			// compiler_options и ts_options передаются как есть
			if len(k) > 2 && (k[1] == "compiler_options" || k[1] == "ts_options") {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return projectConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	if meta.IsDefined("svelte", "generate") {
		switch compiler.Generate(cfg.Svelte.Generate) {
		case compiler.GenerateClient, compiler.GenerateServer:
		default:
			return projectConfig{}, fmt.Errorf("%s: [svelte].generate must be client or server, got %q", path, cfg.Svelte.Generate)
		}
	}
	if meta.IsDefined("esbuild", "format") {
		if _, err := parseFormat(cfg.Esbuild.Format); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [esbuild].format: %w", path, err)
		}
	}
	if meta.IsDefined("esbuild", "platform") {
		if _, err := parsePlatform(cfg.Esbuild.Platform); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [esbuild].platform: %w", path, err)
		}
	}
	for i, e := range cfg.Entry {
		if strings.TrimSpace(e) == "" {
			return projectConfig{}, fmt.Errorf("%s: entry[%d] is empty", path, i)
		}
	}
	return cfg, nil
}

func parseFormat(s string) (api.Format, error) {
	switch strings.ToLower(s) {
	case "", "esm":
		return api.FormatESModule, nil
	case "cjs":
		return api.FormatCommonJS, nil
	case "iife":
		return api.FormatIIFE, nil
	}
	return api.FormatDefault, fmt.Errorf("unknown format %q (expected esm|cjs|iife)", s)
}

func parsePlatform(s string) (api.Platform, error) {
	switch strings.ToLower(s) {
	case "", "browser":
		return api.PlatformBrowser, nil
	case "node":
		return api.PlatformNode, nil
	case "neutral":
		return api.PlatformNeutral, nil
	}
	return api.PlatformDefault, fmt.Errorf("unknown platform %q (expected browser|node|neutral)", s)
}

// compileOptions builds the base compiler options from [svelte].
func (c svelteConfig) compileOptions() compiler.Options {
	opts := compiler.Options{
		Generate:      compiler.Generate(c.Generate),
		CustomElement: c.CustomElement,
		Runes:         c.Runes,
		Extra:         c.Compiler,
	}
	if c.Dev != nil {
		opts.Dev = *c.Dev
	}
	return opts
}

func (c svelteConfig) emitCSS() bool {
	return c.EmitCSS == nil || *c.EmitCSS
}

func (c svelteConfig) sourcemap() bool {
	return c.Sourcemap == nil || *c.Sourcemap
}

func (c svelteConfig) typescript() bool {
	return c.TypeScript == nil || *c.TypeScript
}

func (c svelteConfig) nodeCompiler(root string, log *zap.Logger) *compiler.NodeCompiler {
	return &compiler.NodeCompiler{Node: c.Node, Root: root, Logger: log}
}

// resolvedOptions fills the mode of the base options the way the plugin
// does for a build: pinned values win, the rest is inferred from [esbuild].
func (c projectConfig) resolvedOptions() compiler.Options {
	opts := c.Svelte.compileOptions()
	m := mode.Infer(mode.Input{Minify: c.Esbuild.Minify, Define: c.Esbuild.Define})
	if opts.Generate == "" {
		opts.Generate = m.Generate
	}
	if c.Svelte.Dev == nil {
		opts.Dev = m.Dev
	}
	if c.Svelte.emitCSS() {
		opts.CSS = compiler.CSSExternal
	}
	return opts
}
