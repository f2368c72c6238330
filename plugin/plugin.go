// Package plugin adapts the component pipeline to esbuild.
//
//	result := api.Build(api.BuildOptions{
//		EntryPoints: []string{"src/main.js"},
//		Bundle:      true,
//		Plugins:     []api.Plugin{plugin.New()},
//	})
//
// Create one plugin per build: the inferred mode and the pending styles
// belong to a single build context.
package plugin

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"esvelte/internal/compiler"
	"esvelte/internal/cssreg"
	"esvelte/internal/mode"
	"esvelte/internal/pipeline"
	"esvelte/internal/preprocess"
)

const (
	styleNamespace = "svelte-style"
	styleFilter    = `[?&]type=style`
	moduleFilter   = `\.svelte\.[jt]s(\?.*)?$`
)

// New returns the esbuild plugin. It panics on an invalid filter.
func New(opts ...Option) api.Plugin {
	o := newOptions()
	for _, fn := range opts {
		fn(o)
	}
	if _, err := regexp.Compile(o.filter); err != nil {
		panic("plugin: invalid filter: " + err.Error())
	}
	return api.Plugin{
		Name: o.name,
		Setup: func(build api.PluginBuild) {
			setup(o, build)
		},
	}
}

func setup(o *options, build api.PluginBuild) {
	root := rootDir(o.root, build.InitialOptions)
	log := o.logger.With(zap.String("plugin", o.name))

	m := mode.Infer(mode.FromBuildOptions(build.InitialOptions))
	copts := o.compileOptions
	if copts.Generate == "" {
		copts.Generate = m.Generate
	}
	copts.Dev = m.Dev
	if o.dev != nil {
		copts.Dev = *o.dev
	}
	if o.emitCSS && copts.CSS == "" {
		copts.CSS = compiler.CSSExternal
	}
	if conds := (mode.Mode{Dev: copts.Dev, Generate: copts.Generate}).Conditions(); conds != nil && build.InitialOptions != nil && build.InitialOptions.Conditions == nil {
		build.InitialOptions.Conditions = conds
	}
	log.Debug("mode", zap.Bool("dev", copts.Dev), zap.String("generate", string(copts.Generate)))

	comp := o.compiler
	if comp == nil {
		comp = &compiler.NodeCompiler{Root: root, Logger: log}
	}
	p, err := pipeline.New(pipeline.Config{
		Root:              root,
		Compiler:          comp,
		Preprocess:        o.preprocess,
		DisableTypeScript: o.disableTS,
		TypeScript:        o.typescript,
		EmitCSS:           o.emitCSS,
		CompileOptions:    copts,
		Dynamic:           o.dynamic,
		Sourcemap:         o.sourcemap,
		Transformer:       preprocess.EsbuildTransformer{Base: transformOptions(build.InitialOptions)},
		Logger:            log,
		Progress:          o.progress,
	})
	if err != nil {
		build.OnStart(func() (api.OnStartResult, error) { return api.OnStartResult{}, err })
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg := cssreg.New()

	build.OnEnd(func(*api.BuildResult) (api.OnEndResult, error) {
		if n := reg.Len(); n > 0 {
			log.Debug("dropping unclaimed styles", zap.Int("count", n))
		}
		reg.Clear()
		return api.OnEndResult{}, nil
	})
	build.OnDispose(cancel)

	build.OnResolve(api.OnResolveOptions{Filter: styleFilter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		key, path, ok := cssreg.KeyForImport(args.Path, args.ResolveDir)
		if !ok {
			return api.OnResolveResult{}, nil
		}
		_, query, _ := strings.Cut(args.Path, "?")
		return api.OnResolveResult{
			Path:       path,
			Namespace:  styleNamespace,
			Suffix:     "?" + query,
			PluginData: key,
		}, nil
	})

	build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: styleNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		key, ok := args.PluginData.(string)
		if !ok {
			key = cssreg.Key(args.Path, strings.TrimPrefix(args.Suffix, "?"))
		}
		res := p.LoadStyle(reg, key)
		out := toLoadResult(res)
		out.ResolveDir = filepath.Dir(args.Path)
		return out, nil
	})

	build.OnLoad(api.OnLoadOptions{Filter: moduleFilter, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		out := toLoadResult(p.LoadModule(ctx, args.Path))
		out.ResolveDir = filepath.Dir(args.Path)
		return out, nil
	})

	build.OnLoad(api.OnLoadOptions{Filter: o.filter, Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		out := toLoadResult(p.LoadComponent(ctx, args.Path, args.Suffix, reg))
		out.ResolveDir = filepath.Dir(args.Path)
		return out, nil
	})
}

func rootDir(root string, bo *api.BuildOptions) string {
	if root == "" && bo != nil {
		root = bo.AbsWorkingDir
	}
	if root == "" {
		if wd, err := os.Getwd(); err == nil {
			root = wd
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return root
}

// transformOptions keeps the build options that matter when a rune module
// is transformed on its own.
func transformOptions(bo *api.BuildOptions) api.TransformOptions {
	if bo == nil {
		return api.TransformOptions{}
	}
	return api.TransformOptions{
		Target:            bo.Target,
		Engines:           bo.Engines,
		Supported:         bo.Supported,
		Platform:          bo.Platform,
		Define:            bo.Define,
		Pure:              bo.Pure,
		KeepNames:         bo.KeepNames,
		Drop:              bo.Drop,
		DropLabels:        bo.DropLabels,
		Charset:           bo.Charset,
		TsconfigRaw:       bo.TsconfigRaw,
		LegalComments:     bo.LegalComments,
		MinifyWhitespace:  bo.MinifyWhitespace,
		MinifyIdentifiers: bo.MinifyIdentifiers,
		MinifySyntax:      bo.MinifySyntax,
	}
}
