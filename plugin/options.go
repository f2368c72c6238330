package plugin

import (
	"go.uber.org/zap"

	"esvelte/internal/compiler"
	"esvelte/internal/pipeline"
	"esvelte/internal/preprocess"
)

// DefaultFilter matches component files, with or without a query.
const DefaultFilter = `\.svelte(\?.*)?$`

// Option configures the plugin.
type Option func(*options)

type options struct {
	name           string
	filter         string
	root           string
	compiler       compiler.Compiler
	emitCSS        bool
	preprocess     []preprocess.Group
	disableTS      bool
	typescript     map[string]any
	compileOptions compiler.Options
	dev            *bool
	dynamic        pipeline.DynamicFunc
	sourcemap      pipeline.SourcemapConfig
	logger         *zap.Logger
	progress       pipeline.ProgressSink
}

func newOptions() *options {
	return &options{
		name:      "svelte",
		filter:    DefaultFilter,
		emitCSS:   true,
		sourcemap: pipeline.SourcemapConfig{JS: true, CSS: true},
		logger:    zap.NewNop(),
	}
}

// WithFilter replaces the component filter. Rune modules (.svelte.js and
// .svelte.ts) are always handled.
func WithFilter(re string) Option {
	return func(o *options) { o.filter = re }
}

// WithRoot sets the project directory; defaults to the build's working
// directory.
func WithRoot(dir string) Option {
	return func(o *options) { o.root = dir }
}

// WithCompiler replaces the node-backed compiler.
func WithCompiler(c compiler.Compiler) Option {
	return func(o *options) { o.compiler = c }
}

// WithEmitCSS toggles extracting styles into their own module. On by default.
func WithEmitCSS(on bool) Option {
	return func(o *options) { o.emitCSS = on }
}

// WithPreprocess adds preprocessor groups. They run before the TypeScript
// group, so a group that handles TypeScript itself takes precedence.
func WithPreprocess(groups ...preprocess.Group) Option {
	return func(o *options) { o.preprocess = append(o.preprocess, groups...) }
}

// WithoutTypeScript drops the built-in TypeScript group.
func WithoutTypeScript() Option {
	return func(o *options) { o.disableTS = true }
}

// WithTypeScriptOptions sets tsconfig compilerOptions for script blocks.
func WithTypeScriptOptions(compilerOptions map[string]any) Option {
	return func(o *options) { o.typescript = compilerOptions }
}

// WithCompileOptions sets the base compile options. A non-empty Generate
// pins the target instead of inferring it from the build.
func WithCompileOptions(opts compiler.Options) Option {
	return func(o *options) { o.compileOptions = opts }
}

// WithDev pins development mode instead of inferring it from the build.
func WithDev(dev bool) Option {
	return func(o *options) { o.dev = &dev }
}

// WithDynamicCompileOptions installs a per-file compile options hook.
func WithDynamicCompileOptions(fn pipeline.DynamicFunc) Option {
	return func(o *options) { o.dynamic = fn }
}

// WithSourcemap enables or disables the script and style maps.
func WithSourcemap(js, css bool) Option {
	return func(o *options) { o.sourcemap = pipeline.SourcemapConfig{JS: js, CSS: css} }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgress reports per-file progress events to sink.
func WithProgress(sink pipeline.ProgressSink) Option {
	return func(o *options) { o.progress = sink }
}
