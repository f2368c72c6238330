// Package mode infers how components should be compiled from the host
// build's options.
package mode

import (
	"github.com/evanw/esbuild/pkg/api"

	"esvelte/internal/compiler"
)

// Input is the part of the build configuration that decides the mode.
type Input struct {
	Minify bool
	Define map[string]string
}

// Mode is the inferred compilation mode.
type Mode struct {
	Dev      bool
	Generate compiler.Generate
}

// Conditions returns the extra resolve conditions the mode asks for.
func (m Mode) Conditions() []string {
	if m.Dev && m.Generate == compiler.GenerateClient {
		return []string{"development"}
	}
	return nil
}

// Infer applies the decision table: minification or a production
// NODE_ENV / DEV define means production, import.meta.env.SSR means
// server. Anything else is a development client build.
func Infer(in Input) Mode {
	m := Mode{Dev: true, Generate: compiler.GenerateClient}
	switch {
	case in.Minify,
		isJSString(in.Define["process.env.NODE_ENV"], "production"),
		isJSString(in.Define["import.meta.env.NODE_ENV"], "production"),
		in.Define["import.meta.env.DEV"] == "false":
		m.Dev = false
	}
	if in.Define["import.meta.env.SSR"] == "true" {
		m.Generate = compiler.GenerateServer
	}
	return m
}

// FromBuildOptions extracts Input from esbuild's initial options.
func FromBuildOptions(o *api.BuildOptions) Input {
	if o == nil {
		return Input{}
	}
	return Input{
		Minify: o.MinifyWhitespace || o.MinifyIdentifiers || o.MinifySyntax,
		Define: o.Define,
	}
}

func isJSString(v, want string) bool {
	return v == `"`+want+`"` || v == `'`+want+`'`
}
