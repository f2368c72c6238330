package compiler

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"esvelte/internal/sourcemap"
)

//go:embed compile.mjs
var compileScript string

// NodeCompiler runs the project's svelte/compiler in a node child process,
// one process per call. svelte is resolved from Root.
type NodeCompiler struct {
	// Node is the node executable, "node" when empty.
	Node string
	// Root is the directory svelte/compiler is resolved from.
	Root   string
	Logger *zap.Logger
}

type nodeRequest struct {
	Kind    string         `json:"kind"`
	Root    string         `json:"root"`
	Code    string         `json:"code"`
	Options map[string]any `json:"options"`
}

type nodeOutput struct {
	Code string          `json:"code"`
	Map  json.RawMessage `json:"map"`
}

type nodeResponse struct {
	JS       *nodeOutput `json:"js"`
	CSS      *nodeOutput `json:"css"`
	Warnings []Warning   `json:"warnings"`
	Error    *Error      `json:"error"`
	Version  string      `json:"version"`
}

// Compile implements Compiler.
func (c *NodeCompiler) Compile(ctx context.Context, code string, opts Options) (*Result, error) {
	options := map[string]any{}
	for k, v := range opts.Extra {
		options[k] = v
	}
	options["filename"] = opts.Filename
	options["generate"] = string(opts.Generate)
	options["dev"] = opts.Dev
	if opts.CSS != "" {
		options["css"] = string(opts.CSS)
	}
	if opts.CustomElement {
		options["customElement"] = true
	}
	if opts.Runes != nil {
		options["runes"] = *opts.Runes
	}
	if opts.Sourcemap != nil {
		options["sourcemap"] = json.RawMessage(opts.Sourcemap.JSON())
	}
	return c.run(ctx, nodeRequest{Kind: "component", Root: c.Root, Code: code, Options: options})
}

// CompileModule implements Compiler.
func (c *NodeCompiler) CompileModule(ctx context.Context, code string, opts ModuleOptions) (*Result, error) {
	options := map[string]any{
		"filename": opts.Filename,
		"generate": string(opts.Generate),
		"dev":      opts.Dev,
	}
	return c.run(ctx, nodeRequest{Kind: "module", Root: c.Root, Code: code, Options: options})
}

// Version reports the svelte version resolved from Root.
func (c *NodeCompiler) Version(ctx context.Context) (string, error) {
	res, err := c.call(ctx, nodeRequest{Kind: "version", Root: c.Root, Options: map[string]any{}})
	if err != nil {
		return "", err
	}
	if res.Version == "" {
		return "", fmt.Errorf("compiler returned no version")
	}
	return res.Version, nil
}

func (c *NodeCompiler) run(ctx context.Context, req nodeRequest) (*Result, error) {
	res, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.JS == nil {
		return nil, fmt.Errorf("compiler returned no script output")
	}

	out := &Result{Warnings: res.Warnings}
	if out.JS, err = res.JS.output(); err != nil {
		return nil, err
	}
	if res.CSS != nil {
		css, err := res.CSS.output()
		if err != nil {
			return nil, err
		}
		out.CSS = &css
	}
	return out, nil
}

func (c *NodeCompiler) call(ctx context.Context, req nodeRequest) (*nodeResponse, error) {
	node := c.Node
	if node == "" {
		node = "node"
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode compiler request: %w", err)
	}

	// #nosec G204 -- node binary is configured by the user
	cmd := exec.CommandContext(ctx, node, "--input-type=module", "-e", compileScript)
	cmd.Dir = c.Root
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("run %s: %w: %s", node, err, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 && c.Logger != nil {
		c.Logger.Debug("compiler stderr", zap.String("file", fmt.Sprint(req.Options["filename"])), zap.String("stderr", stderr.String()))
	}

	var res nodeResponse
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("decode compiler response: %w", err)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &res, nil
}

func (o *nodeOutput) output() (Output, error) {
	out := Output{Code: o.Code}
	if len(o.Map) == 0 || string(o.Map) == "null" {
		return out, nil
	}
	m, err := sourcemap.Parse(o.Map)
	if err != nil {
		return Output{}, err
	}
	out.Map = m
	return out, nil
}
