package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"esvelte/internal/source"
	"esvelte/internal/sourcemap"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<!--.*?-->|<script(\s[^>]*?)?(?:>(.*?)</script\s*>|/>)`)
	styleRe  = regexp.MustCompile(`(?is)<!--.*?-->|<style(\s[^>]*?)?(?:>(.*?)</style\s*>|/>)`)
	attrRe   = regexp.MustCompile(`([^\s=/]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `]+)))?`)
)

// Run applies groups to a component in order. Within a group the markup hook
// runs first, then every script block, then every style block. Each stage
// that changes the text contributes a map and the stage maps are chained
// into one map from the final code to source.
func Run(ctx context.Context, src, filename string, groups []Group) (*Result, error) {
	base := filepath.Base(filename)
	res := &Result{Code: src}
	seen := make(map[string]struct{})
	addDeps := func(deps []string) {
		for _, d := range deps {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			res.Dependencies = append(res.Dependencies, d)
		}
	}
	chain := func(stage *sourcemap.Map) error {
		if res.Map == nil {
			res.Map = stage
			return nil
		}
		m, err := sourcemap.Compose(stage, res.Map)
		if err != nil {
			return err
		}
		res.Map = m
		return nil
	}

	for _, g := range groups {
		if g.Markup != nil {
			code, stage, deps, err := runMarkup(ctx, res.Code, filename, base, g.Markup)
			if err != nil {
				return nil, fmt.Errorf("%s markup: %w", g.Name, err)
			}
			addDeps(deps)
			if stage != nil {
				res.Code = code
				if err := chain(stage); err != nil {
					return nil, err
				}
			}
		}
		for _, step := range []struct {
			tag string
			re  *regexp.Regexp
			fn  BlockFunc
		}{{"script", scriptRe, g.Script}, {"style", styleRe, g.Style}} {
			if step.fn == nil {
				continue
			}
			code, stage, deps, err := runBlocks(ctx, res.Code, filename, base, step.tag, step.re, step.fn)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", g.Name, step.tag, err)
			}
			addDeps(deps)
			if stage != nil {
				res.Code = code
				if err := chain(stage); err != nil {
					return nil, err
				}
			}
		}
	}
	return res, nil
}

func runMarkup(ctx context.Context, text, filename, base string, fn MarkupFunc) (string, *sourcemap.Map, []string, error) {
	p, err := fn(ctx, MarkupInput{Content: text, Filename: filename})
	if err != nil || p == nil {
		return text, nil, nil, err
	}
	if p.Code == text && p.Map == nil {
		return text, nil, p.Dependencies, nil
	}
	if p.Map != nil {
		m := p.Map.Clone()
		m.File = base
		return p.Code, m, p.Dependencies, nil
	}
	s := newSplicer(text, base)
	s.replace(0, text, p)
	return s.text(), s.stageMap(), p.Dependencies, nil
}

func runBlocks(ctx context.Context, text, filename, base, tag string, re *regexp.Regexp, fn BlockFunc) (string, *sourcemap.Map, []string, error) {
	file := source.New(filename, "", []byte(text))
	s := newSplicer(text, base)
	var deps []string
	changed := false
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if err := ctx.Err(); err != nil {
			return "", nil, nil, err
		}
		if strings.HasPrefix(text[m[0]:m[1]], "<!--") {
			continue
		}
		attrs := ""
		if m[2] >= 0 {
			attrs = text[m[2]:m[3]]
		}
		content, contentStart := "", m[1]
		if m[4] >= 0 {
			content, contentStart = text[m[4]:m[5]], m[4]
		}
		p, err := fn(ctx, BlockInput{
			Content:    content,
			Attributes: parseAttributes(attrs),
			Markup:     text,
			Filename:   filename,
			Start:      file.Resolve(contentStart),
		})
		if err != nil {
			return "", nil, nil, err
		}
		if p == nil {
			continue
		}
		deps = append(deps, p.Dependencies...)
		if p.Code == content {
			continue
		}
		changed = true
		if m[4] >= 0 {
			s.keep(last, contentStart)
			s.replace(contentStart, content, p)
			last = m[5]
			continue
		}
		// <script ... /> grows a body
		s.keep(last, m[0])
		s.write("<" + tag + attrs + ">")
		s.replace(m[0], content, p)
		s.write("</" + tag + ">")
		last = m[1]
	}
	if !changed {
		return text, nil, deps, nil
	}
	s.keep(last, len(text))
	return s.text(), s.stageMap(), deps, nil
}

func parseAttributes(raw string) Attributes {
	out := Attributes{}
	for _, m := range attrRe.FindAllStringSubmatch(raw, -1) {
		val := m[2]
		if val == "" {
			val = m[3]
		}
		if val == "" {
			val = m[4]
		}
		out[m[1]] = val
	}
	return out
}
