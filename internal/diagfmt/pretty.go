package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"esvelte/internal/diag"
)

type palette struct {
	err, warn, info, path, gutter, caret *color.Color
}

func newPalette(on bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.gutter, p.caret} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид:
//
//	<path>:<line>:<col>: <SEV> <code>: <text>
//	  12 | <line>
//	     |     ^~~~
//
// Диагностики печатаются в порядке слайса.
func Pretty(w io.Writer, diags []diag.Diagnostic, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for _, d := range diags {
		if err := prettyOne(w, d, opts, p); err != nil {
			return err
		}
	}
	return nil
}

func prettyOne(w io.Writer, d diag.Diagnostic, opts PrettyOpts, p palette) error {
	var head strings.Builder
	if loc := d.Location; loc != nil && loc.File != "" {
		where := formatPath(loc.File, opts.PathMode, opts.Root)
		if loc.Line > 0 {
			where += ":" + strconv.Itoa(loc.Line) + ":" + strconv.Itoa(loc.Column+1)
		}
		head.WriteString(p.path.Sprint(where))
		head.WriteString(": ")
	}
	head.WriteString(p.severity(d.Severity).Sprint(d.Severity.String()))
	if d.Code != diag.UnknownCode {
		head.WriteString(" " + d.Code.ID())
	}
	head.WriteString(": " + d.Text)
	if _, err := fmt.Fprintln(w, head.String()); err != nil {
		return err
	}

	loc := d.Location
	if opts.HideExcerpt || loc == nil || loc.Line <= 0 || loc.LineText == "" {
		return nil
	}
	num := strconv.Itoa(loc.Line)
	pad := strings.Repeat(" ", len(num))
	text := loc.LineText
	if opts.Width > 0 {
		text = runewidth.Truncate(text, opts.Width, "...")
	}
	if _, err := fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), text); err != nil {
		return err
	}
	indent, marker := caret(loc.LineText, loc.Column, loc.Length)
	_, err := fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), indent, p.caret.Sprint(marker))
	return err
}

// caret lines the marker up under the byte span [col, col+length) of line.
// Tabs are kept so the terminal expands them the same way in both lines.
func caret(line string, col, length int) (string, string) {
	col = min(max(col, 0), len(line))
	end := min(col+max(length, 0), len(line))
	var indent strings.Builder
	for _, r := range line[:col] {
		if r == '\t' {
			indent.WriteByte('\t')
			continue
		}
		indent.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	width := runewidth.StringWidth(line[col:end])
	if width <= 1 {
		return indent.String(), "^"
	}
	return indent.String(), "^" + strings.Repeat("~", width-1)
}
