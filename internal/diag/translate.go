package diag

import (
	"errors"

	"esvelte/internal/source"
	"esvelte/internal/sourcemap"
)

// Translator rewrites raw findings reported against compiled text into
// diagnostics positioned in the authored file.
//
// Translation is best effort: without a locator, or when the locator misses,
// the compiled coordinates are kept. Only the start is retranslated; the
// span length is measured in compiled text.
type Translator struct {
	// File names the location when a message does not carry its own filename.
	File string
	// Code is the text that was compiled, used for line excerpts.
	Code string
	// Locator maps compiled positions back to the authored file. May be nil.
	Locator sourcemap.Locator
	// Source is the name File goes by inside the map, usually its basename.
	// A locator hit in any other source is resolved through External.
	Source string
	// External returns the display path and text of another map source,
	// such as a script pulled in with src. text may be empty.
	External func(source string) (file, text string)

	lines []string
}

// NewTranslator prepares a translator; m may be nil.
func NewTranslator(file, code string, m *sourcemap.Map) *Translator {
	t := &Translator{File: file, Code: code}
	if m != nil {
		if loc, err := sourcemap.NewLocator(m); err == nil {
			t.Locator = loc
		}
	}
	return t
}

// Translate converts messages of one severity.
func (t *Translator) Translate(sev Severity, msgs ...Message) []Diagnostic {
	out := make([]Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, t.translate(sev, m))
	}
	return out
}

// FromError wraps a failure into a single error diagnostic through the same
// path warnings take.
func (t *Translator) FromError(code Code, err error) []Diagnostic {
	var p Positioned
	if errors.As(err, &p) {
		m := p.DiagnosticMessage()
		if m.Code == UnknownCode {
			m.Code = code
		}
		return t.Translate(SevError, m)
	}
	return []Diagnostic{NewError(code, err.Error())}
}

func (t *Translator) translate(sev Severity, m Message) Diagnostic {
	d := Diagnostic{Severity: sev, Code: m.Code, Text: m.Text}
	if m.Start == nil || m.End == nil {
		return d
	}
	if t.lines == nil {
		t.lines = source.SplitLines(t.Code)
	}

	start := *m.Start
	var lineText string
	if start.Line >= 1 && start.Line <= len(t.lines) {
		lineText = t.lines[start.Line-1]
	}
	lineEnd := len(lineText)
	if m.End.Line == start.Line {
		lineEnd = m.End.Column
	}
	length := max(lineEnd-start.Column, 0)

	file := m.Filename
	if file == "" {
		file = t.File
	}
	if t.Locator != nil {
		if pos, ok := t.Locator.Original(start.Line, start.Column); ok {
			start.Line, start.Column = pos.Line, pos.Column
			if t.Source != "" && pos.Source != t.Source {
				// позиция в другом файле: строка берётся оттуда же
				file, lineText = t.external(pos.Source, pos.Line)
				length = min(length, max(len(lineText)-pos.Column, 0))
			}
		}
	}

	d.Location = &Location{
		File:     file,
		Line:     start.Line,
		Column:   start.Column,
		Length:   length,
		LineText: lineText,
	}
	return d
}

func (t *Translator) external(src string, line int) (string, string) {
	if t.External == nil {
		return src, ""
	}
	file, text := t.External(src)
	if file == "" {
		file = src
	}
	lines := source.SplitLines(text)
	if text == "" || line < 1 || line > len(lines) {
		return file, ""
	}
	return file, lines[line-1]
}
