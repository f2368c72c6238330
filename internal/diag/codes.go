package diag

// Code identifies the kind of a diagnostic. Compiler codes pass through as
// reported; the pipeline's own codes are listed below.
type Code string

const (
	UnknownCode Code = ""

	// SourceRead: файл компонента не читается
	SourceRead Code = "source-read"
	// ScriptSrcMissing is reported when <script src> points nowhere.
	ScriptSrcMissing Code = "script-src-missing"
	// TransformWarning wraps warnings of the type-stripping transform.
	TransformWarning Code = "transform-warning"
	TransformFailed  Code = "transform-failed"
	PreprocessFailed Code = "preprocess-failed"
	CompileFailed    Code = "compile-failed"
	DynamicOptions   Code = "dynamic-options"
	// CSSNotFound means the style half of the css handshake found no entry.
	CSSNotFound  Code = "css-not-found"
	CSSDuplicate Code = "css-duplicate"
)

// ID returns the stable string form.
func (c Code) ID() string {
	if c == UnknownCode {
		return "unknown"
	}
	return string(c)
}
