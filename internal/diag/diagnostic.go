package diag

// Location is a position in an authored file.
type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, bytes
	Length   int
	LineText string
}

// Diagnostic is one warning or error surfaced to the host.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Text     string
	Location *Location // nil for message-only diagnostics
}

// Point is a compiler-reported position.
type Point struct {
	Line      int // 1-based
	Column    int // 0-based
	Character int // absolute offset, -1 when unknown
}

// Message is a raw finding as a transform or compiler reports it, before
// translation into original coordinates.
type Message struct {
	Code     Code
	Text     string
	Filename string
	Start    *Point
	End      *Point
}

// Positioned is implemented by errors that know where they happened.
type Positioned interface {
	error
	DiagnosticMessage() Message
}

func New(sev Severity, code Code, text string, loc *Location) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Text: text, Location: loc}
}

func NewError(code Code, text string) Diagnostic {
	return New(SevError, code, text, nil)
}

func NewWarning(code Code, text string, loc *Location) Diagnostic {
	return New(SevWarning, code, text, loc)
}

// At returns a location pointing at the start of file.
func At(file string) *Location {
	return &Location{File: file}
}
