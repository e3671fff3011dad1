package diagnostics

// Severity uses the protocol's numbering.
type Severity uint8

const (
	SevError       Severity = 1
	SevWarning     Severity = 2
	SevInformation Severity = 3
	SevHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SevError:
		return "ERROR"
	case SevWarning:
		return "WARNING"
	case SevInformation:
		return "INFO"
	case SevHint:
		return "HINT"
	}
	return "UNKNOWN"
}

// Source tags every record produced by this package.
const Source = "dpscript"

// Position is zero-based; Character counts UTF-16 code units.
type Position struct {
	Line      int
	Character int
}

// Record is one diagnostic. Its range is the zero-length range at Position.
type Record struct {
	URI      string
	Position Position
	Severity Severity
	Message  string
	Source   string
}

// CompilerError is an error reported by the compiler before it has been
// resolved against a document. Line is one-based, or -1 for "end of file".
type CompilerError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Publication is a diagnostic list that must be sent for URI. An empty
// Records slice clears the document.
type Publication struct {
	URI     string
	Records []Record
}
