package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1 // span start
	KindSpanEnd                   // span end
	KindPoint                     // instant event
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	ScopeSession Scope = iota + 1 // initialize..shutdown
	ScopeCompile                  // one compile pass or batch cycle
	ScopeProcess                  // compiler process events
	ScopeRequest                  // single protocol requests
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeCompile:
		return "compile"
	case ScopeProcess:
		return "process"
	case ScopeRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	Name     string            // e.g. "initialize", "compile", "process:spawn"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
