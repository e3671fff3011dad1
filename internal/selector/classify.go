package selector

// Kind identifies the completion context at a cursor.
type Kind uint8

const (
	// KindNone means no selector completion applies.
	KindNone Kind = iota
	// KindTarget is the target name right after `@`.
	KindTarget
	// KindParam is a key inside the selector's bracket list.
	KindParam
	// KindMember is an operation after `.` following a selector.
	KindMember
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTarget:
		return "target"
	case KindParam:
		return "param"
	case KindMember:
		return "member"
	}
	return "unknown"
}

// Trigger characters reported by the editor.
const (
	TriggerNone      = ""
	TriggerTarget    = "@"
	TriggerParamOpen = "["
	TriggerParamNext = ","
	TriggerMember    = "."
	TriggerCallOpen  = "("
	TriggerCallNext  = ","
)

// Context is the result of Classify. Anchor is the byte offset of the `@`
// (target, member) or `[` (param) the context hangs off, or -1.
type Context struct {
	Kind   Kind
	Anchor int
}

var none = Context{Kind: KindNone, Anchor: -1}

// Classify returns the completion context for cursor (a byte offset into
// line) given the trigger character of the request ("" when the request was
// typed or invoked manually). Rules are tried in the order param, member,
// target; the first match wins.
func Classify(line string, cursor int, trigger string) Context {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(line) {
		cursor = len(line)
	}
	if ctx, ok := classifyParam(line[:cursor], trigger); ok {
		return ctx
	}
	if ctx, ok := classifyMember(line, cursor, trigger); ok {
		return ctx
	}
	if ctx, ok := classifyTarget(line, cursor, trigger); ok {
		return ctx
	}
	return none
}

func classifyParam(prefix, trigger string) (Context, bool) {
	switch trigger {
	case TriggerNone, TriggerParamOpen, TriggerParamNext:
	default:
		return none, false
	}
	sc := scanPrefix(prefix)
	if sc.open <= sc.close || !sc.openAfterAt {
		return none, false
	}
	return Context{Kind: KindParam, Anchor: sc.open}, true
}

func classifyMember(line string, cursor int, trigger string) (Context, bool) {
	dot := -1
	switch trigger {
	case TriggerMember:
		dot = cursor - 1
	case TriggerNone:
		if cursor > 0 && line[cursor-1] == '.' {
			dot = cursor - 1
			break
		}
		start, _, ok := WordRange(line, cursor)
		if !ok {
			return none, false
		}
		dot = start - 1
	default:
		return none, false
	}
	if dot < 0 || line[dot] != '.' {
		return none, false
	}

	sc := scanPrefix(line[:dot])
	// bound is the `]` closing the bracket group before this selector.
	var bound int
	switch sc.state {
	case stateAfterBracketClose:
		bound = sc.prevClose
	case stateAfterAt:
		if !sc.atWord || sc.atWordDone {
			return none, false
		}
		bound = sc.close
	default:
		return none, false
	}
	if sc.open != -1 && sc.at >= sc.open {
		return none, false
	}
	if sc.at <= bound {
		return none, false
	}
	return Context{Kind: KindMember, Anchor: sc.at}, true
}

func classifyTarget(line string, cursor int, trigger string) (Context, bool) {
	switch trigger {
	case TriggerTarget:
		anchor := -1
		if cursor > 0 && line[cursor-1] == '@' {
			anchor = cursor - 1
		}
		return Context{Kind: KindTarget, Anchor: anchor}, true
	case TriggerNone:
		start, _, ok := WordRange(line, cursor)
		if !ok || start == 0 || line[start-1] != '@' {
			return none, false
		}
		return Context{Kind: KindTarget, Anchor: start - 1}, true
	}
	return none, false
}
