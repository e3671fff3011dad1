package selector

type state uint8

const (
	stateNone state = iota
	stateAfterAt
	stateInBracket
	stateAfterBracketClose
)

func (s state) String() string {
	switch s {
	case stateNone:
		return "None"
	case stateAfterAt:
		return "AfterAt"
	case stateInBracket:
		return "InBracket"
	case stateAfterBracketClose:
		return "AfterBracketClose"
	}
	return "unknown"
}

// scanner walks a line prefix one byte at a time. Offsets are -1 until the
// corresponding byte has been seen.
type scanner struct {
	state state

	// AfterAt sub-state: a word followed the `@`, and whitespace followed
	// that word.
	atWord     bool
	atWordDone bool

	at          int  // last `@`
	open        int  // last `[`
	close       int  // last `]`
	prevClose   int  // the `]` before close
	openAfterAt bool // last `[` directly followed `@word`
}

func scanPrefix(prefix string) scanner {
	sc := scanner{at: -1, open: -1, close: -1, prevClose: -1}
	for i := 0; i < len(prefix); i++ {
		sc.step(i, prefix[i])
	}
	return sc
}

// step applies one byte:
//
//	'@'         any → AfterAt
//	'['         any → InBracket
//	']'         any → AfterBracketClose
//	word        AfterAt stays unless its word already ended (→ None);
//	            AfterBracketClose → None; others stay
//	whitespace  ends the AfterAt word; otherwise no change
//	other       InBracket stays; others → None
func (sc *scanner) step(i int, c byte) {
	switch {
	case c == '@':
		sc.at = i
		sc.state = stateAfterAt
		sc.atWord = false
		sc.atWordDone = false
	case c == '[':
		sc.openAfterAt = sc.state == stateAfterAt && sc.atWord && !sc.atWordDone
		sc.open = i
		sc.state = stateInBracket
	case c == ']':
		sc.prevClose = sc.close
		sc.close = i
		sc.state = stateAfterBracketClose
	case isSpace(c):
		if sc.state == stateAfterAt && sc.atWord {
			sc.atWordDone = true
		}
	case isWordByte(c):
		switch sc.state {
		case stateAfterAt:
			if sc.atWordDone {
				sc.state = stateNone
			} else {
				sc.atWord = true
			}
		case stateAfterBracketClose:
			sc.state = stateNone
		}
	default:
		if sc.state != stateInBracket {
			sc.state = stateNone
		}
	}
}
