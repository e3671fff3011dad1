package selector

import "strings"

// wordSeparators follows the default editor word definition.
const wordSeparators = "`~!@#$%^&*()-=+[{]}\\|;:'\",.<>/?"

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v'
}

func isWordByte(c byte) bool {
	if c >= 0x80 {
		return true
	}
	return !isSpace(c) && strings.IndexByte(wordSeparators, c) < 0
}

// WordRange returns the byte range [start, end) of the word containing or
// touching pos. ok is false when pos is not adjacent to any word byte.
func WordRange(line string, pos int) (start, end int, ok bool) {
	if pos < 0 || pos > len(line) {
		return 0, 0, false
	}
	start = pos
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	end = pos
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	if start == end {
		return 0, 0, false
	}
	return start, end, true
}

// WordBefore returns the word that ends exactly at pos, skipping no bytes.
func WordBefore(line string, pos int) string {
	if pos < 0 || pos > len(line) {
		return ""
	}
	start := pos
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	return line[start:pos]
}
