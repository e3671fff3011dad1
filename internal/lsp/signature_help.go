package lsp

import (
	"encoding/json"
	"strings"

	"dpscript/internal/catalog"
	"dpscript/internal/selector"
)

func (s *Server) handleSignatureHelp(msg *rpcMessage) error {
	var params signatureHelpParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	text, ok := s.session.docs.Text(params.TextDocument.URI)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	line, cursor := lineAt(text, params.Position)
	help := buildSignatureHelp(line, cursor)
	if help == nil {
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, help)
}

// buildSignatureHelp returns nil when the cursor is not inside a call, and
// an empty result when the called member is unknown or has no usage.
func buildSignatureHelp(line string, cursor int) *signatureHelp {
	open := openParenBefore(line, cursor)
	if open < 0 {
		return nil
	}
	name := selector.WordBefore(line, open)
	member, ok := catalog.LookupMember(name)
	if !ok || member.Usage == "" {
		return &signatureHelp{Signatures: []signatureInformation{}}
	}
	info := signatureInformation{
		Label:         member.Usage,
		Documentation: markdownDoc(memberDocumentation(member)),
		Parameters:    make([]parameterInformation, 0, len(member.Params)),
	}
	from := strings.IndexByte(member.Usage, '(') + 1
	for _, p := range member.Params {
		param := parameterInformation{Label: p.Name, Documentation: markdownDoc(p.Doc)}
		if idx := strings.Index(member.Usage[from:], p.Name); idx >= 0 {
			start := from + idx
			end := start + len(p.Name)
			param.Label = [2]int{utf16Len(member.Usage[:start]), utf16Len(member.Usage[:end])}
			from = end
		}
		info.Parameters = append(info.Parameters, param)
	}
	active := topLevelCommas(line[open+1 : cursor])
	if n := len(info.Parameters); n > 0 && active >= n {
		active = n - 1
	}
	return &signatureHelp{
		Signatures:      []signatureInformation{info},
		ActiveSignature: 0,
		ActiveParameter: active,
	}
}

func memberDocumentation(m catalog.Member) string {
	var sb strings.Builder
	sb.WriteString(m.Doc)
	if len(m.Params) == 0 {
		return sb.String()
	}
	sb.WriteString("\n\n")
	for _, p := range m.Params {
		sb.WriteString("- `")
		sb.WriteString(p.Name)
		sb.WriteString("`: ")
		sb.WriteString(p.Doc)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// openParenBefore scans backward from cursor for the nearest '(' that is
// not closed before the cursor. It returns -1 when there is none.
func openParenBefore(line string, cursor int) int {
	if cursor > len(line) {
		cursor = len(line)
	}
	depth := 0
	for i := cursor - 1; i >= 0; i-- {
		switch line[i] {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// topLevelCommas counts commas in args outside nested brackets and string
// literals.
func topLevelCommas(args string) int {
	count, depth := 0, 0
	var quote byte
	for i := 0; i < len(args); i++ {
		c := args[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}
