package lsp

import (
	"encoding/json"

	"dpscript/internal/catalog"
	"dpscript/internal/selector"
)

const (
	completionItemKindMethod   = 2
	completionItemKindVariable = 6
	completionItemKindClass    = 7
	completionItemKindProperty = 10
	completionItemKindKeyword  = 14

	insertTextFormatPlain   = 1
	insertTextFormatSnippet = 2
)

var completionTriggers = []string{
	selector.TriggerTarget,
	selector.TriggerParamOpen,
	selector.TriggerParamNext,
	selector.TriggerMember,
}

func (s *Server) handleCompletion(msg *rpcMessage) error {
	var params completionParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	text, ok := s.session.docs.Text(params.TextDocument.URI)
	if !ok {
		return s.sendResponse(msg.ID, completionList{Items: []completionItem{}})
	}
	trigger := ""
	if params.Context != nil {
		trigger = params.Context.TriggerCharacter
	}
	line, cursor := lineAt(text, params.Position)
	kind, items := buildCompletion(line, cursor, trigger)
	s.metrics.CompletionRequest(s.baseCtx, kind.String())
	if s.traceLSP {
		s.logf("completion: line=%q cursor=%d trigger=%q kind=%s items=%d", line, cursor, trigger, kind, len(items))
	}
	return s.sendResponse(msg.ID, completionList{Items: items})
}

// buildCompletion classifies the cursor and returns the matching items.
// Outside any selector context, statement keywords are offered unless a
// selector trigger character fired.
func buildCompletion(line string, cursor int, trigger string) (selector.Kind, []completionItem) {
	ctx := selector.Classify(line, cursor, trigger)
	switch ctx.Kind {
	case selector.KindTarget:
		return ctx.Kind, targetCompletions()
	case selector.KindParam:
		return ctx.Kind, paramCompletions()
	case selector.KindMember:
		return ctx.Kind, memberCompletions()
	}
	if trigger == "" {
		return ctx.Kind, keywordCompletions()
	}
	return ctx.Kind, []completionItem{}
}

func targetCompletions() []completionItem {
	items := make([]completionItem, 0, len(catalog.Entities)+len(catalog.Aliases))
	for _, entity := range catalog.Entities {
		items = append(items, completionItem{
			Label:         entity,
			Kind:          completionItemKindClass,
			Documentation: plainDoc(catalog.EntityDoc(entity)),
		})
	}
	for _, alias := range catalog.Aliases {
		items = append(items, completionItem{
			Label:         alias.Name,
			Kind:          completionItemKindVariable,
			Detail:        alias.Detail(),
			Documentation: plainDoc(alias.Doc),
		})
	}
	return items
}

func paramCompletions() []completionItem {
	items := make([]completionItem, 0, len(catalog.SelectorParams))
	for _, p := range catalog.SelectorParams {
		items = append(items, completionItem{
			Label:         p.Name,
			Kind:          completionItemKindProperty,
			Documentation: plainDoc(p.Doc),
		})
	}
	return items
}

func memberCompletions() []completionItem {
	items := make([]completionItem, 0, len(catalog.Members))
	for _, m := range catalog.Members {
		text, snippet := m.InsertText()
		item := completionItem{
			Label:            m.Name,
			Kind:             completionItemKindMethod,
			Detail:           m.Usage,
			InsertText:       text,
			InsertTextFormat: insertTextFormatPlain,
		}
		if snippet {
			item.InsertTextFormat = insertTextFormatSnippet
		}
		if m.Doc != "" {
			item.Documentation = plainDoc(m.Doc)
		}
		items = append(items, item)
	}
	return items
}

func keywordCompletions() []completionItem {
	items := make([]completionItem, 0, len(catalog.Keywords))
	for _, kw := range catalog.Keywords {
		items = append(items, completionItem{
			Label:            kw.Name,
			Kind:             completionItemKindKeyword,
			InsertText:       kw.Snippet,
			InsertTextFormat: insertTextFormatSnippet,
			Documentation:    markdownDoc(kw.Doc),
		})
	}
	return items
}

func plainDoc(value string) *markupContent {
	return &markupContent{Kind: "plaintext", Value: value}
}

func markdownDoc(value string) *markupContent {
	return &markupContent{Kind: "markdown", Value: value}
}
