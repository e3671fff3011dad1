package lsp

import "dpscript/internal/diagnostics"

// publish sends publications in order, mapping each URI back to the
// client's spelling.
func (s *Server) publish(pubs []diagnostics.Publication) {
	docs := s.session.docs
	for _, pub := range pubs {
		list := toLSPDiagnostics(pub.Records)
		if err := s.sendPublish(docs.wireURI(pub.URI), list); err != nil {
			s.logf("failed to publish diagnostics: %v", err)
			continue
		}
		s.metrics.DiagnosticsPublished(s.baseCtx, len(list))
	}
}

// clearPublishedDiagnostics empties every open document that still shows
// diagnostics.
func (s *Server) clearPublishedDiagnostics() {
	ss := s.session
	for _, uri := range ss.docs.OpenURIs() {
		if len(ss.translator.Current(uri)) == 0 {
			continue
		}
		if err := s.sendPublish(ss.docs.wireURI(uri), nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	ss.translator.Reset()
}

func toLSPDiagnostics(records []diagnostics.Record) []lspDiagnostic {
	list := make([]lspDiagnostic, 0, len(records))
	for _, rec := range records {
		pos := position{Line: rec.Position.Line, Character: rec.Position.Character}
		list = append(list, lspDiagnostic{
			Range:    lspRange{Start: pos, End: pos},
			Severity: int(rec.Severity),
			Source:   rec.Source,
			Message:  rec.Message,
		})
	}
	return list
}
