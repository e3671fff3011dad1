package diagnostics

import (
	"errors"
	"sort"

	"dpscript/internal/fileuri"
)

// Documents is the read-only view of the open documents a Translator
// publishes for. URIs are canonical (see fileuri.Canonical).
type Documents interface {
	Text(uri string) (string, bool)
	OpenURIs() []string
}

// Logger receives translator log lines.
type Logger func(format string, args ...any)

// Translator applies compiler output to the diagnostic store and returns
// the publications the caller must send, in order. It is not safe for
// concurrent use; the server loop owns it.
type Translator struct {
	docs  Documents
	store *Store
	acc   *Accumulator
	logf  Logger

	Malformed int
}

func NewTranslator(docs Documents, logf Logger) *Translator {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Translator{
		docs:  docs,
		store: NewStore(),
		acc:   NewAccumulator(),
		logf:  logf,
	}
}

// BeginPass starts a persistent compile pass: accumulators are reset and
// every open document is published empty.
func (t *Translator) BeginPass() []Publication {
	t.acc.Reset()
	open := sortedOpen(t.docs)
	pubs := make([]Publication, 0, len(open))
	for _, uri := range open {
		t.store.Set(uri, nil)
		pubs = append(pubs, Publication{URI: uri, Records: []Record{}})
	}
	return pubs
}

// StreamLine applies one stderr line of the persistent compiler. It returns
// the accumulated list of the affected document, or nothing for
// informational, malformed or unopened-file lines.
func (t *Translator) StreamLine(line string) []Publication {
	ce, ok, err := ParseStreamLine(line)
	if err != nil {
		t.Malformed++
		t.logf("discarding compiler line: %v", err)
		return nil
	}
	if !ok {
		if line != "" {
			t.logf("compiler: %s", line)
		}
		return nil
	}
	rec, ok := t.resolve(ce)
	if !ok {
		return nil
	}
	list := t.acc.Append(rec)
	t.store.Set(rec.URI, list)
	return []Publication{{URI: rec.URI, Records: list}}
}

// ApplyBatch replaces the diagnostics of every open document with the
// result set of one complete batch cycle. Open documents with no errors in
// the set are published empty.
func (t *Translator) ApplyBatch(errs []CompilerError) []Publication {
	t.acc.Reset()
	grouped := make(map[string][]Record)
	for _, ce := range errs {
		rec, ok := t.resolve(ce)
		if !ok {
			continue
		}
		grouped[rec.URI] = append(grouped[rec.URI], rec)
	}
	open := sortedOpen(t.docs)
	pubs := make([]Publication, 0, len(open))
	for _, uri := range open {
		records := grouped[uri]
		if records == nil {
			records = []Record{}
		}
		t.store.Set(uri, records)
		pubs = append(pubs, Publication{URI: uri, Records: records})
	}
	return pubs
}

// Forget evicts a closed document. It reports whether the document had
// records stored.
func (t *Translator) Forget(uri string) bool {
	t.acc.Forget(uri)
	had := len(t.store.byURI[uri]) > 0
	t.store.Delete(uri)
	return had
}

// Reset evicts all state after the compiler process exited or was replaced.
func (t *Translator) Reset() {
	t.acc.Reset()
	t.store.Clear()
}

// Current returns the last published list for uri.
func (t *Translator) Current(uri string) []Record {
	return t.store.Get(uri)
}

func (t *Translator) resolve(ce CompilerError) (Record, bool) {
	uri := fileuri.FromPath(ce.File)
	text, ok := t.docs.Text(uri)
	if !ok {
		return Record{}, false
	}
	return Record{
		URI:      uri,
		Position: ResolvePosition(text, ce.Line, ce.Column),
		Severity: SevError,
		Message:  ce.Message,
		Source:   Source,
	}, true
}

func sortedOpen(docs Documents) []string {
	open := docs.OpenURIs()
	sort.Strings(open)
	return open
}

// IsMissingReport reports whether err means the batch report was absent.
func IsMissingReport(err error) bool {
	return errors.Is(err, ErrNoReport)
}
