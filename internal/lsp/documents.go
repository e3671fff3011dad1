package lsp

import (
	"sort"

	"dpscript/internal/fileuri"
)

type document struct {
	uri     string
	wireURI string // spelling the client used
	text    string
	version int
}

// documents holds the open text documents keyed by canonical URI. It
// satisfies diagnostics.Documents.
type documents struct {
	byURI map[string]*document
}

func newDocuments() *documents {
	return &documents{byURI: make(map[string]*document)}
}

func (d *documents) open(uri, text string, version int) string {
	canon := fileuri.Canonical(uri)
	if canon == "" {
		return ""
	}
	d.byURI[canon] = &document{uri: canon, wireURI: uri, text: text, version: version}
	return canon
}

// wireURI maps a canonical URI back to the client's spelling.
func (d *documents) wireURI(uri string) string {
	if doc, ok := d.byURI[uri]; ok && doc.wireURI != "" {
		return doc.wireURI
	}
	return uri
}

func (d *documents) change(uri string, version int, changes []textDocumentContentChangeEvent) (string, bool) {
	uri = fileuri.Canonical(uri)
	doc, ok := d.byURI[uri]
	if !ok {
		return uri, false
	}
	doc.text = applyChanges(doc.text, changes)
	doc.version = version
	return uri, true
}

func (d *documents) setText(uri, text string) {
	if doc, ok := d.byURI[uri]; ok {
		doc.text = text
	}
}

func (d *documents) close(uri string) (*document, bool) {
	uri = fileuri.Canonical(uri)
	doc, ok := d.byURI[uri]
	delete(d.byURI, uri)
	return doc, ok
}

func (d *documents) get(uri string) (*document, bool) {
	doc, ok := d.byURI[fileuri.Canonical(uri)]
	return doc, ok
}

func (d *documents) Text(uri string) (string, bool) {
	doc, ok := d.get(uri)
	if !ok {
		return "", false
	}
	return doc.text, true
}

func (d *documents) OpenURIs() []string {
	out := make([]string, 0, len(d.byURI))
	for uri := range d.byURI {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

func (d *documents) len() int {
	return len(d.byURI)
}
