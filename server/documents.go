package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/nimaipatel/rlox-bytecode/compiler"
	"github.com/nimaipatel/rlox-bytecode/pkg/session"
	"github.com/nimaipatel/rlox-bytecode/vm"
)

// FaultKind classifies a document fault.
type FaultKind int

const (
	ScanFault FaultKind = iota
	ParseFault
	CompileFault
	RuntimeFault
	InternalFault
)

func (k FaultKind) String() string {
	switch k {
	case ScanFault:
		return "scan"
	case ParseFault:
		return "parse"
	case CompileFault:
		return "compile"
	case RuntimeFault:
		return "runtime"
	default:
		return "internal"
	}
}

// Fault is a problem found while evaluating a document, at a 1-based line.
type Fault struct {
	Kind    FaultKind
	Line    int
	Message string
}

// Document is an open editor buffer and the session that evaluated it.
type Document struct {
	URI     string
	Text    string
	Session *session.Session
	Result  string // formatted value of the last evaluation, "" after a fault
	Faults  []Fault
}

// DocumentStore manages open documents. Evaluate and Close touch sessions
// and must run on the worker goroutine.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
	opts session.Options
}

// NewDocumentStore creates a store whose sessions use opts.
func NewDocumentStore(opts session.Options) *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]*Document),
		opts: opts,
	}
}

// Evaluate replaces the document's text, evaluates it in a fresh session
// and returns the updated document.
func (s *DocumentStore) Evaluate(uri, text string) *Document {
	doc := &Document{URI: uri, Text: text, Session: session.New(s.opts)}

	s.mu.Lock()
	prev := s.docs[uri]
	s.docs[uri] = doc
	s.mu.Unlock()

	if prev != nil {
		prev.Session.Close()
	}

	value, err := doc.Session.Eval(text)
	if err != nil {
		doc.Faults = faultsFor(err)
		return doc
	}
	doc.Result = doc.Session.Format(value)
	return doc
}

// Get retrieves a document by URI.
func (s *DocumentStore) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]
	return doc, ok
}

// Close removes a document and releases its session.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	doc := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()

	if doc != nil {
		doc.Session.Close()
	}
}

// CloseAll closes every document.
func (s *DocumentStore) CloseAll() {
	for _, uri := range s.URIs() {
		s.Close(uri)
	}
}

// URIs returns the open document URIs in sorted order.
func (s *DocumentStore) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Len returns the number of open documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// faultsFor converts an evaluation error into faults.
func faultsFor(err error) []Fault {
	var (
		parseErrs  compiler.ParseErrors
		compileErr *compiler.CompileError
		runtimeErr *vm.RuntimeError
	)
	switch {
	case errors.As(err, &parseErrs):
		faults := make([]Fault, len(parseErrs))
		for i, pe := range parseErrs {
			kind := ParseFault
			if pe.Scan {
				kind = ScanFault
			}
			faults[i] = Fault{Kind: kind, Line: pe.Line, Message: pe.Error()}
		}
		return faults
	case errors.As(err, &compileErr):
		return []Fault{{Kind: CompileFault, Line: compileErr.Line, Message: compileErr.Error()}}
	case errors.As(err, &runtimeErr):
		return []Fault{{Kind: RuntimeFault, Line: runtimeErr.Line, Message: runtimeErr.Error()}}
	}
	return []Fault{{Kind: InternalFault, Line: 1, Message: err.Error()}}
}
