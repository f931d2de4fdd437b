package server

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/nimaipatel/rlox-bytecode/compiler"
	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
	"github.com/nimaipatel/rlox-bytecode/pkg/session"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "rlox-lsp"

var log = commonlog.GetLogger("rlox.server")

// LspServer evaluates open Lox documents and reports their faults as
// diagnostics. All evaluation goes through the Worker.
type LspServer struct {
	worker *Worker
	docs   *DocumentStore

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server whose document sessions use opts.
func NewLSP(opts session.Options) *LspServer {
	// Tracing and listings would write into the protocol stream.
	opts.Trace = false
	opts.Disassemble = nil

	s := &LspServer{
		worker:  NewWorker(),
		docs:    NewDocumentStore(opts),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- Lifecycle ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s %s initializing", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Do(func() interface{} {
		s.docs.CloseAll()
		return nil
	})
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Documents ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// Full sync: only the final event matters.
	n := len(params.ContentChanges)
	if n == 0 {
		return nil
	}
	if whole, ok := params.ContentChanges[n-1].(protocol.TextDocumentContentChangeEventWhole); ok {
		s.update(ctx, uri, whole.Text)
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.worker.Do(func() interface{} {
		s.docs.Close(string(uri))
		return nil
	})

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update evaluates the new text and publishes its diagnostics. Nothing is
// published once the worker has stopped.
func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics, ok := s.evaluate(string(uri), text)
	if !ok {
		return
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// evaluate runs the document on the worker and converts its faults. An
// internal VM error becomes a diagnostic on the first line. ok is false
// after shutdown.
func (s *LspServer) evaluate(uri, text string) (diagnostics []protocol.Diagnostic, ok bool) {
	value, err := s.worker.Do(func() interface{} {
		return s.docs.Evaluate(uri, text)
	})
	var faults []Fault
	switch {
	case errors.Is(err, ErrWorkerStopped):
		log.Debugf("dropping update for %s after shutdown", uri)
		return nil, false
	case err != nil:
		faults = []Fault{{Kind: InternalFault, Line: 1, Message: err.Error()}}
	default:
		faults = value.(*Document).Faults
	}
	return diagnosticsFor(text, faults), true
}

// --- Completion and hover ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.docs.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(doc.Text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := string(params.TextDocument.URI)
	pos := params.Position

	result, err := s.worker.Do(func() interface{} {
		doc, ok := s.docs.Get(uri)
		if !ok {
			return nil
		}
		return hover(doc, pos)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	h, _ := result.(*protocol.Hover)
	return h, nil
}

func complete(prefix string) []protocol.CompletionItem {
	want := strings.ToLower(prefix)
	kind := protocol.CompletionItemKindKeyword
	detail := "keyword"

	var out []protocol.CompletionItem
	for _, kw := range compiler.Keywords() {
		if strings.HasPrefix(kw, want) {
			insert := kw
			out = append(out, protocol.CompletionItem{Label: kw, Kind: &kind, Detail: &detail, InsertText: &insert})
		}
	}
	return out
}

// hover lists the instructions compiled from the hovered line, plus the
// document's result when it evaluated cleanly.
func hover(doc *Document, pos protocol.Position) *protocol.Hover {
	chunk := doc.Session.Chunk()
	line := int(pos.Line) + 1

	var listing strings.Builder
	for offset := 0; offset < chunk.Len(); {
		if chunk.LineAt(offset) != line {
			op, err := bytecode.Decode(chunk.Code[offset])
			if err != nil {
				offset++
				continue
			}
			offset += op.Width()
			continue
		}
		next, ok := chunk.DisassembleInstruction(&listing, offset)
		if !ok {
			break
		}
		offset = next
	}
	if listing.Len() == 0 {
		return nil
	}

	var b strings.Builder
	if word := extractWord(doc.Text, pos); word != "" {
		fmt.Fprintf(&b, "**%s** (line %d)\n\n", word, line)
	} else {
		fmt.Fprintf(&b, "**line %d**\n\n", line)
	}
	b.WriteString("```\n")
	b.WriteString(listing.String())
	b.WriteString("```\n")
	if doc.Result != "" {
		fmt.Fprintf(&b, "\nResult: `%s`\n", doc.Result)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Diagnostics ---

// diagnosticsFor maps faults to diagnostics spanning their whole line.
// Runtime faults are warnings; everything else is an error.
func diagnosticsFor(text string, faults []Fault) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	lines := strings.Split(text, "\n")
	for _, f := range faults {
		row := f.Line - 1
		if row < 0 {
			row = 0
		}
		width := 0
		if row < len(lines) {
			width = len(lines[row])
		}

		severity := protocol.DiagnosticSeverityError
		if f.Kind == RuntimeFault {
			severity = protocol.DiagnosticSeverityWarning
		}
		source := lspName + "/" + f.Kind.String()
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(row), Character: 0},
				End:   protocol.Position{Line: protocol.UInteger(row), Character: protocol.UInteger(width)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  f.Message,
		})
	}
	return diagnostics
}

// --- Cursor text ---

// identSpan returns the line under pos and the bounds of the identifier
// touching the cursor column. ok is false when pos is past the last line.
func identSpan(text string, pos protocol.Position) (line string, start, col, end int, ok bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, 0, 0, false
	}
	line = lines[pos.Line]
	col = min(int(pos.Character), len(line))
	start, end = col, col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}
	return line, start, col, end, true
}

// extractPrefix returns the identifier fragment left of the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	line, start, col, _, ok := identSpan(text, pos)
	if !ok {
		return ""
	}
	return line[start:col]
}

// extractWord returns the whole identifier or number under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, start, _, end, ok := identSpan(text, pos)
	if !ok {
		return ""
	}
	return line[start:end]
}

func isIdentByte(ch byte) bool {
	r := rune(ch)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
